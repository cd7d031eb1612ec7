// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface for the video generation
// workflow.
//
// Besides CtxIn/CtxOut piping, commands share two well-known context keys so
// the publish steps, which run in a separate chain, can find the validated
// request and the artifact.
package commands

const (
	ParamGenerationRequest = "__GENERATION_REQUEST__" // model.GenerationRequest
	ParamVideoArtifact     = "__VIDEO_ARTIFACT__"     // *model.VideoArtifact
)
