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

// Package services contains the business logic of the application.
// This file defines the "Generate Video" action.
//
// Inputs:
//   - the raw form submitted by the UI.
//
// Outputs:
//   - the artifact written to the fixed primary path, or one of
//     model.ErrModelUnavailable, *model.ValidationError, *model.GenerationFailure.
package services

import (
	"context"
	"errors"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/workflow"
)

// VideoGeneration runs the generation workflow against the registry's service.
type VideoGeneration struct {
	Registry *ModelRegistry
	Config   *cloud.Config
	Clients  *cloud.ServiceClients // Optional publish sinks.
}

// Generate validates form, calls the generation service and writes the video.
// Without a generation service it fails with model.ErrModelUnavailable before
// touching the form or the filesystem.
func (v *VideoGeneration) Generate(ctx context.Context, form model.GenerationForm) (*model.VideoArtifact, error) {
	generator := v.Registry.Generator()
	if generator == nil {
		return nil, model.ErrModelUnavailable
	}

	wf := workflow.NewVideoGenerationWorkflow(v.Config, v.Clients, generator)
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, form)
	defer chCtx.Close()

	wf.Execute(chCtx)
	if err := chCtx.Err(); err != nil {
		return nil, err
	}
	artifact, ok := chCtx.Get(commands.ParamVideoArtifact).(*model.VideoArtifact)
	if !ok {
		return nil, model.NewGenerationFailure(errors.New("workflow finished without an artifact"))
	}
	return artifact, nil
}
