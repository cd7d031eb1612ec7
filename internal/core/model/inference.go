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

// Package model defines the core data structures of the application.
// This file describes the two external inference services the application
// drives: a prompt expander and a text-to-video generator. Both are opaque;
// only their call signatures are defined here.
package model

import "context"

// ExpansionOutput is what a prompt-expansion service returns.
type ExpansionOutput struct {
	Prompt  string // The expanded prompt, meaningful only when Status is true.
	Status  bool   // False when the service could not expand the prompt.
	Message string // Optional detail from the service.
}

// PromptExpander rewrites a short prompt into a detailed one. lang is the
// lowercased target language ("zh" or "en").
type PromptExpander interface {
	Expand(ctx context.Context, prompt string, lang string) (*ExpansionOutput, error)
}

// GenerateParams is the full parameter set of one generation call.
type GenerateParams struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	SamplingSteps  int
	GuideScale     float64
	Shift          float64
	Seed           int64 // UnsetSeed lets the service choose.
	OffloadModel   bool  // Hint to move idle weights off the device between steps.
	Encoding       VideoEncoding
}

// NewGenerateParams converts a validated request into service parameters,
// with model offloading on and the default encoding.
func NewGenerateParams(req GenerationRequest) GenerateParams {
	return GenerateParams{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		SamplingSteps:  req.SamplingSteps,
		GuideScale:     req.GuideScale,
		Shift:          req.ShiftScale,
		Seed:           req.Seed,
		OffloadModel:   true,
		Encoding:       DefaultVideoEncoding(),
	}
}

// RawVideo is the encoded video returned by a generation service.
type RawVideo struct {
	Data     []byte
	MIMEType string // As reported by the service; may be empty.
}

// VideoGenerator produces a video from a prompt and sampling parameters.
type VideoGenerator interface {
	Generate(ctx context.Context, params GenerateParams) (*RawVideo, error)
}
