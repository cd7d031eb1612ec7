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

// Package model defines the core data structures for the application.
// This file, `request.go`, contains the user-facing inputs of the two UI
// actions. A `GenerationForm` carries the raw values posted by the browser;
// `NewGenerationRequest` validates it and produces the immutable
// `GenerationRequest` that is handed to the generation service.
//
// Logic Flow:
//  1. The resolution choice ("480*832") is split on the delimiter into width and height.
//  2. Each numeric control is checked against the range the UI slider allows.
//  3. Any violation produces a *ValidationError naming the offending field.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Range limits of the UI controls.
const (
	MinSamplingSteps = 1
	MaxSamplingSteps = 1000
	MinScale         = 0.0
	MaxScale         = 20.0
	UnsetSeed        = -1
	MaxSeed          = 2147483647

	// ResolutionDelimiter separates width and height in a resolution choice.
	ResolutionDelimiter = "*"
	// altResolutionDelimiter is accepted as well, e.g. "480x832".
	altResolutionDelimiter = "x"
)

// Language is the target language of the prompt expansion.
type Language string

const (
	LanguageZH Language = "ZH"
	LanguageEN Language = "EN"
)

// ParseLanguage maps a UI choice onto a Language. Matching ignores case.
func ParseLanguage(in string) (Language, error) {
	switch strings.ToUpper(strings.TrimSpace(in)) {
	case string(LanguageZH):
		return LanguageZH, nil
	case string(LanguageEN):
		return LanguageEN, nil
	}
	return "", &ValidationError{Field: "tar_lang", Value: in, Reason: "must be ZH or EN"}
}

// Lower returns the language code in the form the expansion services expect.
func (l Language) Lower() string {
	return strings.ToLower(string(l))
}

// Resolution is a parsed "width*height" choice.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%d%s%d", r.Width, ResolutionDelimiter, r.Height)
}

// ParseResolution splits a resolution choice into its width and height.
// Both "480*832" and "480x832" are accepted. Anything else, including a
// missing delimiter, extra parts, or non-positive numbers, is a *ValidationError.
func ParseResolution(in string) (Resolution, error) {
	value := strings.TrimSpace(in)
	parts := strings.Split(value, ResolutionDelimiter)
	if len(parts) == 1 {
		parts = strings.Split(strings.ToLower(value), altResolutionDelimiter)
	}
	if len(parts) != 2 {
		return Resolution{}, &ValidationError{Field: "resolution", Value: in, Reason: "expected WIDTH*HEIGHT"}
	}
	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Resolution{}, &ValidationError{Field: "resolution", Value: in, Reason: "width is not a number"}
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Resolution{}, &ValidationError{Field: "resolution", Value: in, Reason: "height is not a number"}
	}
	if width <= 0 || height <= 0 {
		return Resolution{}, &ValidationError{Field: "resolution", Value: in, Reason: "width and height must be positive"}
	}
	return Resolution{Width: width, Height: height}, nil
}

// GenerationForm is the raw input of the "Generate Video" action.
type GenerationForm struct {
	Prompt         string  `json:"prompt" form:"prompt"`
	Resolution     string  `json:"resolution" form:"resolution"`
	SamplingSteps  int     `json:"sd_steps" form:"sd_steps"`
	GuideScale     float64 `json:"guide_scale" form:"guide_scale"`
	ShiftScale     float64 `json:"shift_scale" form:"shift_scale"`
	Seed           int64   `json:"seed" form:"seed"`
	NegativePrompt string  `json:"n_prompt" form:"n_prompt"`
}

// GenerationRequest is a validated generation input. It is passed by value
// and never modified once built.
type GenerationRequest struct {
	Prompt         string
	Width          int
	Height         int
	SamplingSteps  int
	GuideScale     float64
	ShiftScale     float64
	Seed           int64 // UnsetSeed leaves the choice to the generation service.
	NegativePrompt string
}

// NewGenerationRequest validates a form and converts it into a GenerationRequest.
//
// Inputs:
//   - form: the values posted by the UI.
//
// Outputs:
//   - GenerationRequest: the validated request.
//   - error: a *ValidationError for the first invalid field.
func NewGenerationRequest(form GenerationForm) (GenerationRequest, error) {
	resolution, err := ParseResolution(form.Resolution)
	if err != nil {
		return GenerationRequest{}, err
	}
	if form.SamplingSteps < MinSamplingSteps || form.SamplingSteps > MaxSamplingSteps {
		return GenerationRequest{}, &ValidationError{
			Field:  "sd_steps",
			Value:  strconv.Itoa(form.SamplingSteps),
			Reason: fmt.Sprintf("must be between %d and %d", MinSamplingSteps, MaxSamplingSteps),
		}
	}
	if err := checkScale("guide_scale", form.GuideScale); err != nil {
		return GenerationRequest{}, err
	}
	if err := checkScale("shift_scale", form.ShiftScale); err != nil {
		return GenerationRequest{}, err
	}
	if form.Seed < UnsetSeed || form.Seed > MaxSeed {
		return GenerationRequest{}, &ValidationError{
			Field:  "seed",
			Value:  strconv.FormatInt(form.Seed, 10),
			Reason: fmt.Sprintf("must be between %d and %d", UnsetSeed, MaxSeed),
		}
	}
	return GenerationRequest{
		Prompt:         form.Prompt,
		Width:          resolution.Width,
		Height:         resolution.Height,
		SamplingSteps:  form.SamplingSteps,
		GuideScale:     form.GuideScale,
		ShiftScale:     form.ShiftScale,
		Seed:           form.Seed,
		NegativePrompt: form.NegativePrompt,
	}, nil
}

func checkScale(field string, value float64) error {
	if math.IsNaN(value) || value < MinScale || value > MaxScale {
		return &ValidationError{
			Field:  field,
			Value:  strconv.FormatFloat(value, 'f', -1, 64),
			Reason: fmt.Sprintf("must be between %g and %g", MinScale, MaxScale),
		}
	}
	return nil
}

// ExpandedPrompt is the result of the "Prompt Enhance" action.
type ExpandedPrompt struct {
	Text      string `json:"prompt"`
	Succeeded bool   `json:"succeeded"`
}
