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

// Package ui declares the browser interface: the form schema, the HTML page
// rendered from it, and the gin engine that serves the page and its actions.
// This file defines the form schema. The same schema is served as JSON at
// `GET /api/v1/schema` and rendered into the HTML page.
package ui

import "github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"

// FieldKind is the widget a form field renders as.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextArea FieldKind = "textarea"
	KindRadio    FieldKind = "radio"
	KindDropdown FieldKind = "dropdown"
	KindSlider   FieldKind = "slider"
	KindVideo    FieldKind = "video"
)

// Field is one input or output of the form.
type Field struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Choices     []string  `json:"choices,omitempty"`
	Default     any       `json:"default,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Step        *float64  `json:"step,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Advanced    bool      `json:"advanced,omitempty"` // Rendered inside "Advanced Options".
	ReadOnly    bool      `json:"read_only,omitempty"`
}

// Action is a button bound to an endpoint.
type Action struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Method string   `json:"method"`
	Path   string   `json:"path"`
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
	Queued bool     `json:"queued"`
}

// FormSchema is the whole declarative form.
type FormSchema struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Fields   []Field  `json:"fields"`
	Actions  []Action `json:"actions"`
}

// Field names, also used as the JSON keys of the action requests.
const (
	FieldPrompt         = "prompt"
	FieldLanguage       = "tar_lang"
	FieldResolution     = "resolution"
	FieldSamplingSteps  = "sd_steps"
	FieldGuideScale     = "guide_scale"
	FieldShiftScale     = "shift_scale"
	FieldSeed           = "seed"
	FieldNegativePrompt = "n_prompt"
	FieldVideo          = "result_gallery"
)

// ResolutionChoices are the sizes the 1.3B model was trained on.
var ResolutionChoices = []string{"480*832", "832*480", "624*624", "704*544", "544*704"}

func ptr(v float64) *float64 { return &v }

// DefaultFormSchema returns the text-to-video form. apiBase is the prefix of
// the action endpoints, e.g. "/api/v1".
func DefaultFormSchema(title, subtitle, apiBase string, queued bool) FormSchema {
	return FormSchema{
		Title:    title,
		Subtitle: subtitle,
		Fields: []Field{
			{Name: FieldPrompt, Label: "Prompt", Kind: KindTextArea, Placeholder: "Describe the video you want to generate"},
			{Name: FieldLanguage, Label: "Target language of prompt enhance", Kind: KindRadio,
				Choices: []string{string(model.LanguageZH), string(model.LanguageEN)}, Default: string(model.LanguageZH)},
			{Name: FieldResolution, Label: "Resolution", Kind: KindDropdown, Choices: ResolutionChoices, Default: ResolutionChoices[0]},
			{Name: FieldSamplingSteps, Label: "Diffusion steps", Kind: KindSlider, Advanced: true,
				Min: ptr(model.MinSamplingSteps), Max: ptr(model.MaxSamplingSteps), Step: ptr(1), Default: 50},
			{Name: FieldGuideScale, Label: "Guide scale", Kind: KindSlider, Advanced: true,
				Min: ptr(model.MinScale), Max: ptr(model.MaxScale), Step: ptr(0.1), Default: 6.0},
			{Name: FieldShiftScale, Label: "Shift scale", Kind: KindSlider, Advanced: true,
				Min: ptr(model.MinScale), Max: ptr(model.MaxScale), Step: ptr(0.1), Default: 8.0},
			{Name: FieldSeed, Label: "Seed", Kind: KindSlider, Advanced: true,
				Min: ptr(model.UnsetSeed), Max: ptr(model.MaxSeed), Step: ptr(1), Default: model.UnsetSeed},
			{Name: FieldNegativePrompt, Label: "Negative Prompt", Kind: KindText, Advanced: true,
				Placeholder: "Describe the negative prompt you want to add"},
			{Name: FieldVideo, Label: "Generated Video", Kind: KindVideo, ReadOnly: true},
		},
		Actions: []Action{
			{Name: "prompt_enhance", Label: "Prompt Enhance", Method: "POST", Path: apiBase + "/prompt/expand",
				Inputs: []string{FieldPrompt, FieldLanguage}, Output: FieldPrompt, Queued: queued},
			{Name: "generate", Label: "Generate Video", Method: "POST", Path: apiBase + "/videos",
				Inputs: []string{FieldPrompt, FieldResolution, FieldSamplingSteps, FieldGuideScale,
					FieldShiftScale, FieldSeed, FieldNegativePrompt},
				Output: FieldVideo, Queued: queued},
		},
	}
}

// Basic and Advanced split the input fields the way the page lays them out.
func (s FormSchema) Basic() []Field    { return s.filter(false) }
func (s FormSchema) Advanced() []Field { return s.filter(true) }

func (s FormSchema) filter(advanced bool) []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Kind != KindVideo && f.Advanced == advanced {
			out = append(out, f)
		}
	}
	return out
}
