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
// Responsibility (COR) pattern's Command interface. This file defines the
// first step of the generation chain: turning the raw UI form into a
// validated GenerationRequest. Nothing downstream runs when it fails, so a
// malformed form never reaches the generation service.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// GenerationRequestValidator converts a model.GenerationForm into a
// model.GenerationRequest.
type GenerationRequestValidator struct {
	cor.BaseCommand
}

func NewGenerationRequestValidator(name string) *GenerationRequestValidator {
	return &GenerationRequestValidator{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute reads the form from the input parameter and stores the request
// under both CtxOut and ParamGenerationRequest.
func (v *GenerationRequestValidator) Execute(context cor.Context) {
	form, ok := context.Get(v.GetInputParam()).(model.GenerationForm)
	if !ok {
		v.Fail(context, fmt.Errorf("expected a generation form, got %T", context.Get(v.GetInputParam())))
		return
	}
	req, err := model.NewGenerationRequest(form)
	if err != nil {
		v.Fail(context, err)
		return
	}
	context.Add(ParamGenerationRequest, req)
	context.Add(v.GetOutputParam(), req)
	v.Succeed(context)
}
