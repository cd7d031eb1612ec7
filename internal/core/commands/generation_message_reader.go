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
// entry point of queued generations: a Pub/Sub message body holding the same
// JSON the UI posts to `POST /api/v1/videos`.
package commands

import (
	"encoding/json"
	"strings"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// GenerationMessageReader parses a JSON message string into a
// model.GenerationForm.
type GenerationMessageReader struct {
	cor.BaseCommand
}

func NewGenerationMessageReader(name string) *GenerationMessageReader {
	return &GenerationMessageReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute fails with a *model.ValidationError when the message is not a
// JSON object, so the listener can drop it instead of retrying.
func (c *GenerationMessageReader) Execute(context cor.Context) {
	in, _ := context.Get(c.GetInputParam()).(string)

	var form model.GenerationForm
	dec := json.NewDecoder(strings.NewReader(in))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&form); err != nil {
		c.Fail(context, &model.ValidationError{Field: "message", Value: truncate(in, 64), Reason: err.Error()})
		return
	}
	context.Add(c.GetOutputParam(), form)
	c.Succeed(context)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
