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
// command that calls the external text-to-video service.
//
// The call is synchronous and may take many minutes; it ends when the
// service answers or the request context is cancelled. Every error the
// service returns is reported as a model.GenerationFailure with the original
// cause attached.
package commands

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// VideoGenerate sends a validated request to a model.VideoGenerator.
type VideoGenerate struct {
	cor.BaseCommand
	generator model.VideoGenerator
	duration  metric.Float64Histogram
}

func NewVideoGenerate(name string, generator model.VideoGenerator) *VideoGenerate {
	c := &VideoGenerate{BaseCommand: *cor.NewBaseCommand(name), generator: generator}
	c.duration, _ = c.GetMeter().Float64Histogram(fmt.Sprintf("%s.duration", name), metric.WithUnit("s"))
	return c
}

func (v *VideoGenerate) Execute(context cor.Context) {
	req, ok := context.Get(v.GetInputParam()).(model.GenerationRequest)
	if !ok {
		v.Fail(context, fmt.Errorf("expected a generation request, got %T", context.Get(v.GetInputParam())))
		return
	}
	params := model.NewGenerateParams(req)

	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.Int("width", params.Width),
		attribute.Int("height", params.Height),
		attribute.Int("sampling_steps", params.SamplingSteps),
		attribute.Int64("seed", params.Seed),
	)

	start := time.Now()
	video, err := v.generator.Generate(context.GetContext(), params)
	if v.duration != nil {
		v.duration.Record(context.GetContext(), time.Since(start).Seconds())
	}
	if err != nil {
		v.Fail(context, model.NewGenerationFailure(err))
		return
	}
	if video == nil || len(video.Data) == 0 {
		v.Fail(context, model.NewGenerationFailure(errors.New("generation service returned an empty video")))
		return
	}
	context.Add(v.GetOutputParam(), video)
	v.Succeed(context)
}
