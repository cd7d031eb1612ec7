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

// Package services contains the business logic of the application: the model
// registry, the two adapters the UI calls, and the clients for the external
// inference services. This file implements the "remote-api" prompt expander
// on top of Gemini (Vertex AI or the Gemini API).
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// GeminiPromptExpander expands prompts with one quota-aware model per
// target language. Each model carries that language's system instruction.
type GeminiPromptExpander struct {
	Models       map[string]*cloud.QuotaAwareGenerativeAIModel
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	retries      metric.Int64Counter
}

// NewGeminiPromptExpander returns an expander over models, which must hold
// an entry for "zh" and "en".
func NewGeminiPromptExpander(models map[string]*cloud.QuotaAwareGenerativeAIModel) (*GeminiPromptExpander, error) {
	for _, lang := range []string{cloud.LanguageKeyZH, cloud.LanguageKeyEN} {
		if models[lang] == nil {
			return nil, fmt.Errorf("no expansion model configured for language %q", lang)
		}
	}
	meter := otel.Meter("prompt-expander")
	inputTokens, _ := meter.Int64Counter("prompt-expander.token.input")
	outputTokens, _ := meter.Int64Counter("prompt-expander.token.output")
	retries, _ := meter.Int64Counter("prompt-expander.retry")
	return &GeminiPromptExpander{
		Models:       models,
		inputTokens:  inputTokens,
		outputTokens: outputTokens,
		retries:      retries,
	}, nil
}

// Expand sends prompt to the model for lang. An empty answer is reported as
// a failed expansion, not an error.
func (g *GeminiPromptExpander) Expand(ctx context.Context, prompt string, lang string) (*model.ExpansionOutput, error) {
	m, ok := g.Models[lang]
	if !ok {
		return &model.ExpansionOutput{Status: false, Message: fmt.Sprintf("unsupported language %q", lang)}, nil
	}
	text, err := cloud.GenerateText(ctx, g.inputTokens, g.outputTokens, g.retries, m, cloud.NewTextPart(prompt))
	if err != nil {
		slog.Warn("prompt expansion request failed", "model", m.ModelName, "error", err)
		return &model.ExpansionOutput{Status: false, Message: err.Error()}, nil
	}
	if text == "" {
		return &model.ExpansionOutput{Status: false, Message: "empty response"}, nil
	}
	return &model.ExpansionOutput{Prompt: text, Status: true}, nil
}

var errGenAIUnavailable = errors.New("genai client is not available")
