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
// This file implements the "local-model" prompt expander: a locally hosted
// instruction model (Qwen by default) served behind an OpenAI compatible
// endpoint such as LocalAI, vLLM or llama.cpp.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

const probeTimeout = 10 * time.Second

// LocalModelPromptExpander talks to an OpenAI compatible chat endpoint.
type LocalModelPromptExpander struct {
	client       *openai.Client
	modelName    string
	device       string
	instructions map[string]string
	limiter      *rate.Limiter
}

// NewLocalModelPromptExpander connects to the server at config.Models.PromptExtendBaseURL
// and checks that it answers and serves the configured model. device is sent
// with every request as placement metadata; empty lets the server decide.
func NewLocalModelPromptExpander(ctx context.Context, config *cloud.Config, device string) (*LocalModelPromptExpander, error) {
	if config.Models.PromptExtendBaseURL == "" {
		return nil, fmt.Errorf("prompt_extend_base_url is required for %s", cloud.ExpandLocalModel)
	}
	clientConfig := openai.DefaultConfig(config.Models.PromptExtendAPIKey)
	clientConfig.BaseURL = strings.TrimSuffix(config.Models.PromptExtendBaseURL, "/")
	client := openai.NewClientWithConfig(clientConfig)

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	models, err := client.ListModels(probeCtx)
	if err != nil {
		return nil, fmt.Errorf("prompt expansion server %s is not reachable: %w", clientConfig.BaseURL, err)
	}
	if len(models.Models) > 0 && !servesModel(models.Models, config.Models.PromptExtendModel) {
		return nil, fmt.Errorf("prompt expansion server does not serve model %q", config.Models.PromptExtendModel)
	}

	limit := rate.Inf
	if config.Models.PromptExtendRate > 0 {
		limit = rate.Limit(config.Models.PromptExtendRate)
	}
	return &LocalModelPromptExpander{
		client:    client,
		modelName: config.Models.PromptExtendModel,
		device:    device,
		instructions: map[string]string{
			cloud.LanguageKeyZH: config.PromptTemplates.ExpandZH,
			cloud.LanguageKeyEN: config.PromptTemplates.ExpandEN,
		},
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func servesModel(models []openai.Model, name string) bool {
	for _, m := range models {
		if m.ID == name {
			return true
		}
	}
	return false
}

// Expand runs one chat completion with the system instruction for lang.
func (l *LocalModelPromptExpander) Expand(ctx context.Context, prompt string, lang string) (*model.ExpansionOutput, error) {
	instruction, ok := l.instructions[lang]
	if !ok {
		return &model.ExpansionOutput{Status: false, Message: fmt.Sprintf("unsupported language %q", lang)}, nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model: l.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		TopP:        0.8,
		MaxTokens:   512,
	}
	if l.device != "" {
		req.Metadata = map[string]string{"device": l.device}
	}

	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return &model.ExpansionOutput{Status: false, Message: err.Error()}, nil
	}
	if len(resp.Choices) == 0 {
		return &model.ExpansionOutput{Status: false, Message: "no choices returned"}, nil
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return &model.ExpansionOutput{Status: false, Message: "empty response"}, nil
	}
	return &model.ExpansionOutput{Prompt: text, Status: true}, nil
}
