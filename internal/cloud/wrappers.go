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

// Package cloud provides components for interacting with Google Cloud services.
// This file implements a wrapper around the Generative AI models service that
// adds a token-bucket rate limit in front of every GenerateContent call, so
// the prompt expander stays inside the project's request quota.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Pairs a model name and its generation config
//     with the shared models handle and a rate limiter.
//
// Functions:
//   - NewQuotaAwareModel: A constructor to create a new instance of the wrapped model.
//   - GenerateContent: Waits for the limiter, then calls the model.
package cloud

import (
	"context"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the subset of *genai.Models used by the wrapper.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// QuotaAwareGenerativeAIModel is a decorator that rate limits calls to a
// generative model.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	ModelHandle             ContentGenerator
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel wraps a model handle. requestsPerSecond sets both the
// refill rate and the burst; values below one disable the limit.
//
// Inputs:
//   - config: The generation settings sent with every request.
//   - name: The model name, e.g. "gemini-2.0-flash".
//   - handle: The models service, usually client.Models.
//   - requestsPerSecond: Maximum number of calls per second.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(config *genai.GenerateContentConfig, name string, handle ContentGenerator, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = requestsPerSecond
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: config,
		ModelName:               name,
		ModelHandle:             handle,
		RateLimit:               rate.NewLimiter(limit, burst),
	}
}

// GenerateContent blocks until the limiter grants a token or ctx ends, then
// forwards the call to the wrapped model.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
}
