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

package services

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// RateLimitedGenerator caps how many generations start per minute.
type RateLimitedGenerator struct {
	Generator model.VideoGenerator
	Limiter   *rate.Limiter
}

// NewRateLimitedGenerator wraps g with a limiter of perMinute calls and a
// burst of one. perMinute <= 0 returns g unchanged.
func NewRateLimitedGenerator(g model.VideoGenerator, perMinute int) model.VideoGenerator {
	if perMinute <= 0 {
		return g
	}
	return &RateLimitedGenerator{
		Generator: g,
		Limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *RateLimitedGenerator) Generate(ctx context.Context, params model.GenerateParams) (*model.RawVideo, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Generator.Generate(ctx, params)
}
