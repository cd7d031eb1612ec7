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
// This file defines the ModelRegistry, which owns the single prompt-expansion
// service and the single video-generation service of the process.
//
// The registry is created once at startup and handed to the adapters. It is
// initialized lazily, the first time the UI is built, and lives until exit.
//
// Initialization:
//  1. Ensure the cache directory exists. Failure is a ConfigurationError and
//     leaves the registry uninitialized.
//  2. Build the expansion service for the configured strategy.
//  3. Unless the dependency gate closes, build the generation service.
//
// Each construction is tried at most twice: first with the configured device,
// then with the service's default placement. Services that have no device
// notion are tried once.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

const (
	componentExpander  = "prompt_expander"
	componentGenerator = "t2v"
	componentCacheDir  = "cache_dir"
)

// ServiceFactory builds a service for a device placement. An empty device
// means the service's default placement.
type ServiceFactory[T any] struct {
	UsesDevice bool
	New        func(ctx context.Context, device string) (T, error)
}

// ModelRegistry holds at most one expander and one generator.
type ModelRegistry struct {
	Expanders  map[string]ServiceFactory[model.PromptExpander] // Keyed by prompt_extend_method.
	Generators map[string]ServiceFactory[model.VideoGenerator] // Keyed by generation_backend.

	config      *cloud.Config
	mu          sync.Mutex
	initialized bool
	result      model.InitResult
	expander    model.PromptExpander
	generator   model.VideoGenerator
}

// NewModelRegistry returns an uninitialized registry with the built-in
// strategies and backends. clients may be nil when no Google Cloud feature
// is configured.
func NewModelRegistry(config *cloud.Config, clients *cloud.ServiceClients) *ModelRegistry {
	return &ModelRegistry{
		config: config,
		Expanders: map[string]ServiceFactory[model.PromptExpander]{
			cloud.ExpandRemoteAPI: {
				New: func(_ context.Context, _ string) (model.PromptExpander, error) {
					if clients == nil || len(clients.ExpansionModels) == 0 {
						return nil, errGenAIUnavailable
					}
					return NewGeminiPromptExpander(clients.ExpansionModels)
				},
			},
			cloud.ExpandLocalModel: {
				UsesDevice: true,
				New: func(ctx context.Context, device string) (model.PromptExpander, error) {
					return NewLocalModelPromptExpander(ctx, config, device)
				},
			},
		},
		Generators: map[string]ServiceFactory[model.VideoGenerator]{
			cloud.GenerationLocalAI: {
				UsesDevice: true,
				New: func(ctx context.Context, device string) (model.VideoGenerator, error) {
					return NewLocalAIVideoGenerator(ctx, config, device, nil)
				},
			},
			cloud.GenerationVeo: {
				New: func(_ context.Context, _ string) (model.VideoGenerator, error) {
					return NewVeoVideoGenerator(clients, config)
				},
			},
		},
	}
}

// Initialize builds both services once. Later calls return the cached
// result. Only a cache directory failure is returned as an error; service
// failures are logged and reported through the InitResult.
func (r *ModelRegistry) Initialize(ctx context.Context, cacheDir string) (model.InitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return r.result, nil
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return model.InitResult{}, &model.ConfigurationError{
			Component: componentCacheDir,
			Reason:    fmt.Sprintf("cannot create %s", cacheDir),
			Err:       err,
		}
	}

	method := r.config.Models.PromptExtendMethod
	device := r.config.Models.Device

	slog.InfoContext(ctx, "Step1: Init prompt_expander", "method", method, "device", device)
	r.expander = r.buildExpander(ctx, method, device)
	r.result.ExpansionOK = r.expander != nil
	slog.InfoContext(ctx, "Step1: Init prompt_expander", "done", r.result.ExpansionOK)

	// A local expander shares the device with the t2v model.
	if !r.result.ExpansionOK && method != cloud.ExpandRemoteAPI {
		slog.WarnContext(ctx, "Step2: Init t2v model skipped, prompt expander failed on the shared device", "method", method)
	} else {
		backend := r.config.Models.GenerationBackend
		slog.InfoContext(ctx, "Step2: Init t2v model", "backend", backend, "size", r.config.Models.ModelSize, "device", device)
		if g := r.buildGenerator(ctx, backend, device); g != nil {
			r.generator = NewRateLimitedGenerator(g, r.config.Models.GenerationRateLimit)
		}
		r.result.GenerationOK = r.generator != nil
		slog.InfoContext(ctx, "Step2: Init t2v model", "done", r.result.GenerationOK)
	}

	r.initialized = true
	return r.result, nil
}

func (r *ModelRegistry) buildExpander(ctx context.Context, method, device string) model.PromptExpander {
	factory, ok := r.Expanders[method]
	if !ok {
		err := &model.ConfigurationError{Component: componentExpander, Reason: fmt.Sprintf("unsupported prompt_extend_method %q", method)}
		slog.ErrorContext(ctx, "Step1: Init prompt_expander failed", "error", err)
		return nil
	}
	svc, err := construct(ctx, componentExpander, device, factory)
	if err != nil {
		slog.ErrorContext(ctx, "Step1: Init prompt_expander failed", "error", err)
		return nil
	}
	return svc
}

func (r *ModelRegistry) buildGenerator(ctx context.Context, backend, device string) model.VideoGenerator {
	factory, ok := r.Generators[backend]
	if !ok {
		err := &model.ConfigurationError{Component: componentGenerator, Reason: fmt.Sprintf("unsupported generation_backend %q", backend)}
		slog.ErrorContext(ctx, "Step2: Init t2v model failed", "error", err)
		return nil
	}
	svc, err := construct(ctx, componentGenerator, device, factory)
	if err != nil {
		slog.ErrorContext(ctx, "Step2: Init t2v model failed", "error", err)
		return nil
	}
	return svc
}

// construct runs the factory with the configured device, then once more with
// the default placement.
func construct[T any](ctx context.Context, component, device string, factory ServiceFactory[T]) (T, error) {
	placements := []string{""}
	if factory.UsesDevice && device != "" {
		placements = []string{device, ""}
	}
	var errs []error
	for attempt, placement := range placements {
		svc, err := factory.New(ctx, placement)
		if err == nil {
			return svc, nil
		}
		slog.WarnContext(ctx, "service construction failed", "component", component, "attempt", attempt+1, "device", placement, "error", err)
		errs = append(errs, err)
	}
	var zero T
	return zero, errors.Join(errs...)
}

// Expander returns the expansion service, or nil when it is not available.
func (r *ModelRegistry) Expander() model.PromptExpander {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expander
}

// Generator returns the generation service, or nil when it is not available.
func (r *ModelRegistry) Generator() model.VideoGenerator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generator
}

// Status returns the initialization result and whether Initialize completed.
func (r *ModelRegistry) Status() (model.InitResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.initialized
}
