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

package ui

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/services"
)

// T2VModule is the text-to-video UI. Building its interface initializes the
// model registry, so the services load with the first request, not at import.
type T2VModule struct {
	config   *cloud.Config
	registry *services.ModelRegistry
	clients  *cloud.ServiceClients

	once  sync.Once
	built *Blocks
}

// NewT2VModule returns a module over an uninitialized registry. clients may
// be nil.
func NewT2VModule(config *cloud.Config, registry *services.ModelRegistry, clients *cloud.ServiceClients) *T2VModule {
	return &T2VModule{config: config, registry: registry, clients: clients}
}

// Interface initializes the registry and builds the Blocks, once. The page is
// served even when a service failed; its actions then report the failure.
func (m *T2VModule) Interface() Interface {
	m.once.Do(func() {
		m.initialize(context.Background())
		m.built = NewBlocks(BlocksOptions{
			ServiceName: m.config.Application.Name,
			Title:       m.config.UI.Title,
			Subtitle:    m.config.UI.Subtitle,
			Queue:       m.config.UI.Queue,
			VideoPath:   m.config.Output.PrimaryPath,
			Prepare:     m.initialize,
			Expander:    &services.PromptExpansion{Registry: m.registry},
			Generator:   &services.VideoGeneration{Registry: m.registry, Config: m.config, Clients: m.clients},
			Status:      m.registry,
		})
	})
	return m.built
}

// initialize runs the registry initialization unless it already completed.
// A failed attempt (an unusable cache directory) is retried on the next call.
func (m *T2VModule) initialize(ctx context.Context) {
	if _, ok := m.registry.Status(); ok {
		return
	}
	result, err := m.registry.Initialize(ctx, m.config.Models.CacheDir)
	if err != nil {
		slog.ErrorContext(ctx, "model registry initialization failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "model registry initialized",
		"expansion_ok", result.ExpansionOK, "generation_ok", result.GenerationOK)
}
