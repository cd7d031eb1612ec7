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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/workflow"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/ui"
)

// StateManager holds the shared components of the process. It is built once
// in main and owns the cloud clients.
type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	registry *services.ModelRegistry
}

// GetConfig loads the defaults, then the TOML files over them.
func GetConfig() (*cloud.Config, error) {
	if err := cloud.SetupOS(); err != nil {
		return nil, fmt.Errorf("failed to setup os: %w", err)
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// InitState creates the cloud clients and the model registry, and registers
// the text-to-video UI under the configured module name. The registry is not
// initialized here; the UI does that when it is first built.
func InitState(ctx context.Context, config *cloud.Config) (*StateManager, error) {
	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return nil, err
	}
	state := &StateManager{
		config:   config,
		cloud:    clients,
		registry: services.NewModelRegistry(config, clients),
	}
	ui.Register(config.UI.Module, ui.NewT2VModule(config, state.registry, clients))
	return state, nil
}

// Listeners attaches the generation workflow to the configured Pub/Sub
// subscriptions. It must run after the registry is initialized and returns
// nothing when no generation service was built.
func (s *StateManager) Listeners() []*cloud.PubSubListener {
	if len(s.cloud.Listeners) == 0 {
		return nil
	}
	generator := s.registry.Generator()
	if generator == nil {
		slog.Warn("generation service unavailable, not listening for queued requests")
		return nil
	}
	out := make([]*cloud.PubSubListener, 0, len(s.cloud.Listeners))
	for name, listener := range s.cloud.Listeners {
		listener.SetCommand(workflow.NewGenerationMessageWorkflow(s.config, s.cloud, generator))
		listener.Permanent = workflow.IsPermanent
		slog.Info("queued generation requests enabled", "subscription", name)
		out = append(out, listener)
	}
	return out
}

// Close releases the cloud clients.
func (s *StateManager) Close() {
	if s.cloud != nil {
		s.cloud.Close()
	}
}
