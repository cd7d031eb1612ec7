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

// Package handler is the serverless entry point. Hosts that invoke a single
// http.HandlerFunc per request call Handler; the application is resolved on
// the first call and reused afterwards.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/app"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/ui"
)

var (
	resolveOnce sync.Once
	resolved    app.Resolution
)

// Handler serves one request with the resolved application.
func Handler(w http.ResponseWriter, r *http.Request) {
	resolveOnce.Do(func() {
		resolved, _ = resolve(context.Background())
	})
	resolved.Handler.ServeHTTP(w, r)
}

// resolve loads the configuration the way cmd/server does and resolves the
// configured UI module.
func resolve(ctx context.Context) (app.Resolution, *cloud.Config) {
	config := cloud.NewConfig()
	if err := cloud.SetupOS(); err != nil {
		slog.ErrorContext(ctx, "failed to setup environment", "error", err)
	}
	if err := cloud.LoadConfig(config); err != nil {
		slog.ErrorContext(ctx, "failed to load configuration, using defaults", "error", err)
	}

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		slog.ErrorContext(ctx, "cloud clients unavailable, publishing disabled", "error", err)
		clients = nil
	}
	registry := services.NewModelRegistry(config, clients)
	ui.Register(config.UI.Module, ui.NewT2VModule(config, registry, clients))

	res := app.Resolve(app.Load(config.UI.Module))
	slog.InfoContext(ctx, "application resolved", "source", res.Source.String(), "diagnostic", res.Diagnostic)
	return res, config
}
