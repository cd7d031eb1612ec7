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
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/app"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	closeLogs := telemetry.SetupLogging(os.Getenv("T2V_LOG_FILE"))
	defer closeLogs()
	slog.Info("Logging initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := GetConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	state, err := InitState(ctx, config)
	if err != nil {
		log.Fatalf("failed to initialize state: %v", err)
	}
	defer state.Close()
	slog.Info("Initialized State")

	resolved := app.Resolve(app.Load(config.UI.Module))
	slog.Info("application resolved", "module", config.UI.Module, "source", resolved.Source.String(), "diagnostic", resolved.Diagnostic)

	srv := &http.Server{
		Addr:    config.Application.ListenAddress,
		Handler: resolved.Handler,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server Ready", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	for _, listener := range state.Listeners() {
		// A broken subscription must not take the UI down with it.
		g.Go(func() error {
			if err := listener.Listen(gCtx); err != nil {
				slog.Error("pubsub listener stopped", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutdown Server ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server Shutdown Failed", "error", err)
		}
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("Telemetry Shutdown Failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
	}
	slog.Info("Server exiting")
}
