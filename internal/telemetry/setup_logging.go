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

// Package telemetry provides utilities for setting up and configuring
// application observability, including logging, tracing, and metrics.
// This file handles structured logging compatible with Google Cloud Logging,
// with OpenTelemetry trace correlation on every record.
package telemetry

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// spanContextLogHandler wraps another handler and adds the trace and span
// IDs of the active span to each record.
type spanContextLogHandler struct {
	slog.Handler
}

func handlerWithSpanContext(handler slog.Handler) *spanContextLogHandler {
	return &spanContextLogHandler{Handler: handler}
}

// Handle adds the Cloud Logging trace fields when ctx carries a valid span.
// See: https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
func (t *spanContextLogHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("logging.googleapis.com/trace", s.TraceID()),
			slog.Any("logging.googleapis.com/spanId", s.SpanID()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

// WithAttrs and WithGroup keep the span handler on the outside; without them
// slog.With would return the bare JSON handler.
func (t *spanContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithAttrs(attrs))
}

func (t *spanContextLogHandler) WithGroup(name string) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithGroup(name))
}

// replacer renames the slog keys to the ones Cloud Logging parses
// ("severity", "timestamp", "message").
func replacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		// https://cloud.google.com/logging/docs/reference/v2/rest/v2/LogEntry#LogSeverity
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// NewLogHandler returns the JSON handler used by SetupLogging, writing to w.
func NewLogHandler(w io.Writer, level slog.Level) slog.Handler {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{ReplaceAttr: replacer, Level: level})
	return handlerWithSpanContext(jsonHandler)
}

// SetupLogging installs the default slog logger. Records go to standard
// output and, when logFile is not empty, to that file as well. The standard
// `log` package is pointed at the same writer.
//
// Inputs:
//   - logFile: Optional path of a log file; it is truncated on start.
//
// Outputs:
//   - func(): Closes the log file, if one was opened.
func SetupLogging(logFile string) func() {
	var writer io.Writer = os.Stdout
	closer := func() {}
	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			slog.Warn("unable to create log file, logging to stdout only", "file", logFile, "error", err)
		} else {
			writer = io.MultiWriter(os.Stdout, file)
			closer = func() { _ = file.Close() }
		}
	}

	log.SetOutput(writer)
	log.SetPrefix("[INFO] ")
	log.SetFlags(log.Ldate | log.Ltime)

	slog.SetDefault(slog.New(NewLogHandler(writer, slog.LevelInfo)))
	return closer
}
