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

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	buf.Reset()
	return out
}

func TestLogHandlerUsesCloudLoggingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLogHandler(&buf, slog.LevelDebug))

	logger.Warn("Step2: Init t2v model skipped", "method", "local-model")
	line := decodeLine(t, &buf)
	assert.Equal(t, "WARNING", line["severity"])
	assert.Equal(t, "Step2: Init t2v model skipped", line["message"])
	assert.Equal(t, "local-model", line["method"])
	assert.Contains(t, line, "timestamp")
	assert.NotContains(t, line, "level")
	assert.NotContains(t, line, "msg")

	logger.Info("ready")
	assert.Equal(t, "INFO", decodeLine(t, &buf)["severity"])
}

func TestLogHandlerAddsSpanContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLogHandler(&buf, slog.LevelInfo)).With("component", "t2v")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "generate")
	defer span.End()

	logger.InfoContext(ctx, "generating")
	line := decodeLine(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), line["logging.googleapis.com/trace"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["logging.googleapis.com/spanId"])
	assert.Equal(t, "t2v", line["component"])

	logger.InfoContext(context.Background(), "no span")
	assert.NotContains(t, decodeLine(t, &buf), "logging.googleapis.com/trace")
}

func TestLogHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewLogHandler(&buf, slog.LevelInfo)).Debug("hidden")
	assert.Zero(t, buf.Len())
}
