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
// This file contains general-purpose utility functions that support the cloud package.
//
// Functions:
//   - fileExists: A simple helper to check if a file exists.
//   - LoadConfig: Implements a hierarchical configuration loader. It first reads a base
//     configuration file and then overwrites values with a second, environment-specific
//     file (e.g., .env.local.toml, .env.test.toml). The environment is determined by
//     an environment variable.
//   - GenerateText: Runs a text-only request against a quota-aware GenAI model,
//     retrying transient failures and recording token usage.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "T2V_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "T2V_RUNTIME"       // The environment variable for specifying the runtime (e.g., "local", "test", "prod").
	MaxRetries          = 3                   // The maximum number of times to retry a failed API call.
)

// Defaults applied by SetupOS when the environment leaves them unset.
const (
	DefaultConfigDir = "configs"
	DefaultRuntime   = "local"
)

// SetupOS defaults the configuration directory and runtime when the
// environment does not set them. Every entry point calls it before
// LoadConfig so they all read the same files.
func SetupOS() error {
	if os.Getenv(EnvConfigFilePrefix) == "" {
		if err := os.Setenv(EnvConfigFilePrefix, DefaultConfigDir); err != nil {
			return err
		}
	}
	if os.Getenv(EnvConfigRuntime) == "" {
		return os.Setenv(EnvConfigRuntime, DefaultRuntime)
	}
	return nil
}

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig provides a hierarchical configuration loading mechanism. It first loads a
// base configuration file and then merges or overwrites its values with an environment-specific
// configuration file. The paths and environment are determined by environment variables.
// Missing files are skipped, so the defaults from NewConfig survive.
//
// Inputs:
//   - baseConfig: A pointer to the target configuration struct.
//
// Outputs:
//   - error: A decode error naming the offending file.
func LoadConfig(baseConfig interface{}) error {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "test"
	}

	baseConfigFileName := filepath.Join(configurationFilePrefix, ConfigFileBaseName+ConfigFileExtension)
	envConfigFileName := filepath.Join(configurationFilePrefix,
		ConfigFileBaseName+ConfigSeparator+runtimeEnvironment+ConfigFileExtension)
	slog.Debug("configuration files", "base", baseConfigFileName, "runtime", envConfigFileName)

	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
	}
	return nil
}

// GenerateText executes a text request against a quota-aware model and returns
// the concatenated text of the first candidate.
//
// Inputs:
//   - ctx: The context for the request, which controls cancellation and tracing.
//   - inputTokenCounter: An OpenTelemetry counter for prompt tokens used.
//   - outputTokenCounter: An OpenTelemetry counter for response tokens generated.
//   - retryCounter: An OpenTelemetry counter for tracking the number of retries.
//   - model: The rate-limited, quota-aware generative model to use.
//   - content: The prompt.
//
// Outputs:
//   - string: The trimmed text content from the model's response.
//   - error: An error if the request fails after all retries.
func GenerateText(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (string, error) {

	var resp *genai.GenerateContentResponse
	var err error
	for try := 0; try <= MaxRetries; try++ {
		if try > 0 {
			retryCounter.Add(ctx, 1)
		}
		resp, err = model.GenerateContent(ctx, content)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var value strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Thought {
				continue
			}
			value.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(value.String()), nil
}

// NewTextPart wraps a string as user content.
func NewTextPart(in string) []*genai.Content {
	return genai.Text(in)
}
