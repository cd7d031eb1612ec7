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

// Package model defines the core data structures for the application. This
// file holds the error taxonomy shared by the registry, the adapters and the
// HTTP layer.
//
// Types:
//   - ConfigurationError: a bad strategy or backend identifier, or a cache
//     directory that cannot be created. Halts setup of the dependent service only.
//   - ErrModelUnavailable: the generation (or expansion) service was never initialized.
//   - ValidationError: malformed user input, rejected before any service call.
//   - GenerationFailure: any error raised by the external generation service.
package model

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned when an action needs a service that the
// registry did not manage to initialize.
var ErrModelUnavailable = errors.New("model unavailable: the generation service is not initialized")

// ConfigurationError reports a setup problem for a single component.
type ConfigurationError struct {
	Component string // e.g. "prompt_expander", "t2v", "cache_dir"
	Reason    string
	Err       error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error in %s: %s: %v", e.Component, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ValidationError reports a user input that cannot be turned into a
// GenerationRequest.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// GenerationFailure wraps an error raised by the external generation service.
// The cause is kept so callers can inspect it with errors.Is / errors.As.
type GenerationFailure struct {
	Cause error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("video generation failed: %v", e.Cause)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Cause
}

// NewGenerationFailure wraps cause, leaving an existing GenerationFailure untouched.
func NewGenerationFailure(cause error) error {
	var failure *GenerationFailure
	if errors.As(cause, &failure) {
		return cause
	}
	return &GenerationFailure{Cause: cause}
}
