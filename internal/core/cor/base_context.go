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

// Package cor (Chain of Responsibility) provides the building blocks the
// generation workflow is assembled from. This file defines `BaseContext`,
// the default implementation of the `Context` interface.
//
// A BaseContext lives for exactly one request. It is not safe for
// concurrent use; a chain runs its commands sequentially.
package cor

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

// BaseContext is the default implementation of the Context interface.
type BaseContext struct {
	data       map[string]interface{}
	errors     map[string]error
	errorOrder []string
	tempFiles  []string
	context    context.Context
}

// NewBaseContext returns an empty context. The caller must set the Go
// context with SetContext before running a chain.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

// SetContext sets the underlying Go context.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

// GetContext returns the underlying Go context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes every temporary file registered with AddTempFile.
func (c *BaseContext) Close() {
	for _, file := range c.GetTempFiles() {
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove temporary file", "file", file, "error", err)
		}
	}
	c.tempFiles = c.tempFiles[:0]
}

func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

// AddError records err under the name of the command that produced it. A
// second error for the same command replaces the first.
func (c *BaseContext) AddError(key string, err error) {
	if _, ok := c.errors[key]; !ok {
		c.errorOrder = append(c.errorOrder, key)
	}
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// Err returns the recorded errors joined in insertion order. With a single
// error it returns that error unchanged, so callers can match it with errors.As.
func (c *BaseContext) Err() error {
	switch len(c.errorOrder) {
	case 0:
		return nil
	case 1:
		return c.errors[c.errorOrder[0]]
	}
	errs := make([]error, 0, len(c.errorOrder))
	for _, key := range c.errorOrder {
		errs = append(errs, c.errors[key])
	}
	return errors.Join(errs...)
}

func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
