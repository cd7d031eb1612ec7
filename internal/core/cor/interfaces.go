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
// generation workflow is assembled from. A Command is one step, a Chain runs
// steps in order, and a Context carries data and errors between them.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys a BaseChain uses to pipe the output of one
// command into the input of the next.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the shared state of a single workflow execution.
type Context interface {
	// SetContext sets the Go context carrying cancellation and the active span.
	SetContext(context context.Context)
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records the failure of the command named key.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	// Err joins every recorded error in the order they were added, or
	// returns nil when the execution succeeded.
	Err() error

	// AddTempFile registers a file that Close removes.
	AddTempFile(file string)
	GetTempFiles() []string
	Close()
}

// Executable is anything with a unit of work.
type Executable interface {
	Execute(context Context)
}

// Command is one step of a workflow.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is the precondition checked by a chain before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other commands.
type Chain interface {
	Command

	// ContinueOnFailure makes the chain run every command even after one failed.
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
