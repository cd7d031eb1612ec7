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
// generation workflow is assembled from. This file defines `BaseChain`.
//
// Logic Flow:
//  1. A span is opened for the whole chain.
//  2. For each command a child span is opened. If an earlier command failed
//     and the chain is not configured to continue, the loop stops.
//  3. Commands whose IsExecutable returns false are skipped; the skip is
//     recorded on the span but is not an error. Optional steps rely on this.
//  4. After a command runs, the value it left under CtxOut becomes CtxIn for
//     the next command. A skipped command leaves CtxIn untouched.
//  5. The chain span is closed with Ok or Error depending on the context.
package cor

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

// BaseChain runs a list of commands sequentially.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// IsExecutable only needs a Go context; the first command checks its input.
func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

// Execute runs the commands in order, piping CtxOut into CtxIn.
func (c *BaseChain) Execute(chCtx Context) {
	parentCtx := chCtx.GetContext()
	outerCtx, chainSpan := c.Tracer.Start(parentCtx, fmt.Sprintf("%s_execute", c.GetName()))
	defer chainSpan.End()
	defer chCtx.SetContext(parentCtx)

	for _, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			break
		}
		if err := outerCtx.Err(); err != nil {
			chCtx.AddError(c.GetName(), err)
			break
		}

		commandContext, commandSpan := c.Tracer.Start(outerCtx, command.GetName())
		if !command.IsExecutable(chCtx) {
			commandSpan.SetStatus(codes.Unset, fmt.Sprintf("command skipped: %s", command.GetName()))
			commandSpan.End()
			continue
		}

		errorsBefore := len(chCtx.GetErrors())
		chCtx.SetContext(commandContext)
		command.Execute(chCtx)
		chCtx.SetContext(outerCtx)

		if len(chCtx.GetErrors()) > errorsBefore {
			commandSpan.SetStatus(codes.Error, "error during command execution")
		} else {
			commandSpan.SetStatus(codes.Ok, "command completed successfully")
		}
		commandSpan.End()

		if outputValue := chCtx.Get(CtxOut); outputValue != nil {
			chCtx.Add(CtxIn, outputValue)
		}
		chCtx.Remove(CtxOut)
	}

	if chCtx.HasErrors() {
		chainSpan.SetStatus(codes.Error, "chain failed to execute")
	} else {
		chainSpan.SetStatus(codes.Ok, "chain completed successfully")
	}
}
