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

package workflow

import (
	"errors"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// NewGenerationMessageWorkflow reads a queued request from a message body and
// runs it through a VideoGenerationWorkflow. The message body goes under
// cor.CtxIn, as the Pub/Sub listener puts it.
func NewGenerationMessageWorkflow(
	config *cloud.Config,
	clients *cloud.ServiceClients,
	generator model.VideoGenerator) cor.Chain {

	out := cor.NewBaseChain("generation-message-workflow")
	out.AddCommand(commands.NewGenerationMessageReader("generation-message-reader"))
	out.AddCommand(NewVideoGenerationWorkflow(config, clients, generator))
	return out
}

// IsPermanent reports errors that a retry of the same message cannot fix:
// malformed input. Missing models and service failures are retried.
func IsPermanent(err error) bool {
	var validation *model.ValidationError
	return errors.As(err, &validation)
}
