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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements the
// text-to-video generation workflow.
//
// The workflow is made of two chains:
//   - generate: validate the form, call the generation service, write the
//     video to disk. The first failure stops the chain and fails the request.
//   - publish: copy the artifact to GCS and sign a link to it, announce it on
//     Pub/Sub, append a ledger row to BigQuery. Each step only exists when configured, they all
//     run even if one fails, and their errors are logged but never returned.
package workflow

import (
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// VideoGenerationWorkflow turns a model.GenerationForm placed under
// cor.CtxIn into a *model.VideoArtifact under commands.ParamVideoArtifact.
type VideoGenerationWorkflow struct {
	cor.BaseCommand
	config    *cloud.Config
	clients   *cloud.ServiceClients
	generator model.VideoGenerator
	chain     cor.Chain
	publish   cor.Chain
}

// Execute runs the generate chain and, when it succeeded, the publish chain.
// Only errors from the generate chain end up in context.
func (w *VideoGenerationWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
	if context.HasErrors() {
		return
	}

	publishContext := cor.NewBaseContext()
	publishContext.SetContext(context.GetContext())
	publishContext.Add(commands.ParamGenerationRequest, context.Get(commands.ParamGenerationRequest))
	publishContext.Add(commands.ParamVideoArtifact, context.Get(commands.ParamVideoArtifact))
	w.publish.Execute(publishContext)
	for step, err := range publishContext.GetErrors() {
		slog.WarnContext(context.GetContext(), "artifact publish step failed", "step", step, "error", err)
	}
}

func (w *VideoGenerationWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewGenerationRequestValidator("generation-request-validator"))
	out.AddCommand(commands.NewVideoGenerate("video-generate", w.generator))
	out.AddCommand(commands.NewVideoCache("video-cache", w.config.Output.PrimaryPath, w.config.Output.SecondaryPath))
	w.chain = out

	publish := cor.NewBaseChain(w.GetName() + "-publish")
	publish.ContinueOnFailure(true)
	if w.clients != nil {
		if w.clients.StorageClient != nil && w.config.Storage.ArtifactBucket != "" {
			publish.AddCommand(commands.NewGCSFileUpload("artifact-upload", w.clients.StorageClient,
				w.config.Storage.ArtifactBucket, w.config.Storage.ArtifactPrefix))
			if w.clients.IAMClient != nil {
				publish.AddCommand(commands.NewGCSSignedURL("artifact-sign-url", w.clients.StorageClient, w.clients.IAMClient,
					w.config.Storage.SignerServiceAccountEmail, time.Duration(w.config.Storage.SignedURLMinutes)*time.Minute))
			}
		}
		if p, ok := w.clients.Publishers[cloud.GenerationTopicKey]; ok && p != nil {
			publish.AddCommand(commands.NewGenerationNotify("generation-notify", p))
		}
		if w.clients.BiqQueryClient != nil {
			publish.AddCommand(commands.NewGenerationPersistToBigQuery("generation-ledger", w.clients.BiqQueryClient,
				w.config.BigQueryDataSource.DatasetName, w.config.BigQueryDataSource.GenerationTable))
		}
	}
	w.publish = publish
}

// NewVideoGenerationWorkflow builds the workflow around generator.
//
// Inputs:
//   - config: The application configuration (output paths, sinks).
//   - clients: Google Cloud clients for the publish steps; may be nil.
//   - generator: The initialized generation service.
//   - publishSteps: Extra publish commands appended after the built-in ones.
//
// Returns:
//   - A pointer to a fully initialized VideoGenerationWorkflow.
func NewVideoGenerationWorkflow(
	config *cloud.Config,
	clients *cloud.ServiceClients,
	generator model.VideoGenerator,
	publishSteps ...cor.Command) *VideoGenerationWorkflow {

	out := &VideoGenerationWorkflow{
		BaseCommand: *cor.NewBaseCommand("video-generation-workflow"),
		config:      config,
		clients:     clients,
		generator:   generator,
	}
	out.initializeChain()
	for _, step := range publishSteps {
		out.publish.AddCommand(step)
	}
	return out
}
