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
// This file is responsible for initializing and holding the client objects
// needed to communicate with Google Cloud. It acts as a dependency injection
// container: a single `ServiceClients` struct is created at startup and
// passed to the model registry and the generation workflow.
//
// Unlike a pure cloud deployment, every client here is optional. A client is
// only created when the configuration asks for a feature that needs it:
//   - GenAI: the "remote-api" expansion strategy or the "veo" generation backend.
//   - Storage: an artifact bucket, or the "veo" backend (which writes to GCS).
//   - IAM credentials: an artifact bucket with a signer service account.
//   - Pub/Sub: a "GenerationTopic" entry in topic_publications or a
//     "GenerationRequests" entry in topic_subscriptions.
//   - BigQuery: a ledger dataset and table.
package cloud

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

// ServiceClients is a central container for the clients that talk to
// Google Cloud. Nil fields are features that are switched off.
type ServiceClients struct {
	StorageClient   *storage.Client
	PubsubClient    *pubsub.Client
	GenAIClient     *genai.Client
	BiqQueryClient  *bigquery.Client
	IAMClient       *credentials.IamCredentialsClient // Signs artifact URLs.
	Publishers      map[string]*PubSubPublisher // Keyed by the logical name from the config.
	Listeners       map[string]*PubSubListener  // Created without a command; see PubSubListener.SetCommand.
	ExpansionModels map[string]*QuotaAwareGenerativeAIModel
}

// Close stops publishers and closes every client that was opened.
func (c *ServiceClients) Close() {
	for _, p := range c.Publishers {
		p.Stop()
	}
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BiqQueryClient != nil {
		_ = c.BiqQueryClient.Close()
	}
	if c.IAMClient != nil {
		_ = c.IAMClient.Close()
	}
}

// NeedsGenAI reports whether the configuration uses a Vertex AI / Gemini model.
func NeedsGenAI(config *Config) bool {
	return config.Models.PromptExtendMethod == ExpandRemoteAPI || config.Models.GenerationBackend == GenerationVeo
}

// NeedsStorage reports whether the configuration reads or writes GCS objects.
func NeedsStorage(config *Config) bool {
	return config.Storage.ArtifactBucket != "" || config.Models.GenerationBackend == GenerationVeo
}

// NewCloudServiceClients initializes the Google Cloud clients the
// configuration needs.
//
// Inputs:
//   - ctx: The root context.Context for the application, used to manage the lifecycle of the clients.
//   - config: A pointer to the loaded application configuration (`Config`).
//
// Outputs:
//   - *ServiceClients: A pointer to the initialized ServiceClients struct.
//   - error: An error if any of the requested clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		Publishers:      make(map[string]*PubSubPublisher),
		Listeners:       make(map[string]*PubSubListener),
		ExpansionModels: make(map[string]*QuotaAwareGenerativeAIModel),
	}
	projectID := config.Application.GoogleProjectId

	if NeedsStorage(config) {
		var opts []option.ClientOption
		if config.Storage.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(config.Storage.Endpoint), option.WithoutAuthentication())
		}
		if cloud.StorageClient, err = storage.NewClient(ctx, opts...); err != nil {
			return nil, fmt.Errorf("error creating storage client: %w", err)
		}
	}

	if config.Storage.ArtifactBucket != "" && config.Storage.SignerServiceAccountEmail != "" {
		if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
			cloud.Close()
			return nil, fmt.Errorf("error creating iam credentials client: %w", err)
		}
	}

	if NeedsGenAI(config) {
		cc := &genai.ClientConfig{APIKey: config.Models.PromptExtendAPIKey, Backend: genai.BackendGeminiAPI}
		if projectID != "" {
			cc = &genai.ClientConfig{
				Project:  projectID,
				Location: config.Application.GoogleLocation,
				Backend:  genai.BackendVertexAI,
			}
		}
		// A missing GenAI client is not fatal here: the model registry reports
		// the dependent service as failed instead.
		if cloud.GenAIClient, err = genai.NewClient(ctx, cc); err != nil {
			slog.Error("error creating genai client", "error", err)
			cloud.GenAIClient = nil
		} else if config.Models.PromptExtendMethod == ExpandRemoteAPI {
			cloud.ExpansionModels[LanguageKeyZH] = newExpansionModel(cloud.GenAIClient, config, config.PromptTemplates.ExpandZH)
			cloud.ExpansionModels[LanguageKeyEN] = newExpansionModel(cloud.GenAIClient, config, config.PromptTemplates.ExpandEN)
		}
	}

	topic, publish := config.TopicPublications[GenerationTopicKey]
	publish = publish && topic.Name != ""
	sub, listen := config.TopicSubscriptions[GenerationRequestsKey]
	listen = listen && sub.Name != ""
	if publish || listen {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, projectID); err != nil {
			cloud.Close()
			return nil, fmt.Errorf("error creating pubsub client: %w", err)
		}
	}
	if publish {
		cloud.Publishers[GenerationTopicKey] = NewPubSubPublisher(cloud.PubsubClient, topic.Name)
	}
	if listen {
		cloud.Listeners[GenerationRequestsKey] = NewPubSubListener(cloud.PubsubClient, sub.Name, nil)
	}

	if config.BigQueryDataSource.DatasetName != "" && config.BigQueryDataSource.GenerationTable != "" {
		if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, projectID); err != nil {
			cloud.Close()
			return nil, fmt.Errorf("error creating bigquery client: %w", err)
		}
	}

	slog.Info("cloud clients initialized",
		"storage", cloud.StorageClient != nil,
		"genai", cloud.GenAIClient != nil,
		"pubsub", cloud.PubsubClient != nil,
		"bigquery", cloud.BiqQueryClient != nil,
		"iam", cloud.IAMClient != nil)
	return cloud, nil
}

// Keys of ExpansionModels.
const (
	LanguageKeyZH = "zh"
	LanguageKeyEN = "en"
)

func newExpansionModel(client *genai.Client, config *Config, systemInstructions string) *QuotaAwareGenerativeAIModel {
	settings := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.7),
		TopP:              genai.Ptr[float32](0.8),
		MaxOutputTokens:   512,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstructions}}},
		SafetySettings:    DefaultSafetySettings,
	}
	return NewQuotaAwareModel(settings, config.Models.PromptExtendModel, client.Models, config.Models.PromptExtendRate)
}
