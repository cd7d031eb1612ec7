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

// Package services contains the business logic of the application.
// This file implements the "veo" generation backend on Vertex AI / Gemini.
// Veo runs as a long-running operation: the request returns an operation
// that is polled until done. The video comes back inline or as a gs:// URI
// that is read with the storage client.
//
// Veo has no notion of sampling steps, guidance or shift; those parameters
// are not sent. The aspect ratio is derived from the requested resolution.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// DefaultPollInterval is how often a running Veo operation is checked.
const DefaultPollInterval = 10 * time.Second

// VideoModels is the subset of *genai.Models used to start a generation.
type VideoModels interface {
	GenerateVideos(ctx context.Context, model string, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
}

// VideoOperations is the subset of *genai.Operations used to poll one.
type VideoOperations interface {
	GetVideosOperation(ctx context.Context, operation *genai.GenerateVideosOperation, config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error)
}

// VeoVideoGenerator generates videos with a Veo model.
type VeoVideoGenerator struct {
	Models       VideoModels
	Operations   VideoOperations
	ReadObject   func(ctx context.Context, uri string) ([]byte, error)
	ModelName    string
	OutputURI    string
	PollInterval time.Duration
	Timeout      time.Duration
}

// NewVeoVideoGenerator wires the generator to the shared GenAI and storage clients.
func NewVeoVideoGenerator(clients *cloud.ServiceClients, config *cloud.Config) (*VeoVideoGenerator, error) {
	if clients == nil || clients.GenAIClient == nil {
		return nil, errGenAIUnavailable
	}
	storageClient := clients.StorageClient
	return &VeoVideoGenerator{
		Models:     clients.GenAIClient.Models,
		Operations: clients.GenAIClient.Operations,
		ReadObject: func(ctx context.Context, uri string) ([]byte, error) {
			if storageClient == nil {
				return nil, fmt.Errorf("no storage client to read %s", uri)
			}
			return cloud.ReadGCSObject(ctx, storageClient, uri)
		},
		ModelName:    config.Models.GenerationModel,
		OutputURI:    config.Storage.VeoOutputURI,
		PollInterval: DefaultPollInterval,
		Timeout:      time.Duration(config.Models.GenerationTimeoutSec) * time.Second,
	}, nil
}

// AspectRatio maps a resolution to the closest ratio Veo accepts.
func AspectRatio(width, height int) string {
	if width >= height {
		return "16:9"
	}
	return "9:16"
}

// Generate starts the operation and waits for it to finish.
func (v *VeoVideoGenerator) Generate(ctx context.Context, params model.GenerateParams) (*model.RawVideo, error) {
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}

	config := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    AspectRatio(params.Width, params.Height),
		NegativePrompt: params.NegativePrompt,
		OutputGCSURI:   v.OutputURI,
		FPS:            genai.Ptr(int32(params.Encoding.FPS)),
	}
	if params.Seed != model.UnsetSeed {
		config.Seed = genai.Ptr(int32(params.Seed))
	}

	op, err := v.Models.GenerateVideos(ctx, v.ModelName, params.Prompt, nil, config)
	if err != nil {
		return nil, err
	}
	interval := v.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for !op.Done {
		slog.DebugContext(ctx, "waiting for video operation", "operation", op.Name)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		if op, err = v.Operations.GetVideosOperation(ctx, op, nil); err != nil {
			return nil, err
		}
	}

	if op.Error != nil {
		return nil, fmt.Errorf("video operation %s failed: %v", op.Name, op.Error["message"])
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		if op.Response != nil && op.Response.RAIMediaFilteredCount > 0 {
			return nil, fmt.Errorf("video was filtered: %s", strings.Join(op.Response.RAIMediaFilteredReasons, "; "))
		}
		return nil, errors.New("video operation returned no video")
	}

	video := op.Response.GeneratedVideos[0].Video
	if len(video.VideoBytes) > 0 {
		return &model.RawVideo{Data: video.VideoBytes, MIMEType: video.MIMEType}, nil
	}
	if video.URI == "" {
		return nil, errors.New("video operation returned neither bytes nor a URI")
	}
	data, err := v.ReadObject(ctx, video.URI)
	if err != nil {
		return nil, fmt.Errorf("reading generated video %s: %w", video.URI, err)
	}
	return &model.RawVideo{Data: data, MIMEType: video.MIMEType}, nil
}
