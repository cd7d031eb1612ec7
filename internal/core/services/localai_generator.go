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
// This file implements the "localai" generation backend: a text-to-video
// model hosted by a LocalAI compatible server exposing `POST /video`.
//
// Request flow:
//  1. Construction probes `GET /readyz` so a dead server fails the registry
//     initialization instead of the first user request.
//  2. Generate posts the sampling parameters as JSON and asks for base64.
//  3. The answer carries either `b64_json` or a `url` to fetch the file from.
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// LocalAIVideoGenerator calls a LocalAI compatible video endpoint.
type LocalAIVideoGenerator struct {
	BaseURL    string
	ModelName  string
	ModelSize  string
	Device     string
	HTTPClient *http.Client
}

type localAIVideoRequest struct {
	Model          string     `json:"model"`
	Prompt         string     `json:"prompt"`
	NegativePrompt string     `json:"negative_prompt,omitempty"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	Step           int        `json:"step"`
	CFGScale       float64    `json:"cfg_scale"`
	Shift          float64    `json:"shift"`
	Seed           int64      `json:"seed"`
	FPS            int        `json:"fps"`
	OffloadModel   bool       `json:"offload_model"`
	Device         string     `json:"device,omitempty"`
	Size           string     `json:"size,omitempty"`
	Encoding       videoCodec `json:"encoding"`
	ResponseFormat string     `json:"response_format"`
}

type videoCodec struct {
	NRow       int        `json:"nrow"`
	Normalize  bool       `json:"normalize"`
	ValueRange [2]float64 `json:"value_range"`
}

type localAIVideoResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLocalAIVideoGenerator returns a generator for config.Models.GenerationBaseURL
// once the server reports ready.
func NewLocalAIVideoGenerator(ctx context.Context, config *cloud.Config, device string, client *http.Client) (*LocalAIVideoGenerator, error) {
	if config.Models.GenerationBaseURL == "" {
		return nil, fmt.Errorf("generation_base_url is required for %s", cloud.GenerationLocalAI)
	}
	if client == nil {
		client = &http.Client{Timeout: time.Duration(config.Models.GenerationTimeoutSec) * time.Second}
	}
	g := &LocalAIVideoGenerator{
		BaseURL:    strings.TrimSuffix(config.Models.GenerationBaseURL, "/"),
		ModelName:  config.Models.GenerationModel,
		ModelSize:  config.Models.ModelSize,
		Device:     device,
		HTTPClient: client,
	}
	if err := g.ready(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *LocalAIVideoGenerator) ready(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, g.BaseURL+"/readyz", nil)
	if err != nil {
		return err
	}
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("generation server %s is not reachable: %w", g.BaseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generation server %s is not ready: %s", g.BaseURL, resp.Status)
	}
	return nil
}

// Generate blocks until the server returns the encoded video.
func (g *LocalAIVideoGenerator) Generate(ctx context.Context, params model.GenerateParams) (*model.RawVideo, error) {
	body, err := json.Marshal(localAIVideoRequest{
		Model:          g.ModelName,
		Prompt:         params.Prompt,
		NegativePrompt: params.NegativePrompt,
		Width:          params.Width,
		Height:         params.Height,
		Step:           params.SamplingSteps,
		CFGScale:       params.GuideScale,
		Shift:          params.Shift,
		Seed:           params.Seed,
		FPS:            params.Encoding.FPS,
		OffloadModel:   params.OffloadModel,
		Device:         g.Device,
		Size:           g.ModelSize,
		Encoding: videoCodec{
			NRow:       params.Encoding.NRow,
			Normalize:  params.Encoding.Normalize,
			ValueRange: params.Encoding.ValueRange,
		},
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/video", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out localAIVideoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding generation response (%s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return nil, fmt.Errorf("generation server returned %s: %s", resp.Status, out.Error.Message)
		}
		return nil, fmt.Errorf("generation server returned %s", resp.Status)
	}
	if len(out.Data) == 0 {
		return nil, errors.New("generation server returned no video")
	}

	if encoded := out.Data[0].B64JSON; encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decoding video payload: %w", err)
		}
		return &model.RawVideo{Data: data}, nil
	}
	if out.Data[0].URL != "" {
		return g.fetch(ctx, out.Data[0].URL)
	}
	return nil, errors.New("generation server returned an empty video entry")
}

func (g *LocalAIVideoGenerator) fetch(ctx context.Context, url string) (*model.RawVideo, error) {
	if strings.HasPrefix(url, "/") {
		url = g.BaseURL + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching video %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &model.RawVideo{Data: data, MIMEType: resp.Header.Get("Content-Type")}, nil
}
