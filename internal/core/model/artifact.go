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
// file contains the output side of a generation: the encoding parameters sent
// to the generation service, the artifact written to disk, and the ledger row
// persisted after a successful run.
package model

import (
	"time"

	"github.com/google/uuid"
)

// VideoEncoding describes how the generation service must encode its frames.
type VideoEncoding struct {
	FPS        int        `json:"fps"`
	NRow       int        `json:"nrow"`
	Normalize  bool       `json:"normalize"`
	ValueRange [2]float64 `json:"value_range"`
}

// DefaultVideoEncoding is the only encoding the UI produces: 16 fps, a single
// row, pixels normalized from the [-1, 1] range.
func DefaultVideoEncoding() VideoEncoding {
	return VideoEncoding{FPS: 16, NRow: 1, Normalize: true, ValueRange: [2]float64{-1, 1}}
}

// VideoArtifact is a generated video written to the local filesystem.
// Every generation overwrites the previous artifact at the same Path.
type VideoArtifact struct {
	ID            string     `json:"id"`
	Path          string     `json:"path"`
	SecondaryPath string     `json:"secondary_path,omitempty"`
	FrameRate     int        `json:"frame_rate"`
	Normalized    bool       `json:"normalized"`
	ValueRange    [2]float64 `json:"value_range"`
	MIMEType      string     `json:"mime_type"`
	Size          int64      `json:"size"`
	PublishedURI  string     `json:"published_uri,omitempty"`
	SignedURL     string     `json:"signed_url,omitempty"` // Expiring HTTPS link to PublishedURI.
	CreatedAt     time.Time  `json:"created_at"`
}

// NewVideoArtifact creates an artifact descriptor for path with a fresh ID.
func NewVideoArtifact(path string, encoding VideoEncoding) *VideoArtifact {
	return &VideoArtifact{
		ID:         uuid.New().String(),
		Path:       path,
		FrameRate:  encoding.FPS,
		Normalized: encoding.Normalize,
		ValueRange: encoding.ValueRange,
		CreatedAt:  time.Now(),
	}
}

// InitResult reports which services the registry managed to construct.
type InitResult struct {
	ExpansionOK  bool `json:"expansion_ok"`
	GenerationOK bool `json:"generation_ok"`
}

// GenerationRecord is the ledger row written for every completed generation.
type GenerationRecord struct {
	ArtifactID     string    `json:"artifact_id" bigquery:"artifact_id"`
	Prompt         string    `json:"prompt" bigquery:"prompt"`
	NegativePrompt string    `json:"negative_prompt" bigquery:"negative_prompt"`
	Width          int       `json:"width" bigquery:"width"`
	Height         int       `json:"height" bigquery:"height"`
	SamplingSteps  int       `json:"sampling_steps" bigquery:"sampling_steps"`
	GuideScale     float64   `json:"guide_scale" bigquery:"guide_scale"`
	ShiftScale     float64   `json:"shift_scale" bigquery:"shift_scale"`
	Seed           int64     `json:"seed" bigquery:"seed"`
	MIMEType       string    `json:"mime_type" bigquery:"mime_type"`
	Size           int64     `json:"size" bigquery:"size"`
	PublishedURI   string    `json:"published_uri" bigquery:"published_uri"`
	CreateDate     time.Time `json:"create_date" bigquery:"create_date"`
}

// NewGenerationRecord joins a request and its artifact into a ledger row.
func NewGenerationRecord(req GenerationRequest, artifact *VideoArtifact) *GenerationRecord {
	return &GenerationRecord{
		ArtifactID:     artifact.ID,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		SamplingSteps:  req.SamplingSteps,
		GuideScale:     req.GuideScale,
		ShiftScale:     req.ShiftScale,
		Seed:           req.Seed,
		MIMEType:       artifact.MIMEType,
		Size:           artifact.Size,
		PublishedURI:   artifact.PublishedURI,
		CreateDate:     artifact.CreatedAt,
	}
}
