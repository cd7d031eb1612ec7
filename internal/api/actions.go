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

// Package api contains the HTTP route definitions behind the UI. This file
// binds the two UI actions, "Prompt Enhance" and "Generate Video", and the
// endpoint that streams the last generated video.
//
// Error responses have the body {"error": "<message>"} and the status:
//   - 400 for *model.ValidationError
//   - 503 for model.ErrModelUnavailable
//   - 502 for *model.GenerationFailure
//   - 500 otherwise
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// LatestVideoPath is where the UI fetches the generated video from.
const LatestVideoPath = "/videos/latest"

// Expander is the prompt expansion action.
type Expander interface {
	Expand(ctx context.Context, prompt string, lang model.Language) model.ExpandedPrompt
}

// Generator is the video generation action.
type Generator interface {
	Generate(ctx context.Context, form model.GenerationForm) (*model.VideoArtifact, error)
}

type expandRequest struct {
	Prompt   string `json:"prompt" form:"prompt"`
	Language string `json:"tar_lang" form:"tar_lang"`
}

// StatusFor maps an action error to its HTTP status code.
func StatusFor(err error) int {
	var validation *model.ValidationError
	var failure *model.GenerationFailure
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &failure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError aborts the request with the mapped status and a JSON body.
func WriteError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "action failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// PromptRouter registers `POST /prompt/expand`. An empty language defaults
// to ZH, like the UI radio.
func PromptRouter(r gin.IRoutes, expander Expander) {
	r.POST("/prompt/expand", func(c *gin.Context) {
		var req expandRequest
		if err := c.ShouldBind(&req); err != nil {
			WriteError(c, &model.ValidationError{Field: "body", Value: "", Reason: err.Error()})
			return
		}
		lang := model.LanguageZH
		if req.Language != "" {
			var err error
			if lang, err = model.ParseLanguage(req.Language); err != nil {
				WriteError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, expander.Expand(c.Request.Context(), req.Prompt, lang))
	})
}

// VideoRouter registers `POST /videos`. The response links to the video
// through basePath + LatestVideoPath.
func VideoRouter(r gin.IRoutes, generator Generator, basePath string) {
	r.POST("/videos", func(c *gin.Context) {
		var form model.GenerationForm
		if err := c.ShouldBind(&form); err != nil {
			WriteError(c, &model.ValidationError{Field: "body", Value: "", Reason: err.Error()})
			return
		}
		artifact, err := generator.Generate(c.Request.Context(), form)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"artifact": artifact,
			"url":      basePath + LatestVideoPath + "?v=" + artifact.ID,
		})
	})
}

// LatestVideo registers `GET /videos/latest`, which serves the file at videoPath.
func LatestVideo(r gin.IRoutes, videoPath string) {
	r.GET(LatestVideoPath, func(c *gin.Context) {
		if _, err := os.Stat(videoPath); err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no video has been generated yet"})
			return
		}
		c.Header("Cache-Control", "no-store")
		c.File(videoPath)
	})
}
