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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that writes the generated video to disk.
//
//  1. Sniff the container type of the payload. Anything that is not a video
//     is a GenerationFailure; nothing is written.
//  2. Write the secondary copy (relative path), if one is configured. A
//     failure here is logged and the artifact carries no SecondaryPath.
//  3. Write the primary copy (fixed absolute path). Both writes replace any
//     previous file, so the last generation wins. Each write is staged in a
//     temporary file registered on the chain context, so Close removes it
//     if the rename never happens.
//  4. Emit a VideoArtifact whose Path is the primary path.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// VideoCache persists a model.RawVideo to the configured output paths.
type VideoCache struct {
	cor.BaseCommand
	primaryPath   string
	secondaryPath string
	encoding      model.VideoEncoding
}

// NewVideoCache creates the command. An empty secondaryPath disables the
// second write.
func NewVideoCache(name string, primaryPath string, secondaryPath string) *VideoCache {
	return &VideoCache{
		BaseCommand:   *cor.NewBaseCommand(name),
		primaryPath:   primaryPath,
		secondaryPath: secondaryPath,
		encoding:      model.DefaultVideoEncoding(),
	}
}

func (c *VideoCache) Execute(context cor.Context) {
	video, ok := context.Get(c.GetInputParam()).(*model.RawVideo)
	if !ok || video == nil {
		c.Fail(context, fmt.Errorf("expected a raw video, got %T", context.Get(c.GetInputParam())))
		return
	}

	if !filetype.IsVideo(video.Data) {
		c.Fail(context, model.NewGenerationFailure(errors.New("generation service returned a payload that is not a video")))
		return
	}
	kind, _ := filetype.Video(video.Data)

	artifact := model.NewVideoArtifact(c.primaryPath, c.encoding)
	artifact.MIMEType = kind.MIME.Value
	artifact.Size = int64(len(video.Data))

	if c.secondaryPath != "" {
		if err := writeFile(context, c.secondaryPath, video.Data); err != nil {
			slog.WarnContext(context.GetContext(), "skipping secondary video copy", "path", c.secondaryPath, "error", err)
		} else {
			artifact.SecondaryPath = c.secondaryPath
		}
	}
	if err := writeFile(context, c.primaryPath, video.Data); err != nil {
		c.Fail(context, err)
		return
	}

	context.Add(ParamVideoArtifact, artifact)
	context.Add(c.GetOutputParam(), artifact)
	c.Succeed(context)
}

// writeFile replaces path atomically so a reader never sees a partial video.
// The staging file is left for context.Close when any step fails.
func writeFile(context cor.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	context.AddTempFile(tmp.Name())
	_ = tmp.Chmod(0o644)
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
