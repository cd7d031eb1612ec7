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
// Responsibility (COR) pattern's Command interface. This file defines a
// command that copies the generated video to a Google Cloud Storage bucket.
//
//  1. Get the artifact produced by VideoCache from the context.
//  2. Open the primary file for reading.
//  3. Stream it to gs://<bucket>/<prefix><artifact id>.<ext> with the
//     artifact's MIME type.
//  4. Record the gs:// URI on the artifact so later steps can reference it.
//
// The local file is kept; the UI keeps serving it from the fixed path.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// GCSFileUpload uploads the artifact to a bucket.
type GCSFileUpload struct {
	cor.BaseCommand
	bucket     string
	prefix     string
	openWriter func(ctx context.Context, object *cloud.GCSObject) io.WriteCloser
}

// NewGCSFileUpload creates the upload command for bucket. prefix is
// prepended to every object name and may be empty.
func NewGCSFileUpload(name string, client *storage.Client, bucket string, prefix string) *GCSFileUpload {
	return &GCSFileUpload{
		BaseCommand: *cor.NewBaseCommand(name),
		bucket:      bucket,
		prefix:      prefix,
		openWriter: func(ctx context.Context, object *cloud.GCSObject) io.WriteCloser {
			writer := client.Bucket(object.Bucket).Object(object.Name).NewWriter(ctx)
			writer.ContentType = object.MIMEType
			return writer
		},
	}
}

func (c *GCSFileUpload) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(ParamVideoArtifact) != nil
}

func (c *GCSFileUpload) Execute(context cor.Context) {
	artifact := context.Get(ParamVideoArtifact).(*model.VideoArtifact)

	src, err := os.Open(artifact.Path)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to open file %s: %w", artifact.Path, err))
		return
	}
	defer src.Close()

	object := &cloud.GCSObject{
		Bucket:   c.bucket,
		Name:     path.Join(c.prefix, artifact.ID+filepath.Ext(artifact.Path)),
		MIMEType: artifact.MIMEType,
	}
	writer := c.openWriter(context.GetContext(), object)
	if written, err := io.Copy(writer, src); err != nil {
		_ = writer.Close()
		slog.Error("failed to copy to GCS or partial write", "bytes", written, "error", err)
		c.Fail(context, err)
		return
	}
	// Close finalizes the upload; its error is the upload result.
	if err := writer.Close(); err != nil {
		c.Fail(context, fmt.Errorf("failed to finalize %s: %w", object.URI(), err))
		return
	}

	artifact.PublishedURI = object.URI()
	c.Succeed(context)
	slog.Info("uploaded video artifact", "uri", artifact.PublishedURI)
}
