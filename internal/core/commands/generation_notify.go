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

package commands

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// GenerationNotify announces a finished generation on a topic. The message
// body is the JSON GenerationRecord; the attributes carry the artifact ID and
// MIME type for subscription filters, and the signed URL when there is one.
type GenerationNotify struct {
	cor.BaseCommand
	publisher cloud.Publisher
}

func NewGenerationNotify(name string, publisher cloud.Publisher) *GenerationNotify {
	return &GenerationNotify{BaseCommand: *cor.NewBaseCommand(name), publisher: publisher}
}

func (n *GenerationNotify) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil &&
		context.Get(ParamVideoArtifact) != nil && context.Get(ParamGenerationRequest) != nil
}

func (n *GenerationNotify) Execute(context cor.Context) {
	req := context.Get(ParamGenerationRequest).(model.GenerationRequest)
	artifact := context.Get(ParamVideoArtifact).(*model.VideoArtifact)

	attributes := map[string]string{
		"artifact_id": artifact.ID,
		"mime_type":   artifact.MIMEType,
	}
	if artifact.SignedURL != "" {
		attributes["signed_url"] = artifact.SignedURL
	}
	id, err := n.publisher.Publish(context.GetContext(), model.NewGenerationRecord(req, artifact), attributes)
	if err != nil {
		n.Fail(context, fmt.Errorf("failed to announce artifact %s: %w", artifact.ID, err))
		return
	}
	slog.Debug("generation announced", "artifact_id", artifact.ID, "message_id", id)
	n.Succeed(context)
}
