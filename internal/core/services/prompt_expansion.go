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

package services

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// PromptExpansion is the "Prompt Enhance" action. Expansion is best effort:
// whenever it cannot produce a better prompt it returns the input unchanged.
type PromptExpansion struct {
	Registry *ModelRegistry
}

// Expand makes at most one call to the expansion service.
func (p *PromptExpansion) Expand(ctx context.Context, prompt string, lang model.Language) model.ExpandedPrompt {
	passthrough := model.ExpandedPrompt{Text: prompt, Succeeded: false}

	expander := p.Registry.Expander()
	if expander == nil {
		slog.DebugContext(ctx, "prompt expander not initialized, returning prompt unchanged")
		return passthrough
	}

	out, err := expander.Expand(ctx, prompt, lang.Lower())
	if err != nil {
		slog.WarnContext(ctx, "prompt expansion failed", "error", err)
		return passthrough
	}
	if out == nil || !out.Status {
		if out != nil {
			slog.InfoContext(ctx, "prompt expansion reported failure", "message", out.Message)
		}
		return passthrough
	}
	return model.ExpandedPrompt{Text: out.Prompt, Succeeded: true}
}
