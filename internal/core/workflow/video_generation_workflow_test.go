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

package workflow_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-t2v-studio/internal/testutil"
)

var logger = otelslog.NewLogger("github.com/jaycherian/gcp-go-t2v-studio/internal/core/workflow_test")

func form() model.GenerationForm {
	return model.GenerationForm{Prompt: "a cat", Resolution: "480*832", SamplingSteps: 50, GuideScale: 6, ShiftScale: 8, Seed: -1}
}

func run(wf cor.Command, in model.GenerationForm) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, in)
	wf.Execute(chCtx)
	return chCtx
}

func TestWorkflowPublishesArtifact(t *testing.T) {
	config := test.GetConfig(t)
	publisher := &test.FakePublisher{}
	inserter := &test.FakeInserter{}
	wf := workflow.NewVideoGenerationWorkflow(config, nil, &test.FakeGenerator{},
		commands.NewGenerationNotify("generation-notify", publisher),
		commands.NewGenerationPersist("generation-ledger", inserter))

	chCtx := run(wf, form())
	require.NoError(t, chCtx.Err())

	artifact := chCtx.Get(commands.ParamVideoArtifact).(*model.VideoArtifact)
	logger.Info("generated", "artifact_id", artifact.ID, "path", artifact.Path)
	assert.Equal(t, config.Output.PrimaryPath, artifact.Path)
	require.Len(t, publisher.Payloads, 1)
	require.Len(t, inserter.Rows, 1)
	assert.Equal(t, artifact.ID, inserter.Rows[0].(*model.GenerationRecord).ArtifactID)
}

func TestWorkflowPublishFailuresAreNotReturned(t *testing.T) {
	config := test.GetConfig(t)
	publisher := &test.FakePublisher{Err: errors.New("topic not found")}
	inserter := &test.FakeInserter{}
	wf := workflow.NewVideoGenerationWorkflow(config, nil, &test.FakeGenerator{},
		commands.NewGenerationNotify("generation-notify", publisher),
		commands.NewGenerationPersist("generation-ledger", inserter))

	chCtx := run(wf, form())
	require.NoError(t, chCtx.Err())
	// The ledger still runs after the notification failed.
	assert.Len(t, inserter.Rows, 1)
	_, err := os.Stat(config.Output.PrimaryPath)
	assert.NoError(t, err)
}

func TestWorkflowSkipsPublishWhenGenerationFails(t *testing.T) {
	config := test.GetConfig(t)
	inserter := &test.FakeInserter{}
	wf := workflow.NewVideoGenerationWorkflow(config, nil, &test.FakeGenerator{Err: errors.New("sampler diverged")},
		commands.NewGenerationPersist("generation-ledger", inserter))

	chCtx := run(wf, form())
	var failure *model.GenerationFailure
	assert.True(t, errors.As(chCtx.Err(), &failure))
	assert.Empty(t, inserter.Rows)
}

func runMessage(wf cor.Command, body string) cor.Context {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(context.Background())
	chCtx.Add(cor.CtxIn, body)
	wf.Execute(chCtx)
	return chCtx
}

func TestMessageWorkflowGeneratesFromJSON(t *testing.T) {
	config := test.GetConfig(t)
	generator := &test.FakeGenerator{}
	wf := workflow.NewGenerationMessageWorkflow(config, nil, generator)

	chCtx := runMessage(wf, `{"prompt":"a cat","resolution":"624*624","sd_steps":30,"guide_scale":5,"shift_scale":5,"seed":-1}`)
	require.NoError(t, chCtx.Err())
	assert.Equal(t, int32(1), generator.Calls.Load())
	assert.Equal(t, 624, generator.Last().Width)
	_, err := os.Stat(config.Output.PrimaryPath)
	assert.NoError(t, err)
}

func TestMessageWorkflowErrorClassification(t *testing.T) {
	config := test.GetConfig(t)

	chCtx := runMessage(workflow.NewGenerationMessageWorkflow(config, nil, &test.FakeGenerator{}), "{")
	assert.True(t, workflow.IsPermanent(chCtx.Err()))

	chCtx = runMessage(workflow.NewGenerationMessageWorkflow(config, nil, &test.FakeGenerator{}), `{"prompt":"a cat","resolution":"1*2*3","sd_steps":30}`)
	assert.True(t, workflow.IsPermanent(chCtx.Err()))

	generator := &test.FakeGenerator{Err: errors.New("out of memory")}
	chCtx = runMessage(workflow.NewGenerationMessageWorkflow(config, nil, generator), `{"prompt":"a cat","resolution":"480*832","sd_steps":30}`)
	require.Error(t, chCtx.Err())
	assert.False(t, workflow.IsPermanent(chCtx.Err()))
}
