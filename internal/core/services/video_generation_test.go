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

package services_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/services"
	test "github.com/jaycherian/gcp-go-t2v-studio/internal/testutil"
)

func catForm() model.GenerationForm {
	return model.GenerationForm{
		Prompt:        "a cat",
		Resolution:    "480*832",
		SamplingSteps: 50,
		GuideScale:    6.0,
		ShiftScale:    8.0,
		Seed:          -1,
	}
}

func TestGenerateWritesArtifactToFixedPath(t *testing.T) {
	fake := &test.FakeGenerator{}
	registry, config := newInitializedRegistry(t, nil, fake)
	adapter := &services.VideoGeneration{Registry: registry, Config: config}

	artifact, err := adapter.Generate(context.Background(), catForm())
	require.NoError(t, err)
	assert.Equal(t, config.Output.PrimaryPath, artifact.Path)
	assert.Equal(t, "video/mp4", artifact.MIMEType)
	assert.Equal(t, 16, artifact.FrameRate)
	assert.True(t, artifact.Normalized)
	assert.Equal(t, [2]float64{-1, 1}, artifact.ValueRange)

	data, err := os.ReadFile(config.Output.PrimaryPath)
	require.NoError(t, err)
	assert.Equal(t, test.MP4Bytes(), data)

	params := fake.Last()
	assert.Equal(t, "a cat", params.Prompt)
	assert.Equal(t, 480, params.Width)
	assert.Equal(t, 832, params.Height)
	assert.Equal(t, 50, params.SamplingSteps)
	assert.Equal(t, 6.0, params.GuideScale)
	assert.Equal(t, 8.0, params.Shift)
	assert.Equal(t, int64(-1), params.Seed)
	assert.True(t, params.OffloadModel)
	assert.Equal(t, model.DefaultVideoEncoding(), params.Encoding)
}

func TestGenerateWritesSecondaryCopy(t *testing.T) {
	registry, config := newInitializedRegistry(t, nil, &test.FakeGenerator{})
	config.Output.SecondaryPath = filepath.Join(t.TempDir(), "example.mp4")
	adapter := &services.VideoGeneration{Registry: registry, Config: config}

	artifact, err := adapter.Generate(context.Background(), catForm())
	require.NoError(t, err)
	assert.Equal(t, config.Output.SecondaryPath, artifact.SecondaryPath)

	primary, err := os.ReadFile(config.Output.PrimaryPath)
	require.NoError(t, err)
	secondary, err := os.ReadFile(config.Output.SecondaryPath)
	require.NoError(t, err)
	assert.Equal(t, primary, secondary)
}

func TestGenerateWithoutServiceIsModelUnavailable(t *testing.T) {
	registry, config := newInitializedRegistry(t, nil, nil)
	adapter := &services.VideoGeneration{Registry: registry, Config: config}

	for _, form := range []model.GenerationForm{catForm(), {Resolution: "bad*res"}, {}} {
		artifact, err := adapter.Generate(context.Background(), form)
		assert.Nil(t, artifact)
		assert.ErrorIs(t, err, model.ErrModelUnavailable)
	}
	_, err := os.Stat(config.Output.PrimaryPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestGenerateRejectsMalformedResolutionBeforeServiceCall(t *testing.T) {
	fake := &test.FakeGenerator{}
	registry, config := newInitializedRegistry(t, nil, fake)
	adapter := &services.VideoGeneration{Registry: registry, Config: config}

	for _, resolution := range []string{"bad*res", "480", "480*abc", "", "480*832*2"} {
		form := catForm()
		form.Resolution = resolution
		_, err := adapter.Generate(context.Background(), form)
		var validation *model.ValidationError
		require.True(t, errors.As(err, &validation), resolution)
	}
	assert.Equal(t, int32(0), fake.Calls.Load())
	_, err := os.Stat(config.Output.PrimaryPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestGenerateRejectsNaNScalesBeforeServiceCall(t *testing.T) {
	fake := &test.FakeGenerator{}
	registry, config := newInitializedRegistry(t, nil, fake)
	adapter := &services.VideoGeneration{Registry: registry, Config: config}

	for field, mutate := range map[string]func(*model.GenerationForm){
		"guide_scale": func(f *model.GenerationForm) { f.GuideScale = math.NaN() },
		"shift_scale": func(f *model.GenerationForm) { f.ShiftScale = math.NaN() },
	} {
		form := catForm()
		mutate(&form)
		_, err := adapter.Generate(context.Background(), form)
		var validation *model.ValidationError
		require.True(t, errors.As(err, &validation), field)
		assert.Equal(t, field, validation.Field)
	}
	assert.Equal(t, int32(0), fake.Calls.Load())
}

func TestGenerateWrapsServiceErrors(t *testing.T) {
	cause := errors.New("CUDA out of memory")
	registry, config := newInitializedRegistry(t, nil, &test.FakeGenerator{Err: cause})
	adapter := &services.VideoGeneration{Registry: registry, Config: config}

	_, err := adapter.Generate(context.Background(), catForm())
	var failure *model.GenerationFailure
	require.True(t, errors.As(err, &failure))
	assert.ErrorIs(t, err, cause)

	_, statErr := os.Stat(config.Output.PrimaryPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestGenerateRejectsNonVideoPayload(t *testing.T) {
	fake := &test.FakeGenerator{Video: &model.RawVideo{Data: []byte("<html>error</html>"), MIMEType: "text/html"}}
	registry, config := newInitializedRegistry(t, nil, fake)
	adapter := &services.VideoGeneration{Registry: registry, Config: config}

	_, err := adapter.Generate(context.Background(), catForm())
	var failure *model.GenerationFailure
	require.True(t, errors.As(err, &failure))

	_, statErr := os.Stat(config.Output.PrimaryPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}
