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

package ui_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/services"
	test "github.com/jaycherian/gcp-go-t2v-studio/internal/testutil"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/ui"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// slowGenerator records how many calls overlap.
type slowGenerator struct {
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	release  chan struct{}
}

func (s *slowGenerator) Generate(ctx context.Context, _ model.GenerationForm) (*model.VideoArtifact, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if s.release != nil {
		<-s.release
	} else {
		time.Sleep(s.delay)
	}
	return &model.VideoArtifact{ID: "id"}, nil
}

func post(h http.Handler, ctx context.Context, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDefaultFormSchema(t *testing.T) {
	schema := ui.DefaultFormSchema("Wan2.1 (T2V-1.3B)", "sub", ui.APIBase, true)

	byName := map[string]ui.Field{}
	for _, f := range schema.Fields {
		byName[f.Name] = f
	}
	assert.Equal(t, []string{"ZH", "EN"}, byName[ui.FieldLanguage].Choices)
	assert.Equal(t, "ZH", byName[ui.FieldLanguage].Default)
	assert.Equal(t, "480*832", byName[ui.FieldResolution].Default)
	assert.Len(t, byName[ui.FieldResolution].Choices, 5)
	assert.Equal(t, 50, byName[ui.FieldSamplingSteps].Default)
	assert.Equal(t, 1000.0, *byName[ui.FieldSamplingSteps].Max)
	assert.Equal(t, 6.0, byName[ui.FieldGuideScale].Default)
	assert.Equal(t, 8.0, byName[ui.FieldShiftScale].Default)
	assert.Equal(t, -1, byName[ui.FieldSeed].Default)
	assert.Equal(t, 2147483647.0, *byName[ui.FieldSeed].Max)
	assert.True(t, byName[ui.FieldVideo].ReadOnly)

	require.Len(t, schema.Actions, 2)
	assert.Equal(t, "/api/v1/prompt/expand", schema.Actions[0].Path)
	assert.Equal(t, "/api/v1/videos", schema.Actions[1].Path)

	// Every resolution choice is accepted by the request validator.
	for _, choice := range ui.ResolutionChoices {
		_, err := model.ParseResolution(choice)
		assert.NoError(t, err, choice)
	}
	assert.Len(t, schema.Basic(), 3)
	assert.Len(t, schema.Advanced(), 5)
}

func TestBlocksServesPageAndSchema(t *testing.T) {
	b := ui.NewBlocks(ui.BlocksOptions{Title: "Wan2.1 (T2V-1.3B)", Subtitle: "Wan"})
	require.NotNil(t, b.App())
	assert.Nil(t, b.Queue())

	w := httptest.NewRecorder()
	b.App().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()
	assert.Contains(t, page, "<h1>Wan2.1 (T2V-1.3B)</h1>")
	assert.Contains(t, page, "Advanced Options")
	assert.Contains(t, page, "Prompt Enhance")
	assert.Contains(t, page, "Generate Video")
	assert.Contains(t, page, `<option selected>480*832</option>`)

	w = httptest.NewRecorder()
	b.App().ServeHTTP(w, httptest.NewRequest(http.MethodGet, ui.APIBase+"/schema", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var schema ui.FormSchema
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, "Wan2.1 (T2V-1.3B)", schema.Title)
}

func TestQueueSerializesActions(t *testing.T) {
	gen := &slowGenerator{delay: 20 * time.Millisecond}
	b := ui.NewBlocks(ui.BlocksOptions{Queue: true, Generator: gen})
	require.NotNil(t, b.Queue())
	h := b.Queue().App()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := post(h, context.Background(), ui.APIBase+"/videos", `{"prompt":"a cat"}`)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), gen.maxSeen.Load())
}

func TestQueuedRequestGivesUpWhenCancelled(t *testing.T) {
	gen := &slowGenerator{release: make(chan struct{})}
	b := ui.NewBlocks(ui.BlocksOptions{Queue: true, Generator: gen})
	h := b.Queue().App()

	done := make(chan int)
	go func() {
		done <- post(h, context.Background(), ui.APIBase+"/videos", `{"prompt":"a cat"}`).Code
	}()
	require.Eventually(t, func() bool { return gen.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	w := post(h, ctx, ui.APIBase+"/videos", `{"prompt":"a dog"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Non-action routes are not queued.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	close(gen.release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestRegisterAndLookup(t *testing.T) {
	module := ui.NewT2VModule(test.GetConfig(t), services.NewModelRegistry(test.GetConfig(t), nil), nil)
	ui.Register("test-module", module)

	got, ok := ui.Lookup("test-module")
	require.True(t, ok)
	assert.Same(t, module, got)
	assert.Contains(t, ui.Modules(), "test-module")

	_, ok = ui.Lookup("missing")
	assert.False(t, ok)
}

func TestT2VModuleInitializesRegistryOnce(t *testing.T) {
	config := test.GetConfig(t)
	config.Models.PromptExtendMethod = cloud.ExpandRemoteAPI
	config.UI.Queue = true

	var builds atomic.Int32
	registry := services.NewModelRegistry(config, nil)
	registry.Expanders[cloud.ExpandRemoteAPI] = services.ServiceFactory[model.PromptExpander]{
		New: func(context.Context, string) (model.PromptExpander, error) {
			builds.Add(1)
			return &test.FakeExpander{Output: &model.ExpansionOutput{Prompt: "expanded", Status: true}}, nil
		},
	}
	registry.Generators[config.Models.GenerationBackend] = services.ServiceFactory[model.VideoGenerator]{
		New: func(context.Context, string) (model.VideoGenerator, error) {
			return &test.FakeGenerator{}, nil
		},
	}
	module := ui.NewT2VModule(config, registry, nil)

	iface := module.Interface()
	require.NotNil(t, iface)
	assert.Same(t, iface, module.Interface())
	assert.Equal(t, int32(1), builds.Load())

	status, initialized := registry.Status()
	assert.True(t, initialized)
	assert.True(t, status.GenerationOK)

	h := iface.Queue().App()
	w := post(h, context.Background(), ui.APIBase+"/prompt/expand", `{"prompt":"a cat","tar_lang":"EN"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "expanded")

	w = post(h, context.Background(), ui.APIBase+"/videos",
		`{"prompt":"a cat","resolution":"480*832","sd_steps":50,"guide_scale":6,"shift_scale":8,"seed":-1}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, ui.APIBase+"/videos/latest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, test.MP4Bytes(), w.Body.Bytes())
}

func fakeRegistry(t *testing.T, config *cloud.Config, generator *test.FakeGenerator) *services.ModelRegistry {
	t.Helper()
	registry := services.NewModelRegistry(config, nil)
	registry.Expanders[config.Models.PromptExtendMethod] = services.ServiceFactory[model.PromptExpander]{
		New: func(context.Context, string) (model.PromptExpander, error) { return &test.FakeExpander{}, nil },
	}
	registry.Generators[config.Models.GenerationBackend] = services.ServiceFactory[model.VideoGenerator]{
		New: func(context.Context, string) (model.VideoGenerator, error) { return generator, nil },
	}
	return registry
}

func TestT2VModuleRetriesInitializationOnNextAction(t *testing.T) {
	config := test.GetConfig(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	config.Models.CacheDir = filepath.Join(blocker, "cache")

	registry := fakeRegistry(t, config, &test.FakeGenerator{})
	iface := ui.NewT2VModule(config, registry, nil).Interface()
	require.NotNil(t, iface)
	_, initialized := registry.Status()
	require.False(t, initialized)

	// The cache directory becomes creatable; the next action initializes.
	require.NoError(t, os.Remove(blocker))
	w := post(iface.App(), context.Background(), ui.APIBase+"/videos",
		`{"prompt":"a cat","resolution":"480*832","sd_steps":50,"guide_scale":6,"shift_scale":8,"seed":-1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	status, initialized := registry.Status()
	assert.True(t, initialized)
	assert.True(t, status.GenerationOK)
}

func TestT2VModuleRejectsNaNScaleFromForm(t *testing.T) {
	config := test.GetConfig(t)
	generator := &test.FakeGenerator{}
	iface := ui.NewT2VModule(config, fakeRegistry(t, config, generator), nil).Interface()

	form := url.Values{
		"prompt": {"a cat"}, "resolution": {"480*832"}, "sd_steps": {"50"},
		"guide_scale": {"NaN"}, "shift_scale": {"8"}, "seed": {"-1"},
	}
	req := httptest.NewRequest(http.MethodPost, ui.APIBase+"/videos", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	iface.App().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "guide_scale")
	assert.Equal(t, int32(0), generator.Calls.Load())
}
