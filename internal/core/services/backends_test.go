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
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeebo/assert"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/services"
	test "github.com/jaycherian/gcp-go-t2v-studio/internal/testutil"
)

func catParams(t *testing.T) model.GenerateParams {
	req, err := model.NewGenerationRequest(catForm())
	assert.NoError(t, err)
	return model.NewGenerateParams(req)
}

// localAIServer fakes the LocalAI video endpoints. reply writes the /video answer.
func localAIServer(t *testing.T, ready int, reply func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(ready)
	})
	mux.HandleFunc("POST /video", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		reply(w, body)
	})
	mux.HandleFunc("GET /generated-videos/out.mp4", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(test.MP4Bytes())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func localAIConfig(t *testing.T, baseURL string) *cloud.Config {
	config := test.GetConfig(t)
	config.Models.GenerationBaseURL = baseURL
	return config
}

func TestLocalAIGeneratorSendsParameters(t *testing.T) {
	var sent map[string]any
	srv := localAIServer(t, http.StatusOK, func(w http.ResponseWriter, body map[string]any) {
		sent = body
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(test.MP4Bytes())}},
		})
	})

	g, err := services.NewLocalAIVideoGenerator(context.Background(), localAIConfig(t, srv.URL+"/"), "cuda:0", srv.Client())
	assert.NoError(t, err)

	video, err := g.Generate(context.Background(), catParams(t))
	assert.NoError(t, err)
	assert.DeepEqual(t, video.Data, test.MP4Bytes())

	assert.Equal(t, sent["prompt"], "a cat")
	assert.Equal(t, sent["width"], 480.0)
	assert.Equal(t, sent["height"], 832.0)
	assert.Equal(t, sent["step"], 50.0)
	assert.Equal(t, sent["cfg_scale"], 6.0)
	assert.Equal(t, sent["shift"], 8.0)
	assert.Equal(t, sent["seed"], -1.0)
	assert.Equal(t, sent["fps"], 16.0)
	assert.Equal(t, sent["offload_model"], true)
	assert.Equal(t, sent["device"], "cuda:0")
	assert.Equal(t, sent["size"], "t2v-1.3B")
	assert.Equal(t, sent["response_format"], "b64_json")
	encoding := sent["encoding"].(map[string]any)
	assert.Equal(t, encoding["nrow"], 1.0)
	assert.Equal(t, encoding["normalize"], true)
	assert.DeepEqual(t, encoding["value_range"], []any{-1.0, 1.0})
}

func TestLocalAIGeneratorFetchesURL(t *testing.T) {
	srv := localAIServer(t, http.StatusOK, func(w http.ResponseWriter, _ map[string]any) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": "/generated-videos/out.mp4"}},
		})
	})

	g, err := services.NewLocalAIVideoGenerator(context.Background(), localAIConfig(t, srv.URL), "", srv.Client())
	assert.NoError(t, err)

	video, err := g.Generate(context.Background(), catParams(t))
	assert.NoError(t, err)
	assert.DeepEqual(t, video.Data, test.MP4Bytes())
	assert.Equal(t, video.MIMEType, "video/mp4")
}

func TestLocalAIGeneratorReportsServerError(t *testing.T) {
	srv := localAIServer(t, http.StatusOK, func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"CUDA out of memory"}}`))
	})

	g, err := services.NewLocalAIVideoGenerator(context.Background(), localAIConfig(t, srv.URL), "", srv.Client())
	assert.NoError(t, err)

	_, err = g.Generate(context.Background(), catParams(t))
	assert.Error(t, err)
	assert.That(t, strings.Contains(err.Error(), "CUDA out of memory"))
}

func TestLocalAIGeneratorRequiresReadyServer(t *testing.T) {
	srv := localAIServer(t, http.StatusServiceUnavailable, nil)
	_, err := services.NewLocalAIVideoGenerator(context.Background(), localAIConfig(t, srv.URL), "", srv.Client())
	assert.Error(t, err)

	_, err = services.NewLocalAIVideoGenerator(context.Background(), localAIConfig(t, ""), "", nil)
	assert.Error(t, err)
}

// openAIServer fakes the two OpenAI endpoints the local expander uses.
func openAIServer(t *testing.T, served string, content string, metadata *atomic.Value) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]string{{"id": served, "object": "model"}},
		})
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Metadata map[string]string `json:"metadata"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, len(body.Messages), 2)
		assert.Equal(t, body.Messages[0].Role, "system")
		if metadata != nil {
			metadata.Store(body.Metadata)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func expanderConfig(t *testing.T, baseURL string) *cloud.Config {
	config := test.GetConfig(t)
	config.Models.PromptExtendBaseURL = baseURL + "/v1"
	config.Models.PromptExtendModel = "Qwen2.5-7B-Instruct"
	config.Models.PromptExtendRate = 0
	return config
}

func TestLocalModelPromptExpander(t *testing.T) {
	var metadata atomic.Value
	srv := openAIServer(t, "Qwen2.5-7B-Instruct", "  A fluffy cat naps in the sun.  ", &metadata)

	expander, err := services.NewLocalModelPromptExpander(context.Background(), expanderConfig(t, srv.URL), "cuda:0")
	assert.NoError(t, err)

	out, err := expander.Expand(context.Background(), "a cat", "en")
	assert.NoError(t, err)
	assert.That(t, out.Status)
	assert.Equal(t, out.Prompt, "A fluffy cat naps in the sun.")
	assert.DeepEqual(t, metadata.Load(), map[string]string{"device": "cuda:0"})

	out, err = expander.Expand(context.Background(), "a cat", "fr")
	assert.NoError(t, err)
	assert.That(t, !out.Status)
}

func TestLocalModelPromptExpanderEmptyAnswer(t *testing.T) {
	srv := openAIServer(t, "Qwen2.5-7B-Instruct", "   ", nil)
	expander, err := services.NewLocalModelPromptExpander(context.Background(), expanderConfig(t, srv.URL), "")
	assert.NoError(t, err)

	out, err := expander.Expand(context.Background(), "a cat", "zh")
	assert.NoError(t, err)
	assert.That(t, !out.Status)
}

func TestLocalModelPromptExpanderRequiresServedModel(t *testing.T) {
	srv := openAIServer(t, "llama-3", "unused", nil)
	_, err := services.NewLocalModelPromptExpander(context.Background(), expanderConfig(t, srv.URL), "")
	assert.Error(t, err)
}

type fakeVideoModels struct {
	model  string
	prompt string
	config *genai.GenerateVideosConfig
	op     *genai.GenerateVideosOperation
}

func (f *fakeVideoModels) GenerateVideos(_ context.Context, model string, prompt string, _ *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.model, f.prompt, f.config = model, prompt, config
	return f.op, nil
}

// fakeVideoOperations finishes the operation after polls calls.
type fakeVideoOperations struct {
	polls int
	calls int
	done  *genai.GenerateVideosOperation
}

func (f *fakeVideoOperations) GetVideosOperation(_ context.Context, op *genai.GenerateVideosOperation, _ *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error) {
	f.calls++
	if f.calls < f.polls {
		return op, nil
	}
	return f.done, nil
}

func newVeo(models *fakeVideoModels, ops *fakeVideoOperations) *services.VeoVideoGenerator {
	return &services.VeoVideoGenerator{
		Models:       models,
		Operations:   ops,
		ModelName:    "veo-2.0-generate-001",
		PollInterval: time.Millisecond,
		Timeout:      5 * time.Second,
		ReadObject: func(_ context.Context, uri string) ([]byte, error) {
			if uri != "gs://veo-out/sample_0.mp4" {
				return nil, errors.New("unexpected uri " + uri)
			}
			return test.MP4Bytes(), nil
		},
	}
}

func TestVeoGeneratorPollsUntilDone(t *testing.T) {
	models := &fakeVideoModels{op: &genai.GenerateVideosOperation{Name: "operations/1"}}
	ops := &fakeVideoOperations{polls: 3, done: &genai.GenerateVideosOperation{
		Name: "operations/1",
		Done: true,
		Response: &genai.GenerateVideosResponse{GeneratedVideos: []*genai.GeneratedVideo{
			{Video: &genai.Video{VideoBytes: test.MP4Bytes(), MIMEType: "video/mp4"}},
		}},
	}}

	video, err := newVeo(models, ops).Generate(context.Background(), catParams(t))
	assert.NoError(t, err)
	assert.DeepEqual(t, video.Data, test.MP4Bytes())
	assert.Equal(t, ops.calls, 3)

	assert.Equal(t, models.model, "veo-2.0-generate-001")
	assert.Equal(t, models.prompt, "a cat")
	assert.Equal(t, models.config.AspectRatio, "9:16")
	assert.That(t, models.config.Seed == nil)
	assert.Equal(t, *models.config.FPS, int32(16))
}

func TestVeoGeneratorReadsGCSOutput(t *testing.T) {
	models := &fakeVideoModels{op: &genai.GenerateVideosOperation{
		Name: "operations/2",
		Done: true,
		Response: &genai.GenerateVideosResponse{GeneratedVideos: []*genai.GeneratedVideo{
			{Video: &genai.Video{URI: "gs://veo-out/sample_0.mp4", MIMEType: "video/mp4"}},
		}},
	}}
	params := catParams(t)
	params.Seed = 42

	video, err := newVeo(models, &fakeVideoOperations{}).Generate(context.Background(), params)
	assert.NoError(t, err)
	assert.DeepEqual(t, video.Data, test.MP4Bytes())
	assert.Equal(t, *models.config.Seed, int32(42))
}

func TestVeoGeneratorReportsFilteredVideo(t *testing.T) {
	models := &fakeVideoModels{op: &genai.GenerateVideosOperation{
		Name: "operations/3",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			RAIMediaFilteredCount:   1,
			RAIMediaFilteredReasons: []string{"unsafe content"},
		},
	}}

	_, err := newVeo(models, &fakeVideoOperations{}).Generate(context.Background(), catParams(t))
	assert.Error(t, err)
	assert.That(t, strings.Contains(err.Error(), "unsafe content"))
}

func TestVeoGeneratorRequiresGenAIClient(t *testing.T) {
	_, err := services.NewVeoVideoGenerator(nil, test.GetConfig(t))
	assert.Error(t, err)
	assert.Equal(t, services.AspectRatio(832, 480), "16:9")
}

func TestRateLimitedGenerator(t *testing.T) {
	fake := &test.FakeGenerator{}
	assert.Equal(t, services.NewRateLimitedGenerator(fake, 0), model.VideoGenerator(fake))

	limited := services.NewRateLimitedGenerator(fake, 1)
	_, err := limited.Generate(context.Background(), catParams(t))
	assert.NoError(t, err)

	// The next slot is a minute away; a cancelled caller gives up.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = limited.Generate(ctx, catParams(t))
	assert.Error(t, err)
	assert.Equal(t, fake.Calls.Load(), int32(1))
}
