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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for the model services, the artifact output, the UI, and the optional
// Google Cloud sinks (Storage, Pub/Sub, BigQuery).
//
// Structs:
//   - Models: Which prompt-expansion strategy and generation backend to build, and where.
//   - Output: Where the generated video is written.
//   - UI: Title and queueing of the browser interface.
//   - Storage: Bucket the artifact is published to.
//   - TopicPublication: Pub/Sub topic receiving generation notifications.
//   - TopicSubscription: Pub/Sub subscription delivering queued generation requests.
//   - BigQueryDataSource: Dataset and table of the generation ledger.
//   - PromptTemplates: System instructions used for prompt expansion.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that returns a Config populated with defaults.
package cloud

import "google.golang.org/genai"

// Prompt expansion strategies.
const (
	ExpandRemoteAPI  = "remote-api"
	ExpandLocalModel = "local-model"
)

// Generation backends.
const (
	GenerationLocalAI = "localai"
	GenerationVeo     = "veo"
)

// DefaultSafetySettings defines the default content safety thresholds for GenAI models.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
	},
}

// Models holds the configuration of the two external inference services.
type Models struct {
	CacheDir             string `toml:"cache_dir"`                // Checkpoint/cache directory, created if missing.
	Device               string `toml:"device"`                   // Preferred device placement (e.g. "cpu", "cuda:0"). Empty means service default.
	PromptExtendMethod   string `toml:"prompt_extend_method"`     // "remote-api" or "local-model".
	PromptExtendModel    string `toml:"prompt_extend_model"`      // Model used for prompt expansion.
	PromptExtendBaseURL  string `toml:"prompt_extend_base_url"`   // Base URL of the OpenAI compatible server for "local-model".
	PromptExtendAPIKey   string `toml:"prompt_extend_api_key"`    // API key for the expansion service, if any.
	PromptExtendRate     int    `toml:"prompt_extend_rate_limit"` // Requests per second allowed against the expansion service.
	GenerationBackend    string `toml:"generation_backend"`       // "localai" or "veo".
	GenerationModel      string `toml:"generation_model"`         // Model name sent to the generation backend.
	GenerationBaseURL    string `toml:"generation_base_url"`      // Base URL of the LocalAI compatible server.
	GenerationRateLimit  int    `toml:"generation_rate_limit"`    // Generations allowed per minute. Zero disables the limiter.
	GenerationTimeoutSec int    `toml:"generation_timeout_seconds"`
	ModelSize            string `toml:"model_size"` // Fixed model-size configuration, e.g. "t2v-1.3B".
}

// Output configures where the generated video is written.
type Output struct {
	PrimaryPath   string `toml:"primary_path"`   // Fixed absolute path shown by the UI.
	SecondaryPath string `toml:"secondary_path"` // Relative copy; empty disables the second write.
}

// UI configures the browser interface.
type UI struct {
	Module   string `toml:"module"`   // Name of the registered UI module to serve.
	Title    string `toml:"title"`    // Page header.
	Subtitle string `toml:"subtitle"` // Line under the header.
	Queue    bool   `toml:"queue"`    // Serialize UI actions through a single-slot queue.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	ArtifactBucket            string `toml:"artifact_bucket"`              // Bucket the artifact is copied to after generation. Empty disables publishing.
	ArtifactPrefix            string `toml:"artifact_prefix"`              // Object name prefix inside the bucket.
	Endpoint                  string `toml:"endpoint"`                     // Optional endpoint override (emulators).
	VeoOutputURI              string `toml:"veo_output_uri"`               // gs:// prefix the veo backend writes to.
	SignerServiceAccountEmail string `toml:"signer_service_account_email"` // Signs artifact URLs through IAM. Empty disables signing.
	SignedURLMinutes          int    `toml:"signed_url_minutes"`           // Lifetime of a signed artifact URL.
}

// TopicPublication configures a Pub/Sub topic that receives notifications.
type TopicPublication struct {
	Name string `toml:"name"` // The topic ID.
}

// TopicSubscription configures a Pub/Sub subscription that is listened to.
type TopicSubscription struct {
	Name string `toml:"name"` // The subscription ID.
}

// BigQueryDataSource represents the configuration for the generation ledger.
type BigQueryDataSource struct {
	DatasetName     string `toml:"dataset"`          // The name of the BigQuery dataset.
	GenerationTable string `toml:"generation_table"` // The table receiving one row per generation.
}

// PromptTemplates holds the system instructions for prompt expansion, per language.
type PromptTemplates struct {
	ExpandZH string `toml:"expand_zh"`
	ExpandEN string `toml:"expand_en"`
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application struct {
		Name            string `toml:"name"`              // The name of the application.
		GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID. Empty disables GCP telemetry and sinks.
		GoogleLocation  string `toml:"location"`          // The Google Cloud location.
		ListenAddress   string `toml:"listen_address"`    // Address the HTTP server binds to.
	} `toml:"application"`
	Models             Models                       `toml:"models"`
	Output             Output                       `toml:"output"`
	UI                 UI                           `toml:"ui"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicPublications  map[string]TopicPublication  `toml:"topic_publications"`  // Keyed by a logical name, e.g. "GenerationTopic".
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Keyed by a logical name, e.g. "GenerationRequests".
}

// Logical names of the Pub/Sub topics and subscriptions.
const (
	GenerationTopicKey    = "GenerationTopic"    // Notifications of finished generations.
	GenerationRequestsKey = "GenerationRequests" // Queued generation requests.
)

// NewConfig creates a Config populated with the defaults of the single-GPU
// 1.3B deployment. Values from the TOML files overwrite these.
func NewConfig() *Config {
	c := &Config{
		TopicPublications:  make(map[string]TopicPublication),
		TopicSubscriptions: make(map[string]TopicSubscription),
	}
	c.Application.Name = "t2v-studio"
	c.Application.ListenAddress = ":8080"
	c.Models = Models{
		CacheDir:             "/tmp/wan_cache",
		Device:               "cpu",
		PromptExtendMethod:   ExpandLocalModel,
		PromptExtendModel:    "Qwen2.5-7B-Instruct",
		PromptExtendBaseURL:  "http://localhost:8081/v1",
		PromptExtendRate:     5,
		GenerationBackend:    GenerationLocalAI,
		GenerationModel:      "wan2.1-t2v-1.3b",
		GenerationBaseURL:    "http://localhost:8082",
		GenerationTimeoutSec: 1800,
		ModelSize:            "t2v-1.3B",
	}
	c.Storage = Storage{ArtifactPrefix: "generated", SignedURLMinutes: 60}
	c.Output = Output{PrimaryPath: "/tmp/example.mp4", SecondaryPath: "example.mp4"}
	c.UI = UI{
		Module:   "t2v-1.3B",
		Title:    "Wan2.1 (T2V-1.3B)",
		Subtitle: "Wan: Open and Advanced Large-Scale Video Generative Models.",
	}
	c.PromptTemplates = PromptTemplates{
		ExpandZH: DefaultExpandPromptZH,
		ExpandEN: DefaultExpandPromptEN,
	}
	return c
}

// DefaultExpandPromptEN is the English system instruction for prompt expansion.
const DefaultExpandPromptEN = `You are a prompt engineer for a text-to-video model.
Rewrite the user's short description into a single detailed English paragraph of 80 to 100 words.
Keep the original subject and intent, add concrete details about appearance, motion, camera movement,
lighting and style. Output only the rewritten prompt.`

// DefaultExpandPromptZH is the Chinese system instruction for prompt expansion.
const DefaultExpandPromptZH = `你是一位文生视频模型的提示词工程师。
请将用户的简短描述改写为一段80到100字的详细中文描述，保留原有主体和意图，
补充外观、动作、镜头运动、光线和风格等具体细节。只输出改写后的提示词。`
