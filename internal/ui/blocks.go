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

// This file defines Blocks, the built interface: a gin engine serving the
// page, the schema and the action endpoints, plus an optional queue that
// serializes the actions.
//
// Routes:
//   - GET  /                      the HTML page
//   - GET  /healthz               liveness
//   - GET  /api/v1/schema         the FormSchema as JSON
//   - GET  /api/v1/status         model registry state
//   - POST /api/v1/prompt/expand  "Prompt Enhance"
//   - POST /api/v1/videos         "Generate Video"
//   - GET  /api/v1/videos/latest  the last generated video

package ui

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/api"
)

// APIBase is the prefix of every JSON endpoint.
const APIBase = "/api/v1"

// Interface is a built UI. App returns the HTTP application when the UI can
// be served directly; Queue returns the serving queue when one is enabled.
// Either may be nil.
type Interface interface {
	App() http.Handler
	Queue() Queue
}

// Queue is the serving sub-object of an Interface.
type Queue interface {
	App() http.Handler
}

// Module is a loadable UI definition. Interface returns nil when the module
// does not define one.
type Module interface {
	Interface() Interface
}

// BlocksOptions configures NewBlocks.
type BlocksOptions struct {
	ServiceName string // otelgin server name.
	Title       string
	Subtitle    string
	Queue       bool
	VideoPath   string
	Prepare     func(ctx context.Context) // Runs before every action, inside the queue.
	Expander    api.Expander
	Generator   api.Generator
	Status      api.StatusProvider
}

// Blocks is the default Interface implementation.
type Blocks struct {
	Schema FormSchema
	engine *gin.Engine
	queue  *ActionQueue
}

// NewBlocks builds the engine and registers every route.
func NewBlocks(opts BlocksOptions) *Blocks {
	b := &Blocks{Schema: DefaultFormSchema(opts.Title, opts.Subtitle, APIBase, opts.Queue)}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(cors.Default())
	r.SetHTMLTemplate(pageTemplate)

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, pageTemplateName, b.Schema)
	})
	api.Health(r)

	apiV1 := r.Group(APIBase)
	apiV1.GET("/schema", func(c *gin.Context) {
		c.JSON(http.StatusOK, b.Schema)
	})
	if opts.Status != nil {
		api.Dashboard(apiV1, opts.Status)
	}
	if opts.VideoPath != "" {
		api.LatestVideo(apiV1, opts.VideoPath)
	}

	// Only the actions are queued; the page and the video stay responsive.
	actions := apiV1.Group("")
	if opts.Queue {
		b.queue = newActionQueue(r)
		actions.Use(b.queue.Middleware())
	}
	if opts.Prepare != nil {
		actions.Use(func(c *gin.Context) {
			opts.Prepare(c.Request.Context())
			c.Next()
		})
	}
	if opts.Expander != nil {
		api.PromptRouter(actions, opts.Expander)
	}
	if opts.Generator != nil {
		api.VideoRouter(actions, opts.Generator, APIBase)
	}

	b.engine = r
	return b
}

// App returns the *gin.Engine.
func (b *Blocks) App() http.Handler {
	if b.engine == nil {
		return nil
	}
	return b.engine
}

// Queue returns the action queue, or nil when queueing is off.
func (b *Blocks) Queue() Queue {
	if b.queue == nil {
		return nil
	}
	return b.queue
}
