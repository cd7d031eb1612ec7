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

package ui

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// ActionQueue lets one UI action run at a time. Waiting requests block until
// the slot frees up or their client goes away.
type ActionQueue struct {
	slot   *semaphore.Weighted
	engine *gin.Engine
}

func newActionQueue(engine *gin.Engine) *ActionQueue {
	return &ActionQueue{slot: semaphore.NewWeighted(1), engine: engine}
}

// App returns the engine whose action routes go through the queue.
func (q *ActionQueue) App() http.Handler {
	if q.engine == nil {
		return nil
	}
	return q.engine
}

// Middleware holds the slot for the duration of the handler chain.
func (q *ActionQueue) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := q.slot.Acquire(c.Request.Context(), 1); err != nil {
			slog.InfoContext(c.Request.Context(), "request left the queue", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled while queued"})
			return
		}
		defer q.slot.Release(1)
		c.Next()
	}
}
