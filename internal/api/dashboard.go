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

// Package api contains the HTTP route definitions behind the UI. This file
// defines the status endpoints operators use to see which inference services
// came up.
//
// Functions:
//   - Dashboard: Registers `GET /status` under the given group.
//   - Health: Registers `GET /healthz` on the engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// StatusProvider reports the model registry state.
type StatusProvider interface {
	Status() (model.InitResult, bool)
}

// Dashboard serves the initialization result of the model registry, e.g.
// {"initialized": true, "expansion_ok": true, "generation_ok": false}.
func Dashboard(r *gin.RouterGroup, status StatusProvider) {
	r.GET("/status", func(c *gin.Context) {
		result, initialized := status.Status()
		c.JSON(http.StatusOK, gin.H{
			"initialized":   initialized,
			"expansion_ok":  result.ExpansionOK,
			"generation_ok": result.GenerationOK,
		})
	})
}

// Health is the liveness probe. It does not depend on the inference services.
func Health(r gin.IRoutes) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
