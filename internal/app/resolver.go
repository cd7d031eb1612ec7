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

// Package app locates the HTTP application to serve from a UI module.
//
// A module may expose its application in several ways. Resolve tries them in
// priority order and falls back to a placeholder application, so the host
// always has something to serve:
//  1. the interface's queue app, when queueing is enabled
//  2. the interface's own app, when it is a *gin.Engine
//  3. a placeholder explaining that the UI is not configured for serving
//  4. a placeholder explaining that the module defines no interface
//
// Resolve never panics and never returns an error. Misses are reported
// through Resolution.Diagnostic and the log.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/ui"
)

// Source tells where a resolved handler came from.
type Source int

const (
	SourceQueue Source = iota
	SourceInterface
	SourcePlaceholder
	SourceMissing
)

func (s Source) String() string {
	switch s {
	case SourceQueue:
		return "queue"
	case SourceInterface:
		return "interface"
	case SourcePlaceholder:
		return "placeholder"
	case SourceMissing:
		return "missing"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

const (
	NotConfiguredMessage = "UI app not fully configured for serving. See cmd/server."
	NotFoundMessage      = "UI 'demo' interface object not found. Please check the UI module."
)

// Resolution is the outcome of Resolve. Handler is never nil.
type Resolution struct {
	Source     Source
	Handler    http.Handler
	Diagnostic string
}

// Load returns the UI module registered under name, or nil.
func Load(name string) ui.Module {
	m, ok := ui.Lookup(name)
	if !ok {
		slog.Warn("UI module not registered", "name", name, "registered", ui.Modules())
		return nil
	}
	return m
}

// Resolve picks the handler to serve for module.
func Resolve(module ui.Module) Resolution {
	iface, err := probeInterface(module)
	if err != nil || iface == nil {
		diagnostic := "UI interface object not found"
		if err != nil {
			diagnostic = fmt.Sprintf("%s: %v", diagnostic, err)
		}
		slog.Error("application resolution failed", "diagnostic", diagnostic)
		return Resolution{Source: SourceMissing, Handler: Placeholder(NotFoundMessage), Diagnostic: diagnostic}
	}

	if h, err := probe(func() http.Handler {
		if q := iface.Queue(); q != nil {
			return q.App()
		}
		return nil
	}); err != nil {
		slog.Warn("queue app probe failed", "error", err)
	} else if h != nil {
		return Resolution{Source: SourceQueue, Handler: h}
	}

	if h, err := probe(iface.App); err != nil {
		slog.Warn("interface app probe failed", "error", err)
	} else if engine, ok := h.(*gin.Engine); ok && engine != nil {
		return Resolution{Source: SourceInterface, Handler: engine}
	}

	diagnostic := "UI interface exposes neither a queue app nor a gin engine"
	slog.Warn("serving placeholder app", "diagnostic", diagnostic)
	return Resolution{Source: SourcePlaceholder, Handler: Placeholder(NotConfiguredMessage), Diagnostic: diagnostic}
}

// Placeholder returns a gin app answering GET / with {"message": message}.
func Placeholder(message string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": message})
	})
	return r
}

func probeInterface(module ui.Module) (iface ui.Interface, err error) {
	if module == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			iface, err = nil, fmt.Errorf("interface probe panicked: %v", r)
		}
	}()
	return module.Interface(), nil
}

func probe(get func() http.Handler) (h http.Handler, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return get(), nil
}
