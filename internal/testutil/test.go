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

// Package test provides helpers and fakes for the test suite: a test
// configuration rooted in a temporary directory, in-memory stand-ins for the
// inference services and the publish sinks, and a minimal MP4 payload.
package test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jaycherian/gcp-go-t2v-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-t2v-studio/internal/core/model"
)

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// SetupOS points the configuration loader at the repository's configs
// directory with the "test" runtime.
func SetupOS() error {
	root, err := ModuleRoot()
	if err != nil {
		return err
	}
	if err := os.Setenv(cloud.EnvConfigFilePrefix, filepath.Join(root, cloud.DefaultConfigDir)); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// ModuleRoot walks up from the working directory to the directory holding go.mod.
func ModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("module root not found")
		}
		dir = parent
	}
}

// GetConfig loads the test configuration and moves every path it writes to
// into t.TempDir(), so tests never touch /tmp/example.mp4.
func GetConfig(t *testing.T) *cloud.Config {
	t.Helper()
	if err := SetupOS(); err != nil {
		t.Fatalf("failed to setup environment for test: %v", err)
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		t.Fatalf("failed to load test configuration: %v", err)
	}
	dir := t.TempDir()
	config.Models.CacheDir = filepath.Join(dir, "cache")
	config.Output.PrimaryPath = filepath.Join(dir, "example.mp4")
	config.Output.SecondaryPath = ""
	return config
}

// MP4Bytes returns the smallest payload recognized as video/mp4.
func MP4Bytes() []byte {
	return []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
		0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '1',
		0x00, 0x00, 0x00, 0x08, 'f', 'r', 'e', 'e',
	}
}

// FakeExpander is an in-memory model.PromptExpander.
type FakeExpander struct {
	Output *model.ExpansionOutput
	Err    error

	Calls atomic.Int32
	mu    sync.Mutex
	langs []string
}

func (f *FakeExpander) Expand(_ context.Context, _ string, lang string) (*model.ExpansionOutput, error) {
	f.Calls.Add(1)
	f.mu.Lock()
	f.langs = append(f.langs, lang)
	f.mu.Unlock()
	return f.Output, f.Err
}

// Languages returns the language argument of every call.
func (f *FakeExpander) Languages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.langs...)
}

// FakeGenerator is an in-memory model.VideoGenerator. Without Video it
// returns MP4Bytes.
type FakeGenerator struct {
	Video *model.RawVideo
	Err   error

	Calls atomic.Int32
	mu    sync.Mutex
	last  model.GenerateParams
}

func (f *FakeGenerator) Generate(_ context.Context, params model.GenerateParams) (*model.RawVideo, error) {
	f.Calls.Add(1)
	f.mu.Lock()
	f.last = params
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Video != nil {
		return f.Video, nil
	}
	return &model.RawVideo{Data: MP4Bytes(), MIMEType: "video/mp4"}, nil
}

// Last returns the parameters of the latest call.
func (f *FakeGenerator) Last() model.GenerateParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// FakePublisher records published payloads.
type FakePublisher struct {
	Err error

	mu         sync.Mutex
	Payloads   []any
	Attributes []map[string]string
}

func (f *FakePublisher) Publish(_ context.Context, payload any, attributes map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.Payloads = append(f.Payloads, payload)
	f.Attributes = append(f.Attributes, attributes)
	return "message-1", nil
}

// FakeInserter records inserted rows.
type FakeInserter struct {
	Err error

	mu   sync.Mutex
	Rows []any
}

func (f *FakeInserter) Put(_ context.Context, src interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Rows = append(f.Rows, src)
	return nil
}
