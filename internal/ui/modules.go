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
	"sort"
	"sync"
)

var (
	modulesMu sync.RWMutex
	modules   = make(map[string]Module)
)

// Register makes a module loadable by name. Registering a name twice
// replaces the earlier module.
func Register(name string, m Module) {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules[name] = m
}

// Lookup returns the module registered under name.
func Lookup(name string) (Module, bool) {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	m, ok := modules[name]
	return m, ok
}

// Modules lists the registered names in order.
func Modules() []string {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	out := make([]string, 0, len(modules))
	for name := range modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
