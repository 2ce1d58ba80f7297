// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package secgroups provides a mock of the secgroups plugin for unit tests.
package secgroups

import (
	"sync"
)

// MockSecGroups records firewall calls instead of touching iptables.
type MockSecGroups struct {
	sync.Mutex

	prepared  [][]string
	removed   [][]string
	refreshes int
}

// NewMockSecGroups is a constructor for MockSecGroups.
func NewMockSecGroups() *MockSecGroups {
	return &MockSecGroups{}
}

// PrepareDevicesFilter implements secgroups.API.
func (m *MockSecGroups) PrepareDevicesFilter(devices []string) {
	m.Lock()
	defer m.Unlock()
	m.prepared = append(m.prepared, append([]string(nil), devices...))
}

// RemoveDevicesFilter implements secgroups.API.
func (m *MockSecGroups) RemoveDevicesFilter(devices []string) {
	m.Lock()
	defer m.Unlock()
	m.removed = append(m.removed, append([]string(nil), devices...))
}

// RefreshFirewall implements secgroups.API.
func (m *MockSecGroups) RefreshFirewall() {
	m.Lock()
	defer m.Unlock()
	m.refreshes++
}

// Prepared returns the recorded PrepareDevicesFilter batches.
func (m *MockSecGroups) Prepared() [][]string {
	m.Lock()
	defer m.Unlock()
	return append([][]string(nil), m.prepared...)
}

// Removed returns the recorded RemoveDevicesFilter batches.
func (m *MockSecGroups) Removed() [][]string {
	m.Lock()
	defer m.Unlock()
	return append([][]string(nil), m.removed...)
}

// Refreshes returns how many times RefreshFirewall was called.
func (m *MockSecGroups) Refreshes() int {
	m.Lock()
	defer m.Unlock()
	return m.refreshes
}
