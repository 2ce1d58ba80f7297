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

// Package routing provides a mock of the routing plugin for unit tests.
package routing

import (
	"sync"

	"github.com/AlexeyKasatkin/felix/plugins/routing"
)

// MockRouting records configurator calls instead of touching the host.
type MockRouting struct {
	sync.Mutex

	applied     []AppliedCall
	removed     []RemovedCall
	failApplied map[string]bool
}

// AppliedCall is one recorded ApplyInterface invocation.
type AppliedCall struct {
	IfName   string
	Bindings []routing.IPBinding
	MAC      string
}

// RemovedCall is one recorded RemoveInterface invocation.
type RemovedCall struct {
	IfName   string
	Bindings []routing.IPBinding
}

// NewMockRouting is a constructor for MockRouting.
func NewMockRouting() *MockRouting {
	return &MockRouting{failApplied: map[string]bool{}}
}

// FailApply makes ApplyInterface report a false outcome for the interface.
func (m *MockRouting) FailApply(ifName string) {
	m.Lock()
	defer m.Unlock()
	m.failApplied[ifName] = true
}

// ApplyInterface implements routing.API.
func (m *MockRouting) ApplyInterface(ifName string, bindings []routing.IPBinding, mac string) bool {
	m.Lock()
	defer m.Unlock()
	m.applied = append(m.applied, AppliedCall{IfName: ifName, Bindings: bindings, MAC: mac})
	return !m.failApplied[ifName]
}

// RemoveInterface implements routing.API.
func (m *MockRouting) RemoveInterface(ifName string, bindings []routing.IPBinding) {
	m.Lock()
	defer m.Unlock()
	m.removed = append(m.removed, RemovedCall{IfName: ifName, Bindings: bindings})
}

// Applied returns the recorded ApplyInterface calls.
func (m *MockRouting) Applied() []AppliedCall {
	m.Lock()
	defer m.Unlock()
	return append([]AppliedCall(nil), m.applied...)
}

// Removed returns the recorded RemoveInterface calls.
func (m *MockRouting) Removed() []RemovedCall {
	m.Lock()
	defer m.Unlock()
	return append([]RemovedCall(nil), m.removed...)
}
