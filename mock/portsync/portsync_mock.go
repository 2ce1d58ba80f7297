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

// Package portsync provides a mock of the portsync plugin for unit tests.
package portsync

import (
	"errors"
	"sync"

	"github.com/AlexeyKasatkin/felix/plugins/portsync"
	"github.com/AlexeyKasatkin/felix/plugins/portsync/model/ports"
)

// MockPortSync simulates the control-plane connection in memory.
type MockPortSync struct {
	sync.Mutex

	agentID     string
	ports       map[string]*ports.PortDetails
	failLookup  map[string]bool
	statuses    map[string]bool
	upReports   []string
	downReports []string
	heartbeats  []bool
	failReports bool
	handler     func(portsync.PortUpdate)
}

// NewMockPortSync is a constructor for MockPortSync.
func NewMockPortSync(agentID string) *MockPortSync {
	return &MockPortSync{
		agentID:    agentID,
		ports:      map[string]*ports.PortDetails{},
		failLookup: map[string]bool{},
		statuses:   map[string]bool{},
	}
}

// SetPortDetails makes the given details available for lookup.
func (m *MockPortSync) SetPortDetails(ifName string, details *ports.PortDetails) {
	m.Lock()
	defer m.Unlock()
	m.ports[ifName] = details
}

// FailLookup makes lookups of the given interface fail with a
// control-plane error.
func (m *MockPortSync) FailLookup(ifName string) {
	m.Lock()
	defer m.Unlock()
	m.failLookup[ifName] = true
}

// FailReports makes all status reports fail.
func (m *MockPortSync) FailReports(fail bool) {
	m.Lock()
	defer m.Unlock()
	m.failReports = fail
}

// AgentID implements portsync.API.
func (m *MockPortSync) AgentID() string {
	return m.agentID
}

// GetPortDetails implements portsync.API.
func (m *MockPortSync) GetPortDetails(ifName string) (*ports.PortDetails, error) {
	m.Lock()
	defer m.Unlock()
	if m.failLookup[ifName] {
		return nil, &portsync.ControlPlaneError{
			Op: "port lookup", IfName: ifName, Reason: errors.New("mock failure"),
		}
	}
	return m.ports[ifName], nil
}

// ReportPortUp implements portsync.API.
func (m *MockPortSync) ReportPortUp(ifName string) error {
	m.Lock()
	defer m.Unlock()
	if m.failReports {
		return &portsync.ControlPlaneError{
			Op: "status report", IfName: ifName, Reason: errors.New("mock failure"),
		}
	}
	m.upReports = append(m.upReports, ifName)
	m.statuses[ifName] = true
	return nil
}

// ReportPortDown implements portsync.API.
func (m *MockPortSync) ReportPortDown(ifName string) (bool, error) {
	m.Lock()
	defer m.Unlock()
	if m.failReports {
		return false, &portsync.ControlPlaneError{
			Op: "status withdrawal", IfName: ifName, Reason: errors.New("mock failure"),
		}
	}
	m.downReports = append(m.downReports, ifName)
	existed := m.statuses[ifName]
	delete(m.statuses, ifName)
	return existed, nil
}

// ReportAgentState implements portsync.API.
func (m *MockPortSync) ReportAgentState(startFlag bool) error {
	m.Lock()
	defer m.Unlock()
	if m.failReports {
		return &portsync.ControlPlaneError{
			Op: "heartbeat", IfName: m.agentID, Reason: errors.New("mock failure"),
		}
	}
	m.heartbeats = append(m.heartbeats, startFlag)
	return nil
}

// WatchPortUpdates implements portsync.API.
func (m *MockPortSync) WatchPortUpdates(handler func(portsync.PortUpdate)) error {
	m.Lock()
	defer m.Unlock()
	m.handler = handler
	return nil
}

// TriggerUpdate delivers a port update to the subscribed handler.
func (m *MockPortSync) TriggerUpdate(update portsync.PortUpdate) {
	m.Lock()
	handler := m.handler
	m.Unlock()
	if handler != nil {
		handler(update)
	}
}

// UpReports returns the interfaces reported up, in order.
func (m *MockPortSync) UpReports() []string {
	m.Lock()
	defer m.Unlock()
	return append([]string(nil), m.upReports...)
}

// DownReports returns the interfaces reported down, in order.
func (m *MockPortSync) DownReports() []string {
	m.Lock()
	defer m.Unlock()
	return append([]string(nil), m.downReports...)
}

// Heartbeats returns the start flags of the heartbeats sent so far.
func (m *MockPortSync) Heartbeats() []bool {
	m.Lock()
	defer m.Unlock()
	return append([]bool(nil), m.heartbeats...)
}
