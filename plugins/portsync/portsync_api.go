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

package portsync

import (
	"fmt"

	"github.com/AlexeyKasatkin/felix/plugins/portsync/model/ports"
)

// API mediates between the agent and the control plane: port metadata
// lookups, binding status reports, the agent liveness heartbeat and
// asynchronous port update notifications.
type API interface {
	// AgentID returns the stable per-host identity the agent registered
	// with the control plane.
	AgentID() string

	// GetPortDetails looks up the details of the port attached as the
	// given host interface. Returns (nil, nil) when the control plane has
	// no record for the interface, *MalformedPortDetailsError when the
	// record cannot be decoded, *ControlPlaneError on datastore failures.
	GetPortDetails(ifName string) (*ports.PortDetails, error)

	// ReportPortUp tells the control plane the interface is bound and
	// operational on this host.
	ReportPortUp(ifName string) error

	// ReportPortDown withdraws the binding status of the interface.
	// The returned flag tells whether a binding record existed.
	ReportPortDown(ifName string) (existed bool, err error)

	// ReportAgentState publishes the agent's periodic liveness record.
	// The start flag is set on the first report after process start so
	// the control plane can detect agent restarts.
	ReportAgentState(startFlag bool) error

	// WatchPortUpdates subscribes the handler to asynchronous port
	// changes published by the control plane. The handler runs on the
	// watcher's goroutine, one update at a time.
	WatchPortUpdates(handler func(PortUpdate)) error
}

// PortUpdate is one asynchronous port change notification.
// Details is nil when the port record was deleted.
type PortUpdate struct {
	IfName  string
	Details *ports.PortDetails
}

// ControlPlaneError wraps a failed datastore operation.
type ControlPlaneError struct {
	Op     string
	IfName string
	Reason error
}

// Error implements the error interface.
func (e *ControlPlaneError) Error() string {
	return fmt.Sprintf("control plane %s failed for %s: %v", e.Op, e.IfName, e.Reason)
}

// MalformedPortDetailsError marks a port record that could not be decoded
// or failed validation.
type MalformedPortDetailsError struct {
	IfName string
	Reason error
}

// Error implements the error interface.
func (e *MalformedPortDetailsError) Error() string {
	return fmt.Sprintf("malformed port details for %s: %v", e.IfName, e.Reason)
}
