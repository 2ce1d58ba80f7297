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

package ports

import (
	"strings"
)

const (
	// PortPrefix is the key space where the control plane publishes
	// port details, keyed by host interface name.
	PortPrefix = "/calico/ports/"

	// StatusPrefix is the key space where agents publish per-port
	// binding status, partitioned by agent ID.
	StatusPrefix = "/calico/status/"

	// AgentPrefix is the key space of agent liveness records.
	AgentPrefix = "/calico/agents/"
)

// PortKey returns the key under which details of the port attached as the
// given host interface are stored.
func PortKey(ifName string) string {
	return PortPrefix + ifName
}

// ParsePortKey extracts the interface name from a port key.
// Returns an empty string if the key is not from the port key space.
func ParsePortKey(key string) string {
	if !strings.HasPrefix(key, PortPrefix) {
		return ""
	}
	return strings.TrimPrefix(key, PortPrefix)
}

// StatusKey returns the key under which the given agent publishes the
// binding status of the given interface.
func StatusKey(agentID, ifName string) string {
	return StatusPrefix + agentID + "/" + ifName
}

// AgentKey returns the key of the agent's liveness record.
func AgentKey(agentID string) string {
	return AgentPrefix + agentID
}
