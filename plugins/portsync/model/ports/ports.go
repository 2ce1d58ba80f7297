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

// Package ports defines the control-plane data model for workload ports
// as stored in the KV datastore, together with the key space shared by
// the agent and the control plane.
package ports

import (
	"fmt"
)

// PortDetails describes one workload port as published by the control
// plane. The agent consumes it once per interface add operation.
type PortDetails struct {
	PortID          string    `json:"port_id"`
	NetworkID       string    `json:"network_id"`
	NetworkType     string    `json:"network_type"`
	PhysicalNetwork string    `json:"physical_network"`
	SegmentationID  uint32    `json:"segmentation_id"`
	MACAddress      string    `json:"mac_address"`
	AdminStateUp    bool      `json:"admin_state_up"`
	FixedIPs        []FixedIP `json:"fixed_ips"`
	SecurityGroups  []string  `json:"security_groups,omitempty"`
}

// FixedIP is one (IP address, subnet) pair assigned to a port.
type FixedIP struct {
	IPAddress string `json:"ip_address"`
	SubnetID  string `json:"subnet_id"`
}

// Validate checks that the details carry everything the agent needs to
// program host state for the port.
func (pd *PortDetails) Validate() error {
	if pd.PortID == "" {
		return fmt.Errorf("missing port_id")
	}
	if pd.MACAddress == "" {
		return fmt.Errorf("port %s: missing mac_address", pd.PortID)
	}
	for _, fixedIP := range pd.FixedIPs {
		if fixedIP.IPAddress == "" {
			return fmt.Errorf("port %s: fixed IP without an address", pd.PortID)
		}
	}
	return nil
}

// AgentState is the periodic liveness record published by the agent.
type AgentState struct {
	AgentID   string `json:"agent_id"`
	StartFlag bool   `json:"start_flag"`
	Timestamp int64  `json:"timestamp"`
}

// PortStatus marks a port as successfully bound on a host.
type PortStatus struct {
	AgentID   string `json:"agent_id"`
	Device    string `json:"device"`
	Timestamp int64  `json:"timestamp"`
}
