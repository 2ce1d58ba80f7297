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

package routing

// IPBinding is one (IP address, subnet) pair assigned to a port.
type IPBinding struct {
	IP       string
	SubnetID string
}

// API programs host routes, neighbor entries and per-interface forwarding
// toggles for TAP interfaces.
type API interface {
	// ApplyInterface installs a static route towards every bound IP via the
	// interface, an ARP or IPv6 neighbor entry mapping the IP to the given
	// MAC, and enables proxy-ARP and local routing on the interface.
	// Re-applying already installed state is a no-op success. The returned
	// outcome is true only if every sub-step of every binding succeeded.
	ApplyInterface(ifName string, bindings []IPBinding, mac string) bool

	// RemoveInterface tears down what ApplyInterface installed. It is
	// best-effort: sub-step failures are logged and remaining cleanup
	// continues, since the interface may already be partially gone.
	RemoveInterface(ifName string, bindings []IPBinding)
}
