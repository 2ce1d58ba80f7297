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

package secgroups

// API maintains the per-device firewall filtering applied on top of the
// routed state. It is best-effort from the reconciliation loop's point of
// view: filter failures are logged here and never degrade a tick.
type API interface {
	// PrepareDevicesFilter installs filter rules for devices about to be
	// configured.
	PrepareDevicesFilter(devices []string)

	// RemoveDevicesFilter drops the filter rules of devices that left
	// the host.
	RemoveDevicesFilter(devices []string)

	// RefreshFirewall reconverges the whole filter after a security-group
	// change reported by the control plane.
	RefreshFirewall()
}
