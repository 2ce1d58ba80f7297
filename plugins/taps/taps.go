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

// Package taps enumerates the TAP interfaces currently present on the host
// and provides the set arithmetic used to diff two observations of them.
package taps

import (
	"fmt"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/ligato/cn-infra/logging/logrus"
)

// TapPrefix is the naming prefix of host interfaces managed by the agent.
const TapPrefix = "tap"

// sysfsNetDir lists one entry per virtual network device on the host.
// Overridable in unit tests.
var sysfsNetDir = "/sys/devices/virtual/net"

// maxPortIDChars is how much of the port ID fits into an interface name
// next to the prefix (IFNAMSIZ minus prefix and NUL).
const maxPortIDChars = 11

// DeviceName derives the host interface name for the given port ID.
// Names may collide across ports sharing an 11-character ID prefix,
// which is why interface names are reused across workload churn.
func DeviceName(portID string) string {
	if portID == "" {
		logrus.DefaultLogger().Warn("Empty port ID, derived TAP device name is just the prefix")
	}
	if len(portID) > maxPortIDChars {
		portID = portID[:maxPortIDChars]
	}
	return TapPrefix + portID
}

// DeviceSet is a set of host interface names.
type DeviceSet map[string]struct{}

// NewDeviceSet returns a set containing the given names.
func NewDeviceSet(names ...string) DeviceSet {
	ds := make(DeviceSet, len(names))
	for _, name := range names {
		ds[name] = struct{}{}
	}
	return ds
}

// Add inserts a name into the set.
func (ds DeviceSet) Add(name string) {
	ds[name] = struct{}{}
}

// Del removes a name from the set.
func (ds DeviceSet) Del(name string) {
	delete(ds, name)
}

// Has tells whether the name is in the set.
func (ds DeviceSet) Has(name string) bool {
	_, ok := ds[name]
	return ok
}

// Copy returns an independent copy of the set.
func (ds DeviceSet) Copy() DeviceSet {
	cp := make(DeviceSet, len(ds))
	for name := range ds {
		cp[name] = struct{}{}
	}
	return cp
}

// Equals tells whether both sets contain exactly the same names.
func (ds DeviceSet) Equals(other DeviceSet) bool {
	if len(ds) != len(other) {
		return false
	}
	for name := range ds {
		if !other.Has(name) {
			return false
		}
	}
	return true
}

// Diff returns the names present in current but not in ds (added) and the
// names present in ds but not in current (removed).
func (ds DeviceSet) Diff(current DeviceSet) (added, removed DeviceSet) {
	added = make(DeviceSet)
	removed = make(DeviceSet)
	for name := range current {
		if !ds.Has(name) {
			added.Add(name)
		}
	}
	for name := range ds {
		if !current.Has(name) {
			removed.Add(name)
		}
	}
	return added, removed
}

// Slice returns the set's names sorted alphabetically.
func (ds DeviceSet) Slice() []string {
	names := make([]string, 0, len(ds))
	for name := range ds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns a stable human-readable form, e.g. for log fields.
func (ds DeviceSet) String() string {
	return "{" + strings.Join(ds.Slice(), ", ") + "}"
}

// DiscoveryError is returned when the host's interface listing source
// cannot be read. The reconciliation loop treats it as a resync trigger.
type DiscoveryError struct {
	Reason error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to enumerate host TAP interfaces: %v", e.Reason)
}

// Observe reads the host's live interface list and returns the names
// carrying the managed prefix. It has no side effects.
func Observe() (DeviceSet, error) {
	entries, err := ioutil.ReadDir(sysfsNetDir)
	if err != nil {
		return nil, &DiscoveryError{Reason: err}
	}
	current := make(DeviceSet)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), TapPrefix) {
			current.Add(entry.Name())
		}
	}
	return current, nil
}
