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

package taps

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func TestDeviceName(t *testing.T) {
	RegisterTestingT(t)

	// port IDs longer than 11 characters are truncated
	Expect(DeviceName("0a1b2c3d4e5f6789")).To(BeEquivalentTo("tap0a1b2c3d4e5"))
	// short IDs are used whole
	Expect(DeviceName("ab12")).To(BeEquivalentTo("tapab12"))
	// an empty port ID yields the bare prefix
	Expect(DeviceName("")).To(BeEquivalentTo("tap"))
	// two ports sharing an 11-char prefix collide on purpose
	Expect(DeviceName("0a1b2c3d4e5-one")).To(BeEquivalentTo(DeviceName("0a1b2c3d4e5-two")))
}

func TestDeviceSetDiff(t *testing.T) {
	RegisterTestingT(t)

	known := NewDeviceSet("tapA", "tapB", "tapC")
	current := NewDeviceSet("tapB", "tapC", "tapD")

	added, removed := known.Diff(current)
	Expect(added.Slice()).To(BeEquivalentTo([]string{"tapD"}))
	Expect(removed.Slice()).To(BeEquivalentTo([]string{"tapA"}))

	// (known + added) - removed == current
	merged := known.Copy()
	for name := range added {
		merged.Add(name)
	}
	for name := range removed {
		merged.Del(name)
	}
	Expect(merged.Equals(current)).To(BeTrue())
}

func TestDeviceSetDiffAgainstEmpty(t *testing.T) {
	RegisterTestingT(t)

	known := NewDeviceSet()
	current := NewDeviceSet("tap0a1b2c3d4")

	added, removed := known.Diff(current)
	Expect(added.Slice()).To(BeEquivalentTo([]string{"tap0a1b2c3d4"}))
	Expect(len(removed)).To(BeEquivalentTo(0))

	added, removed = current.Diff(NewDeviceSet())
	Expect(len(added)).To(BeEquivalentTo(0))
	Expect(removed.Slice()).To(BeEquivalentTo([]string{"tap0a1b2c3d4"}))
}

func TestDeviceSetEquality(t *testing.T) {
	RegisterTestingT(t)

	a := NewDeviceSet("tapX", "tapY")
	b := NewDeviceSet("tapY", "tapX")
	Expect(a.Equals(b)).To(BeTrue())

	b.Add("tapZ")
	Expect(a.Equals(b)).To(BeFalse())
}

func TestObserve(t *testing.T) {
	RegisterTestingT(t)

	tmpDir, err := ioutil.TempDir("", "taps-test")
	Expect(err).To(BeNil())
	defer os.RemoveAll(tmpDir)

	for _, name := range []string{"tap0a1b2c3d4", "tapffffffff", "lo", "docker0"} {
		Expect(os.Mkdir(filepath.Join(tmpDir, name), 0755)).To(BeNil())
	}

	prevDir := sysfsNetDir
	sysfsNetDir = tmpDir
	defer func() { sysfsNetDir = prevDir }()

	current, err := Observe()
	Expect(err).To(BeNil())
	Expect(current.Slice()).To(BeEquivalentTo([]string{"tap0a1b2c3d4", "tapffffffff"}))
}

func TestObserveUnreadableSource(t *testing.T) {
	RegisterTestingT(t)

	prevDir := sysfsNetDir
	sysfsNetDir = "/nonexistent/taps-test"
	defer func() { sysfsNetDir = prevDir }()

	_, err := Observe()
	Expect(err).ToNot(BeNil())
	_, isDiscoveryErr := err.(*DiscoveryError)
	Expect(isDiscoveryErr).To(BeTrue())
}
