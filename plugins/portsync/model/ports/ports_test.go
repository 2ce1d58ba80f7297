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
	"testing"

	. "github.com/onsi/gomega"
)

func TestPortKeys(t *testing.T) {
	RegisterTestingT(t)

	Expect(PortKey("tap0a1b2c3d4")).To(BeEquivalentTo("/calico/ports/tap0a1b2c3d4"))
	Expect(ParsePortKey("/calico/ports/tap0a1b2c3d4")).To(BeEquivalentTo("tap0a1b2c3d4"))
	Expect(ParsePortKey("/calico/agents/felix-aabbccddeeff")).To(BeEquivalentTo(""))

	Expect(StatusKey("felix-aabbccddeeff", "tapX")).To(
		BeEquivalentTo("/calico/status/felix-aabbccddeeff/tapX"))
	Expect(AgentKey("felix-aabbccddeeff")).To(
		BeEquivalentTo("/calico/agents/felix-aabbccddeeff"))
}

func TestPortDetailsValidation(t *testing.T) {
	RegisterTestingT(t)

	valid := &PortDetails{
		PortID:     "0a1b2c3d4e5f",
		MACAddress: "fa:16:3e:00:00:01",
		FixedIPs:   []FixedIP{{IPAddress: "10.65.0.2", SubnetID: "subnet-1"}},
	}
	Expect(valid.Validate()).To(BeNil())

	missingID := &PortDetails{MACAddress: "fa:16:3e:00:00:01"}
	Expect(missingID.Validate()).ToNot(BeNil())

	missingMAC := &PortDetails{PortID: "0a1b2c3d4e5f"}
	Expect(missingMAC.Validate()).ToNot(BeNil())

	emptyIP := &PortDetails{
		PortID:     "0a1b2c3d4e5f",
		MACAddress: "fa:16:3e:00:00:01",
		FixedIPs:   []FixedIP{{SubnetID: "subnet-1"}},
	}
	Expect(emptyIP.Validate()).ToNot(BeNil())
}
