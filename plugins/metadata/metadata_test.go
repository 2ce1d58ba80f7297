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

package metadata

import (
	"errors"
	"testing"

	"github.com/ligato/cn-infra/logging"
	. "github.com/onsi/gomega"
)

type fakeNAT struct {
	table string
	chain string
	rule  []string
	fail  bool
}

func (f *fakeNAT) AppendUnique(table string, chain string, rulespec ...string) error {
	if f.fail {
		return errors.New("iptables failure")
	}
	f.table = table
	f.chain = chain
	f.rule = rulespec
	return nil
}

func testMetaPlugin(nat natInstaller) (*Plugin, *[]string) {
	started := &[]string{}
	p := NewPlugin()
	p.Log = logging.ForPlugin("test")
	p.Cfg = nil
	p.ipt = nat
	p.startSupervised = func(name string) error {
		*started = append(*started, name)
		return nil
	}
	return p, started
}

func TestForwardingRuleInstalled(t *testing.T) {
	RegisterTestingT(t)

	nat := &fakeNAT{}
	p, started := testMetaPlugin(nat)

	Expect(p.Init()).To(BeNil())
	Expect(nat.table).To(BeEquivalentTo("nat"))
	Expect(nat.chain).To(BeEquivalentTo("PREROUTING"))
	Expect(nat.rule).To(BeEquivalentTo([]string{
		"-d", "169.254.169.254/32",
		"-p", "tcp", "-m", "tcp", "--dport", "80",
		"-j", "DNAT", "--to-destination", "127.0.0.1:9697",
	}))
	Expect(*started).To(BeEquivalentTo([]string{"metadata-proxy"}))
}

func TestForwardingFailureIsNotFatal(t *testing.T) {
	RegisterTestingT(t)

	nat := &fakeNAT{fail: true}
	p, started := testMetaPlugin(nat)

	// agent startup must survive a broken metadata path
	Expect(p.Init()).To(BeNil())
	Expect(*started).To(HaveLen(0))
}
