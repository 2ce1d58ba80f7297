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

import (
	"errors"
	"strings"
	"testing"

	"github.com/ligato/cn-infra/logging"
	. "github.com/onsi/gomega"
)

// fakeExecutor records every issued command and replays canned responses.
type fakeExecutor struct {
	commands  []string
	responses map[string]cmdResult
}

type cmdResult struct {
	stdout string
	stderr string
	err    error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{responses: map[string]cmdResult{}}
}

func (e *fakeExecutor) Run(cmd string, args ...string) (string, string, error) {
	full := strings.Join(append([]string{cmd}, args...), " ")
	e.commands = append(e.commands, full)
	for prefix, res := range e.responses {
		if strings.HasPrefix(full, prefix) {
			return res.stdout, res.stderr, res.err
		}
	}
	// default: helpers report success, everything else succeeds quietly
	switch cmd {
	case enableProxyArpCmd:
		return "Enabled proxy arp on " + args[0], "", nil
	case enableLocalRoutingCmd:
		return "Enabled local routing on " + args[0], "", nil
	}
	return "", "", nil
}

func testPlugin(executor commandExecutor) *Plugin {
	p := NewPlugin()
	p.Log = logging.ForPlugin("test")
	p.executor = executor
	return p
}

func TestApplyIPv4Binding(t *testing.T) {
	RegisterTestingT(t)

	executor := newFakeExecutor()
	p := testPlugin(executor)

	outcome := p.ApplyInterface("tap0a1b2c3d4",
		[]IPBinding{{IP: "10.65.0.2", SubnetID: "subnet-1"}}, "fa:16:3e:00:00:01")

	Expect(outcome).To(BeTrue())
	Expect(executor.commands).To(BeEquivalentTo([]string{
		"ip route add 10.65.0.2 dev tap0a1b2c3d4 proto static",
		"felix-enable-proxy-arp tap0a1b2c3d4",
		"arp -s 10.65.0.2 fa:16:3e:00:00:01",
		"felix-enable-local-routing tap0a1b2c3d4",
	}))
}

func TestApplyIPv6Binding(t *testing.T) {
	RegisterTestingT(t)

	executor := newFakeExecutor()
	p := testPlugin(executor)

	outcome := p.ApplyInterface("tapffffffff",
		[]IPBinding{{IP: "2001:db8::2", SubnetID: "subnet-v6"}}, "fa:16:3e:00:00:02")

	Expect(outcome).To(BeTrue())
	Expect(executor.commands).To(BeEquivalentTo([]string{
		"ip route add 2001:db8::2 dev tapffffffff proto static",
		"ip -6 neigh add 2001:db8::2 lladdr fa:16:3e:00:00:02 dev tapffffffff",
		"felix-enable-local-routing tapffffffff",
	}))
}

func TestApplyExistingRouteIsSuccess(t *testing.T) {
	RegisterTestingT(t)

	executor := newFakeExecutor()
	executor.responses["ip route add"] = cmdResult{
		stderr: "RTNETLINK answers: File exists",
		err:    errors.New("exit status 2"),
	}
	p := testPlugin(executor)

	outcome := p.ApplyInterface("tap0a1b2c3d4",
		[]IPBinding{{IP: "10.65.0.2"}}, "fa:16:3e:00:00:01")

	Expect(outcome).To(BeTrue())
}

func TestApplyRouteFailureDegradesOutcome(t *testing.T) {
	RegisterTestingT(t)

	executor := newFakeExecutor()
	executor.responses["ip route add 10.65.0.3"] = cmdResult{
		stderr: "RTNETLINK answers: Network is unreachable",
	}
	p := testPlugin(executor)

	// one failing binding degrades the whole interface even though the
	// other binding succeeds
	outcome := p.ApplyInterface("tap0a1b2c3d4",
		[]IPBinding{{IP: "10.65.0.2"}, {IP: "10.65.0.3"}}, "fa:16:3e:00:00:01")

	Expect(outcome).To(BeFalse())
	// all bindings were still attempted
	Expect(executor.commands).To(ContainElement(
		"ip route add 10.65.0.3 dev tap0a1b2c3d4 proto static"))
}

func TestApplyProxyArpFailureDegradesOutcome(t *testing.T) {
	RegisterTestingT(t)

	executor := newFakeExecutor()
	executor.responses[enableProxyArpCmd] = cmdResult{
		stdout: "Cannot find device tap0a1b2c3d4",
	}
	p := testPlugin(executor)

	outcome := p.ApplyInterface("tap0a1b2c3d4",
		[]IPBinding{{IP: "10.65.0.2"}}, "fa:16:3e:00:00:01")

	Expect(outcome).To(BeFalse())
}

func TestRemoveInterface(t *testing.T) {
	RegisterTestingT(t)

	executor := newFakeExecutor()
	p := testPlugin(executor)

	p.RemoveInterface("tap0a1b2c3d4", []IPBinding{{IP: "10.65.0.2"}})

	Expect(executor.commands).To(BeEquivalentTo([]string{
		"ip route del 10.65.0.2 dev tap0a1b2c3d4 proto static",
		"felix-disable-proxy-arp tap0a1b2c3d4",
		"felix-disable-local-routing tap0a1b2c3d4",
		"arp -d 10.65.0.2 -i tap0a1b2c3d4",
	}))
}

func TestRemoveToleratesMissingState(t *testing.T) {
	RegisterTestingT(t)

	executor := newFakeExecutor()
	executor.responses["ip route del"] = cmdResult{
		stderr: "RTNETLINK answers: No such process",
		err:    errors.New("exit status 2"),
	}
	executor.responses["arp -d"] = cmdResult{
		stderr: "No ARP entry for 10.65.0.2",
		err:    errors.New("exit status 255"),
	}
	p := testPlugin(executor)

	// removal never aborts; every cleanup step still runs
	p.RemoveInterface("tap0a1b2c3d4", []IPBinding{{IP: "10.65.0.2"}})

	Expect(len(executor.commands)).To(BeEquivalentTo(4))
}
