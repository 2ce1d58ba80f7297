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

// Package routing programs per-interface host network state for TAP
// interfaces: static routes towards workload addresses, ARP / IPv6 neighbor
// entries and the proxy-ARP and local-routing toggles. All changes go
// through external commands so the package works against any kernel the
// host runs; route programming is convergent so the reconciliation loop
// may reapply the same desired state across ticks.
package routing

import (
	"bytes"
	"net"
	"os/exec"
	"strings"

	"github.com/ligato/cn-infra/infra"
)

// Names of the privileged toggle helpers shipped alongside the agent.
const (
	enableProxyArpCmd      = "felix-enable-proxy-arp"
	disableProxyArpCmd     = "felix-disable-proxy-arp"
	enableLocalRoutingCmd  = "felix-enable-local-routing"
	disableLocalRoutingCmd = "felix-disable-local-routing"
)

// Success markers printed by the toggle helpers.
const (
	proxyArpEnabledMsg     = "Enabled proxy arp"
	localRoutingEnabledMsg = "Enabled local routing"
)

// commandExecutor runs one external command and returns its output.
// A non-zero exit status is reported through err; callers that judge
// success by stderr content ignore it.
type commandExecutor interface {
	Run(cmd string, args ...string) (stdout string, stderr string, err error)
}

// Plugin implements API by issuing ip/arp commands and invoking the
// privileged toggle helpers.
type Plugin struct {
	Deps

	executor commandExecutor
}

// Deps lists the dependencies of the routing plugin.
type Deps struct {
	infra.PluginDeps
}

// Init initializes the command executor.
func (p *Plugin) Init() error {
	if p.executor == nil {
		p.executor = &osExecutor{}
	}
	return nil
}

// Close is NOOP.
func (p *Plugin) Close() error {
	return nil
}

// ApplyInterface installs routes, neighbor entries and forwarding toggles
// for every IP bound to the interface. The outcome is the conjunction of
// every sub-step; a single failed binding degrades the whole interface.
func (p *Plugin) ApplyInterface(ifName string, bindings []IPBinding, mac string) bool {
	outcome := true

	for _, binding := range bindings {
		p.Log.Infof("Adding static route for %s via %s", binding.IP, ifName)
		_, stderr, _ := p.executor.Run("ip", "route", "add", binding.IP,
			"dev", ifName, "proto", "static")
		// a route some previous tick already installed is a success
		outcome = outcome && (stderr == "" || strings.Contains(stderr, "File exists"))

		if isIPv6(binding.IP) {
			_, _, err := p.executor.Run("ip", "-6", "neigh", "add", binding.IP,
				"lladdr", mac, "dev", ifName)
			if err != nil {
				p.Log.Warnf("Failed to add IPv6 neighbor entry for %s on %s: %v",
					binding.IP, ifName, err)
				outcome = false
			}
		} else {
			stdout, _, _ := p.executor.Run(enableProxyArpCmd, ifName)
			outcome = outcome && strings.Contains(stdout, proxyArpEnabledMsg)
			_, _, err := p.executor.Run("arp", "-s", binding.IP, mac)
			if err != nil {
				p.Log.Warnf("Failed to add static ARP entry for %s: %v", binding.IP, err)
				outcome = false
			}
		}

		stdout, _, _ := p.executor.Run(enableLocalRoutingCmd, ifName)
		outcome = outcome && strings.Contains(stdout, localRoutingEnabledMsg)
	}

	return outcome
}

// RemoveInterface deletes the routes, toggles and ARP entries installed for
// the interface. Every sub-step runs even if earlier ones failed and the
// operation never reports failure, so interface teardown cannot be blocked.
func (p *Plugin) RemoveInterface(ifName string, bindings []IPBinding) {
	for _, binding := range bindings {
		p.Log.Infof("Removing static route for %s via %s", binding.IP, ifName)
		_, stderr, _ := p.executor.Run("ip", "route", "del", binding.IP,
			"dev", ifName, "proto", "static")
		if stderr != "" {
			p.Log.Warnf("Unable to remove route for %s via %s: %s", binding.IP, ifName, stderr)
		}

		if _, _, err := p.executor.Run(disableProxyArpCmd, ifName); err != nil {
			p.Log.Warnf("Failed to disable proxy ARP on %s: %v", ifName, err)
		}
		if _, _, err := p.executor.Run(disableLocalRoutingCmd, ifName); err != nil {
			p.Log.Warnf("Failed to disable local routing on %s: %v", ifName, err)
		}

		_, stderr, _ = p.executor.Run("arp", "-d", binding.IP, "-i", ifName)
		if stderr != "" {
			p.Log.Warnf("ARP entry missing for %s", binding.IP)
		}
	}
}

func isIPv6(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.To4() == nil
}

// osExecutor runs commands on the host.
type osExecutor struct{}

// Run executes the command and captures both output streams.
func (e *osExecutor) Run(cmd string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.Command(cmd, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	err := command.Run()
	return stdout.String(), stderr.String(), err
}
