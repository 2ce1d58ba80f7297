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

// Package secgroups runs the extra firewall the agent maintains in
// addition to the routed state: a dedicated filter chain with one rule
// per managed TAP device. The chain is rebuilt from scratch on agent
// start and on every security-group refresh, so the filter converges to
// the tracked device set no matter what state the chain was left in.
package secgroups

import (
	"sync"

	"github.com/coreos/go-iptables/iptables"
	"github.com/ligato/cn-infra/infra"
)

const (
	filterTable   = "filter"
	firewallChain = "felix-firewall"
)

// Plugin implements API on top of iptables.
type Plugin struct {
	Deps

	ipt filterInstaller

	lock    sync.Mutex
	devices map[string]struct{}
}

// Deps lists the dependencies of the secgroups plugin.
type Deps struct {
	infra.PluginDeps
}

// filterInstaller is the slice of the iptables API the plugin uses.
type filterInstaller interface {
	ClearChain(table string, chain string) error
	AppendUnique(table string, chain string, rulespec ...string) error
	Delete(table string, chain string, rulespec ...string) error
}

// Init sets up the firewall chain. Like the metadata bootstrap, a broken
// iptables path is logged and not fatal: routed connectivity must not be
// held hostage by the extra filter.
func (p *Plugin) Init() error {
	p.devices = map[string]struct{}{}

	if p.ipt == nil {
		ipt, err := iptables.New()
		if err != nil {
			p.Log.Errorf("Failed to initialize iptables handle: %v", err)
			return nil
		}
		p.ipt = ipt
	}

	p.initFirewall()
	return nil
}

// Close is NOOP. The filter chain stays in place across agent restarts,
// Init rebuilds it on the way back up.
func (p *Plugin) Close() error {
	return nil
}

// PrepareDevicesFilter implements API.
func (p *Plugin) PrepareDevicesFilter(devices []string) {
	if p.ipt == nil {
		return
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	for _, device := range devices {
		if err := p.ipt.AppendUnique(filterTable, firewallChain, deviceRuleSpec(device)...); err != nil {
			p.Log.Warnf("Failed to install filter rule for %s: %v", device, err)
			continue
		}
		p.devices[device] = struct{}{}
	}
}

// RemoveDevicesFilter implements API.
func (p *Plugin) RemoveDevicesFilter(devices []string) {
	if p.ipt == nil {
		return
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	for _, device := range devices {
		if err := p.ipt.Delete(filterTable, firewallChain, deviceRuleSpec(device)...); err != nil {
			p.Log.Warnf("Failed to remove filter rule for %s: %v", device, err)
		}
		delete(p.devices, device)
	}
}

// RefreshFirewall implements API.
func (p *Plugin) RefreshFirewall() {
	if p.ipt == nil {
		return
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	p.Log.Info("Refreshing the device firewall")
	p.rebuildChain()
}

// initFirewall flushes the firewall chain (creating it when missing) and
// hooks it into the forwarding path.
func (p *Plugin) initFirewall() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.rebuildChain()
}

// rebuildChain reconverges the chain to the tracked device set.
// Must be called with the lock held.
func (p *Plugin) rebuildChain() {
	if err := p.ipt.ClearChain(filterTable, firewallChain); err != nil {
		p.Log.Errorf("Failed to set up the %s chain: %v", firewallChain, err)
		return
	}
	if err := p.ipt.AppendUnique(filterTable, "FORWARD", "-j", firewallChain); err != nil {
		p.Log.Errorf("Failed to hook the %s chain: %v", firewallChain, err)
		return
	}
	for device := range p.devices {
		if err := p.ipt.AppendUnique(filterTable, firewallChain, deviceRuleSpec(device)...); err != nil {
			p.Log.Warnf("Failed to reinstall filter rule for %s: %v", device, err)
		}
	}
}

// deviceRuleSpec builds the per-device filter rule.
func deviceRuleSpec(device string) []string {
	return []string{"-m", "physdev", "--physdev-in", device, "-j", "ACCEPT"}
}
