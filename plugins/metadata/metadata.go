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

// Package metadata bootstraps workload access to the cloud metadata
// service: a NAT rule redirecting metadata traffic to a local proxy,
// and the proxy process itself, started through supervisor.
package metadata

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"
	"github.com/ligato/cn-infra/infra"
	"github.com/nerdtakula/supervisor"
)

// metadataServiceIP is the well-known address workloads use to reach the
// metadata service.
const metadataServiceIP = "169.254.169.254/32"

// proxyProcessName is the supervisor program name of the metadata proxy.
const proxyProcessName = "metadata-proxy"

// Plugin installs the metadata forwarding rule and launches the proxy.
type Plugin struct {
	Deps

	config *Config

	ipt             natInstaller
	startSupervised func(name string) error
}

// Deps lists the dependencies of the metadata plugin.
type Deps struct {
	infra.PluginDeps
}

// Config holds the metadata plugin configuration.
type Config struct {
	// Disabled skips metadata bootstrapping entirely.
	Disabled bool `json:"disabled"`
	// ProxyPort is the local TCP port of the metadata proxy.
	ProxyPort int `json:"proxy-port"`
	// SupervisorHost and SupervisorPort locate the supervisor daemon
	// managing the proxy process.
	SupervisorHost string `json:"supervisor-host"`
	SupervisorPort int    `json:"supervisor-port"`
}

// natInstaller is the slice of the iptables API the plugin uses.
type natInstaller interface {
	AppendUnique(table string, chain string, rulespec ...string) error
}

// Init installs the DNAT rule and starts the metadata proxy. Failures are
// logged but not fatal: workloads run fine without metadata, so a broken
// metadata path must not take the whole agent down.
func (p *Plugin) Init() error {
	p.config = &Config{
		ProxyPort:      9697,
		SupervisorHost: "localhost",
		SupervisorPort: 9001,
	}
	if p.Cfg != nil {
		if _, err := p.Cfg.LoadValue(p.config); err != nil {
			return err
		}
	}
	if p.config.Disabled {
		p.Log.Info("Metadata proxy is disabled")
		return nil
	}

	if p.ipt == nil {
		ipt, err := iptables.New()
		if err != nil {
			p.Log.Errorf("Failed to initialize iptables handle: %v", err)
			return nil
		}
		p.ipt = ipt
	}
	if p.startSupervised == nil {
		p.startSupervised = func(name string) error {
			client := supervisor.New(p.config.SupervisorHost, p.config.SupervisorPort, "", "")
			_, err := client.StartProcess(name, false)
			return err
		}
	}

	if err := p.setupForwarding(); err != nil {
		p.Log.Errorf("Failed to install metadata forwarding rule: %v", err)
		return nil
	}
	if err := p.startSupervised(proxyProcessName); err != nil {
		p.Log.Errorf("Failed to start the metadata proxy: %v", err)
	}
	return nil
}

// Close is NOOP. The forwarding rule and the proxy survive agent restarts
// on purpose, so running workloads keep their metadata access.
func (p *Plugin) Close() error {
	return nil
}

// setupForwarding redirects metadata traffic to the local proxy port.
func (p *Plugin) setupForwarding() error {
	return p.ipt.AppendUnique("nat", "PREROUTING", redirectRuleSpec(p.config.ProxyPort)...)
}

// redirectRuleSpec builds the metadata DNAT rule. DNAT rather than
// REDIRECT, so the source address workloads see is not 127.0.0.1, which
// would confuse cloud-init.
func redirectRuleSpec(proxyPort int) []string {
	return []string{
		"-d", metadataServiceIP,
		"-p", "tcp", "-m", "tcp", "--dport", "80",
		"-j", "DNAT", "--to-destination", fmt.Sprintf("127.0.0.1:%d", proxyPort),
	}
}
