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

// Package portsync connects the agent to the control plane through the
// ETCD datastore. Port details published by the control plane are read
// and watched under one key space, while binding status and the agent's
// liveness heartbeat are written under agent-scoped key spaces. Operation
// timeouts are bounded by the ETCD client configuration, so a stalled
// datastore surfaces as an error rather than a hung reconciliation tick.
package portsync

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ligato/cn-infra/config"
	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/infra"
	"github.com/vishvananda/netlink"

	"github.com/AlexeyKasatkin/felix/plugins/portsync/model/ports"
	"github.com/AlexeyKasatkin/felix/plugins/taps"
)

// agentIDPrefix namespaces the per-host identity within the control
// plane's agent registry.
const agentIDPrefix = "felix-"

// linkList is overridable in unit tests.
var linkList = netlink.LinkList

// Plugin implements API on top of an ETCD connection.
type Plugin struct {
	Deps

	config  *Config
	agentID string

	db           bytesBroker
	conn         *etcd.BytesConnectionEtcd
	watchCloseCh chan string
}

// Deps lists the dependencies of the portsync plugin.
type Deps struct {
	infra.PluginDeps
}

// Config holds the portsync plugin configuration.
type Config struct {
	// EtcdConfig is the path to the ETCD client configuration file
	// (endpoints, TLS, dial and per-operation timeouts).
	EtcdConfig string `json:"etcd-config"`
}

// bytesBroker is the slice of the ETCD connection the plugin uses.
// Narrowed to an interface so tests can run without a datastore.
type bytesBroker interface {
	GetValue(key string) (data []byte, found bool, revision int64, err error)
	Put(key string, data []byte, opts ...datasync.PutOption) error
	Delete(key string, opts ...datasync.DelOption) (existed bool, err error)
	Watch(resp func(keyval.BytesWatchResp), closeChan chan string, keys ...string) error
}

// Init determines the per-host identity and connects to ETCD. An identity
// failure is returned as-is, which terminates agent startup: without a
// stable ID the agent cannot register with the control plane at all.
func (p *Plugin) Init() error {
	var err error
	if p.agentID == "" {
		p.agentID, err = deriveAgentID()
		if err != nil {
			return fmt.Errorf("unable to determine agent identity: %v", err)
		}
	}
	p.Log.Infof("Agent identity: %s", p.agentID)

	p.config = &Config{EtcdConfig: "/etc/felix/etcd.conf"}
	if p.Cfg != nil {
		if _, err := p.Cfg.LoadValue(p.config); err != nil {
			return err
		}
	}

	if p.db == nil {
		etcdCfg := &etcd.Config{}
		if err := config.ParseConfigFromYamlFile(p.config.EtcdConfig, etcdCfg); err != nil {
			return err
		}
		clientCfg, err := etcd.ConfigToClient(etcdCfg)
		if err != nil {
			return err
		}
		p.conn, err = etcd.NewEtcdConnectionWithBytes(*clientCfg, p.Log)
		if err != nil {
			return err
		}
		p.db = p.conn
	}

	p.watchCloseCh = make(chan string)
	return nil
}

// Close stops the port watcher and releases the ETCD connection.
func (p *Plugin) Close() error {
	close(p.watchCloseCh)
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// AgentID returns the stable per-host identity.
func (p *Plugin) AgentID() string {
	return p.agentID
}

// GetPortDetails implements API.
func (p *Plugin) GetPortDetails(ifName string) (*ports.PortDetails, error) {
	data, found, _, err := p.db.GetValue(ports.PortKey(ifName))
	if err != nil {
		return nil, &ControlPlaneError{Op: "port lookup", IfName: ifName, Reason: err}
	}
	if !found {
		return nil, nil
	}
	return p.decodePortDetails(ifName, data)
}

// ReportPortUp implements API.
func (p *Plugin) ReportPortUp(ifName string) error {
	status := &ports.PortStatus{
		AgentID:   p.agentID,
		Device:    ifName,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if err := p.db.Put(ports.StatusKey(p.agentID, ifName), data); err != nil {
		return &ControlPlaneError{Op: "status report", IfName: ifName, Reason: err}
	}
	return nil
}

// ReportPortDown implements API.
func (p *Plugin) ReportPortDown(ifName string) (bool, error) {
	existed, err := p.db.Delete(ports.StatusKey(p.agentID, ifName))
	if err != nil {
		return false, &ControlPlaneError{Op: "status withdrawal", IfName: ifName, Reason: err}
	}
	return existed, nil
}

// ReportAgentState implements API.
func (p *Plugin) ReportAgentState(startFlag bool) error {
	state := &ports.AgentState{
		AgentID:   p.agentID,
		StartFlag: startFlag,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := p.db.Put(ports.AgentKey(p.agentID), data); err != nil {
		return &ControlPlaneError{Op: "heartbeat", IfName: p.agentID, Reason: err}
	}
	return nil
}

// WatchPortUpdates implements API.
func (p *Plugin) WatchPortUpdates(handler func(PortUpdate)) error {
	return p.db.Watch(func(resp keyval.BytesWatchResp) {
		ifName := ports.ParsePortKey(resp.GetKey())
		if ifName == "" {
			return
		}
		if resp.GetChangeType() == datasync.Delete {
			handler(PortUpdate{IfName: ifName})
			return
		}
		details, err := p.decodePortDetails(ifName, resp.GetValue())
		if err != nil {
			// a malformed published record cannot be acted upon; the
			// periodic resync will retry it once the record is fixed
			p.Log.Warnf("Ignoring port update: %v", err)
			return
		}
		handler(PortUpdate{IfName: ifName, Details: details})
	}, p.watchCloseCh, ports.PortPrefix)
}

func (p *Plugin) decodePortDetails(ifName string, data []byte) (*ports.PortDetails, error) {
	details := &ports.PortDetails{}
	if err := json.Unmarshal(data, details); err != nil {
		return nil, &MalformedPortDetailsError{IfName: ifName, Reason: err}
	}
	if err := details.Validate(); err != nil {
		return nil, &MalformedPortDetailsError{IfName: ifName, Reason: err}
	}
	if derived := taps.DeviceName(details.PortID); derived != ifName {
		// the record is still usable, but the key and the port ID disagree
		// on which device it belongs to
		p.Log.Warnf("Port %s published under key of device %s, expected %s",
			details.PortID, ifName, derived)
	}
	return details, nil
}

// deriveAgentID builds the host identity from the MAC address of the
// first physical-looking interface, matching what the control plane
// expects agents to register as.
func deriveAgentID() (string, error) {
	links, err := linkList()
	if err != nil {
		return "", err
	}
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil || len(attrs.HardwareAddr) == 0 {
			continue
		}
		if attrs.Name == "lo" || strings.HasPrefix(attrs.Name, taps.TapPrefix) {
			continue
		}
		mac := strings.Replace(attrs.HardwareAddr.String(), ":", "", -1)
		return agentIDPrefix + mac, nil
	}
	return "", fmt.Errorf("no interface with a usable MAC address found")
}
