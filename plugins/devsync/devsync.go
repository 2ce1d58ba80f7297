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

// Package devsync implements the reconciliation loop at the heart of the
// agent. Every poll tick it observes the host's TAP interfaces, diffs them
// against the last reconciled set, tears down state for interfaces that
// disappeared and programs state for interfaces that appeared, enriching
// them with port details fetched from the control plane. Any failure flips
// the loop into resync mode: the known set is cleared and the next tick
// re-evaluates every interface from scratch. Host state is never touched
// on resync entry, only the loop's bookkeeping is reset.
package devsync

import (
	"sync"
	"time"

	"github.com/ligato/cn-infra/health/statuscheck"
	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/rpc/rest"

	"github.com/AlexeyKasatkin/felix/plugins/portsync"
	"github.com/AlexeyKasatkin/felix/plugins/portsync/model/ports"
	"github.com/AlexeyKasatkin/felix/plugins/routing"
	"github.com/AlexeyKasatkin/felix/plugins/secgroups"
	"github.com/AlexeyKasatkin/felix/plugins/taps"
)

const (
	defaultPollingInterval   = 2 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
)

// Plugin drives the reconciliation of host network state against the set
// of TAP interfaces present on the host.
type Plugin struct {
	Deps

	config *Config

	// lock guards the reconciliation state below and serializes host
	// configuration between the poll tick and the notification path.
	lock    sync.Mutex
	known   taps.DeviceSet
	resync  bool
	applied map[string]appliedPort

	// startFlag is raised until the first successful heartbeat so the
	// control plane can tell a restarted agent from a running one.
	startFlag bool

	observe func() (taps.DeviceSet, error)

	wg      sync.WaitGroup
	closeCh chan struct{}
}

// appliedPort remembers what was programmed for an interface, so removal
// can mirror it without a control-plane lookup.
type appliedPort struct {
	bindings []routing.IPBinding
	mac      string
}

// Deps lists the dependencies of the devsync plugin.
type Deps struct {
	infra.PluginDeps
	PortSync     portsync.API
	Routing      routing.API
	SecGroups    secgroups.API
	StatusCheck  statuscheck.PluginStatusWriter // optional
	HTTPHandlers rest.HTTPHandlers              // optional
}

// Config holds the devsync plugin configuration.
type Config struct {
	// PollingIntervalSec paces the reconciliation ticks.
	PollingIntervalSec int `json:"polling-interval-sec"`
	// HeartbeatIntervalSec paces the agent liveness reports.
	HeartbeatIntervalSec int `json:"heartbeat-interval-sec"`
}

// Init loads the configuration, initializes the reconciliation state and
// subscribes to control-plane port updates.
func (p *Plugin) Init() error {
	p.config = &Config{}
	if p.Cfg != nil {
		if _, err := p.Cfg.LoadValue(p.config); err != nil {
			return err
		}
	}

	p.known = taps.NewDeviceSet()
	p.resync = true
	p.applied = map[string]appliedPort{}
	p.startFlag = true
	p.closeCh = make(chan struct{})
	if p.observe == nil {
		p.observe = taps.Observe
	}

	if p.StatusCheck != nil {
		p.StatusCheck.Register(p.PluginName, nil)
	}
	p.registerHandlers()

	return p.PortSync.WatchPortUpdates(p.handlePortUpdate)
}

// AfterInit starts the reconciliation loop and the heartbeat.
func (p *Plugin) AfterInit() error {
	p.wg.Add(2)
	go p.runLoop()
	go p.runHeartbeat()
	return nil
}

// Close stops the loop and the heartbeat.
func (p *Plugin) Close() error {
	close(p.closeCh)
	p.wg.Wait()
	return nil
}

func (p *Plugin) pollingInterval() time.Duration {
	if p.config != nil && p.config.PollingIntervalSec > 0 {
		return time.Duration(p.config.PollingIntervalSec) * time.Second
	}
	return defaultPollingInterval
}

func (p *Plugin) heartbeatInterval() time.Duration {
	if p.config != nil && p.config.HeartbeatIntervalSec > 0 {
		return time.Duration(p.config.HeartbeatIntervalSec) * time.Second
	}
	return defaultHeartbeatInterval
}

// runLoop paces reconciliation ticks. A tick always runs to completion;
// if it overruns the polling interval the next one starts immediately
// and the overrun is logged.
func (p *Plugin) runLoop() {
	defer p.wg.Done()
	p.Log.Info("Reconciliation loop started")

	interval := p.pollingInterval()
	for {
		start := time.Now()
		p.processTick()
		elapsed := time.Since(start)

		if elapsed >= interval {
			p.Log.Warnf("Loop iteration exceeded polling interval (%v vs. %v)",
				interval, elapsed)
			select {
			case <-p.closeCh:
				return
			default:
				continue
			}
		}
		select {
		case <-p.closeCh:
			return
		case <-time.After(interval - elapsed):
		}
	}
}

// runHeartbeat periodically reports agent liveness to the control plane.
func (p *Plugin) runHeartbeat() {
	defer p.wg.Done()

	interval := p.heartbeatInterval()
	for {
		p.reportHeartbeat()
		select {
		case <-p.closeCh:
			return
		case <-time.After(interval):
		}
	}
}

func (p *Plugin) reportHeartbeat() {
	p.lock.Lock()
	startFlag := p.startFlag
	p.lock.Unlock()

	if err := p.PortSync.ReportAgentState(startFlag); err != nil {
		p.Log.Warnf("Heartbeat failed: %v", err)
		return
	}
	if startFlag {
		p.lock.Lock()
		p.startFlag = false
		p.lock.Unlock()
	}
}

// processTick runs one reconciliation cycle under the state lock.
func (p *Plugin) processTick() {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.resync {
		p.Log.Info("Agent out of sync with the control plane, resyncing")
		p.known = taps.NewDeviceSet()
	}

	current, err := p.observe()
	if err != nil {
		p.Log.Errorf("Interface discovery failed: %v", err)
		p.enterResync(err)
		return
	}

	if current.Equals(p.known) {
		p.pruneApplied(current)
		p.markInSync()
		return
	}

	added, removed := p.known.Diff(current)
	p.Log.Infof("Processing device delta: added=%v removed=%v", added, removed)

	// removal first, so routes and ARP entries of a recycled interface
	// name are gone before the new occupant is programmed
	tickOK := p.processRemoved(removed)
	tickOK = p.processAdded(added) && tickOK

	// the observed set becomes the known set even when some devices
	// failed; the resync flag makes the next tick revisit them
	p.known = current
	p.pruneApplied(current)

	if tickOK {
		p.markInSync()
	} else {
		p.enterResync(nil)
	}
}

// processRemoved tears down host state of interfaces that disappeared.
// Returns false if the control plane could not be told about a removal.
func (p *Plugin) processRemoved(removed taps.DeviceSet) bool {
	ok := true
	if len(removed) > 0 {
		p.SecGroups.RemoveDevicesFilter(removed.Slice())
	}
	for _, ifName := range removed.Slice() {
		p.Log.Infof("Attachment %s removed", ifName)

		prev := p.applied[ifName]
		p.Routing.RemoveInterface(ifName, prev.bindings)
		delete(p.applied, ifName)

		existed, err := p.PortSync.ReportPortDown(ifName)
		if err != nil {
			p.Log.Errorf("Down report failed for %s: %v", ifName, err)
			ok = false
			continue
		}
		if !existed {
			p.Log.Debugf("Device %s not known to the control plane", ifName)
		}
	}
	return ok
}

// processAdded programs host state of interfaces that appeared. Per-device
// lookup failures skip that device and degrade the tick, but the rest of
// the batch is still processed.
func (p *Plugin) processAdded(added taps.DeviceSet) bool {
	ok := true
	if len(added) > 0 {
		p.SecGroups.PrepareDevicesFilter(added.Slice())
	}
	for _, ifName := range added.Slice() {
		details, err := p.PortSync.GetPortDetails(ifName)
		if err != nil {
			p.Log.Warnf("Unable to get port details for %s: %v", ifName, err)
			ok = false
			continue
		}
		if details == nil {
			p.Log.Infof("Device %s not defined on the control plane", ifName)
			continue
		}
		ok = p.configurePort(ifName, details) && ok
	}
	return ok
}

// configurePort programs one admin-up port and reports the outcome to the
// control plane. Returns false when the status report could not be
// delivered, so the caller schedules a resync and the report is retried;
// otherwise the control plane would believe forever that a configured
// port is down. Must be called with the state lock held.
func (p *Plugin) configurePort(ifName string, details *ports.PortDetails) bool {
	if !details.AdminStateUp {
		// not active yet; it will be configured once brought up
		return true
	}

	bindings := toBindings(details.FixedIPs)
	outcome := p.Routing.ApplyInterface(ifName, bindings, details.MACAddress)
	if outcome {
		p.applied[ifName] = appliedPort{bindings: bindings, mac: details.MACAddress}
		if err := p.PortSync.ReportPortUp(ifName); err != nil {
			p.Log.Errorf("Up report failed for %s: %v", ifName, err)
			return false
		}
		return true
	}

	// never report a port up that the host could not fully program
	p.Log.Errorf("Configuration of %s failed, reporting it down", ifName)
	if _, err := p.PortSync.ReportPortDown(ifName); err != nil {
		p.Log.Errorf("Down report failed for %s: %v", ifName, err)
		return false
	}
	return true
}

// handlePortUpdate reacts to asynchronous port changes from the control
// plane. Updates for interfaces not present on this host are ignored.
func (p *Plugin) handlePortUpdate(update portsync.PortUpdate) {
	p.lock.Lock()
	defer p.lock.Unlock()

	current, err := p.observe()
	if err != nil {
		p.Log.Errorf("Interface discovery failed: %v", err)
		p.enterResync(err)
		return
	}
	if !current.Has(update.IfName) {
		return
	}

	if update.Details != nil && len(update.Details.SecurityGroups) > 0 {
		p.SecGroups.RefreshFirewall()
	}

	if update.Details == nil || !update.Details.AdminStateUp {
		// administratively down or deleted: tear the port down
		prev := p.applied[update.IfName]
		p.Routing.RemoveInterface(update.IfName, prev.bindings)
		delete(p.applied, update.IfName)
		if _, err := p.PortSync.ReportPortDown(update.IfName); err != nil {
			p.Log.Errorf("Down report failed for %s: %v", update.IfName, err)
			p.enterResync(err)
		}
		return
	}

	if !p.configurePort(update.IfName, update.Details) {
		p.enterResync(nil)
	}
}

// enterResync flips the loop into resync mode, so the next tick clears
// the known set and rediscovers every interface, and propagates the error
// to the health status.
func (p *Plugin) enterResync(err error) {
	p.resync = true
	if p.StatusCheck != nil {
		p.StatusCheck.ReportStateChange(p.PluginName, statuscheck.Error, err)
	}
}

// pruneApplied drops cached bindings of interfaces no longer present.
// An interface that vanished while the loop was resyncing is never walked
// through the removal path, so without pruning its stale bindings would be
// replayed if the name is ever reused. Must be called with the state lock
// held.
func (p *Plugin) pruneApplied(current taps.DeviceSet) {
	for name := range p.applied {
		if !current.Has(name) {
			delete(p.applied, name)
		}
	}
}

func (p *Plugin) markInSync() {
	p.resync = false
	if p.StatusCheck != nil {
		p.StatusCheck.ReportStateChange(p.PluginName, statuscheck.OK, nil)
	}
}

func toBindings(fixedIPs []ports.FixedIP) []routing.IPBinding {
	bindings := make([]routing.IPBinding, 0, len(fixedIPs))
	for _, fixedIP := range fixedIPs {
		bindings = append(bindings, routing.IPBinding{
			IP:       fixedIP.IPAddress,
			SubnetID: fixedIP.SubnetID,
		})
	}
	return bindings
}
