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

package portsync

import (
	"net"
	"testing"

	"github.com/ligato/cn-infra/datasync"
	"github.com/ligato/cn-infra/db/keyval"
	"github.com/ligato/cn-infra/logging"
	. "github.com/onsi/gomega"
	"github.com/vishvananda/netlink"

	"github.com/AlexeyKasatkin/felix/plugins/portsync/model/ports"
)

// memBroker is an in-memory stand-in for the ETCD connection.
type memBroker struct {
	store   map[string][]byte
	watcher func(keyval.BytesWatchResp)
	failAll bool
}

func newMemBroker() *memBroker {
	return &memBroker{store: map[string][]byte{}}
}

func (b *memBroker) GetValue(key string) ([]byte, bool, int64, error) {
	if b.failAll {
		return nil, false, 0, errDatastore
	}
	data, found := b.store[key]
	return data, found, 0, nil
}

func (b *memBroker) Put(key string, data []byte, opts ...datasync.PutOption) error {
	if b.failAll {
		return errDatastore
	}
	b.store[key] = data
	return nil
}

func (b *memBroker) Delete(key string, opts ...datasync.DelOption) (bool, error) {
	if b.failAll {
		return false, errDatastore
	}
	_, existed := b.store[key]
	delete(b.store, key)
	return existed, nil
}

func (b *memBroker) Watch(resp func(keyval.BytesWatchResp), closeChan chan string, keys ...string) error {
	b.watcher = resp
	return nil
}

var errDatastore = &net.OpError{Op: "dial", Net: "tcp"}

// watchResp is a canned watch notification.
type watchResp struct {
	key        string
	value      []byte
	changeType datasync.Op
}

func (r *watchResp) GetKey() string                { return r.key }
func (r *watchResp) GetValue() []byte              { return r.value }
func (r *watchResp) GetPrevValue() []byte          { return nil }
func (r *watchResp) GetChangeType() datasync.Op    { return r.changeType }
func (r *watchResp) GetRevision() (revision int64) { return 0 }

func testSyncPlugin(broker bytesBroker) *Plugin {
	p := NewPlugin()
	p.Log = logging.ForPlugin("test")
	p.Cfg = nil
	p.agentID = "felix-aabbccddeeff"
	p.db = broker
	Expect(p.Init()).To(BeNil())
	return p
}

func TestGetPortDetails(t *testing.T) {
	RegisterTestingT(t)

	broker := newMemBroker()
	broker.store[ports.PortKey("tap0a1b2c3d4e5")] = []byte(`{
		"port_id": "0a1b2c3d4e5f",
		"network_id": "net-1",
		"network_type": "local",
		"mac_address": "fa:16:3e:00:00:01",
		"admin_state_up": true,
		"fixed_ips": [{"ip_address": "10.65.0.2", "subnet_id": "subnet-1"}]
	}`)
	p := testSyncPlugin(broker)

	details, err := p.GetPortDetails("tap0a1b2c3d4e5")
	Expect(err).To(BeNil())
	Expect(details).ToNot(BeNil())
	Expect(details.PortID).To(BeEquivalentTo("0a1b2c3d4e5f"))
	Expect(details.AdminStateUp).To(BeTrue())
	Expect(details.FixedIPs).To(HaveLen(1))
	Expect(details.FixedIPs[0].IPAddress).To(BeEquivalentTo("10.65.0.2"))
}

func TestGetPortDetailsUnknownPort(t *testing.T) {
	RegisterTestingT(t)

	p := testSyncPlugin(newMemBroker())

	details, err := p.GetPortDetails("tapdeadbeef")
	Expect(err).To(BeNil())
	Expect(details).To(BeNil())
}

func TestGetPortDetailsMalformed(t *testing.T) {
	RegisterTestingT(t)

	broker := newMemBroker()
	// missing mac_address
	broker.store[ports.PortKey("tap0a1b2c3d4e5")] = []byte(`{"port_id": "0a1b2c3d4e5f"}`)
	p := testSyncPlugin(broker)

	_, err := p.GetPortDetails("tap0a1b2c3d4e5")
	Expect(err).ToNot(BeNil())
	_, isMalformed := err.(*MalformedPortDetailsError)
	Expect(isMalformed).To(BeTrue())
}

func TestGetPortDetailsDeviceMismatch(t *testing.T) {
	RegisterTestingT(t)

	broker := newMemBroker()
	// the port ID derives tap0a1b2c3d4e5, not the key's device
	broker.store[ports.PortKey("tapwrong")] = []byte(`{
		"port_id": "0a1b2c3d4e5f",
		"mac_address": "fa:16:3e:00:00:01",
		"admin_state_up": true
	}`)
	p := testSyncPlugin(broker)

	// the record is delivered anyway, the disagreement is only logged
	details, err := p.GetPortDetails("tapwrong")
	Expect(err).To(BeNil())
	Expect(details).ToNot(BeNil())
	Expect(details.PortID).To(BeEquivalentTo("0a1b2c3d4e5f"))
}

func TestGetPortDetailsDatastoreFailure(t *testing.T) {
	RegisterTestingT(t)

	broker := newMemBroker()
	broker.failAll = true
	p := testSyncPlugin(broker)

	_, err := p.GetPortDetails("tap0a1b2c3d4e5")
	Expect(err).ToNot(BeNil())
	_, isControlPlane := err.(*ControlPlaneError)
	Expect(isControlPlane).To(BeTrue())
}

func TestReportPortUpDown(t *testing.T) {
	RegisterTestingT(t)

	broker := newMemBroker()
	p := testSyncPlugin(broker)

	Expect(p.ReportPortUp("tap0a1b2c3d4e5")).To(BeNil())
	Expect(broker.store).To(HaveKey(ports.StatusKey(p.AgentID(), "tap0a1b2c3d4e5")))

	existed, err := p.ReportPortDown("tap0a1b2c3d4e5")
	Expect(err).To(BeNil())
	Expect(existed).To(BeTrue())

	existed, err = p.ReportPortDown("tap0a1b2c3d4e5")
	Expect(err).To(BeNil())
	Expect(existed).To(BeFalse())
}

func TestReportAgentState(t *testing.T) {
	RegisterTestingT(t)

	broker := newMemBroker()
	p := testSyncPlugin(broker)

	Expect(p.ReportAgentState(true)).To(BeNil())
	Expect(broker.store).To(HaveKey(ports.AgentKey(p.AgentID())))
}

func TestWatchPortUpdates(t *testing.T) {
	RegisterTestingT(t)

	broker := newMemBroker()
	p := testSyncPlugin(broker)

	var updates []PortUpdate
	Expect(p.WatchPortUpdates(func(u PortUpdate) {
		updates = append(updates, u)
	})).To(BeNil())

	broker.watcher(&watchResp{
		key:        ports.PortKey("tap0a1b2c3d4e5"),
		changeType: datasync.Put,
		value: []byte(`{"port_id": "0a1b2c3d4e5f", "mac_address": "fa:16:3e:00:00:01",
			"admin_state_up": true}`),
	})
	broker.watcher(&watchResp{
		key:        ports.PortKey("tapdeadbeef"),
		changeType: datasync.Delete,
	})
	// malformed records are skipped, not delivered
	broker.watcher(&watchResp{
		key:        ports.PortKey("tapbad"),
		changeType: datasync.Put,
		value:      []byte(`{not json`),
	})

	Expect(updates).To(HaveLen(2))
	Expect(updates[0].IfName).To(BeEquivalentTo("tap0a1b2c3d4e5"))
	Expect(updates[0].Details).ToNot(BeNil())
	Expect(updates[1].IfName).To(BeEquivalentTo("tapdeadbeef"))
	Expect(updates[1].Details).To(BeNil())
}

func TestDeriveAgentID(t *testing.T) {
	RegisterTestingT(t)

	mac, err := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	Expect(err).To(BeNil())

	prevList := linkList
	linkList = func() ([]netlink.Link, error) {
		return []netlink.Link{
			&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "lo"}},
			&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "tap0a1b2c3d4e5", HardwareAddr: mac}},
			&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "eth0", HardwareAddr: mac}},
		}, nil
	}
	defer func() { linkList = prevList }()

	agentID, err := deriveAgentID()
	Expect(err).To(BeNil())
	Expect(agentID).To(BeEquivalentTo("felix-aabbccddeeff"))
}
