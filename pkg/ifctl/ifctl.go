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

// Package ifctl adjusts per-interface kernel forwarding knobs needed for
// routed (L3) operation of TAP interfaces: proxy-ARP, so the host answers
// ARP requests sent by the guest for any address, and local routing, so
// traffic from the guest may be delivered to host-local addresses.
package ifctl

import (
	"fmt"

	"github.com/containernetworking/plugins/pkg/utils/sysctl"
)

const (
	proxyArpKeyFmt     = "net.ipv4.conf.%s.proxy_arp"
	localRoutingKeyFmt = "net.ipv4.conf.%s.route_localnet"
)

// sysctlFunc is overridable in unit tests.
var sysctlFunc = sysctl.Sysctl

// SetProxyArp enables or disables proxy-ARP on the given interface.
func SetProxyArp(ifName string, enable bool) error {
	return setKnob(fmt.Sprintf(proxyArpKeyFmt, ifName), enable)
}

// SetLocalRouting enables or disables routing to host-local (127/8)
// destinations for packets arriving on the given interface.
func SetLocalRouting(ifName string, enable bool) error {
	return setKnob(fmt.Sprintf(localRoutingKeyFmt, ifName), enable)
}

func setKnob(key string, enable bool) error {
	value := "0"
	if enable {
		value = "1"
	}
	_, err := sysctlFunc(key, value)
	return err
}
