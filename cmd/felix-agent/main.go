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

package main

import (
	"github.com/ligato/cn-infra/agent"
	"github.com/ligato/cn-infra/health/probe"
	"github.com/ligato/cn-infra/health/statuscheck"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/ligato/cn-infra/rpc/rest"

	"github.com/AlexeyKasatkin/felix/plugins/devsync"
	"github.com/AlexeyKasatkin/felix/plugins/metadata"
	"github.com/AlexeyKasatkin/felix/plugins/portsync"
	"github.com/AlexeyKasatkin/felix/plugins/routing"
	"github.com/AlexeyKasatkin/felix/plugins/secgroups"
)

// FelixAgent keeps the host's routes, ARP entries and forwarding toggles
// synchronized with the workloads attached to the host.
type FelixAgent struct {
	StatusCheck *statuscheck.Plugin
	HealthProbe *probe.Plugin
	HTTP        *rest.Plugin
	PortSync    *portsync.Plugin
	Routing     *routing.Plugin
	SecGroups   *secgroups.Plugin
	Metadata    *metadata.Plugin
	DevSync     *devsync.Plugin
}

func (f *FelixAgent) String() string {
	return "FelixAgent"
}

// Init is called at startup phase. Method added in order to implement Plugin interface.
func (f *FelixAgent) Init() error {
	return nil
}

// Close is called at cleanup phase. Method added in order to implement Plugin interface.
func (f *FelixAgent) Close() error {
	return nil
}

func main() {
	felixAgent := &FelixAgent{
		StatusCheck: &statuscheck.DefaultPlugin,
		HealthProbe: &probe.DefaultPlugin,
		HTTP:        &rest.DefaultPlugin,
		PortSync:    &portsync.DefaultPlugin,
		Routing:     &routing.DefaultPlugin,
		SecGroups:   &secgroups.DefaultPlugin,
		Metadata:    &metadata.DefaultPlugin,
		DevSync:     &devsync.DefaultPlugin,
	}

	a := agent.NewAgent(agent.AllPlugins(felixAgent))
	if err := a.Run(); err != nil {
		logrus.DefaultLogger().Fatal(err)
	}
}
