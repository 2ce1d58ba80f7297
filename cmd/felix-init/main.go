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

// felix-init prepares the host for the agent and starts it under
// supervisor: it validates the bootstrap configuration, checks that the
// interface enumeration source and the control-plane datastore are
// reachable, and only then lets the agent come up.
package main

import (
	"io/ioutil"
	"os"

	"github.com/ghodss/yaml"
	"github.com/namsral/flag"
	"github.com/nerdtakula/supervisor"

	"github.com/ligato/cn-infra/config"
	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"

	"github.com/AlexeyKasatkin/felix/plugins/taps"
)

const (
	defaultFelixCfgFile   = "/etc/felix/felix.yaml"
	defaultEtcdCfgFile    = "/etc/felix/etcd.conf"
	defaultSupervisorPort = 9001
)

var (
	felixCfgFile   = flag.String("felix-config", defaultFelixCfgFile, "location of the felix bootstrap config file")
	etcdCfgFile    = flag.String("etcd-config", defaultEtcdCfgFile, "location of the ETCD config file")
	supervisorPort = flag.Int("supervisor-port", defaultSupervisorPort, "management port of the supervisor process")

	logger = logrus.DefaultLogger()
)

// initConfig is the bootstrap configuration of the agent host.
type initConfig struct {
	// AgentProcess is the supervisor program name of the agent.
	AgentProcess string `json:"agentProcess"`
	// SkipDatastoreCheck starts the agent without waiting for ETCD.
	SkipDatastoreCheck bool `json:"skipDatastoreCheck"`
}

func main() {
	flag.Parse()
	logger.SetLevel(logging.DebugLevel)

	cfg, err := parseInitConfig()
	if err != nil {
		os.Exit(-1)
	}

	// the agent is useless on a host where TAP enumeration does not work
	if _, err = taps.Observe(); err != nil {
		logger.Errorf("Interface enumeration check failed: %v", err)
		os.Exit(-1)
	}

	if !cfg.SkipDatastoreCheck {
		if err = checkDatastore(); err != nil {
			logger.Errorf("Datastore check failed: %v", err)
			os.Exit(-1)
		}
	}

	// connect to supervisor API
	client := supervisor.New("localhost", *supervisorPort, "", "")

	logger.Debugf("Starting process %s", cfg.AgentProcess)
	if _, err = client.StartProcess(cfg.AgentProcess, false); err != nil {
		logger.Errorf("Error by starting agent process: %v", err)
		os.Exit(-1)
	}

	logger.Info("Agent process started")
}

// parseInitConfig reads and unmarshals the bootstrap config file.
func parseInitConfig() (*initConfig, error) {
	yamlFile, err := ioutil.ReadFile(*felixCfgFile)
	if err != nil {
		logger.Errorf("Error by reading config file %s: %v", *felixCfgFile, err)
		return nil, err
	}

	cfg := &initConfig{AgentProcess: "felix-agent"}
	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		logger.Errorf("Error by unmarshaling YAML: %v", err)
		return nil, err
	}
	return cfg, nil
}

// checkDatastore verifies that ETCD is reachable before the agent starts,
// so a misconfigured datastore shows up here instead of as an endless
// resync loop in the agent.
func checkDatastore() error {
	etcdCfg := &etcd.Config{}
	if err := config.ParseConfigFromYamlFile(*etcdCfgFile, etcdCfg); err != nil {
		return err
	}
	clientCfg, err := etcd.ConfigToClient(etcdCfg)
	if err != nil {
		return err
	}
	db, err := etcd.NewEtcdConnectionWithBytes(*clientCfg, logger)
	if err != nil {
		return err
	}
	return db.Close()
}
