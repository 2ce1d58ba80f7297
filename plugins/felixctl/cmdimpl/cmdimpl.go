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

// Package cmdimpl implements the felix-netctl commands against the agent's
// REST API and the control-plane datastore.
package cmdimpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	"github.com/ligato/cn-infra/config"
	"github.com/ligato/cn-infra/db/keyval/etcd"
	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"

	"github.com/AlexeyKasatkin/felix/plugins/portsync/model/ports"
	"github.com/AlexeyKasatkin/felix/plugins/taps"
)

// AgentAddr is the host:port of the agent's REST API.
var AgentAddr = "localhost:9999"

// EtcdConfig is the path to the ETCD client configuration file.
// Falls back to the ETCD_CONFIG environment variable when empty.
var EtcdConfig string

var bytesBroker *etcd.BytesConnectionEtcd

func getEtcdBroker() *etcd.BytesConnectionEtcd {
	if bytesBroker == nil {
		configFile := EtcdConfig
		if configFile == "" {
			configFile = os.Getenv("ETCD_CONFIG")
		}
		etcdCfg := &etcd.Config{}
		if configFile != "" {
			if err := config.ParseConfigFromYamlFile(configFile, etcdCfg); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}
		clientCfg, err := etcd.ConfigToClient(etcdCfg)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		logger := logrus.DefaultLogger()
		logger.SetLevel(logging.ErrorLevel)

		db, err := etcd.NewEtcdConnectionWithBytes(*clientCfg, logger)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		bytesBroker = db
	}
	return bytesBroker
}

func getAgentJSON(path string) []byte {
	client := http.Client{Timeout: 30 * time.Second}
	url := fmt.Sprintf("http://%s%s", AgentAddr, path)
	res, err := client.Get(url)
	if err != nil {
		fmt.Printf("http get error: %s\n", err.Error())
		return nil
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		fmt.Printf("http get error: url: %s status: %s\n", url, res.Status)
		return nil
	}

	body, _ := ioutil.ReadAll(res.Body)
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		fmt.Println(err.Error())
		return nil
	}
	return out.Bytes()
}

// PrintDevices lists the TAP devices present on this host.
func PrintDevices() {
	devices, err := taps.Observe()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for _, name := range devices.Slice() {
		fmt.Println(name)
	}
}

// PrintState dumps the agent's reconciliation state.
func PrintState() {
	if state := getAgentJSON("/devsync/state"); state != nil {
		fmt.Println(string(state))
	}
}

// RequestResync schedules a forced resync on the agent.
func RequestResync() {
	client := http.Client{Timeout: 30 * time.Second}
	url := fmt.Sprintf("http://%s/devsync/resync", AgentAddr)
	res, err := client.Post(url, "application/json", nil)
	if err != nil {
		fmt.Printf("http post error: %s\n", err.Error())
		os.Exit(1)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		fmt.Printf("http post error: url: %s status: %s\n", url, res.Status)
		os.Exit(1)
	}
	fmt.Println("resync scheduled")
}

// PrintPort shows the port details published for an interface.
func PrintPort(ifName string) {
	db := getEtcdBroker()
	data, found, _, err := db.GetValue(ports.PortKey(ifName))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if !found {
		fmt.Printf("no port record for %s\n", ifName)
		return
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(out.String())
}
