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

// Package cmd assembles the felix-netctl command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlexeyKasatkin/felix/plugins/felixctl/cmdimpl"
)

var cmdDevices = &cobra.Command{
	Use:   "devices",
	Short: "List TAP devices currently present on this host",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		cmdimpl.PrintDevices()
	},
}

var cmdState = &cobra.Command{
	Use:   "state",
	Short: "Show the agent's reconciliation state",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		cmdimpl.PrintState()
	},
}

var cmdResync = &cobra.Command{
	Use:   "resync",
	Short: "Schedule a forced resync on the agent",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		cmdimpl.RequestResync()
	},
}

var cmdPort = &cobra.Command{
	Use:   "port interface",
	Short: "Show the control-plane port details of an interface",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmdimpl.PrintPort(args[0])
	},
}

// Execute runs the felix-netctl command tree.
func Execute() {
	var rootCmd = &cobra.Command{Use: "felix-netctl"}
	rootCmd.PersistentFlags().StringVar(&cmdimpl.AgentAddr, "agent",
		"localhost:9999", "address of the agent's REST API")
	rootCmd.PersistentFlags().StringVar(&cmdimpl.EtcdConfig, "etcd-config",
		"", "path to the ETCD client configuration file")
	rootCmd.AddCommand(cmdDevices)
	rootCmd.AddCommand(cmdState)
	rootCmd.AddCommand(cmdResync)
	rootCmd.AddCommand(cmdPort)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
