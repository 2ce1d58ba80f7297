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

// Privileged helper that disables proxy-ARP on one interface.
package main

import (
	"fmt"
	"os"

	"github.com/AlexeyKasatkin/felix/pkg/ifctl"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interface>\n", os.Args[0])
		os.Exit(1)
	}
	ifName := os.Args[1]

	fmt.Printf("Disabling proxy arp on %s\n", ifName)
	if err := ifctl.SetProxyArp(ifName, false); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Disabled proxy arp on %s\n", ifName)
}
