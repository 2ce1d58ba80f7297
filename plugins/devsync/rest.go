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

package devsync

import (
	"net/http"

	"github.com/unrolled/render"
)

const (
	// stateURL is the URL to read the reconciliation state.
	stateURL = "/devsync/state"
	// resyncURL is the URL to trigger a forced resync.
	resyncURL = "/devsync/resync"
)

// stateDump is the JSON form of the reconciliation state.
type stateDump struct {
	AgentID   string   `json:"agent-id"`
	Resyncing bool     `json:"resyncing"`
	Known     []string `json:"known-devices"`
}

// registerHandlers registers all supported REST APIs.
func (p *Plugin) registerHandlers() {
	if p.HTTPHandlers == nil {
		p.Log.Debug("No http handler provided, skipping registration of devsync REST handlers")
		return
	}
	p.HTTPHandlers.RegisterHTTPHandler(stateURL, p.stateGetHandler, "GET")
	p.HTTPHandlers.RegisterHTTPHandler(resyncURL, p.resyncReqHandler, "POST")
}

// stateGetHandler is the GET handler for the "state" API.
func (p *Plugin) stateGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p.lock.Lock()
		dump := stateDump{
			AgentID:   p.PortSync.AgentID(),
			Resyncing: p.resync,
			Known:     p.known.Slice(),
		}
		p.lock.Unlock()

		formatter.JSON(w, http.StatusOK, dump)
	}
}

// resyncReqHandler is the POST handler for the "resync" API.
func (p *Plugin) resyncReqHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p.Log.Info("Resync requested over REST")

		p.lock.Lock()
		p.resync = true
		p.lock.Unlock()

		formatter.JSON(w, http.StatusOK, "resync scheduled")
	}
}
