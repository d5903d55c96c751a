/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cluster

import "context"

// Elect implements the master-election rule (spec §4.4): intersect the
// ordered eligible list with the currently observed live proxy set,
// sort by the configured order (the eligible list is already in that
// order), and pick the first. There is no lease, no handoff, and no
// cross-proxy consensus: recomputed fresh on every call from static
// config plus the coordinator's heartbeat-derived live set.
//
// Returns "" if no eligible proxy is currently live.
func Elect(eligible []string, live map[string]struct{}) string {
	for _, id := range eligible {
		if _, ok := live[id]; ok {
			return id
		}
	}
	return ""
}

// IsMaster reports whether selfID is the elected master for the given
// eligible list and live peer set (spec §4.4). During a brief
// membership flap two proxies may both believe they're master; the
// spec accepts this (§4.4, §9) and relies on the send path routing
// through the coordinator to the player's hosting proxy to keep at
// most one send from actually reaching the backend.
func IsMaster(selfID string, eligible []string, live map[string]struct{}) bool {
	return Elect(eligible, live) == selfID
}

// LivePeers is a convenience wrapper over Coordinator.Peers for
// callers that only have a context and a Coordinator.
func LivePeers(ctx context.Context, c *Coordinator) (map[string]struct{}, error) {
	return c.Peers.Peers(ctx)
}
