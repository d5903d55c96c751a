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
package engine

import (
	"context"

	"github.com/google/uuid"

	"go.minekube.com/queue/pkg/cluster"
	"go.minekube.com/queue/pkg/proxy"
)

// LocalPresence reports whether playerID is connected to this proxy
// process.
type LocalPresence interface {
	Player(playerID uuid.UUID) (p proxy.Player, ok bool)
}

// ClusterOfflineChecker implements OfflineChecker by first checking
// local presence, then asking the Cluster Coordinator's player_info
// capability (spec §4.3 step 5, §4.5).
type ClusterOfflineChecker struct {
	Local LocalPresence
	Coord *cluster.Coordinator
}

func (c *ClusterOfflineChecker) IsOfflineClusterWide(ctx context.Context, playerID uuid.UUID) bool {
	if c.Local != nil {
		if _, ok := c.Local.Player(playerID); ok {
			return false
		}
	}
	if c.Coord == nil || c.Coord.Peers == nil {
		return false
	}
	_, ok, err := c.Coord.Peers.PlayerInfo(ctx, playerID)
	if err != nil {
		return false // unreachable coordinator: accepted as non-fatal, spec §7
	}
	return !ok
}
