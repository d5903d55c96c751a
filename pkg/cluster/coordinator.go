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

// Package cluster is the Cluster Coordinator component (spec §4.5): a
// narrow capability set (publish, subscribe, peer_set, player_info,
// snapshot_put/get) the engine is parameterized over, rather than
// forking into Redis/non-Redis subclasses that duplicate logic
// (spec §9 design note). Coordinator implementations live in this
// package; the engine only ever depends on the Coordinator interface.
package cluster

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logical topic names published/subscribed on (spec §4.5).
const (
	TopicQueueAdd           = "queue.add"
	TopicQueueLeave         = "queue.leave"
	TopicQueueSend          = "queue.send"
	TopicQueueSendResult    = "queue.send_result"
	TopicQueuePause         = "queue.pause"
	TopicQueueAlreadyJoined = "queue.already_joined"
	TopicActionBar          = "actionbar"
	TopicChat               = "chat"
	TopicSetQueuedServer    = "player.set_queued_server"
)

// PlayerInfo is the coordinator's answer to "where is this player right
// now" (spec §4.5 player_info).
type PlayerInfo struct {
	ProxyID      string
	ServerName   string
	QueuedServer string
}

// Handler processes one message delivered on a subscribed topic.
// Delivery is best-effort (spec §4.5); handlers should be idempotent
// where the topic's semantics allow it.
type Handler func(ctx context.Context, payload []byte)

// Coordinator is the capability set the Queue Engine, Backend Prober
// and Player Feedback components depend on to act across proxies.
// Ordering guarantees required of every implementation (spec §4.5):
// within a single (player, server) pair, a queue.send publish must be
// observed before its paired queue.send_result, and queue.add/
// queue.leave for the same pair must be observed in publication order.
// No cross-pair ordering is required.
type Coordinator struct {
	// ID is this proxy instance's own id, used for player_info
	// comparisons and as the publisher identity for ordering.
	ID string

	Pub   Publisher
	Peers PeerSet
	Snap  SnapshotStore
}

// Publisher is the fire-and-forget, at-most-once, per-publisher-
// ordered publish/subscribe capability (spec §4.5).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// PeerSet reports the currently observed live proxy set (TTL-based
// liveness, spec §4.5) and resolves where a player is presently hosted.
type PeerSet interface {
	// Peers returns the set of currently live proxy ids.
	Peers(ctx context.Context) (map[string]struct{}, error)
	// Heartbeat renews this proxy's own liveness entry; called on a
	// short fixed interval by the proxy process, independent of the
	// queue ticks.
	Heartbeat(ctx context.Context, selfID string, ttl time.Duration) error
	// PlayerInfo resolves a player's current host proxy/server, or
	// ok=false if unknown cluster-wide.
	PlayerInfo(ctx context.Context, playerID uuid.UUID) (info PlayerInfo, ok bool, err error)
	// SetPlayerInfo publishes this proxy's knowledge of playerID's
	// location (or clears it, if info is the zero value and present is
	// false), corresponding to the player.set_queued_server topic.
	SetPlayerInfo(ctx context.Context, playerID uuid.UUID, info PlayerInfo, present bool) error
}

// SnapshotStore persists per-server queue snapshots (spec §6
// "Persisted state") so a newly elected master can resume a queue
// another proxy was driving. Queue contents are otherwise transient.
type SnapshotStore interface {
	SnapshotPut(ctx context.Context, key string, value []byte) error
	SnapshotGet(ctx context.Context, key string) (value []byte, ok bool, err error)
}
