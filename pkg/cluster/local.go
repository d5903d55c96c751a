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

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewSingleNode returns a Coordinator that short-circuits every
// capability to direct in-process calls: one proxy is always live
// (itself), one proxy is always master-eligible-and-live, and
// publish/subscribe is an in-memory fan-out. This is the "trivial
// single-node coordinator" spec §9 calls for so the engine never needs
// a special case for unclustered deployments.
func NewSingleNode(selfID string) *Coordinator {
	ln := &localNode{selfID: selfID, snapshots: map[string][]byte{}, players: map[uuid.UUID]PlayerInfo{}}
	return &Coordinator{ID: selfID, Pub: ln, Peers: ln, Snap: ln}
}

type localNode struct {
	selfID string

	mu       sync.RWMutex
	handlers map[string][]Handler

	snapMu    sync.RWMutex
	snapshots map[string][]byte

	playerMu sync.RWMutex
	players  map[uuid.UUID]PlayerInfo
}

func (n *localNode) Publish(ctx context.Context, topic string, payload []byte) error {
	n.mu.RLock()
	handlers := append([]Handler(nil), n.handlers[topic]...)
	n.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, payload)
	}
	return nil
}

func (n *localNode) Subscribe(_ context.Context, topic string, handler Handler) error {
	n.mu.Lock()
	if n.handlers == nil {
		n.handlers = map[string][]Handler{}
	}
	n.handlers[topic] = append(n.handlers[topic], handler)
	n.mu.Unlock()
	return nil
}

func (n *localNode) Peers(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{n.selfID: {}}, nil
}

func (n *localNode) Heartbeat(context.Context, string, time.Duration) error { return nil }

func (n *localNode) PlayerInfo(_ context.Context, playerID uuid.UUID) (PlayerInfo, bool, error) {
	n.playerMu.RLock()
	defer n.playerMu.RUnlock()
	info, ok := n.players[playerID]
	return info, ok, nil
}

func (n *localNode) SetPlayerInfo(_ context.Context, playerID uuid.UUID, info PlayerInfo, present bool) error {
	n.playerMu.Lock()
	defer n.playerMu.Unlock()
	if present {
		n.players[playerID] = info
	} else {
		delete(n.players, playerID)
	}
	return nil
}

func (n *localNode) SnapshotPut(_ context.Context, key string, value []byte) error {
	n.snapMu.Lock()
	n.snapshots[key] = value
	n.snapMu.Unlock()
	return nil
}

func (n *localNode) SnapshotGet(_ context.Context, key string) ([]byte, bool, error) {
	n.snapMu.RLock()
	defer n.snapMu.RUnlock()
	v, ok := n.snapshots[key]
	return v, ok, nil
}
