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
package control

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"go.minekube.com/queue/pkg/queue"
	"go.minekube.com/queue/pkg/schedule"
)

// DisconnectTimeouts tracks the one-shot "drop this player's queue
// entries" task per disconnected player (spec §3, §5, §8 property 8):
// scheduled on disconnect, canceled if the player reconnects before it
// fires. Backed by a single schedule.Delayed min-heap rather than one
// timer per player (spec §9 design note).
type DisconnectTimeouts struct {
	Store     *queue.Store
	Scheduler *schedule.Delayed

	mu      sync.Mutex
	pending map[uuid.UUID]schedule.Cancellation
}

// NewDisconnectTimeouts returns a ready tracker.
func NewDisconnectTimeouts(store *queue.Store, scheduler *schedule.Delayed) *DisconnectTimeouts {
	return &DisconnectTimeouts{
		Store:     store,
		Scheduler: scheduler,
		pending:   make(map[uuid.UUID]schedule.Cancellation),
	}
}

// OnDisconnect schedules playerID's entries to be dropped after
// timeout unless Reconnected is called first.
func (d *DisconnectTimeouts) OnDisconnect(playerID uuid.UUID, timeout time.Duration) {
	cancel := d.Scheduler.Schedule(timeout, func() {
		d.mu.Lock()
		delete(d.pending, playerID)
		d.mu.Unlock()
		d.Store.LeaveAll(playerID)
	})

	d.mu.Lock()
	d.pending[playerID] = cancel
	d.mu.Unlock()
}

// Reconnected cancels any pending drop for playerID, preserving its
// queue entries (spec §8 property 8).
func (d *DisconnectTimeouts) Reconnected(playerID uuid.UUID) {
	d.mu.Lock()
	cancel, ok := d.pending[playerID]
	delete(d.pending, playerID)
	d.mu.Unlock()
	if ok {
		cancel()
	}
}
