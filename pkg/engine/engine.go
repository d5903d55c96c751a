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

// Package engine is the Queue Engine component (spec §4.3): the
// per-tick send decision, retry counter, pause/full/offline gates, and
// dequeue on success/exhaustion. It never re-orders entries and never
// sends a non-head entry (spec §8 property 2).
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go.minekube.com/queue/pkg/cluster"
	"go.minekube.com/queue/pkg/metrics"
	"go.minekube.com/queue/pkg/queue"
)

// Sender performs the actual connection attempt for playerID onto
// server. Locally this invokes the connection request directly; in
// clustered mode it publishes a queue.send request to the player's
// hosting proxy and awaits the paired queue.send_result (spec §4.3,
// §4.5). Implementations report the outcome via the returned error.
type Sender interface {
	Send(ctx context.Context, playerID uuid.UUID, server string) error
}

// OfflineChecker reports whether playerID is known to be offline
// across the whole cluster (spec §4.3 step 5).
type OfflineChecker interface {
	IsOfflineClusterWide(ctx context.Context, playerID uuid.UUID) bool
}

// PlacementTracker records which backend a player landed on after a
// successful send, so later queue decisions (e.g. AddAll's server
// listing) see the new location immediately. Implemented by
// proxy.Registry.
type PlacementTracker interface {
	SetCurrentServer(playerID uuid.UUID, server string)
}

// Notifier is the chat-message sink the engine reports outcomes to
// (spec §4.3, §7). Messages are user-visible chat lines, not the
// action-bar feedback loop (that's the Player Feedback component).
type Notifier interface {
	NotifySendSuccess(playerID uuid.UUID, server string)
	NotifyMaxRetriesReached(playerID uuid.UUID, server string, attempts int)
}

// Store is the subset of queue.Store the engine needs.
type Store interface {
	Status(server string) *queue.Status
	Dequeue(playerID uuid.UUID, server string) queue.DequeueResult
}

// Engine runs the send_delay tick for every queue the local proxy
// masters.
type Engine struct {
	Store          Store
	Sender         Sender
	Offline        OfflineChecker
	Notify         Notifier
	Placement      PlacementTracker
	Coord          *cluster.Coordinator
	MaxSendRetries int
}

// Tick runs the send decision for a single server's queue (spec §4.3).
// Callers fan this out over every locally-mastered queue, e.g. one
// per server name per tick (see schedule.Ticker + errgroup in the
// cmd wiring).
func (e *Engine) Tick(ctx context.Context, server string) {
	status := e.Store.Status(server)

	head := status.PeekHead()
	if head == nil {
		return // 1. empty queue
	}

	if status.Paused() || status.ServerStatus() != queue.Online {
		return // 2. pause/offline gate; bypass path handled by the prober, not here
	}

	if head.WaitingForConnection() {
		return // 3. head already in flight; do not skip, do not re-send
	}

	if status.Full() && !head.FullBypass {
		return // 4. full gate
	}

	if e.Offline != nil && e.Offline.IsOfflineClusterWide(ctx, head.PlayerID) {
		e.Store.Dequeue(head.PlayerID, server) // 5. silently drop
		return
	}

	e.send(ctx, server, head)
}

// DrainBypass implements prober.Drainer: it sends every given entry
// immediately, regardless of pause/full/offline, since these are
// BypassPriority entries the prober has already removed from the
// queue (spec §4.2).
func (e *Engine) DrainBypass(ctx context.Context, server string, entries []*queue.Entry) {
	for _, entry := range entries {
		e.send(ctx, server, entry)
	}
}

func (e *Engine) send(ctx context.Context, server string, entry *queue.Entry) {
	entry.MarkSending()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.S().Errorf("recovered from panic in send for %s/%s: %v", entry.PlayerID, server, r)
			}
		}()
		err := e.Sender.Send(ctx, entry.PlayerID, server)
		e.onSendResult(ctx, server, entry, err)
	}()
}

func (e *Engine) onSendResult(ctx context.Context, server string, entry *queue.Entry, sendErr error) {
	if sendErr == nil {
		e.Store.Dequeue(entry.PlayerID, server)
		metrics.SendsTotal.WithLabelValues(server).Inc()
		if e.Placement != nil {
			e.Placement.SetCurrentServer(entry.PlayerID, server)
		}
		if e.Notify != nil {
			e.Notify.NotifySendSuccess(entry.PlayerID, server)
		}
		if e.Coord != nil {
			_ = e.Coord.Pub.Publish(ctx, cluster.TopicQueueLeave,
				[]byte(fmt.Sprintf(`{"player":%q,"server":%q,"user_initiated":false}`, entry.PlayerID.String(), server)))
		}
		return
	}

	attempts := entry.RecordFailure()
	if attempts >= e.MaxSendRetries {
		e.Store.Dequeue(entry.PlayerID, server)
		metrics.SendTimeoutsTotal.WithLabelValues(server).Inc()
		if e.Notify != nil {
			e.Notify.NotifyMaxRetriesReached(entry.PlayerID, server, attempts)
		}
		return
	}
	// Leave in place; the next send tick retries (entry stays head,
	// waiting_for_connection is now false again).
	metrics.SendRetriesTotal.WithLabelValues(server).Inc()
}
