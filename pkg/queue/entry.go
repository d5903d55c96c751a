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

// Package queue holds the per-backend ordered waiting lines and the
// priority-ordered insertion algorithm that orders them.
package queue

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// BypassPriority is the reserved priority value that exempts an entry
// from pause/full/offline gates (the "admin-queued / queue-bypass"
// path, spec §3).
const BypassPriority = -1

// Entry represents one player's pending request for one backend.
//
// Exactly zero or one Entry exists per (PlayerId, Server) pair in a
// single Store at any time (spec §3 invariant); the Store is the only
// owner of an Entry's lifetime (spec §5).
type Entry struct {
	PlayerID    uuid.UUID
	Server      string
	Priority    int
	FullBypass  bool
	QueueBypass bool

	EnqueuedAt time.Time

	// connectionAttempts and waitingForConnection are mutated only by
	// the engine that owns this entry's queue, and read by the
	// feedback tick concurrently — atomics per spec §5's visibility
	// requirement for the waiting_for_connection flag.
	connectionAttempts   atomic.Int32
	waitingForConnection atomic.Bool
}

// NewEntry constructs an Entry ready for insertion. queueBypass and a
// priority of BypassPriority are kept as independent flags but always
// observed together: either implies the bypass send path (spec §3).
func NewEntry(playerID uuid.UUID, server string, priority int, fullBypass, queueBypass bool) *Entry {
	if queueBypass {
		priority = BypassPriority
	}
	return &Entry{
		PlayerID:    playerID,
		Server:      server,
		Priority:    priority,
		FullBypass:  fullBypass,
		QueueBypass: queueBypass || priority == BypassPriority,
		EnqueuedAt:  time.Now(),
	}
}

// Bypass reports whether this entry is exempt from pause/full/offline
// gates (priority == BypassPriority).
func (e *Entry) Bypass() bool { return e.Priority == BypassPriority }

// ConnectionAttempts returns the number of reported send failures.
func (e *Entry) ConnectionAttempts() int { return int(e.connectionAttempts.Load()) }

// WaitingForConnection reports whether a send is currently in flight
// for this entry.
func (e *Entry) WaitingForConnection() bool { return e.waitingForConnection.Load() }

// MarkSending transitions waiting_for_connection false -> true. It is
// the engine's exclusive responsibility to call this, on the head
// entry only (spec §4.3, §8 property 2).
func (e *Entry) MarkSending() { e.waitingForConnection.Store(true) }

// RecordFailure increments the attempt counter and clears
// waiting_for_connection, returning the new attempt count.
func (e *Entry) RecordFailure() int {
	e.waitingForConnection.Store(false)
	return int(e.connectionAttempts.Inc())
}
