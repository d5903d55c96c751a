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
package queue

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotPresent is returned by callers translating a NotPresent
// DequeueResult into an error (e.g. pkg/cli's `remove`).
var ErrNotPresent = errors.New("player not queued")

// EnqueueResult is the outcome of Store.Enqueue (spec §4.1).
type EnqueueResult int

const (
	Placed EnqueueResult = iota
	AlreadyPresent
	RejectedPaused
	RejectedNoQueue
)

// DequeueResult is the outcome of Store.Dequeue.
type DequeueResult int

const (
	Removed DequeueResult = iota
	NotPresent
)

// Store owns every backend's Status by value-lifetime: it is the only
// component that creates or destroys Entries (spec §3, §5). A Status is
// created on first reference to its server name and lives for the
// Store's lifetime (spec §3).
type Store struct {
	allowMultiQueue         bool
	allowPausedQueueJoining bool
	noQueueServers          map[string]struct{}

	mu       sync.RWMutex
	statuses map[string]*Status
}

// NewStore returns an empty Store. allowMultiQueue and
// allowPausedQueueJoining mirror the identically named config options
// (spec §6).
func NewStore(allowMultiQueue, allowPausedQueueJoining bool) *Store {
	return &Store{
		allowMultiQueue:         allowMultiQueue,
		allowPausedQueueJoining: allowPausedQueueJoining,
		statuses:                make(map[string]*Status),
	}
}

// SetNoQueueServers configures the backend names that bypass the queue
// entirely (spec §6 no_queue_servers): Enqueue rejects them outright so
// the caller can connect the player directly instead of admitting them
// to a Status.
func (st *Store) SetNoQueueServers(servers []string) {
	set := make(map[string]struct{}, len(servers))
	for _, s := range servers {
		set[s] = struct{}{}
	}
	st.mu.Lock()
	st.noQueueServers = set
	st.mu.Unlock()
}

// NoQueue reports whether server is configured to bypass the queue
// entirely.
func (st *Store) NoQueue(server string) bool {
	st.mu.RLock()
	_, ok := st.noQueueServers[server]
	st.mu.RUnlock()
	return ok
}

// Status returns the Status for server, creating it (OFFLINE, empty) if
// this is the first reference.
func (st *Store) Status(server string) *Status {
	st.mu.RLock()
	s, ok := st.statuses[server]
	st.mu.RUnlock()
	if ok {
		return s
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.statuses[server]; ok {
		return s
	}
	s = NewStatus(server)
	st.statuses[server] = s
	return s
}

// Servers returns every backend name the Store has a Status for.
func (st *Store) Servers() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, 0, len(st.statuses))
	for name := range st.statuses {
		out = append(out, name)
	}
	return out
}

// Enqueue inserts a new Entry for playerID on server, honoring the
// priority insertion algorithm (spec §4.1) and the allow-multi-queue
// invariant (spec §3): unless allowMultiQueue, joining a new queue
// atomically removes the player from every other queue first.
//
// movedFrom reports the servers the player was atomically removed from
// (only non-empty when allowMultiQueue is false and the player was
// queued elsewhere), so the caller can emit the "moved" notice.
func (st *Store) Enqueue(playerID uuid.UUID, server string, priority int, fullBypass, queueBypass bool) (result EnqueueResult, movedFrom []string) {
	if st.NoQueue(server) {
		return RejectedNoQueue, nil
	}

	s := st.Status(server)
	s.mu.Lock()

	if !st.allowPausedQueueJoining && s.paused {
		s.mu.Unlock()
		return RejectedPaused, nil
	}
	for _, e := range s.entries {
		if e.PlayerID == playerID {
			s.mu.Unlock()
			return AlreadyPresent, nil
		}
	}

	entry := NewEntry(playerID, server, priority, fullBypass, queueBypass)
	s.entries = insertByPriority(s.entries, entry)
	s.mu.Unlock()

	// Cross-queue cleanup only runs once admission to server is certain
	// (spec §7: a Paused/AlreadyPresent rejection must leave every
	// queue's state unchanged).
	if !st.allowMultiQueue {
		movedFrom = st.leaveAllExcept(playerID, server)
	}
	return Placed, movedFrom
}

// insertByPriority implements spec §4.1's insertion rule: walk
// head-to-tail, insert immediately before the first entry whose
// priority is strictly less than the new entry's. Within a priority
// tier this preserves first-come-first-served; a late arrival in a
// higher tier overtakes lower-tier waiters but never overtakes an
// equal-tier entry already present. O(n).
func insertByPriority(entries []*Entry, e *Entry) []*Entry {
	idx := len(entries)
	for i, existing := range entries {
		if existing.Priority < e.Priority {
			idx = i
			break
		}
	}
	entries = append(entries, nil)
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = e
	return entries
}

// Dequeue removes playerID's entry from server, if present.
func (st *Store) Dequeue(playerID uuid.UUID, server string) DequeueResult {
	s := st.Status(server)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.PlayerID == playerID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return Removed
		}
	}
	return NotPresent
}

// leaveAllExcept removes playerID from every queue other than except,
// returning the server names it was removed from.
func (st *Store) leaveAllExcept(playerID uuid.UUID, except string) []string {
	st.mu.RLock()
	statuses := make([]*Status, 0, len(st.statuses))
	for name, s := range st.statuses {
		if name != except {
			statuses = append(statuses, s)
		}
	}
	st.mu.RUnlock()

	var removedFrom []string
	for _, s := range statuses {
		s.mu.Lock()
		for i, e := range s.entries {
			if e.PlayerID == playerID {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				removedFrom = append(removedFrom, s.Name)
				break
			}
		}
		s.mu.Unlock()
	}
	return removedFrom
}

// LeaveAll removes playerID from every queue, returning the count
// removed (spec §4.1 leave_all, used by /leavequeue with no args and
// disconnect cleanup).
func (st *Store) LeaveAll(playerID uuid.UUID) int {
	removed := st.leaveAllExcept(playerID, "")
	return len(removed)
}

// Position returns playerID's 1-based position in server's queue, or
// ok=false if not present.
func (st *Store) Position(playerID uuid.UUID, server string) (pos int, ok bool) {
	s := st.Status(server)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.PlayerID == playerID {
			return i + 1, true
		}
	}
	return 0, false
}

// PeekHead returns the head entry of server's queue, or nil if empty.
func (s *Status) PeekHead() *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[0]
}

// Snapshot returns a copy of server's queue, head first.
func (st *Store) Snapshot(server string) []*Entry {
	s := st.Status(server)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops every entry from server's queue, returning the removed
// entries (used by Control Surface removeall and shutdown clearQueue).
func (st *Store) Clear(server string) []*Entry {
	s := st.Status(server)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.entries
	s.entries = nil
	return out
}

// BypassEntries returns, and removes, every BypassPriority entry
// currently in server's queue. Used by the Backend Prober's drain on
// an ONLINE transition (spec §4.2, §8 property 4).
func (st *Store) BypassEntries(server string) []*Entry {
	s := st.Status(server)
	s.mu.Lock()
	defer s.mu.Unlock()
	var bypassed []*Entry
	remaining := s.entries[:0:0]
	for _, e := range s.entries {
		if e.Bypass() {
			bypassed = append(bypassed, e)
		} else {
			remaining = append(remaining, e)
		}
	}
	s.entries = remaining
	return bypassed
}

// PlayerView aggregates every entry belonging to playerID across all
// queues (spec §3 PlayerQueueView), derived on demand rather than
// maintained as a denormalized index, per spec §9's cyclic-ownership
// recommendation.
func (st *Store) PlayerView(playerID uuid.UUID) []*Entry {
	st.mu.RLock()
	statuses := make([]*Status, 0, len(st.statuses))
	for _, s := range st.statuses {
		statuses = append(statuses, s)
	}
	st.mu.RUnlock()

	var out []*Entry
	for _, s := range statuses {
		s.mu.Lock()
		for _, e := range s.entries {
			if e.PlayerID == playerID {
				out = append(out, e)
			}
		}
		s.mu.Unlock()
	}
	return out
}
