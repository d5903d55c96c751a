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
	"sync"
	"time"
)

// ServerStatus is the Backend Prober's classification of a backend
// (spec §4.2).
type ServerStatus int

const (
	Offline ServerStatus = iota
	Waiting
	Online
)

func (s ServerStatus) String() string {
	switch s {
	case Online:
		return "ONLINE"
	case Waiting:
		return "WAITING"
	default:
		return "OFFLINE"
	}
}

// State is the high-level QueueStatus state machine (spec §4.8), derived
// on read from the underlying fields rather than stored redundantly.
type State int

const (
	Idle State = iota
	Active
	Sending
	Paused
	StatusOffline
)

// Status is one backend's full ordered queue. It is the only owner of
// its Entries' lifetime (spec §5); every mutation happens under mu, so
// enqueue/dequeue/send-decision are serialized per spec §5's
// "protected region" requirement.
type Status struct {
	Name string

	mu      sync.Mutex
	entries []*Entry

	serverStatus             ServerStatus
	full                     bool
	paused                   bool
	lastOnlineTransitionTime time.Time
}

// NewStatus returns an empty, OFFLINE, unpaused queue for server.
func NewStatus(server string) *Status {
	return &Status{Name: server, serverStatus: Offline}
}

// ServerStatus returns the current backend classification. Only the
// prober writes this; everyone else only reads (spec §5).
func (s *Status) ServerStatus() ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverStatus
}

// Full reports whether the backend is at capacity.
func (s *Status) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full
}

// Paused reports whether sends are admin-halted.
func (s *Status) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetPaused sets the paused flag (Control Surface pause/unpause).
func (s *Status) SetPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
}

// LastOnlineTransitionTime returns when the backend last moved into
// WAITING, used to enforce the queue_delay grace period.
func (s *Status) LastOnlineTransitionTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOnlineTransitionTime
}

// ApplyProbe applies one Backend Prober classification. It returns
// the previous and new ServerStatus so the caller (the prober) can
// detect transitions and run the bypass drain (spec §4.2).
func (s *Status) ApplyProbe(success bool, queueDelay time.Duration) (prev, next ServerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.serverStatus
	now := time.Now()
	switch {
	case !success:
		s.serverStatus = Offline
	case s.serverStatus == Offline:
		s.serverStatus = Waiting
		s.lastOnlineTransitionTime = now
	case s.serverStatus == Waiting && now.Sub(s.lastOnlineTransitionTime) >= queueDelay:
		s.serverStatus = Online
	case s.serverStatus == Waiting:
		// still within grace period
	case s.serverStatus == Online:
		// stays ONLINE
	}
	next = s.serverStatus
	return
}

// ApplyCapacity records the prober's capacity sample.
func (s *Status) ApplyCapacity(full bool) {
	s.mu.Lock()
	s.full = full
	s.mu.Unlock()
}

// Len returns the number of queued entries.
func (s *Status) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// State derives the high-level state machine value from current
// fields (spec §4.8). It takes a snapshot under the lock; callers
// needing a stable joint view of multiple fields should prefer this
// over combining several individual getters.
func (s *Status) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.paused:
		return Paused
	case s.serverStatus != Online:
		return StatusOffline
	case len(s.entries) == 0:
		return Idle
	case s.entries[0].WaitingForConnection():
		return Sending
	default:
		return Active
	}
}
