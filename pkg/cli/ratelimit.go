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
package cli

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// PlayerLimiter throttles how often a single player can issue
// queue/leavequeue commands, independent of the send/message ticks, to
// stop a reconnect-spam loop from flooding the Queue Store.
type PlayerLimiter struct {
	every rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

// NewPlayerLimiter allows burst immediate commands, refilling at rate
// `every` (tokens per second; rate.Every converts an interval).
func NewPlayerLimiter(every rate.Limit, burst int) *PlayerLimiter {
	return &PlayerLimiter{
		every:    every,
		burst:    burst,
		limiters: make(map[uuid.UUID]*rate.Limiter),
	}
}

// Allow reports whether playerID may issue another command right now.
func (l *PlayerLimiter) Allow(playerID uuid.UUID) bool {
	l.mu.Lock()
	lim, ok := l.limiters[playerID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[playerID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Forget drops playerID's limiter state, called on disconnect so the
// map doesn't grow unbounded across a proxy's lifetime.
func (l *PlayerLimiter) Forget(playerID uuid.UUID) {
	l.mu.Lock()
	delete(l.limiters, playerID)
	l.mu.Unlock()
}
