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

// Package schedule is the Clock/Scheduler component: periodic tick
// fan-out at configured intervals, plus a bounded min-heap of one-shot
// delayed tasks (spec §9's replacement for a per-player timer
// population).
package schedule

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ticker runs fn once per interval until ctx is canceled. It recovers
// panics from fn so one bad tick can never take down the process
// (spec §7 tick error policy), mirroring the teacher's readLoop
// recover() pattern.
func Ticker(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			runRecovered(ctx, fn)
		}
	}
}

func runRecovered(ctx context.Context, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorf("recovered from panic in tick: %v", r)
		}
	}()
	fn(ctx)
}

// expiration is one pending one-shot task, ordered by fire time.
type expiration struct {
	at    time.Time
	fn    func()
	index int
	alive bool
}

type expirationHeap []*expiration

func (h expirationHeap) Len() int            { return len(h) }
func (h expirationHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h expirationHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *expirationHeap) Push(x interface{}) {
	e := x.(*expiration)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *expirationHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Cancellation is returned by Delayed.Schedule; calling it prevents the
// task from firing if it has not fired yet (e.g. the disconnect-timeout
// path, canceled if the player reconnects before it fires: spec §5, §8
// property 8).
type Cancellation func()

// Delayed is a single min-heap of pending one-shot expirations, polled
// by a Ticker tick, so the population of timers stays bounded to the
// number of genuinely pending tasks instead of one goroutine/timer per
// player (spec §9 design note).
type Delayed struct {
	mu   sync.Mutex
	heap expirationHeap
}

// NewDelayed returns an empty Delayed scheduler.
func NewDelayed() *Delayed {
	d := &Delayed{}
	heap.Init(&d.heap)
	return d
}

// Schedule queues fn to run after delay and returns a Cancellation.
func (d *Delayed) Schedule(delay time.Duration, fn func()) Cancellation {
	d.mu.Lock()
	e := &expiration{at: time.Now().Add(delay), fn: fn, alive: true}
	heap.Push(&d.heap, e)
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		e.alive = false
		d.mu.Unlock()
	}
}

// Poll runs every expiration whose fire time has passed. Intended to
// be called from a Ticker tick (e.g. the send tick, or a dedicated
// fast interval); dead (canceled) expirations are dropped silently.
func (d *Delayed) Poll(now time.Time) {
	var due []*expiration
	d.mu.Lock()
	for d.heap.Len() > 0 && !d.heap[0].at.After(now) {
		e := heap.Pop(&d.heap).(*expiration)
		if e.alive {
			due = append(due, e)
		}
	}
	d.mu.Unlock()

	for _, e := range due {
		func() {
			defer func() {
				if r := recover(); r != nil {
					zap.S().Errorf("recovered from panic in delayed task: %v", r)
				}
			}()
			e.fn()
		}()
	}
}

// Len returns the number of expirations still held in the heap. A
// canceled expiration is counted until a Poll passes its fire time.
func (d *Delayed) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.heap.Len()
}
