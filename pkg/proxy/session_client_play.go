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
package proxy

import (
	"sync"

	"github.com/gammazero/deque"
)

// renderJob is one pending outbound line a feedback/control tick wants
// written to a player's action bar or chat box.
type renderJob struct {
	actionBar bool
	text      string
}

// OutboundBuffer is a per-player FIFO of pending render jobs, flushed
// to the player's Transport once per feedback tick. This is the same
// buffer-then-flush shape the teacher's clientPlaySessionHandler used
// for loginPluginMessages (a deque.Deque drained on (de)activation).
// The feedback tick pushes one action-bar line per player and flushes
// it straight away; Flush writes every pending job in order.
type OutboundBuffer struct {
	mu      sync.Mutex
	pending deque.Deque
}

// NewOutboundBuffer returns an empty OutboundBuffer.
func NewOutboundBuffer() *OutboundBuffer {
	return &OutboundBuffer{}
}

// Push enqueues a render job for the next flush.
func (b *OutboundBuffer) Push(actionBar bool, text string) {
	b.mu.Lock()
	b.pending.PushBack(renderJob{actionBar: actionBar, text: text})
	b.mu.Unlock()
}

// Flush drains every pending job in FIFO order, writing each to
// transport. Errors are returned for the first failure only; the
// caller's tick logs and continues with the next player, per the
// tick error policy (spec §7).
func (b *OutboundBuffer) Flush(transport Transport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending.Len() > 0 {
		job := b.pending.PopFront().(renderJob)
		var err error
		if job.actionBar {
			err = transport.WriteActionBar(job.text)
		} else {
			err = transport.WriteChat(job.text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear drops all pending jobs without writing them, used when a
// player disconnects mid-tick.
func (b *OutboundBuffer) Clear() {
	b.mu.Lock()
	b.pending.Clear()
	b.mu.Unlock()
}
