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
package feedback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"go.minekube.com/queue/pkg/cluster"
	"go.minekube.com/queue/pkg/proxy"
	"go.minekube.com/queue/pkg/queue"
)

// Templates holds the six message templates rendered in the order
// spec §4.6 checks them. Each receives (position, total, server, eta)
// as applicable via fmt-style verbs; unused arguments are ignored by
// templates that don't reference them.
type Templates struct {
	Bypass     string // no args
	Full       string // position, total, server, eta
	Connecting string // server
	Paused     string // no args
	Online     string // position, total, server, eta
	Offline    string // position, total, server
}

// DefaultTemplates mirrors the kind of plain, terse copy the teacher's
// own shutdown message uses (cmd/gate/gate.go).
var DefaultTemplates = Templates{
	Bypass:     "Joining the queue immediately...",
	Full:       "Server %[3]s is full. Position: %[1]d/%[2]d (ETA: %[4]s)",
	Connecting: "Connecting to %s...",
	Paused:     "The queue is currently paused.",
	Online:     "Position: %[1]d/%[2]d in queue for %[3]s (ETA: %[4]s)",
	Offline:    "Waiting for %[3]s to come online. Position: %[1]d/%[2]d",
}

// Resolver resolves a queued player's local Player sink. Players not
// resolvable locally are assumed hosted on another proxy and are
// addressed via the coordinator's actionbar topic instead.
type Resolver interface {
	Player(playerID uuid.UUID) (proxy.Player, bool)
}

// Store is the subset of queue.Store the feedback tick needs.
type Store interface {
	Servers() []string
	Snapshot(server string) []*queue.Entry
	Status(server string) *queue.Status
}

// Feedback runs the message_delay tick.
type Feedback struct {
	Store     Store
	Resolver  Resolver
	Coord     *cluster.Coordinator
	SendDelay time.Duration
	Templates Templates

	printer *message.Printer

	mu      sync.Mutex
	buffers map[uuid.UUID]*proxy.OutboundBuffer
}

// New returns a ready Feedback renderer.
func New(store Store, resolver Resolver, coord *cluster.Coordinator, sendDelay time.Duration, tmpl Templates) *Feedback {
	return &Feedback{
		Store:     store,
		Resolver:  resolver,
		Coord:     coord,
		SendDelay: sendDelay,
		Templates: tmpl,
		printer:   message.NewPrinter(language.English),
		buffers:   make(map[uuid.UUID]*proxy.OutboundBuffer),
	}
}

// Tick renders and flushes one action-bar line per queued entry across
// every known queue.
func (f *Feedback) Tick(ctx context.Context) {
	for _, server := range f.Store.Servers() {
		f.tickServer(ctx, server)
	}
}

func (f *Feedback) tickServer(ctx context.Context, server string) {
	status := f.Store.Status(server)
	entries := f.Store.Snapshot(server)
	total := len(entries)

	for i, e := range entries {
		position := i + 1
		text := f.render(status, e, position, total, server)
		f.dispatch(ctx, e.PlayerID, text)
	}
}

// render chooses the template per spec §4.6's checked-in-order states.
func (f *Feedback) render(status *queue.Status, e *queue.Entry, position, total int, server string) string {
	t := f.Templates
	eta := FormatDuration(ETA(f.SendDelay, position, e.ConnectionAttempts()))

	switch {
	case e.QueueBypass:
		return t.Bypass
	case status.Full() && !e.FullBypass:
		return f.printer.Sprintf(t.Full, position, total, server, eta)
	case e.WaitingForConnection():
		return fmt.Sprintf(t.Connecting, server)
	case status.Paused():
		return t.Paused
	case status.ServerStatus() == queue.Online:
		return f.printer.Sprintf(t.Online, position, total, server, eta)
	default:
		return f.printer.Sprintf(t.Offline, position, total, server)
	}
}

func (f *Feedback) dispatch(ctx context.Context, playerID uuid.UUID, text string) {
	player, ok := f.Resolver.Player(playerID)
	if !ok {
		// Hosted on another proxy: address it via the coordinator.
		if f.Coord != nil {
			payload := fmt.Sprintf(`{"player":%q,"text":%q}`, playerID.String(), text)
			if err := f.Coord.Pub.Publish(ctx, cluster.TopicActionBar, []byte(payload)); err != nil {
				zap.L().Debug("publishing actionbar failed", zap.Error(err))
			}
		}
		return
	}

	buf := f.bufferFor(playerID)
	buf.Push(true, text)
	transport := playerTransport{p: player}
	if err := buf.Flush(transport); err != nil {
		zap.L().Debug("flushing action-bar buffer failed", zap.String("player", playerID.String()), zap.Error(err))
	}
}

func (f *Feedback) bufferFor(playerID uuid.UUID) *proxy.OutboundBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buffers[playerID]
	if !ok {
		b = proxy.NewOutboundBuffer()
		f.buffers[playerID] = b
	}
	return b
}

// Forget drops a player's buffer (called on disconnect/leave cleanup).
func (f *Feedback) Forget(playerID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.buffers, playerID)
}

// playerTransport adapts a proxy.Player to proxy.Transport so
// OutboundBuffer can flush onto it.
type playerTransport struct{ p proxy.Player }

func (t playerTransport) WriteChat(msg string) error {
	return t.p.SendMessage(&component.Text{Content: msg})
}

func (t playerTransport) WriteActionBar(msg string) error {
	return t.p.SendActionBar(&component.Text{Content: msg})
}

func (t playerTransport) Disconnect(reason string) {
	t.p.Disconnect(&component.Text{Content: reason})
}

func (t playerTransport) Closed() bool { return !t.p.Active() }
