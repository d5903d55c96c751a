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

// Package prober is the Backend Prober component (spec §4.2): pings
// each backend, classifies OFFLINE/WAITING/ONLINE, and samples
// capacity fullness.
package prober

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go.minekube.com/queue/pkg/cluster"
	"go.minekube.com/queue/pkg/metrics"
	"go.minekube.com/queue/pkg/queue"
)

// Pinger is the external collaborator that actually speaks the
// Minecraft status-ping protocol to a backend; the wire codec is out
// of scope for this repository (spec §1).
type Pinger interface {
	// Ping probes server with the given timeout. ok is false on any
	// failure (timeout, connection refused, protocol error).
	Ping(ctx context.Context, server string, timeout time.Duration) (ok bool)
}

// PlayerCounter reports how many players a backend is currently
// hosting. In cluster mode implementations aggregate across proxies
// (e.g. by asking the coordinator); otherwise they count local
// connections only (spec §4.2).
type PlayerCounter interface {
	PlayerCount(ctx context.Context, server string) (int, error)
}

// Drainer is the Queue Engine capability the prober invokes to send
// bypass entries immediately, both on a transition out of ONLINE and on
// every tick that observes ONLINE (see probeOne). Implemented by
// engine.Engine.
type Drainer interface {
	DrainBypass(ctx context.Context, server string, entries []*queue.Entry)
}

// Prober runs the backend_ping_interval tick.
type Prober struct {
	Store       Store
	Pinger      Pinger
	Counter     PlayerCounter
	Drainer     Drainer
	Coord       *cluster.Coordinator
	Caps        map[string]int
	PingTimeout time.Duration
	QueueDelay  time.Duration
}

// Store is the subset of queue.Store the prober needs: per-server
// status lookup and bypass-entry draining.
type Store interface {
	Status(server string) *queue.Status
	Servers() []string
	BypassEntries(server string) []*queue.Entry
}

// Tick probes every known backend once.
func (p *Prober) Tick(ctx context.Context) {
	for _, server := range p.Store.Servers() {
		p.probeOne(ctx, server)
	}
}

func (p *Prober) probeOne(ctx context.Context, server string) {
	status := p.Store.Status(server)
	ok := p.Pinger.Ping(ctx, server, p.PingTimeout)

	prev, next := status.ApplyProbe(ok, p.QueueDelay)

	onlineGauge := 0.0
	if next == queue.Online {
		onlineGauge = 1
	}
	metrics.ServerOnline.WithLabelValues(server).Set(onlineGauge)
	metrics.QueueLength.WithLabelValues(server).Set(float64(status.Len()))
	pausedGauge := 0.0
	if status.Paused() {
		pausedGauge = 1
	}
	metrics.QueuePaused.WithLabelValues(server).Set(pausedGauge)

	if next == queue.Online {
		count, err := p.Counter.PlayerCount(ctx, server)
		if err != nil {
			zap.L().Warn("player count sample failed", zap.String("server", server), zap.Error(err))
		} else if cap, ok := p.Caps[server]; ok {
			status.ApplyCapacity(count >= cap)
		} else {
			// No configured threshold for this server: treat it as
			// uncapped rather than defaulting to a zero threshold, which
			// would mark it permanently full the instant it comes online.
			status.ApplyCapacity(false)
		}
	}

	// Bypass drain: any transition FROM Online to something else
	// drains bypass entries immediately, before the engine observes
	// the degraded status (spec §4.2, §8 property 4).
	if prev == queue.Online && next != queue.Online {
		p.drain(ctx, server)
	}
	// Also drain on every tick that observes ONLINE (spec §9 open
	// question resolution): a recovery transition into ONLINE, or
	// simply remaining ONLINE, both drain any bypass entries still
	// waiting (e.g. enqueued while paused).
	if next == queue.Online {
		p.drain(ctx, server)
	}
}

func (p *Prober) drain(ctx context.Context, server string) {
	bypassed := p.Store.BypassEntries(server)
	if len(bypassed) == 0 {
		return
	}
	if p.Drainer != nil {
		p.Drainer.DrainBypass(ctx, server, bypassed)
	}
}
