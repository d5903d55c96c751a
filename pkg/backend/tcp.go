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

// Package backend is the concrete, minimal implementation of the
// prober.Pinger and engine.Connector contracts: a plain TCP dial. The
// real Minecraft status-ping and login/transfer handshake (reading a
// server list ping response, forwarding a player's session) are the
// wire-protocol codec this repository treats as out of scope (spec
// §1); addresses here are resolved through a static Resolver so the
// rest of the subsystem never has to know how a server name maps to a
// dial address.
package backend

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Resolver maps a configured backend name to its dial address.
type Resolver interface {
	Addr(server string) (addr string, ok bool)
}

// StaticResolver is a fixed server-name -> address map, mirroring the
// teacher's static `servers` config block.
type StaticResolver map[string]string

func (m StaticResolver) Addr(server string) (string, bool) {
	addr, ok := m[server]
	return addr, ok
}

// TCPPinger implements prober.Pinger with a bare TCP dial: reachable
// within timeout counts as alive. It does not speak the status-ping
// protocol, so it cannot distinguish "server up, game not ready" from
// "server fully ready" — callers accepting that coarser signal is the
// documented tradeoff of keeping the protocol codec out of scope.
type TCPPinger struct {
	Resolver Resolver
}

func (p *TCPPinger) Ping(ctx context.Context, server string, timeout time.Duration) bool {
	addr, ok := p.Resolver.Addr(server)
	if !ok {
		return false
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// TCPConnector implements engine.Connector and cluster.Connector with
// the same bare-dial stand-in: a successful dial is treated as a
// successful handoff. Actually forwarding the player's session onto
// the new connection is protocol-level work out of scope here.
type TCPConnector struct {
	Resolver Resolver
	Timeout  time.Duration
}

func (c *TCPConnector) Connect(ctx context.Context, _ uuid.UUID, server string) error {
	addr, ok := c.Resolver.Addr(server)
	if !ok {
		return fmt.Errorf("unknown server %q", server)
	}
	d := net.Dialer{Timeout: c.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", server, err)
	}
	return conn.Close()
}
