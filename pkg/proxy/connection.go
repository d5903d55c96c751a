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

// Package proxy holds the narrow player/connection sinks the queue
// subsystem writes to and reads from. The Minecraft wire protocol codec,
// packet definitions, and full connection lifecycle are out of scope for
// this repository (see spec §1); this package only keeps the surface the
// queue engine actually depends on.
package proxy

import (
	"errors"
	"net"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Transport is the narrow contract a real Minecraft client connection
// exposes to the rest of this repository: write an action-bar/chat
// payload, disconnect with a reason, and report liveness. The actual
// packet encoding/decoding lives outside this repository.
type Transport interface {
	// WriteChat sends a chat message payload (already rendered to the
	// player's preferred text format) to the client.
	WriteChat(message string) error
	// WriteActionBar sends an action-bar payload to the client.
	WriteActionBar(message string) error
	// Disconnect closes the connection after writing reason.
	Disconnect(reason string)
	// Closed reports whether the underlying connection has gone away.
	Closed() bool
}

// ErrClosedConn indicates a connection is already closed.
var ErrClosedConn = errors.New("connection is closed")

// baseConn is a minimal stand-in for the teacher's minecraftConn: it
// owns the network socket and liveness state, but none of the codec
// machinery, since packet encoding is an external collaborator here.
type baseConn struct {
	c net.Conn

	closeOnce sync.Once
	closed    atomic.Bool
}

func newBaseConn(c net.Conn) *baseConn {
	return &baseConn{c: c}
}

func (c *baseConn) Closed() bool {
	return c.closed.Load()
}

func (c *baseConn) close() error {
	alreadyClosed := true
	var err error
	c.closeOnce.Do(func() {
		alreadyClosed = false
		c.closed.Store(true)
		if c.c != nil {
			err = c.c.Close()
		}
	})
	if alreadyClosed {
		return ErrClosedConn
	}
	return err
}

func (c *baseConn) closeOnErr(err error) {
	if err == nil {
		return
	}
	_ = c.close()
	if errors.Is(err, ErrClosedConn) {
		return
	}
	zap.L().Debug("error writing to connection, closing", zap.Error(err))
}
