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
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Player is a connected Minecraft player, trimmed to the surface the
// queue subsystem needs: identity, current backend, and the two sinks
// feedback/control messages are rendered onto.
type Player interface {
	Id() uuid.UUID
	Username() string
	Active() bool // whether the connection remains active

	// CurrentServer is the backend name the player is presently
	// connected to, or "" if none yet.
	CurrentServer() string
	setCurrentServer(name string)

	SendMessage(msg component.Component) error
	SendActionBar(msg component.Component) error
	Disconnect(reason component.Component)
}

var (
	// ErrNoTransport is returned when a player has no live transport to
	// write to (e.g. already disconnected).
	ErrNoTransport = errors.New("player has no connection transport")
)

// connectedPlayer is the trimmed, adapted stand-in for the teacher's
// connectedPlayer: identity plus the narrow sink surface, no codec or
// session-handler machinery (that lives outside this repository).
type connectedPlayer struct {
	id       uuid.UUID
	username string
	online   atomic.Bool

	transport Transport

	mu            sync.RWMutex
	currentServer string
}

var _ Player = (*connectedPlayer)(nil)

// NewPlayer returns a Player backed by the given Transport sink.
func NewPlayer(id uuid.UUID, username string, transport Transport) Player {
	p := &connectedPlayer{id: id, username: username, transport: transport}
	p.online.Store(true)
	return p
}

func (p *connectedPlayer) Id() uuid.UUID    { return p.id }
func (p *connectedPlayer) Username() string { return p.username }
func (p *connectedPlayer) Active() bool     { return p.online.Load() && !p.transport.Closed() }

func (p *connectedPlayer) CurrentServer() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentServer
}

func (p *connectedPlayer) setCurrentServer(name string) {
	p.mu.Lock()
	p.currentServer = name
	p.mu.Unlock()
}

func (p *connectedPlayer) SendMessage(msg component.Component) error {
	if p.transport == nil {
		return ErrNoTransport
	}
	return p.transport.WriteChat(renderPlain(msg))
}

func (p *connectedPlayer) SendActionBar(msg component.Component) error {
	if p.transport == nil {
		return ErrNoTransport
	}
	return p.transport.WriteActionBar(renderPlain(msg))
}

func (p *connectedPlayer) Disconnect(reason component.Component) {
	if !p.Active() {
		return
	}
	p.online.Store(false)
	text := renderPlain(reason)
	if p.transport != nil {
		p.transport.Disconnect(text)
	}
	zap.S().Infof("%s has disconnected: %s", p.username, text)
}

func (p *connectedPlayer) String() string { return p.username }

// renderPlain extracts the plain-text content of a component for
// transports too narrow to understand rich text (the actual
// legacy/json component codec lives outside this repository).
func renderPlain(c component.Component) string {
	if t, ok := c.(*component.Text); ok {
		return t.Content
	}
	return ""
}
