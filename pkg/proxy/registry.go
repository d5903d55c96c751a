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

	"github.com/google/uuid"
	"go.minekube.com/common/minecraft/component"
)

// Registry tracks every player currently connected to this proxy
// process, keyed by id. It backs feedback.Resolver and lets the
// Backend Prober count local connections per server.
type Registry struct {
	mu      sync.RWMutex
	players map[uuid.UUID]Player
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{players: make(map[uuid.UUID]Player)}
}

// Register adds p, replacing any previous entry for its id.
func (r *Registry) Register(p Player) {
	r.mu.Lock()
	r.players[p.Id()] = p
	r.mu.Unlock()
}

// Unregister removes playerID, e.g. on disconnect.
func (r *Registry) Unregister(playerID uuid.UUID) {
	r.mu.Lock()
	delete(r.players, playerID)
	r.mu.Unlock()
}

// Player resolves a locally connected player by id.
func (r *Registry) Player(playerID uuid.UUID) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[playerID]
	return p, ok
}

// SetCurrentServer records that playerID landed on server, e.g. after
// a successful queue send. No-op if playerID isn't locally connected.
func (r *Registry) SetCurrentServer(playerID uuid.UUID, server string) {
	r.mu.RLock()
	p, ok := r.players[playerID]
	r.mu.RUnlock()
	if ok {
		p.setCurrentServer(server)
	}
}

// Present reports whether playerID is connected to this proxy process,
// implementing cluster.LocalPresence.
func (r *Registry) Present(playerID uuid.UUID) bool {
	_, ok := r.Player(playerID)
	return ok
}

// CountOn reports how many locally connected players currently have
// server as their CurrentServer.
func (r *Registry) CountOn(server string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.players {
		if p.CurrentServer() == server {
			n++
		}
	}
	return n
}

// PlayersOn returns the ids of every locally connected player
// currently on server, implementing control.ServerLister.
func (r *Registry) PlayersOn(server string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []uuid.UUID
	for id, p := range r.players {
		if p.CurrentServer() == server {
			out = append(out, id)
		}
	}
	return out
}

// Broadcast sends msg to every locally connected player currently on
// server, implementing control.Broadcaster.
func (r *Registry) Broadcast(server string, msg component.Component) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if p.CurrentServer() == server {
			_ = p.SendMessage(msg)
		}
	}
}

// BroadcastAll sends msg to every locally connected player, regardless
// of current server (e.g. the shutdown notice).
func (r *Registry) BroadcastAll(msg component.Component) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		_ = p.SendMessage(msg)
	}
}
