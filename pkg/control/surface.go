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

// Package control is the Control Surface component (spec §4.7):
// pause/unpause, list, add, remove, addall, removeall, and config
// reload. It's the thin administrative layer the queue/leavequeue/
// queueadmin CLIs (and the admin HTTP surface) sit on top of.
package control

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/color"

	"go.minekube.com/queue/pkg/cluster"
	"go.minekube.com/queue/pkg/queue"
)

// ErrAlreadyQueued is returned by Add when the player is already
// queued for the target server (spec §4.7).
var ErrAlreadyQueued = fmt.Errorf("player is already queued for that server")

// Broadcaster notifies every queued player on a server of an
// informational line (spec §4.7 pause/unpause).
type Broadcaster interface {
	Broadcast(server string, msg component.Component)
}

// ServerLister reports which backend server each connected player is
// currently on, for AddAll.
type ServerLister interface {
	PlayersOn(server string) []uuid.UUID
}

// Surface implements the administrative operations over a queue.Store.
type Surface struct {
	Store      *queue.Store
	Broadcast  Broadcaster
	Lister     ServerLister
	Coord      *cluster.Coordinator
	Reloadable []func() error
}

// Pause halts sends for server (the BypassPriority path is unaffected,
// spec §9 open-question resolution) and broadcasts an informational
// line to every queued player.
func (s *Surface) Pause(ctx context.Context, server string) {
	s.Store.Status(server).SetPaused(true)
	s.notify(ctx, server, true)
	s.broadcast(server, "The queue for "+server+" has been paused.")
}

// Unpause resumes sends for server.
func (s *Surface) Unpause(ctx context.Context, server string) {
	s.Store.Status(server).SetPaused(false)
	s.notify(ctx, server, false)
	s.broadcast(server, "The queue for "+server+" has been unpaused.")
}

func (s *Surface) notify(ctx context.Context, server string, paused bool) {
	if s.Coord == nil {
		return
	}
	payload := fmt.Sprintf(`{"server":%q,"paused":%t}`, server, paused)
	_ = s.Coord.Pub.Publish(ctx, cluster.TopicQueuePause, []byte(payload))
}

func (s *Surface) broadcast(server, text string) {
	if s.Broadcast == nil {
		return
	}
	s.Broadcast.Broadcast(server, &component.Text{Content: text, S: component.Style{Color: color.Yellow}})
}

// QueueListing is one line of `queueadmin listqueues` output.
type QueueListing struct {
	Server string
	Size   int
	Paused bool
	Online bool
}

// List reports every known queue's size/paused/online state.
func (s *Surface) List() []QueueListing {
	servers := s.Store.Servers()
	out := make([]QueueListing, 0, len(servers))
	for _, name := range servers {
		status := s.Store.Status(name)
		out = append(out, QueueListing{
			Server: name,
			Size:   status.Len(),
			Paused: status.Paused(),
			Online: status.ServerStatus() == queue.Online,
		})
	}
	return out
}

// Add performs an administrative high-priority enqueue (spec §4.7):
// refused with ErrAlreadyQueued if the player is already queued there.
func (s *Surface) Add(playerID uuid.UUID, server string, adminPriority int) error {
	result, _ := s.Store.Enqueue(playerID, server, adminPriority, false, false)
	if result == queue.AlreadyPresent {
		return ErrAlreadyQueued
	}
	return nil
}

// AddAll enqueues every player currently on fromServer onto toServer.
func (s *Surface) AddAll(fromServer, toServer string, adminPriority int) int {
	if s.Lister == nil {
		return 0
	}
	players := s.Lister.PlayersOn(fromServer)
	count := 0
	for _, pid := range players {
		result, _ := s.Store.Enqueue(pid, toServer, adminPriority, false, false)
		if result == queue.Placed {
			count++
		}
	}
	return count
}

// Remove dequeues playerID from one server (or every queue, if server
// is empty), returning the number removed.
func (s *Surface) Remove(playerID uuid.UUID, server string) int {
	if server == "" {
		return s.Store.LeaveAll(playerID)
	}
	if s.Store.Dequeue(playerID, server) == queue.Removed {
		return 1
	}
	return 0
}

// RemoveAll clears server's queue entirely, returning the removed
// entries (e.g. to notify each of a "queue cleared" update).
func (s *Surface) RemoveAll(server string) []*queue.Entry {
	return s.Store.Clear(server)
}

// AddReloadable registers a component's config-reload hook, called by
// ReloadConfig in registration order (spec §4.7 reload_config).
func (s *Surface) AddReloadable(fn func() error) {
	s.Reloadable = append(s.Reloadable, fn)
}

// ReloadConfig invokes every registered reload hook in registration
// order, stopping at the first error. It re-applies only what those
// hooks re-apply; it does not restart any ticker itself.
func (s *Surface) ReloadConfig() error {
	for _, fn := range s.Reloadable {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
