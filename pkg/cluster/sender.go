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
package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type sendPayload struct {
	Player uuid.UUID `json:"player"`
	Server string    `json:"server"`
}

type sendResultPayload struct {
	Player  uuid.UUID `json:"player"`
	Server  string    `json:"server"`
	Success bool      `json:"success"`
}

// Connector mirrors engine.Connector without importing the engine
// package (which already imports cluster), to avoid an import cycle.
type Connector interface {
	Connect(ctx context.Context, playerID uuid.UUID, server string) error
}

// Sender publishes a queue.send request to the player's hosting proxy
// and awaits the paired queue.send_result reply (spec §4.3, §4.5),
// implementing the same shape as engine.Sender without depending on
// that package. The coordinator's ordering guarantee (send observed
// before its send_result) makes the wait-for-reply-by-key approach
// below correct: only one send is ever in flight per (player, server)
// because the engine never sends a non-head entry twice concurrently.
type Sender struct {
	Coord *Coordinator

	mu      sync.Mutex
	waiters map[string]chan bool
}

// NewSender subscribes to queue.send_result and returns a ready Sender.
// ctx controls the subscription's lifetime.
func NewSender(ctx context.Context, coord *Coordinator) (*Sender, error) {
	s := &Sender{Coord: coord, waiters: map[string]chan bool{}}
	if err := coord.Pub.Subscribe(ctx, TopicQueueSendResult, s.handleResult); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", TopicQueueSendResult, err)
	}
	return s, nil
}

func waitKey(playerID uuid.UUID, server string) string {
	return playerID.String() + "|" + server
}

func (s *Sender) handleResult(_ context.Context, payload []byte) {
	var res sendResultPayload
	if err := json.Unmarshal(payload, &res); err != nil {
		return
	}
	key := waitKey(res.Player, res.Server)
	s.mu.Lock()
	ch, ok := s.waiters[key]
	s.mu.Unlock()
	if !ok {
		return
	}
	ch <- res.Success
}

// Send publishes queue.send and blocks until the matching
// queue.send_result arrives or ctx is done.
func (s *Sender) Send(ctx context.Context, playerID uuid.UUID, server string) error {
	key := waitKey(playerID, server)
	ch := make(chan bool, 1)

	s.mu.Lock()
	s.waiters[key] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.waiters, key)
		s.mu.Unlock()
	}()

	payload, err := json.Marshal(sendPayload{Player: playerID, Server: server})
	if err != nil {
		return err
	}
	if err := s.Coord.Pub.Publish(ctx, TopicQueueSend, payload); err != nil {
		return err
	}

	select {
	case success := <-ch:
		if !success {
			return errors.New("backend refused connection")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LocalPresence reports whether a player is connected to this proxy
// process, letting Responder ignore queue.send requests for players
// some other proxy is actually hosting (queue.send is broadcast to
// every subscriber, not addressed to one proxy).
type LocalPresence interface {
	Present(playerID uuid.UUID) bool
}

// Responder runs on every proxy: it subscribes to queue.send, and for
// any request naming a player it actually hosts, invokes the local
// Connector and publishes the paired queue.send_result (spec §4.5). A
// nil Local treats every request as locally hosted, matching the
// single-node Coordinator where there is only ever one proxy to ask.
type Responder struct {
	Coord     *Coordinator
	Connector Connector
	Local     LocalPresence
}

// NewResponder subscribes to queue.send and returns a ready Responder.
func NewResponder(ctx context.Context, coord *Coordinator, connector Connector) (*Responder, error) {
	r := &Responder{Coord: coord, Connector: connector}
	if err := coord.Pub.Subscribe(ctx, TopicQueueSend, r.handleSend); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", TopicQueueSend, err)
	}
	return r, nil
}

func (r *Responder) handleSend(ctx context.Context, payload []byte) {
	var req sendPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	if r.Local != nil && !r.Local.Present(req.Player) {
		return
	}
	err := r.Connector.Connect(ctx, req.Player, req.Server)
	result, _ := json.Marshal(sendResultPayload{Player: req.Player, Server: req.Server, Success: err == nil})
	_ = r.Coord.Pub.Publish(ctx, TopicQueueSendResult, result)
}
