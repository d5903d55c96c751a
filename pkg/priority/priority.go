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

// Package priority is the Priority & Permission Adapter component
// (spec §4, table row "Priority & Permission Adapter"): it reads a
// player's priority tier, bypass flags, and per-player timeout for a
// target server, translating permission nodes into the plain values
// the Queue Store's insertion algorithm and the disconnect-timeout
// scheduler consume.
package priority

import (
	"strconv"
	"strings"
	"time"

	"go.minekube.com/queue/pkg/proxy"
)

// DefaultTimeout is used when no per-player override is configured.
const DefaultTimeout = 60 * time.Second

// Permissions is the narrow subject contract this adapter reads from;
// the real permission system (LuckPerms-style nodes, etc.) is an
// external collaborator.
type Permissions interface {
	PermissionValue(player proxy.Player, node string) (value string, ok bool)
}

// Adapter resolves a player's queue-relevant attributes for one
// target server.
type Adapter struct {
	Permissions Permissions

	// PriorityPrefix nodes look like "<prefix>.<server>" with the
	// priority as the node's value, e.g. "queue.priority.survival" = "10".
	PriorityPrefix  string
	FullBypassNode  string // "<node>.<server>"
	QueueBypassNode string // "<node>.<server>"
	TimeoutNode     string // "<node>.<server>" -> seconds
}

// Priority returns the player's configured priority for server, or 0
// if no priority node is set.
func (a *Adapter) Priority(player proxy.Player, server string) int {
	v, ok := a.Permissions.PermissionValue(player, a.PriorityPrefix+"."+server)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// FullBypass reports whether the player may join server even when full.
func (a *Adapter) FullBypass(player proxy.Player, server string) bool {
	_, ok := a.Permissions.PermissionValue(player, a.FullBypassNode+"."+server)
	return ok
}

// QueueBypass reports whether the player should use the admin-queue-
// bypass path (priority -1, spec §3).
func (a *Adapter) QueueBypass(player proxy.Player, server string) bool {
	_, ok := a.Permissions.PermissionValue(player, a.QueueBypassNode+"."+server)
	return ok
}

// Timeout returns how long server should hold the player's queue
// entries across a disconnect before dropping them (spec §8 property
// 8), falling back to DefaultTimeout.
func (a *Adapter) Timeout(player proxy.Player, server string) time.Duration {
	v, ok := a.Permissions.PermissionValue(player, a.TimeoutNode+"."+server)
	if !ok {
		return DefaultTimeout
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds < 0 {
		return DefaultTimeout
	}
	return time.Duration(seconds) * time.Second
}
