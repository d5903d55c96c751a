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
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"

	"go.minekube.com/queue/pkg/cluster"
)

// ChatNotifier implements Notifier by writing directly to a locally
// connected player, or, if the player is hosted on another proxy,
// publishing to the chat topic (spec §4.5, §7 propagation policy).
type ChatNotifier struct {
	Local LocalPresence
	Coord *cluster.Coordinator
}

func (n *ChatNotifier) NotifySendSuccess(playerID uuid.UUID, server string) {
	n.send(playerID, &component.Text{Content: "Connecting you to " + server + "...", S: component.Style{Color: color.Green}})
}

func (n *ChatNotifier) NotifyMaxRetriesReached(playerID uuid.UUID, server string, attempts int) {
	msg := fmt.Sprintf("max retries reached: %s, %d", server, attempts)
	n.send(playerID, &component.Text{Content: msg, S: component.Style{Color: color.Red}})
}

func (n *ChatNotifier) send(playerID uuid.UUID, msg component.Component) {
	if n.Local != nil {
		if p, ok := n.Local.Player(playerID); ok {
			_ = p.SendMessage(msg)
			return
		}
	}
	if n.Coord == nil {
		return
	}
	text := ""
	if t, ok := msg.(*component.Text); ok {
		text = t.Content
	}
	payload := fmt.Sprintf(`{"player":%q,"text":%q}`, playerID.String(), text)
	_ = n.Coord.Pub.Publish(context.Background(), cluster.TopicChat, []byte(payload))
}
