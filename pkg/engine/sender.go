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

	"github.com/google/uuid"
)

// Connector is the external collaborator that actually moves a player
// onto a backend server (the player connection lifecycle, out of
// scope for this repository per spec §1). LocalSender adapts it to
// the Sender contract.
type Connector interface {
	Connect(ctx context.Context, playerID uuid.UUID, server string) error
}

// LocalSender sends directly via a local Connector: no cross-proxy
// hop needed because the player is connected to this same proxy
// process (spec §4.3 "locally, invoke the connection request").
type LocalSender struct {
	Connector Connector
}

func (s *LocalSender) Send(ctx context.Context, playerID uuid.UUID, server string) error {
	return s.Connector.Connect(ctx, playerID, server)
}
