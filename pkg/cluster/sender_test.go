package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct {
	fail bool
}

func (f *fakeConnector) Connect(_ context.Context, _ uuid.UUID, _ string) error {
	if f.fail {
		return errors.New("refused")
	}
	return nil
}

func TestSenderResponderRoundTripSuccess(t *testing.T) {
	coord := NewSingleNode("proxy-1")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewResponder(ctx, coord, &fakeConnector{})
	require.NoError(t, err)

	sender, err := NewSender(ctx, coord)
	require.NoError(t, err)

	pid := uuid.New()
	assert.NoError(t, sender.Send(ctx, pid, "survival"))
}

func TestSenderResponderRoundTripFailure(t *testing.T) {
	coord := NewSingleNode("proxy-1")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewResponder(ctx, coord, &fakeConnector{fail: true})
	require.NoError(t, err)

	sender, err := NewSender(ctx, coord)
	require.NoError(t, err)

	pid := uuid.New()
	assert.Error(t, sender.Send(ctx, pid, "survival"))
}

type fakePresence struct {
	present map[uuid.UUID]bool
}

func (f fakePresence) Present(playerID uuid.UUID) bool { return f.present[playerID] }

func TestResponderIgnoresRequestsForPlayersItDoesNotHost(t *testing.T) {
	coord := NewSingleNode("proxy-1")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	connector := &fakeConnector{}
	r := &Responder{Coord: coord, Connector: connector, Local: fakePresence{present: map[uuid.UUID]bool{}}}
	require.NoError(t, coord.Pub.Subscribe(ctx, TopicQueueSend, r.handleSend))

	sender, err := NewSender(ctx, coord)
	require.NoError(t, err)

	err = sender.Send(ctx, uuid.New(), "survival")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSenderTimesOutWithNoResponder(t *testing.T) {
	coord := NewSingleNode("proxy-1")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	sender, err := NewSender(ctx, coord)
	require.NoError(t, err)

	pid := uuid.New()
	err = sender.Send(ctx, pid, "survival")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
