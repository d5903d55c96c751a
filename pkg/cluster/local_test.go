package cluster

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleNodePublishSubscribe(t *testing.T) {
	c := NewSingleNode("proxy-1")
	ctx := context.Background()

	received := make(chan []byte, 1)
	require.NoError(t, c.Pub.Subscribe(ctx, TopicQueueAdd, func(_ context.Context, payload []byte) {
		received <- payload
	}))
	require.NoError(t, c.Pub.Publish(ctx, TopicQueueAdd, []byte("hello")))

	assert.Equal(t, []byte("hello"), <-received)
}

func TestSingleNodeIsAlwaysItsOwnLivePeer(t *testing.T) {
	c := NewSingleNode("proxy-1")
	peers, err := c.Peers.Peers(context.Background())
	require.NoError(t, err)
	_, ok := peers["proxy-1"]
	assert.True(t, ok)
}

func TestSingleNodeSnapshotRoundTrip(t *testing.T) {
	c := NewSingleNode("proxy-1")
	ctx := context.Background()

	_, ok, err := c.Snap.SnapshotGet(ctx, "survival")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Snap.SnapshotPut(ctx, "survival", []byte("snapshot")))
	v, ok, err := c.Snap.SnapshotGet(ctx, "survival")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("snapshot"), v)
}

func TestSingleNodePlayerInfoRoundTrip(t *testing.T) {
	c := NewSingleNode("proxy-1")
	ctx := context.Background()
	pid := uuid.New()

	_, ok, err := c.Peers.PlayerInfo(ctx, pid)
	require.NoError(t, err)
	assert.False(t, ok)

	info := PlayerInfo{ProxyID: "proxy-1", ServerName: "survival"}
	require.NoError(t, c.Peers.SetPlayerInfo(ctx, pid, info, true))

	got, ok, err := c.Peers.PlayerInfo(ctx, pid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, info, got)

	require.NoError(t, c.Peers.SetPlayerInfo(ctx, pid, PlayerInfo{}, false))
	_, ok, err = c.Peers.PlayerInfo(ctx, pid)
	require.NoError(t, err)
	assert.False(t, ok)
}
