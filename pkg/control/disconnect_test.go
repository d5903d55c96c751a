package control

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/queue/pkg/queue"
	"go.minekube.com/queue/pkg/schedule"
)

func TestDisconnectTimeoutDropsQueueEntriesWhenDue(t *testing.T) {
	store := queue.NewStore(true, true)
	sched := schedule.NewDelayed()
	d := NewDisconnectTimeouts(store, sched)

	pid := uuid.New()
	_, _ = store.Enqueue(pid, "survival", 0, false, false)

	d.OnDisconnect(pid, time.Minute)
	require.Equal(t, 1, sched.Len())

	sched.Poll(time.Now().Add(2 * time.Minute))

	_, ok := store.Position(pid, "survival")
	assert.False(t, ok)
}

func TestReconnectedCancelsPendingDrop(t *testing.T) {
	store := queue.NewStore(true, true)
	sched := schedule.NewDelayed()
	d := NewDisconnectTimeouts(store, sched)

	pid := uuid.New()
	_, _ = store.Enqueue(pid, "survival", 0, false, false)

	d.OnDisconnect(pid, time.Minute)
	d.Reconnected(pid)

	sched.Poll(time.Now().Add(2 * time.Minute))

	_, ok := store.Position(pid, "survival")
	assert.True(t, ok)
}

func TestReconnectedWithoutPendingDropIsNoop(t *testing.T) {
	store := queue.NewStore(true, true)
	sched := schedule.NewDelayed()
	d := NewDisconnectTimeouts(store, sched)

	d.Reconnected(uuid.New())
}
