package control

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/queue/pkg/queue"
)

func TestPauseUnpause(t *testing.T) {
	st := queue.NewStore(true, true)
	s := &Surface{Store: st}
	s.Pause(context.Background(), "survival")
	assert.True(t, st.Status("survival").Paused())
	s.Unpause(context.Background(), "survival")
	assert.False(t, st.Status("survival").Paused())
}

func TestAddRejectsAlreadyQueued(t *testing.T) {
	st := queue.NewStore(true, true)
	s := &Surface{Store: st}
	pid := uuid.New()
	require.NoError(t, s.Add(pid, "survival", 100))
	err := s.Add(pid, "survival", 100)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestRemoveAllClearsQueue(t *testing.T) {
	st := queue.NewStore(true, true)
	s := &Surface{Store: st}
	_ = s.Add(uuid.New(), "survival", 0)
	_ = s.Add(uuid.New(), "survival", 0)
	removed := s.RemoveAll("survival")
	assert.Len(t, removed, 2)
	assert.Equal(t, 0, st.Status("survival").Len())
}

func TestReloadConfigRunsHooksInOrder(t *testing.T) {
	st := queue.NewStore(true, true)
	s := &Surface{Store: st}
	var order []int
	s.AddReloadable(func() error { order = append(order, 1); return nil })
	s.AddReloadable(func() error { order = append(order, 2); return nil })
	require.NoError(t, s.ReloadConfig())
	assert.Equal(t, []int{1, 2}, order)
}
