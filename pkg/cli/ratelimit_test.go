package cli

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestPlayerLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	l := NewPlayerLimiter(rate.Every(time.Hour), 2)
	pid := uuid.New()

	assert.True(t, l.Allow(pid))
	assert.True(t, l.Allow(pid))
	assert.False(t, l.Allow(pid))
}

func TestPlayerLimiterTracksPlayersIndependently(t *testing.T) {
	l := NewPlayerLimiter(rate.Every(time.Hour), 1)
	a, b := uuid.New(), uuid.New()

	assert.True(t, l.Allow(a))
	assert.False(t, l.Allow(a))
	assert.True(t, l.Allow(b))
}

func TestForgetResetsPlayerLimiter(t *testing.T) {
	l := NewPlayerLimiter(rate.Every(time.Hour), 1)
	pid := uuid.New()

	assert.True(t, l.Allow(pid))
	assert.False(t, l.Allow(pid))

	l.Forget(pid)
	assert.True(t, l.Allow(pid))
}
