package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerRunsPeriodically(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var count int32
	go Ticker(ctx, 5*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(5 * time.Millisecond)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(2))
}

func TestTickerRecoversPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ran int32
	go Ticker(ctx, 5*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt32(&ran, 1)
		panic("boom")
	})

	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&ran), int32(1))
}

func TestDelayedSchedulesAndFires(t *testing.T) {
	d := NewDelayed()
	var fired bool
	d.Schedule(0, func() { fired = true })

	assert.Equal(t, 1, d.Len())
	d.Poll(time.Now().Add(time.Millisecond))
	assert.True(t, fired)
	assert.Equal(t, 0, d.Len())
}

func TestDelayedCancellationPreventsFire(t *testing.T) {
	d := NewDelayed()
	var fired bool
	cancel := d.Schedule(0, func() { fired = true })
	cancel()

	d.Poll(time.Now().Add(time.Millisecond))
	assert.False(t, fired)
}

func TestDelayedOnlyFiresDueTasks(t *testing.T) {
	d := NewDelayed()
	var early, late bool
	d.Schedule(time.Millisecond, func() { early = true })
	d.Schedule(time.Hour, func() { late = true })

	d.Poll(time.Now().Add(10 * time.Millisecond))
	assert.True(t, early)
	assert.False(t, late)
	assert.Equal(t, 1, d.Len())
}
