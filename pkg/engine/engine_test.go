package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/queue/pkg/queue"
)

type fakeSender struct {
	mu   sync.Mutex
	fail map[uuid.UUID]bool
	sent []uuid.UUID
}

func (s *fakeSender) Send(_ context.Context, playerID uuid.UUID, _ string) error {
	s.mu.Lock()
	s.sent = append(s.sent, playerID)
	fail := s.fail[playerID]
	s.mu.Unlock()
	if fail {
		return assertError{}
	}
	return nil
}

type assertError struct{}

func (assertError) Error() string { return "connection refused" }

type fakeNotifier struct {
	mu         sync.Mutex
	success    []uuid.UUID
	maxRetries map[uuid.UUID]int
}

func (n *fakeNotifier) NotifySendSuccess(playerID uuid.UUID, _ string) {
	n.mu.Lock()
	n.success = append(n.success, playerID)
	n.mu.Unlock()
}

func (n *fakeNotifier) NotifyMaxRetriesReached(playerID uuid.UUID, _ string, attempts int) {
	n.mu.Lock()
	if n.maxRetries == nil {
		n.maxRetries = map[uuid.UUID]int{}
	}
	n.maxRetries[playerID] = attempts
	n.mu.Unlock()
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

// S4 Full bypass.
func TestEngineFullBypassHeadOfLine(t *testing.T) {
	st := queue.NewStore(true, true)
	status := st.Status("arena")
	status.ApplyProbe(true, 0)
	status.ApplyProbe(true, 0)
	status.ApplyCapacity(true)

	p1, p2 := uuid.New(), uuid.New()
	_, _ = st.Enqueue(p1, "arena", 0, false, false)
	_, _ = st.Enqueue(p2, "arena", 0, true, false)

	sender := &fakeSender{fail: map[uuid.UUID]bool{}}
	e := &Engine{Store: st, Sender: sender, MaxSendRetries: 3}

	e.Tick(context.Background(), "arena")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sender.sent, "neither player should be sent while full-gated head blocks")

	st.Dequeue(p1, "arena")
	e.Tick(context.Background(), "arena")
	waitUntil(t, time.Second, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 1
	})
	assert.Equal(t, []uuid.UUID{p2}, sender.sent)
}

// S3 Max retries.
func TestEngineMaxRetries(t *testing.T) {
	st := queue.NewStore(true, true)
	status := st.Status("survival")
	status.ApplyProbe(true, 0)
	status.ApplyProbe(true, 0)

	p1 := uuid.New()
	_, _ = st.Enqueue(p1, "survival", 0, false, false)

	sender := &fakeSender{fail: map[uuid.UUID]bool{p1: true}}
	notifier := &fakeNotifier{}
	e := &Engine{Store: st, Sender: sender, Notify: notifier, MaxSendRetries: 2}

	e.Tick(context.Background(), "survival")
	waitUntil(t, time.Second, func() bool { return st.Status("survival").PeekHead() != nil && st.Status("survival").PeekHead().ConnectionAttempts() == 1 })

	e.Tick(context.Background(), "survival")
	waitUntil(t, time.Second, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return notifier.maxRetries[p1] == 2
	})
	assert.Nil(t, st.Status("survival").PeekHead())
}

// Head-of-line send (spec §8 property 2): engine never marks a
// non-head entry waiting_for_connection.
func TestEngineNeverSendsNonHead(t *testing.T) {
	st := queue.NewStore(true, true)
	status := st.Status("s")
	status.ApplyProbe(true, 0)
	status.ApplyProbe(true, 0)

	p1, p2 := uuid.New(), uuid.New()
	_, _ = st.Enqueue(p1, "s", 0, false, false)
	_, _ = st.Enqueue(p2, "s", 0, false, false)
	// Block forever so head never completes.
	block := make(chan struct{})
	sender := &blockingSender{block: block}
	e := &Engine{Store: st, Sender: sender, MaxSendRetries: 3}

	e.Tick(context.Background(), "s")
	time.Sleep(20 * time.Millisecond)
	e.Tick(context.Background(), "s") // should be a no-op: head already waiting

	entries := st.Snapshot("s")
	require.Len(t, entries, 2)
	assert.True(t, entries[0].WaitingForConnection())
	assert.False(t, entries[1].WaitingForConnection())
	close(block)
}

type blockingSender struct{ block chan struct{} }

func (b *blockingSender) Send(ctx context.Context, _ uuid.UUID, _ string) error {
	select {
	case <-b.block:
	case <-ctx.Done():
	}
	return nil
}

// No-progress gates (spec §8 property 3): paused or non-ONLINE status
// blocks priority >= 0 entries from being sent.
func TestEngineNoProgressWhenPausedOrOffline(t *testing.T) {
	st := queue.NewStore(true, true)
	pid := uuid.New()
	_, _ = st.Enqueue(pid, "s", 0, false, false)
	st.Status("s").SetPaused(true)

	sender := &fakeSender{fail: map[uuid.UUID]bool{}}
	e := &Engine{Store: st, Sender: sender, MaxSendRetries: 3}
	e.Tick(context.Background(), "s")
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, sender.sent)

	st.Status("s").SetPaused(false)
	e.Tick(context.Background(), "s") // still OFFLINE (never probed ONLINE)
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, sender.sent)
}
