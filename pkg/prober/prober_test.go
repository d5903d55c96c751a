package prober

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.minekube.com/queue/pkg/queue"
)

type fakeStore struct {
	st *queue.Store
}

func (f *fakeStore) Status(server string) *queue.Status        { return f.st.Status(server) }
func (f *fakeStore) Servers() []string                          { return f.st.Servers() }
func (f *fakeStore) BypassEntries(server string) []*queue.Entry { return f.st.BypassEntries(server) }

type fakePinger struct{ ok bool }

func (p fakePinger) Ping(context.Context, string, time.Duration) bool { return p.ok }

type fakeCounter struct{ n int }

func (c fakeCounter) PlayerCount(context.Context, string) (int, error) { return c.n, nil }

type recordingDrainer struct{ drained []*queue.Entry }

func (d *recordingDrainer) DrainBypass(_ context.Context, _ string, entries []*queue.Entry) {
	d.drained = append(d.drained, entries...)
}

func TestProberOfflineToOnlineViaWaiting(t *testing.T) {
	st := queue.NewStore(true, true)
	drainer := &recordingDrainer{}
	p := &Prober{
		Store:       &fakeStore{st: st},
		Pinger:      fakePinger{ok: true},
		Counter:     fakeCounter{n: 0},
		Drainer:     drainer,
		Caps:        map[string]int{},
		PingTimeout: time.Second,
		QueueDelay:  50 * time.Millisecond,
	}
	st.Status("survival") // create

	p.Tick(context.Background())
	assert.Equal(t, queue.Waiting, st.Status("survival").ServerStatus())

	time.Sleep(60 * time.Millisecond)
	p.Tick(context.Background())
	assert.Equal(t, queue.Online, st.Status("survival").ServerStatus())
}

func TestProberDrainsBypassOnRecovery(t *testing.T) {
	st := queue.NewStore(true, true)
	drainer := &recordingDrainer{}
	p := &Prober{
		Store:       &fakeStore{st: st},
		Pinger:      fakePinger{ok: true},
		Counter:     fakeCounter{n: 0},
		Drainer:     drainer,
		Caps:        map[string]int{},
		PingTimeout: time.Second,
		QueueDelay:  0,
	}
	_, _ = st.Enqueue(uuid.New(), "survival", queue.BypassPriority, false, true)
	_, _ = st.Enqueue(uuid.New(), "survival", 0, false, false)

	p.Tick(context.Background()) // OFFLINE -> WAITING (queueDelay 0, still requires second tick to cross grace)
	p.Tick(context.Background()) // WAITING -> ONLINE, drains bypass

	require.Len(t, drainer.drained, 1)
	assert.Equal(t, 1, st.Status("survival").Len())
}

// A server with no configured player_caps entry must never be treated
// as permanently full; Caps[server] defaults to 0, and `count >= 0` is
// always true, so the zero value has to be distinguished from an
// actual zero-capacity cap.
func TestProberLeavesUncappedServerNotFull(t *testing.T) {
	st := queue.NewStore(true, true)
	p := &Prober{
		Store:       &fakeStore{st: st},
		Pinger:      fakePinger{ok: true},
		Counter:     fakeCounter{n: 5},
		Caps:        map[string]int{},
		PingTimeout: time.Second,
	}
	st.Status("survival")
	p.Tick(context.Background()) // OFFLINE -> WAITING
	p.Tick(context.Background()) // WAITING -> ONLINE, samples capacity
	require.Equal(t, queue.Online, st.Status("survival").ServerStatus())
	assert.False(t, st.Status("survival").Full())
}

func TestProberMarksConfiguredCapFull(t *testing.T) {
	st := queue.NewStore(true, true)
	p := &Prober{
		Store:       &fakeStore{st: st},
		Pinger:      fakePinger{ok: true},
		Counter:     fakeCounter{n: 5},
		Caps:        map[string]int{"survival": 5},
		PingTimeout: time.Second,
	}
	st.Status("survival")
	p.Tick(context.Background()) // OFFLINE -> WAITING
	p.Tick(context.Background()) // WAITING -> ONLINE, samples capacity
	require.Equal(t, queue.Online, st.Status("survival").ServerStatus())
	assert.True(t, st.Status("survival").Full())
}

func TestProberMarksOfflineOnFailure(t *testing.T) {
	st := queue.NewStore(true, true)
	p := &Prober{
		Store:       &fakeStore{st: st},
		Pinger:      fakePinger{ok: false},
		Counter:     fakeCounter{n: 0},
		Caps:        map[string]int{},
		PingTimeout: time.Second,
	}
	st.Status("survival")
	p.Tick(context.Background())
	assert.Equal(t, queue.Offline, st.Status("survival").ServerStatus())
}
