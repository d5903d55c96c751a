package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go.minekube.com/queue/pkg/proxy"
)

type fakePermissions struct {
	values map[string]string
}

func (f fakePermissions) PermissionValue(_ proxy.Player, node string) (string, bool) {
	v, ok := f.values[node]
	return v, ok
}

func newAdapter(values map[string]string) *Adapter {
	return &Adapter{
		Permissions:     fakePermissions{values: values},
		PriorityPrefix:  "queue.priority",
		FullBypassNode:  "queue.fullbypass",
		QueueBypassNode: "queue.bypass",
		TimeoutNode:     "queue.timeout",
	}
}

func TestPriorityDefaultsToZero(t *testing.T) {
	a := newAdapter(nil)
	assert.Equal(t, 0, a.Priority(nil, "survival"))
}

func TestPriorityReadsConfiguredNode(t *testing.T) {
	a := newAdapter(map[string]string{"queue.priority.survival": "10"})
	assert.Equal(t, 10, a.Priority(nil, "survival"))
}

func TestFullBypassReadsNode(t *testing.T) {
	a := newAdapter(map[string]string{"queue.fullbypass.arena": "true"})
	assert.True(t, a.FullBypass(nil, "arena"))
	assert.False(t, a.FullBypass(nil, "survival"))
}

func TestQueueBypassReadsNode(t *testing.T) {
	a := newAdapter(map[string]string{"queue.bypass.survival": "true"})
	assert.True(t, a.QueueBypass(nil, "survival"))
}

func TestTimeoutFallsBackToDefault(t *testing.T) {
	a := newAdapter(nil)
	assert.Equal(t, DefaultTimeout, a.Timeout(nil, "survival"))
}

func TestTimeoutReadsConfiguredSeconds(t *testing.T) {
	a := newAdapter(map[string]string{"queue.timeout.survival": "120"})
	assert.Equal(t, 120*time.Second, a.Timeout(nil, "survival"))
}
