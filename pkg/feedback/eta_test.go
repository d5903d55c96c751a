package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestETAZeroOnAttempt(t *testing.T) {
	assert.Equal(t, 5*time.Second, ETA(5*time.Second, 1, 0))
	assert.Equal(t, time.Duration(0), ETA(5*time.Second, 1, 1))
	assert.Equal(t, time.Duration(0), ETA(5*time.Second, 1, 4))
}

func TestETAMonotonicWithPosition(t *testing.T) {
	a := ETA(time.Second, 3, 0)
	b := ETA(time.Second, 5, 0)
	assert.Less(t, a, b)
}

func TestFormatDurationComponents(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "5s", FormatDuration(5*time.Second))
	assert.Equal(t, "1m 5s", FormatDuration(65*time.Second))
	assert.Equal(t, "1h 0m 5s", FormatDuration(time.Hour+5*time.Second))
	assert.Equal(t, "2d 0h 0m 0s", FormatDuration(48*time.Hour))
}
