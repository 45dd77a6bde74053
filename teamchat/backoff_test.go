package teamchat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayDoubles(t *testing.T) {
	base := time.Second
	assert.Equal(t, 1*time.Second, backoffDelay(base, 1))
	assert.Equal(t, 2*time.Second, backoffDelay(base, 2))
	assert.Equal(t, 4*time.Second, backoffDelay(base, 3))
	assert.Equal(t, 16*time.Second, backoffDelay(base, 5))
}

func TestBackoffDelayNonDecreasing(t *testing.T) {
	base := 250 * time.Millisecond
	prev := time.Duration(0)
	for attempt := 1; attempt <= 30; attempt++ {
		d := backoffDelay(base, attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}

func TestBackoffDelayDefaultsBase(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(0, 1))
	assert.Equal(t, time.Second, backoffDelay(-time.Second, 1))
	assert.Equal(t, time.Second, backoffDelay(time.Second, 0))
}

func TestBackoffDelayClamped(t *testing.T) {
	// far past the clamp the delay must stop growing, not overflow
	assert.Equal(t, backoffDelay(time.Second, 40), backoffDelay(time.Second, 400))
	assert.Positive(t, backoffDelay(time.Second, 400))
}
