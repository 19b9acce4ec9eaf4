package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelay(t *testing.T) {
	base := 2 * time.Second
	max := 60 * time.Second

	t.Run("doubles per attempt with full jitter", func(t *testing.T) {
		for attempt, want := range map[int]time.Duration{
			1: 2 * time.Second,
			2: 4 * time.Second,
			3: 8 * time.Second,
			4: 16 * time.Second,
		} {
			for i := 0; i < 50; i++ {
				got := RetryDelay(attempt, base, max)
				assert.GreaterOrEqual(t, got, want, "attempt %d", attempt)
				assert.Less(t, got, 2*want, "attempt %d", attempt)
			}
		}
	})

	t.Run("caps at max", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			assert.LessOrEqual(t, RetryDelay(10, base, max), max)
			assert.LessOrEqual(t, RetryDelay(100, base, max), max)
		}
	})

	t.Run("treats attempt below one as the first", func(t *testing.T) {
		got := RetryDelay(0, base, max)
		assert.GreaterOrEqual(t, got, base)
		assert.Less(t, got, 2*base)
	})
}
