package queue

import (
	"math/rand"
	"time"
)

// RetryDelay computes the delay before the next attempt: exponential in the
// attempt number plus full jitter uniform in [0, delay), capped at max.
// attempt is 1-based (the attempt that just failed).
func RetryDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}

	delay += time.Duration(rand.Int63n(int64(delay)))
	if delay > max {
		delay = max
	}
	return delay
}
