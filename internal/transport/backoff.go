package transport

import (
	"math/rand/v2"
	"time"
)

// BackoffDelay returns base doubled attempt times, capped at ceiling. Jitter
// is added by the caller.
func BackoffDelay(base, ceiling time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	return min(d, ceiling)
}

// Jitter returns a random duration in [0, limit).
type Jitter func(limit time.Duration) time.Duration

// RandomJitter draws uniformly from [0, limit).
func RandomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}
