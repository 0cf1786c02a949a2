package batch

import (
	"sync"
	"time"
)

// Throttle returns a function that calls fn at most once per limit. Calls
// made during the cooldown are dropped and return the last result.
func Throttle[A, R any](limit time.Duration, fn func(A) R) func(A) R {
	var (
		mu     sync.Mutex
		last   time.Time
		result R
		called bool
	)
	return func(arg A) R {
		mu.Lock()
		defer mu.Unlock()
		if !called || time.Since(last) >= limit {
			result = fn(arg)
			last = time.Now()
			called = true
		}
		return result
	}
}
