package signal

import (
	"sync"
	"time"
)

const (
	defaultMessageLimit    = 120
	defaultMessageInterval = 10 * time.Second
)

// MessageRateLimiter applies a sliding-window cap per endpoint. Candidate
// bursts during ICE gathering fit comfortably under the default window.
type MessageRateLimiter struct {
	mu       sync.Mutex
	history  map[*wsEndpoint][]time.Time
	limit    int
	interval time.Duration
}

func NewMessageRateLimiter(limit int, interval time.Duration) *MessageRateLimiter {
	return &MessageRateLimiter{
		history:  make(map[*wsEndpoint][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *MessageRateLimiter) Allow(e *wsEndpoint) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[e]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[e] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[e] = fresh
	return true
}

// Forget drops the endpoint's window on detach so the map does not grow
// with dead connections.
func (rl *MessageRateLimiter) Forget(e *wsEndpoint) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, e)
}
