package utils

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker is rejecting calls.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker is a minimal circuit breaker for an upstream API. After
// FailureThreshold consecutive failures it rejects calls until Cooldown has
// passed, then allows a probe; a successful probe closes it again.
type Breaker struct {
	failureThreshold int
	cooldown         time.Duration

	mu          sync.Mutex
	failures    int
	open        bool
	lastFailure time.Time
}

// NewBreaker creates a breaker that opens after failureThreshold consecutive
// failures and stays open for cooldown.
func NewBreaker(failureThreshold int, cooldown time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

// Allow reports whether a call may proceed. While open, it permits one probe
// per cooldown window.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	if time.Since(b.lastFailure) > b.cooldown {
		// Probe: stay open but let this call through. A success in
		// Record closes the breaker.
		b.lastFailure = time.Now()
		return nil
	}
	return ErrBreakerOpen
}

// Record feeds a call outcome into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.open = false
		return
	}

	b.failures++
	b.lastFailure = time.Now()
	if b.failures >= b.failureThreshold {
		b.open = true
	}
}

// Open reports whether the breaker is currently open.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
