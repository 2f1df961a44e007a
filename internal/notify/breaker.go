package notify

import (
	"log"
	"sync"
	"time"
)

// breaker stops gateway sends after repeated failures so a dead mail
// gateway doesn't burn through every pending notification's retry
// budget in one pass.
type breaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	mu sync.Mutex
}

func newBreaker(failureThreshold int, resetTimeout time.Duration) *breaker {
	return &breaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// RecordSuccess resets the failure streak
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
}

// RecordFailure counts a failed send and opens the breaker once the
// streak reaches the threshold.
func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.lastFailureTime = time.Now()

	if !b.isOpen && b.consecutiveFailures >= b.failureThreshold {
		b.isOpen = true
		log.Printf("Notify: circuit breaker open after %d consecutive gateway failures, retrying in %v",
			b.consecutiveFailures, b.resetTimeout)
	}
}

// CanProceed reports whether sends are currently allowed. After the
// reset timeout, one half-open attempt is let through.
func (b *breaker) CanProceed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isOpen {
		return true
	}

	if time.Since(b.lastFailureTime) > b.resetTimeout {
		log.Printf("Notify: circuit breaker half-open after %v", b.resetTimeout)
		b.isOpen = false
		b.consecutiveFailures = 0
		return true
	}

	return false
}
