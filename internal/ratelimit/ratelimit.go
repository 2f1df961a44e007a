package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces sliding-window rate limits. It guards the listing
// submission endpoints and the notification gateway sends.
type Limiter struct {
	perMinute int
	perHour   int
	perDay    int
	enabled   bool

	minuteWindow []time.Time
	hourWindow   []time.Time
	dayWindow    []time.Time
	mu           sync.Mutex
}

// NewLimiter creates a limiter with the given limits. A limit of 0
// disables that window.
func NewLimiter(perMinute, perHour, perDay int, enabled bool) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		perDay:    perDay,
		enabled:   enabled,
	}
}

// Allow checks whether one more event fits the limits and records it
// if so.
func (l *Limiter) Allow() bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.expire(now)

	if l.perMinute > 0 && len(l.minuteWindow) >= l.perMinute {
		return false
	}
	if l.perHour > 0 && len(l.hourWindow) >= l.perHour {
		return false
	}
	if l.perDay > 0 && len(l.dayWindow) >= l.perDay {
		return false
	}

	l.minuteWindow = append(l.minuteWindow, now)
	l.hourWindow = append(l.hourWindow, now)
	l.dayWindow = append(l.dayWindow, now)

	return true
}

// expire drops entries that left their window
func (l *Limiter) expire(now time.Time) {
	l.minuteWindow = keepAfter(l.minuteWindow, now.Add(-time.Minute))
	l.hourWindow = keepAfter(l.hourWindow, now.Add(-time.Hour))
	l.dayWindow = keepAfter(l.dayWindow, now.Add(-24*time.Hour))
}

func keepAfter(times []time.Time, cutoff time.Time) []time.Time {
	result := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// Stats contains current limiter counters
type Stats struct {
	Enabled        bool `json:"enabled"`
	LastMinute     int  `json:"last_minute"`
	LastHour       int  `json:"last_hour"`
	LastDay        int  `json:"last_day"`
	LimitPerMinute int  `json:"limit_per_minute"`
	LimitPerHour   int  `json:"limit_per_hour"`
	LimitPerDay    int  `json:"limit_per_day"`
}

// GetStats returns current counters
func (l *Limiter) GetStats() Stats {
	if !l.enabled {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.expire(time.Now())

	return Stats{
		Enabled:        true,
		LastMinute:     len(l.minuteWindow),
		LastHour:       len(l.hourWindow),
		LastDay:        len(l.dayWindow),
		LimitPerMinute: l.perMinute,
		LimitPerHour:   l.perHour,
		LimitPerDay:    l.perDay,
	}
}

// Reset clears all tracked events (useful for testing)
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minuteWindow = nil
	l.hourWindow = nil
	l.dayWindow = nil
}
