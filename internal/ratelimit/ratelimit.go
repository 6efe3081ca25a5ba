// Package ratelimit paces outbound Calendly calls so a busy client stays
// under the account's request allowance.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter combines a per-minute token bucket with a per-hour quota. A zero
// limit disables that tier; a nil *Limiter allows everything.
type Limiter struct {
	perMinute int
	perHour   int
	now       func() time.Time

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	hourStart  time.Time
	hourCount  int
}

func New(perMinute, perHour int) *Limiter {
	l := &Limiter{perMinute: perMinute, perHour: perHour, now: time.Now}
	l.reset()
	return l
}

func (l *Limiter) reset() {
	now := l.now()
	l.tokens = float64(l.perMinute)
	l.lastRefill = now
	l.hourStart = now.Truncate(time.Hour)
	l.hourCount = 0
}

// QuotaError reports an exhausted hourly quota. Waiting for it is pointless
// within a single call, so Wait returns it immediately.
type QuotaError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("hourly request quota of %d reached, retry after %s", e.Limit, e.RetryAfter.Truncate(time.Second))
}

// Wait blocks until the call may proceed, ctx ends, or the hourly quota is
// exhausted.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || (l.perMinute <= 0 && l.perHour <= 0) {
		return nil
	}
	for {
		delay, err := l.take()
		if err != nil || delay == 0 {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes capacity, or says how long until a minute token frees up.
func (l *Limiter) take() (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	if l.perHour > 0 {
		if start := now.Truncate(time.Hour); !start.Equal(l.hourStart) {
			l.hourStart = start
			l.hourCount = 0
		}
		if l.hourCount >= l.perHour {
			return 0, &QuotaError{Limit: l.perHour, RetryAfter: l.hourStart.Add(time.Hour).Sub(now)}
		}
	}

	if l.perMinute > 0 {
		rate := float64(l.perMinute) / 60
		l.tokens += now.Sub(l.lastRefill).Seconds() * rate
		if l.tokens > float64(l.perMinute) {
			l.tokens = float64(l.perMinute)
		}
		l.lastRefill = now
		if l.tokens < 1 {
			delay := time.Duration((1 - l.tokens) / rate * float64(time.Second))
			if delay < time.Millisecond {
				delay = time.Millisecond
			}
			return delay, nil
		}
		l.tokens--
	}

	if l.perHour > 0 {
		l.hourCount++
	}
	return 0, nil
}

type Stats struct {
	PerMinute     int     `json:"per_minute"`
	PerHour       int     `json:"per_hour"`
	TokensLeft    float64 `json:"tokens_left"`
	HourRemaining int     `json:"hour_remaining"`
}

// Stats reports the configured limits and what is left of them.
func (l *Limiter) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Stats{PerMinute: l.perMinute, PerHour: l.perHour, TokensLeft: l.tokens}
	if l.perHour > 0 {
		s.HourRemaining = l.perHour - l.hourCount
	}
	return s
}
