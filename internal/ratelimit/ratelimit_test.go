package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDisabledLimiterAllows(t *testing.T) {
	var nilLimiter *Limiter
	for _, l := range []*Limiter{New(0, 0), nilLimiter} {
		for i := 0; i < 50; i++ {
			if err := l.Wait(context.Background()); err != nil {
				t.Fatalf("disabled limiter rejected call %d: %v", i, err)
			}
		}
	}
}

func TestPerMinuteBurstThenWait(t *testing.T) {
	const perMinute = 3
	l := New(perMinute, 0)
	for i := 0; i < perMinute; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("call %d should pass: %v", i+1, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected to wait past the deadline, got %v", err)
	}
}

func TestPerMinuteRefill(t *testing.T) {
	clock := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l := New(60, 0)
	l.now = func() time.Time { return clock }
	l.reset()

	for i := 0; i < 60; i++ {
		if delay, err := l.take(); err != nil || delay != 0 {
			t.Fatalf("call %d: delay=%s err=%v", i+1, delay, err)
		}
	}
	if delay, _ := l.take(); delay == 0 {
		t.Fatalf("bucket should be empty")
	}
	clock = clock.Add(time.Second)
	if delay, err := l.take(); err != nil || delay != 0 {
		t.Fatalf("one token should refill after a second: delay=%s err=%v", delay, err)
	}
}

func TestHourlyQuota(t *testing.T) {
	clock := time.Date(2026, 1, 1, 10, 59, 0, 0, time.UTC)
	l := New(0, 2)
	l.now = func() time.Time { return clock }
	l.reset()

	for i := 0; i < 2; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("call %d should pass: %v", i+1, err)
		}
	}
	err := l.Wait(context.Background())
	var quota *QuotaError
	if !errors.As(err, &quota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if quota.RetryAfter != time.Minute {
		t.Fatalf("unexpected retry after %s", quota.RetryAfter)
	}
	if got := l.Stats().HourRemaining; got != 0 {
		t.Fatalf("unexpected remaining %d", got)
	}

	clock = clock.Add(time.Minute)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("quota should reset on the hour: %v", err)
	}
}
