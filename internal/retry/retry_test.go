// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubSleep records requested waits without sleeping.
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = orig })
	return &waits
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	waits := stubSleep(t)

	calls := 0
	err := Do(context.Background(), Policy{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}, "op",
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, (*waits)[i], want[i])
		}
	}
}

func TestDo_Exhausted(t *testing.T) {
	stubSleep(t)

	cause := errors.New("still down")
	calls := 0
	err := Do(context.Background(), Policy{MaxRetries: 2, InitialDelay: time.Millisecond}, "op",
		func(context.Context) error {
			calls++
			return cause
		})

	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 attempt + 2 retries)", calls)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	waits := stubSleep(t)

	cause := errors.New("bad credentials")
	calls := 0
	err := Do(context.Background(), DefaultPolicy(), "op", func(context.Context) error {
		calls++
		return Permanent(cause)
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(*waits) != 0 {
		t.Errorf("expected no waits, got %v", *waits)
	}
	if !errors.Is(err, cause) || !IsPermanent(err) {
		t.Errorf("err = %v, want permanent wrapping cause", err)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	stubSleep(t)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, DefaultPolicy(), "op", func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWrap_ReturnsValue(t *testing.T) {
	stubSleep(t)

	op := Wrap(DefaultPolicy(), "value", func(context.Context) (string, error) {
		return "token", nil
	})
	got, err := op(context.Background())
	if err != nil || got != "token" {
		t.Errorf("got (%q, %v), want (token, nil)", got, err)
	}
}

func TestPolicy_DelayCappedAndJittered(t *testing.T) {
	t.Parallel()

	p := Policy{InitialDelay: 4 * time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2, Jitter: 0.1}

	if got := p.next(8 * time.Second); got != 10*time.Second {
		t.Errorf("next(8s) = %v, want capped 10s", got)
	}
	for i := 0; i < 100; i++ {
		got := p.withJitter(10 * time.Second)
		if got < 9*time.Second || got > 11*time.Second {
			t.Fatalf("withJitter(10s) = %v, outside 10%% band", got)
		}
	}
}

func TestPermanentNil(t *testing.T) {
	t.Parallel()

	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
