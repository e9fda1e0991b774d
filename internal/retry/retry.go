// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

// Package retry provides exponential backoff with jitter as a wrapper
// around an operation.
//
// An operation is retried until it succeeds, returns an error marked with
// Permanent, the context is done, or MaxRetries retries have been spent:
//
//	login := retry.Wrap(policy, "trakt.login", client.exchangeToken)
//	token, err := login(ctx)
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/tomtom215/watchrelay/internal/logging"
)

// Policy configures backoff between attempts.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay after each retry.
	BackoffFactor float64
	// Jitter is the fraction (0-1) of random spread applied to each delay.
	Jitter float64
}

// DefaultPolicy returns 3 retries, 1s initial delay doubling up to 10s,
// with 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
		Jitter:        0.1,
	}
}

// ErrExhausted is wrapped by the error returned once every retry failed.
var ErrExhausted = errors.New("retries exhausted")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The wrapper returns it
// unchanged apart from the marker, so errors.Is still sees the cause.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// sleep waits for d or until ctx is done. Replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wrap returns op guarded by the policy.
func Wrap[T any](p Policy, name string, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		delay := p.InitialDelay

		for attempt := 0; ; attempt++ {
			result, err := op(ctx)
			if err == nil {
				return result, nil
			}
			if IsPermanent(err) {
				return zero, err
			}
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			if attempt >= p.MaxRetries {
				logging.Ctx(ctx).Error().Err(err).
					Str("operation", name).
					Int("max_retries", p.MaxRetries).
					Msg("Max retries exceeded")
				return zero, fmt.Errorf("%s: %w after %d attempts: %w", name, ErrExhausted, attempt+1, err)
			}

			wait := p.withJitter(delay)
			logging.Ctx(ctx).Warn().Err(err).
				Str("operation", name).
				Int("retry", attempt+1).
				Int("max_retries", p.MaxRetries).
				Dur("delay", wait).
				Msg("Retrying after failure")

			if err := sleep(ctx, wait); err != nil {
				return zero, err
			}
			delay = p.next(delay)
		}
	}
}

// Do runs op under the policy.
func Do(ctx context.Context, p Policy, name string, op func(context.Context) error) error {
	_, err := Wrap(p, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})(ctx)
	return err
}

func (p Policy) next(d time.Duration) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	next := time.Duration(float64(d) * factor)
	if p.MaxDelay > 0 && next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}

func (p Policy) withJitter(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * p.Jitter * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto randomness
	return d + time.Duration(spread)
}
