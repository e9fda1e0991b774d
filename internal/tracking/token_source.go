// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tomtom215/watchrelay/internal/logging"
)

// TokenSource yields the anonymous app credential TV Time requires before
// an account login. The app only hands it out to a real browser session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a token obtained out of band.
type StaticTokenSource string

// Token implements TokenSource.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	token := cleanToken(string(s))
	if token == "" {
		return "", &AuthError{Service: "tvtime", Message: "static app token is empty"}
	}
	return token, nil
}

// CommandTokenSource runs an external command, typically a headless
// browser script, that prints the token on stdout. The command is polled
// a bounded number of times because the app writes the token some time
// after the page loads.
type CommandTokenSource struct {
	Command []string
	// Attempts bounds the number of runs.
	Attempts int
	// Delay and Step set the wait before run i (1-based): Delay + Step*i.
	Delay time.Duration
	Step  time.Duration

	// run executes the command. Replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
	// sleep waits between runs. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCommandTokenSource creates a command source with the given polling
// budget.
func NewCommandTokenSource(command []string, attempts int, delay, step time.Duration) *CommandTokenSource {
	return &CommandTokenSource{
		Command:  command,
		Attempts: attempts,
		Delay:    delay,
		Step:     step,
		run:      runCommand,
		sleep:    sleepContext,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // command comes from operator config
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Token implements TokenSource. Exhausting every attempt is a
// non-retryable authentication failure.
func (s *CommandTokenSource) Token(ctx context.Context) (string, error) {
	if len(s.Command) == 0 {
		return "", &AuthError{Service: "tvtime", Message: "no app token configured", Hint: "set tvtime.jwt_token or tvtime.token_command"}
	}

	logger := logging.Ctx(ctx)
	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := s.sleep(ctx, s.Delay+s.Step*time.Duration(i)); err != nil {
			return "", err
		}

		logger.Debug().Int("attempt", i).Int("max_attempts", attempts).Msg("Fetching TV Time app token")
		out, err := s.run(ctx, s.Command[0], s.Command[1:]...)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			lastErr = err
			logger.Warn().Err(err).Int("attempt", i).Msg("App token command failed")
			continue
		}
		if token := cleanToken(string(out)); token != "" {
			logger.Info().Int("attempt", i).Msg("TV Time app token fetched")
			return token, nil
		}
	}

	msg := fmt.Sprintf("unable to obtain app token after %d attempts", attempts)
	if lastErr != nil {
		msg = fmt.Sprintf("%s: %v", msg, lastErr)
	}
	return "", &AuthError{Service: "tvtime", Message: msg, Hint: "check tvtime.token_command"}
}

// cleanToken trims whitespace and the JSON quotes local storage keeps
// around string values.
func cleanToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	if s == "null" {
		return ""
	}
	return s
}
