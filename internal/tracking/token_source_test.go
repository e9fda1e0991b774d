// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStaticTokenSource(t *testing.T) {
	t.Parallel()

	if tok, err := StaticTokenSource(" \"abc\"\n").Token(context.Background()); err != nil || tok != "abc" {
		t.Errorf("Token() = (%q, %v), want abc", tok, err)
	}
	if _, err := StaticTokenSource("null").Token(context.Background()); !errors.Is(err, ErrAuthentication) {
		t.Errorf("err = %v, want ErrAuthentication", err)
	}
}

func TestCommandTokenSource_PollsUntilToken(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	outputs := []string{"", "null\n", "\"eyJtoken\"\n"}
	var gotName string
	var gotArgs []string
	runs := 0

	src := NewCommandTokenSource([]string{"node", "fetch-token.js"}, 5, 5*time.Second, 2*time.Second)
	src.sleep = rec.sleep
	src.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		out := outputs[runs]
		runs++
		return []byte(out), nil
	}

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok != "eyJtoken" {
		t.Errorf("token = %q", tok)
	}
	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
	if gotName != "node" || len(gotArgs) != 1 || gotArgs[0] != "fetch-token.js" {
		t.Errorf("command = %s %v", gotName, gotArgs)
	}

	want := []time.Duration{7 * time.Second, 9 * time.Second, 11 * time.Second}
	waits := rec.recorded()
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestCommandTokenSource_BoundedAttempts(t *testing.T) {
	t.Parallel()

	runs := 0
	src := NewCommandTokenSource([]string{"fetch"}, 3, 0, 0)
	src.sleep = (&sleepRecorder{}).sleep
	src.run = func(context.Context, string, ...string) ([]byte, error) {
		runs++
		return nil, errors.New("browser crashed")
	}

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
	if !strings.Contains(err.Error(), "browser crashed") {
		t.Errorf("err = %v, want last failure included", err)
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Hint == "" {
		t.Errorf("expected hint, got %+v", authErr)
	}
	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
}

func TestCommandTokenSource_NoCommand(t *testing.T) {
	t.Parallel()

	src := NewCommandTokenSource(nil, 3, 0, 0)
	if _, err := src.Token(context.Background()); !errors.Is(err, ErrAuthentication) {
		t.Errorf("err = %v, want ErrAuthentication", err)
	}
}

func TestCommandTokenSource_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewCommandTokenSource([]string{"fetch"}, 3, time.Second, 0)
	src.sleep = sleepContext
	src.run = func(context.Context, string, ...string) ([]byte, error) {
		t.Error("command must not run after cancellation")
		return nil, nil
	}

	if _, err := src.Token(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
