package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/wikibot/internal/core/domain"
)

// =============================================================================
// Mock session
// =============================================================================

type mockSession struct {
	relogins   int
	reloginErr error
}

func (s *mockSession) Reauthenticate(ctx context.Context) error {
	s.relogins++
	return s.reloginErr
}

func transientErr() error {
	return &domain.APIError{Kind: domain.KindAPI, Code: "internal_api_error", Info: "backend fetch failed"}
}

func fatalErr() error {
	return &domain.APIError{Kind: domain.KindProtected, Code: "protectedpage", Info: "this page is protected"}
}

// scriptedOp fails with the scripted errors in order, then succeeds.
type scriptedOp struct {
	errs  []error
	calls int
}

func (o *scriptedOp) run(ctx context.Context) error {
	o.calls++
	if o.calls <= len(o.errs) {
		return o.errs[o.calls-1]
	}
	return nil
}

func newEngine(s *mockSession, maxRetries int) *Engine {
	return NewEngine(s, Config{MaxRetries: maxRetries, RetryInterval: time.Millisecond})
}

// =============================================================================
// Tests
// =============================================================================

func TestBackoff(t *testing.T) {
	interval := 10 * time.Second
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 10 * time.Second},
		{2, 30 * time.Second},
		{3, 70 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(tt.attempt, interval); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	session := &mockSession{}
	op := &scriptedOp{}

	if err := newEngine(session, 3).Do(context.Background(), "edit", op.run); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if op.calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", op.calls)
	}
	if session.relogins != 0 {
		t.Errorf("Expected no relogins, got %d", session.relogins)
	}
}

func TestDo_RecoversWithinBudget(t *testing.T) {
	session := &mockSession{}
	op := &scriptedOp{errs: []error{transientErr(), transientErr()}}

	if err := newEngine(session, 3).Do(context.Background(), "edit", op.run); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if op.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", op.calls)
	}
	// One relogin per failed attempt.
	if session.relogins != 2 {
		t.Errorf("Expected 2 relogins, got %d", session.relogins)
	}
}

func TestDo_ExhaustedBudget(t *testing.T) {
	session := &mockSession{}
	op := &scriptedOp{errs: []error{
		transientErr(), transientErr(), transientErr(), transientErr(), transientErr(),
	}}

	err := newEngine(session, 3).Do(context.Background(), "move", op.run)

	var terminal *domain.TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("Expected TerminalError, got %v", err)
	}
	if terminal.Action != "move" {
		t.Errorf("Expected action move, got %q", terminal.Action)
	}
	if terminal.Attempts != 3 {
		t.Errorf("Expected 3 recorded retries, got %d", terminal.Attempts)
	}
	// Initial attempt plus exactly MaxRetries retries, not more.
	if op.calls != 4 {
		t.Errorf("Expected 4 attempts, got %d", op.calls)
	}
	if session.relogins != 3 {
		t.Errorf("Expected 3 relogins, got %d", session.relogins)
	}
}

func TestDo_FatalShortCircuits(t *testing.T) {
	session := &mockSession{}
	op := &scriptedOp{errs: []error{fatalErr()}}

	err := newEngine(session, 3).Do(context.Background(), "edit", op.run)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != domain.KindProtected {
		t.Fatalf("Expected protected APIError, got %v", err)
	}
	if op.calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", op.calls)
	}
	if session.relogins != 0 {
		t.Errorf("Fatal error must not trigger relogin, got %d", session.relogins)
	}
}

func TestDo_FatalMidRetryShortCircuits(t *testing.T) {
	session := &mockSession{}
	op := &scriptedOp{errs: []error{transientErr(), fatalErr()}}

	err := newEngine(session, 3).Do(context.Background(), "edit", op.run)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != domain.KindProtected {
		t.Fatalf("Expected protected APIError, got %v", err)
	}
	if op.calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", op.calls)
	}
}

func TestDo_SinkDivertsFatal(t *testing.T) {
	session := &mockSession{}
	op := &scriptedOp{errs: []error{fatalErr()}}

	var sunk error
	engine := newEngine(session, 3).WithFailureSink(func(err error) { sunk = err })

	if err := engine.Do(context.Background(), "edit", op.run); err != nil {
		t.Fatalf("Sink configured, expected nil error, got %v", err)
	}
	var apiErr *domain.APIError
	if !errors.As(sunk, &apiErr) || apiErr.Kind != domain.KindProtected {
		t.Errorf("Sink received %v, want protected APIError", sunk)
	}
}

func TestDo_SinkNotUsedForTransient(t *testing.T) {
	session := &mockSession{}
	op := &scriptedOp{errs: []error{transientErr()}}

	var sunk error
	engine := newEngine(session, 3).WithFailureSink(func(err error) { sunk = err })

	if err := engine.Do(context.Background(), "edit", op.run); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if sunk != nil {
		t.Errorf("Transient recovery must not touch the sink, got %v", sunk)
	}
	if session.relogins != 1 {
		t.Errorf("Expected 1 relogin, got %d", session.relogins)
	}
}

func TestDo_CancelledBetweenAttempts(t *testing.T) {
	session := &mockSession{}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	op := func(ctx context.Context) error {
		calls++
		if calls == 2 {
			// Caller aborts after the first retry is in flight.
			cancel()
		}
		return transientErr()
	}

	err := newEngine(session, 3).Do(ctx, "edit", op)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	var terminal *domain.TerminalError
	if errors.As(err, &terminal) {
		t.Errorf("Cancellation must not surface as TerminalError")
	}
	if calls != 2 {
		t.Errorf("Expected 2 attempts before cancellation, got %d", calls)
	}
}

func TestDo_ReloginFailurePropagates(t *testing.T) {
	badCreds := &domain.APIError{Kind: domain.KindBadCredentials, Code: "Failed", Info: "incorrect password"}
	session := &mockSession{reloginErr: badCreds}
	op := &scriptedOp{errs: []error{transientErr(), transientErr()}}

	err := newEngine(session, 3).Do(context.Background(), "edit", op.run)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != domain.KindBadCredentials {
		t.Fatalf("Expected bad credentials error, got %v", err)
	}
	// The failed relogin stops the loop; the operation is not retried.
	if op.calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", op.calls)
	}
	if session.relogins != 1 {
		t.Errorf("Expected 1 relogin attempt, got %d", session.relogins)
	}
}
