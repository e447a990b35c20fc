// Package retry implements the retry-with-reauthentication policy for
// session-bound API operations.
//
// A transient failure (lost session, transport timeout, generic API
// rejection) is recovered by relogging in and re-issuing the operation
// with exponential backoff. A fatal failure (protected target, bad
// credentials) is never retried. Exhausting the retry budget raises a
// TerminalError naming the attempted action.
//
// Retried writes are not transactionally guarded: a transient error
// that masked a server-side success (timeout after the edit committed)
// can double-apply on retry. The action API has no idempotency tokens,
// so this is an accepted risk.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/wikibot/internal/core/domain"
	"github.com/vietddude/wikibot/internal/metrics"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries    int           // retries after the initial attempt
	RetryInterval time.Duration // backoff unit
}

// DefaultConfig matches the action API's historical bot defaults.
var DefaultConfig = Config{
	MaxRetries:    3,
	RetryInterval: 10 * time.Second,
}

// Reauthenticator restores a lost session. Implementations must
// serialize concurrent relogins internally: two goroutines relogging
// in simultaneously would invalidate each other's session.
type Reauthenticator interface {
	Reauthenticate(ctx context.Context) error
}

// FailureSink receives fatal errors instead of having them propagated.
// Best-effort batch callers use it so one protected page does not
// abort a whole run.
type FailureSink func(err error)

// Operation performs one attempt. It must close over everything the
// attempt needs and must re-resolve any session-bound handle (page
// info, csrf token) on each invocation: handles obtained before a
// relogin are stale, and retrying with one produces silent failures.
type Operation func(ctx context.Context) error

// Engine drives operations through the retry policy.
type Engine struct {
	session Reauthenticator
	cfg     Config
	sink    FailureSink
	log     *slog.Logger
}

// NewEngine creates an engine bound to one session.
func NewEngine(session Reauthenticator, cfg Config) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig.MaxRetries
	}
	if cfg.RetryInterval < 0 {
		cfg.RetryInterval = DefaultConfig.RetryInterval
	}
	return &Engine{
		session: session,
		cfg:     cfg,
		log:     slog.Default(),
	}
}

// WithFailureSink returns a shallow copy of the engine that diverts
// fatal operation errors to sink instead of returning them.
func (e *Engine) WithFailureSink(sink FailureSink) *Engine {
	clone := *e
	clone.sink = sink
	return &clone
}

// Backoff returns the delay before retry attempt (0-based):
// (2^attempt - 1) * interval, so the first retry fires immediately
// and sustained outages back off as 0, 1x, 3x, 7x, ...
func Backoff(attempt int, interval time.Duration) time.Duration {
	return time.Duration((int64(1)<<uint(attempt))-1) * interval
}

// Do executes op under the retry policy. action names the operation
// ("edit", "move", "delete", "api") for errors and metrics.
//
// On success the result of the first succeeding attempt stands. A
// cancelled context yields ctx.Err() between attempts, never a
// TerminalError.
func (e *Engine) Do(ctx context.Context, action string, op Operation) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	if domain.Classify(err) == domain.ActionFatal {
		return e.fatal(action, err)
	}

	lastErr := err
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.log.Warn("transient failure, relogging in and retrying",
			"action", action, "attempt", attempt+1, "error", lastErr)
		metrics.RetriesTotal.WithLabelValues(action).Inc()

		if err := e.session.Reauthenticate(ctx); err != nil {
			// Invalid credentials (or a dead transport during login)
			// cannot be recovered by further retries.
			return err
		}
		metrics.ReloginsTotal.Inc()

		if delay := Backoff(attempt, e.cfg.RetryInterval); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if domain.Classify(err) == domain.ActionFatal {
			return e.fatal(action, err)
		}
		lastErr = err
	}

	metrics.TerminalFailuresTotal.WithLabelValues(action).Inc()
	return &domain.TerminalError{Action: action, Attempts: e.cfg.MaxRetries, Err: lastErr}
}

func (e *Engine) fatal(action string, err error) error {
	if e.sink != nil {
		e.log.Error("unrecoverable failure, reporting to sink", "action", action, "error", err)
		e.sink(err)
		return nil
	}
	return err
}
