package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind is the closed set of failure causes the client distinguishes.
// Classification is always by kind, never by message text.
type ErrorKind string

const (
	// Transient kinds: recoverable by relogging in and retrying.
	KindAuthExpired ErrorKind = "auth_expired" // session lost, badtoken, assert failure
	KindTimeout     ErrorKind = "timeout"      // transport read timeout
	KindAPI         ErrorKind = "api_error"    // generic server-side rejection

	// Fatal kinds: never retried.
	KindProtected      ErrorKind = "protected"       // write target is protected
	KindBadCredentials ErrorKind = "bad_credentials" // login rejected
	KindOther          ErrorKind = "other"
)

// ErrorAction determines how the retry engine handles an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// Classify returns the retry action for err based on its kind.
func Classify(err error) ErrorAction {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindAuthExpired, KindTimeout, KindAPI:
			return ActionRetry
		}
	}
	return ActionFatal
}

// APIError is a classified failure from one API round trip.
type APIError struct {
	Kind ErrorKind
	Code string // API error code, e.g. "badtoken", "protectedpage"
	Info string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] %s: %s", e.Kind, e.Code, e.Info)
	}
	return fmt.Sprintf("api error [%s]: %s", e.Kind, e.Info)
}

// TerminalError is raised when the retry budget is exhausted without
// success. It names the attempted action so log consumers can tell
// "gave up after retries" apart from a one-off transient error.
type TerminalError struct {
	Action   string // "edit", "move", "delete", "api"
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: relogged in and retried %d times and still failed: %v", e.Action, e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

// ContinuationError is raised when an aggregation run breaks mid-way.
// It carries the 1-based call index and the parameter set at failure
// time so the caller can resume or diagnose from the last good page.
type ContinuationError struct {
	CallIndex int
	Action    string
	Params    map[string]string
	Err       error
}

func (e *ContinuationError) Error() string {
	return fmt.Sprintf("continued api call %d failed: action=%q params=%s: %v",
		e.CallIndex, e.Action, formatParams(e.Params), e.Err)
}

func (e *ContinuationError) Unwrap() error { return e.Err }

// ProtocolError indicates the server's continuation block violated the
// pagination contract: the pinned key is absent, or a present key
// carries no usable token.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "continuation protocol error: " + e.Reason }

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%q", k, params[k])
	}
	sb.WriteByte('}')
	return sb.String()
}
