package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		expect ErrorAction
	}{
		{&APIError{Kind: KindAuthExpired, Code: "assertuserfailed"}, ActionRetry},
		{&APIError{Kind: KindAuthExpired, Code: "badtoken"}, ActionRetry},
		{&APIError{Kind: KindTimeout}, ActionRetry},
		{&APIError{Kind: KindAPI, Code: "internal_api_error"}, ActionRetry},
		{&APIError{Kind: KindProtected, Code: "protectedpage"}, ActionFatal},
		{&APIError{Kind: KindBadCredentials, Code: "Failed"}, ActionFatal},
		{&APIError{Kind: KindOther}, ActionFatal},
		{errors.New("connection refused"), ActionFatal},
		{fmt.Errorf("wrapped: %w", &APIError{Kind: KindTimeout}), ActionRetry},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.expect {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestTerminalError(t *testing.T) {
	inner := &APIError{Kind: KindTimeout, Info: "read timeout"}
	err := &TerminalError{Action: "edit", Attempts: 3, Err: inner}

	if !strings.Contains(err.Error(), "edit") {
		t.Errorf("TerminalError should name the action: %v", err)
	}
	if !errors.Is(err, inner) {
		t.Errorf("TerminalError should wrap the last attempt's error")
	}
}

func TestContinuationError(t *testing.T) {
	err := &ContinuationError{
		CallIndex: 3,
		Action:    "query",
		Params:    map[string]string{"list": "categorymembers", "cmcontinue": "B"},
		Err:       errors.New("boom"),
	}

	msg := err.Error()
	for _, want := range []string{"3", "query", `cmcontinue="B"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("ContinuationError message missing %q: %s", want, msg)
		}
	}
}
