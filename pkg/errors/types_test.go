// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"testing"
)

func TestNewSetsCategoryAndRetryable(t *testing.T) {
	err := New(ErrorCodeBrokerTimeout, "timed out")
	if err.Category != CategoryBroker {
		t.Fatalf("expected CategoryBroker, got %s", err.Category)
	}
	if !err.IsRetryable() {
		t.Fatal("expected broker timeout to be retryable")
	}
}

func TestNewInfeasibleNotRetryable(t *testing.T) {
	err := New(ErrorCodeInfeasible, "no host")
	if err.IsRetryable() {
		t.Fatal("expected infeasible to not be retryable")
	}
	if err.Category != CategoryScheduling {
		t.Fatalf("expected CategoryScheduling, got %s", err.Category)
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := New(ErrorCodeStaleToken, "a")
	b := New(ErrorCodeStaleToken, "b")
	if !errors.Is(a, b) {
		t.Fatal("expected errors with same code to match via errors.Is")
	}

	c := New(ErrorCodeQueueEmpty, "c")
	if errors.Is(a, c) {
		t.Fatal("expected errors with different codes to not match")
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewWithCause(ErrorCodeBrokerConnRefused, "broker down", cause)
	if errors.Unwrap(err) != cause {
		t.Fatal("expected Unwrap to return the original cause")
	}
}

func TestErrorMessageIncludesDetails(t *testing.T) {
	err := New(ErrorCodeValidationFailed, "bad field")
	err.Details = "profile.cpu_model empty"
	got := err.Error()
	want := "[VALIDATION_FAILED] bad field: profile.cpu_model empty"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
