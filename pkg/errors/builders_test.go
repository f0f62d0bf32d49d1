// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"testing"
)

func TestWrapPassesThroughDistschedError(t *testing.T) {
	original := New(ErrorCodeInfeasible, "no host")
	wrapped := Wrap(original)
	if wrapped != original {
		t.Fatal("expected Wrap to return the same *DistschedError unchanged")
	}
}

func TestWrapClassifiesConnectionRefused(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	wrapped := Wrap(cause)
	if wrapped.Code != ErrorCodeBrokerConnRefused {
		t.Fatalf("expected ErrorCodeBrokerConnRefused, got %s", wrapped.Code)
	}
}

func TestNewBrokerErrorIncludesOp(t *testing.T) {
	cause := errors.New("i/o timeout")
	err := NewBrokerError("blocking_pop_tail", cause)
	if err.Op != "blocking_pop_tail" {
		t.Fatalf("expected op to be recorded, got %q", err.Op)
	}
	if err.Code != ErrorCodeBrokerTimeout {
		t.Fatalf("expected ErrorCodeBrokerTimeout, got %s", err.Code)
	}
}

func TestNewInfeasibleErrorCarriesTaskID(t *testing.T) {
	err := NewInfeasibleError("task-1", "no node has >= 4 vcpu free")
	if err.TaskID != "task-1" {
		t.Fatalf("expected task id to be recorded, got %q", err.TaskID)
	}
	if err.Code != ErrorCodeInfeasible {
		t.Fatalf("expected ErrorCodeInfeasible, got %s", err.Code)
	}
}
