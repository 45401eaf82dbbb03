package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if _, ok := GetRequestID(context.Background()); ok {
			t.Error("Expected no request ID on empty context")
		}
	})

	t.Run("with request ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithRequestID(context.Background(), "req-123")
		requestID, ok := GetRequestID(ctx)
		if !ok || requestID != "req-123" {
			t.Errorf("Expected req-123, got %q (ok=%v)", requestID, ok)
		}
	})
}

func TestRunAndProjectContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if GetRunID(ctx) != "" || GetProjectID(ctx) != "" || GetUserID(ctx) != "" {
		t.Fatal("Expected empty values on background context")
	}

	ctx = WithRunID(ctx, "run-1")
	ctx = WithProjectID(ctx, "agr001")
	ctx = WithUserID(ctx, "U123")

	if got := GetRunID(ctx); got != "run-1" {
		t.Errorf("GetRunID() = %q, want run-1", got)
	}
	if got := GetProjectID(ctx); got != "agr001" {
		t.Errorf("GetProjectID() = %q, want agr001", got)
	}
	if got := GetUserID(ctx); got != "U123" {
		t.Errorf("GetUserID() = %q, want U123", got)
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithRequestID(parent, "req-9")
	parent = WithRunID(parent, "run-9")
	parent = WithProjectID(parent, "fish001")
	parent = WithUserID(parent, "U9")
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Error("Detached context must not inherit cancellation")
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("Detached context must not inherit deadline")
	}
	if id, _ := GetRequestID(detached); id != "req-9" {
		t.Errorf("request ID = %q, want req-9", id)
	}
	if GetRunID(detached) != "run-9" || GetProjectID(detached) != "fish001" || GetUserID(detached) != "U9" {
		t.Error("Tracing values were not preserved")
	}
}
