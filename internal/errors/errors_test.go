package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCapabilityErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := CapabilityUnavailable("llm", cause)

	if !IsCapabilityUnavailable(err) {
		t.Fatal("not recognized as capability failure")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost through wrapping")
	}
	wrapped := fmt.Errorf("classify: %w", err)
	if !IsCapabilityUnavailable(wrapped) {
		t.Fatal("not recognized after outer wrap")
	}
}

func TestMalformedOutputTruncatesRaw(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	err := MalformedOutput("classifier", string(long), errors.New("bad json"))

	var me *MalformedOutputError
	if !errors.As(err, &me) {
		t.Fatal("wrong type")
	}
	if len(me.Raw) != 256 {
		t.Fatalf("raw kept %d bytes", len(me.Raw))
	}
	if !IsMalformedOutput(err) {
		t.Fatal("not recognized as malformed output")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := Retry(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("fn called %d times", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}

	last := errors.New("still down")
	err := Retry(context.Background(), cfg, func(context.Context) error {
		return last
	}, nil)
	if !errors.Is(err, last) {
		t.Fatalf("err = %v", err)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, DefaultRetryConfig(), func(context.Context) error {
		calls++
		return errors.New("never succeeds")
	}, nil)
	if err == nil {
		t.Fatal("cancelled retry returned nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if calls != 0 {
		t.Fatalf("fn ran %d times after cancel", calls)
	}
}
