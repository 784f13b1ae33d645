package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/richinex/ixion/telemetry"
)

func TestHandleWrapsPlainError(t *testing.T) {
	c := NewClassifier(nil, nil, Options{})

	record := c.Handle(errors.New("something broke"), map[string]any{"stage": "test"})
	if record.Kind != KindRuntime {
		t.Errorf("expected runtime kind, got %s", record.Kind)
	}
	if record.Severity != SeverityMedium {
		t.Errorf("expected medium severity, got %s", record.Severity)
	}
	if record.Retryable {
		t.Error("plain errors should not be retryable")
	}
	if record.Context["stage"] != "test" {
		t.Error("expected context to be attached")
	}
}

func TestHandlePreservesTypedRecord(t *testing.T) {
	c := NewClassifier(nil, nil, Options{})

	original := Networkf("connection refused")
	wrapped := fmt.Errorf("invoking provider: %w", original)

	record := c.Handle(wrapped, map[string]any{"provider": "openai"})
	if record.Kind != KindNetwork {
		t.Errorf("expected network kind, got %s", record.Kind)
	}
	if !record.Retryable {
		t.Error("network faults should be retryable")
	}
	if record.Context["provider"] != "openai" {
		t.Error("expected merged context")
	}
	// Immutability: the original record must not gain context.
	if original.Context != nil {
		t.Error("original record was mutated")
	}
}

func TestHandleNil(t *testing.T) {
	c := NewClassifier(nil, nil, Options{})
	if record := c.Handle(nil, nil); record != nil {
		t.Errorf("expected nil record for nil error, got %v", record)
	}
}

func TestDedupSuppressesRepeats(t *testing.T) {
	recorder := telemetry.NewRecorder(nil)
	c := NewClassifier(recorder, nil, Options{DedupWindow: time.Minute, DedupThreshold: 10})

	for i := 0; i < 11; i++ {
		c.Handle(Networkf("connection reset"), nil)
	}

	if got := recorder.Counter("errors.total"); got != 10 {
		t.Errorf("expected 10 forwarded errors, got %d", got)
	}
	if got := c.Suppressed(); got != 1 {
		t.Errorf("expected 1 suppressed error, got %d", got)
	}
}

func TestDedupWindowRollover(t *testing.T) {
	recorder := telemetry.NewRecorder(nil)
	c := NewClassifier(recorder, nil, Options{DedupWindow: 10 * time.Millisecond, DedupThreshold: 2})

	for i := 0; i < 3; i++ {
		c.Handle(Runtimef("flapping"), nil)
	}
	if got := recorder.Counter("errors.total"); got != 2 {
		t.Fatalf("expected 2 forwarded before window rolls, got %d", got)
	}

	time.Sleep(15 * time.Millisecond)

	c.Handle(Runtimef("flapping"), nil)
	if got := recorder.Counter("errors.total"); got != 3 {
		t.Errorf("expected forwarding to resume after window, got %d", got)
	}
}

func TestDedupKeyIncludesKind(t *testing.T) {
	recorder := telemetry.NewRecorder(nil)
	c := NewClassifier(recorder, nil, Options{DedupThreshold: 1})

	c.Handle(Networkf("boom"), nil)
	c.Handle(Runtimef("boom"), nil)

	// Same message, different kinds: both forwarded.
	if got := recorder.Counter("errors.total"); got != 2 {
		t.Errorf("expected 2 forwarded, got %d", got)
	}
}

func TestRetryExhaustsRetryableError(t *testing.T) {
	c := NewClassifier(nil, nil, Options{})

	attempts := 0
	err := c.Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2},
		func(context.Context) error {
			attempts++
			return Timeoutf("deadline exceeded")
		})

	if attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", attempts)
	}
	var record *Record
	if !errors.As(err, &record) {
		t.Fatalf("expected a classified record, got %T", err)
	}
	if record.Kind != KindTimeout {
		t.Errorf("expected timeout kind, got %s", record.Kind)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	c := NewClassifier(nil, nil, Options{})

	attempts := 0
	err := c.Retry(context.Background(), RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond},
		func(context.Context) error {
			attempts++
			return Validationf("bad input")
		})

	if attempts != 1 {
		t.Errorf("expected 1 attempt for non-retryable error, got %d", attempts)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRetrySucceedsEventually(t *testing.T) {
	c := NewClassifier(nil, nil, Options{})

	attempts := 0
	err := c.Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
		func(context.Context) error {
			attempts++
			if attempts < 2 {
				return Networkf("transient")
			}
			return nil
		})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryBackoffGrows(t *testing.T) {
	c := NewClassifier(nil, nil, Options{})

	var stamps []time.Time
	_ = c.Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond, Multiplier: 2},
		func(context.Context) error {
			stamps = append(stamps, time.Now())
			return Networkf("still down")
		})

	if len(stamps) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(stamps))
	}
	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])
	if second < first {
		t.Errorf("expected growing delay, got %v then %v", first, second)
	}
}
