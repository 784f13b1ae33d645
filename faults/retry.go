package faults

import (
	"context"
	"time"
)

// RetryConfig controls the retry helper.
type RetryConfig struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// Multiplier grows the delay after each attempt. Values below 1 are
	// treated as 1 (constant delay).
	Multiplier float64
}

// DefaultRetryConfig returns 3 attempts with 100ms base delay doubling
// each attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2,
	}
}

// Retry runs op up to cfg.MaxAttempts times, retrying only while the
// classified failure is retryable. The delay between attempts grows
// multiplicatively. On exhaustion, or as soon as a non-retryable failure is
// classified, the last record is returned. Context cancellation between
// attempts returns a timeout record.
func (c *Classifier) Retry(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	delay := cfg.BaseDelay
	var last *Record

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		last = c.Handle(err, map[string]any{"attempt": attempt})
		if !last.Retryable || attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return c.Handle(Timeoutf("retry aborted: %v", ctx.Err()), map[string]any{"attempt": attempt})
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	return last
}
