package faults

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/richinex/ixion/telemetry"
)

// Default deduplication settings.
const (
	DefaultDedupWindow    = 60 * time.Second
	DefaultDedupThreshold = 10
)

// Options configures a Classifier. The zero value uses the defaults above.
type Options struct {
	// DedupWindow is the rolling window within which repeats are tracked.
	DedupWindow time.Duration

	// DedupThreshold is how many identical records are forwarded per window
	// before further repeats are suppressed.
	DedupThreshold int
}

type dedupKey struct {
	kind    Kind
	message string
}

type dedupEntry struct {
	windowStart time.Time
	count       int
}

// Classifier normalizes failures into Records, forwards them to telemetry
// and the log, and suppresses repeats that would flood both.
type Classifier struct {
	logger    *slog.Logger
	recorder  *telemetry.Recorder
	window    time.Duration
	threshold int

	mu         sync.Mutex
	seen       map[dedupKey]*dedupEntry
	suppressed int64
}

// NewClassifier creates a classifier that forwards error counters to the
// given recorder. A nil recorder disables counter forwarding.
func NewClassifier(recorder *telemetry.Recorder, logger *slog.Logger, opts Options) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	if opts.DedupThreshold <= 0 {
		opts.DedupThreshold = DefaultDedupThreshold
	}
	return &Classifier{
		logger:    logger.With("component", "faults"),
		recorder:  recorder,
		window:    opts.DedupWindow,
		threshold: opts.DedupThreshold,
		seen:      make(map[dedupKey]*dedupEntry),
	}
}

// Handle classifies err and returns the resulting record. An err that
// already carries a Record keeps its kind and severity, with extra context
// merged into a fresh copy. Anything else becomes runtime/medium.
//
// Forwarding (log line + telemetry counters) is deduplicated by
// (kind, message): once the threshold is hit inside the rolling window,
// further identical records are counted but neither logged nor counted in
// telemetry until the window rolls over.
func (c *Classifier) Handle(err error, context map[string]any) *Record {
	if err == nil {
		return nil
	}

	var record *Record
	if errors.As(err, &record) {
		record = record.withContext(context)
	} else {
		record = New(KindRuntime, err.Error())
		record = record.withContext(context)
	}

	if c.admit(record) {
		c.forward(record)
	}
	return record
}

// Suppressed returns the total number of records swallowed by deduplication.
func (c *Classifier) Suppressed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suppressed
}

// admit reports whether the record should be forwarded, updating dedup state.
func (c *Classifier) admit(record *Record) bool {
	key := dedupKey{kind: record.Kind, message: record.Message}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.seen[key]
	if !ok || now.Sub(entry.windowStart) > c.window {
		c.seen[key] = &dedupEntry{windowStart: now, count: 1}
		return true
	}

	entry.count++
	if entry.count > c.threshold {
		c.suppressed++
		return false
	}
	return true
}

func (c *Classifier) forward(record *Record) {
	level := slog.LevelWarn
	if record.Severity >= SeverityHigh {
		level = slog.LevelError
	}
	c.logger.Log(context.Background(), level, "fault handled",
		"kind", record.Kind.String(),
		"severity", record.Severity.String(),
		"message", record.Message,
		"retryable", record.Retryable)

	if c.recorder != nil {
		c.recorder.Inc("errors.total")
		c.recorder.Inc("errors." + record.Kind.String())
	}
}
