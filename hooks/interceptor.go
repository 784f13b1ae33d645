package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richinex/ixion/faults"
	"github.com/richinex/ixion/telemetry"
)

// Limits bounds hook concurrency for both pipelines.
type Limits struct {
	// MaxActive is an advisory ceiling on concurrently running hooks.
	// Interceptors wait for a slot but eventually proceed anyway;
	// breakpoints are skipped outright at the ceiling.
	MaxActive int

	// SlotPoll is how often a waiting interceptor re-checks for a free slot.
	SlotPoll time.Duration

	// SlotWait is how long an interceptor waits before proceeding without
	// a free slot.
	SlotWait time.Duration

	// ObserveTimeout is how long a breakpoint may run before the caller
	// stops waiting for it.
	ObserveTimeout time.Duration
}

// DefaultLimits returns the standard concurrency bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxActive:      8,
		SlotPoll:       25 * time.Millisecond,
		SlotWait:       time.Second,
		ObserveTimeout: 2 * time.Second,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxActive <= 0 {
		l.MaxActive = d.MaxActive
	}
	if l.SlotPoll <= 0 {
		l.SlotPoll = d.SlotPoll
	}
	if l.SlotWait <= 0 {
		l.SlotWait = d.SlotWait
	}
	if l.ObserveTimeout <= 0 {
		l.ObserveTimeout = d.ObserveTimeout
	}
	return l
}

// Interceptors runs mutating hooks with per-key mutual exclusion and an
// advisory concurrency limit. Two interceptors for the same key never run
// concurrently; interceptors for different keys do.
type Interceptors struct {
	limits     Limits
	logger     *slog.Logger
	recorder   *telemetry.Recorder
	classifier *faults.Classifier

	active atomic.Int64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewInterceptors builds an interceptor pipeline. Zero-value limits fields
// fall back to DefaultLimits.
func NewInterceptors(limits Limits, recorder *telemetry.Recorder, classifier *faults.Classifier, logger *slog.Logger) *Interceptors {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptors{
		limits:     limits.withDefaults(),
		logger:     logger.With("component", "interceptors"),
		recorder:   recorder,
		classifier: classifier,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Active returns the number of currently running interceptor hooks.
func (p *Interceptors) Active() int {
	return int(p.active.Load())
}

func (p *Interceptors) keyLock(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[key]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key] = l
	}
	return l
}

// waitSlot blocks until a concurrency slot frees up, the wait budget is
// spent, or ctx is done. The limit is advisory: the caller proceeds either
// way, and an over-limit entry is logged.
func (p *Interceptors) waitSlot(ctx context.Context, key string) {
	if p.active.Load() < int64(p.limits.MaxActive) {
		return
	}
	deadline := time.Now().Add(p.limits.SlotWait)
	ticker := time.NewTicker(p.limits.SlotPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.active.Load() < int64(p.limits.MaxActive) {
				return
			}
			if time.Now().After(deadline) {
				p.logger.Warn("interceptor proceeding over concurrency limit",
					"key", key,
					"active", p.active.Load(),
					"limit", p.limits.MaxActive)
				if p.recorder != nil {
					p.recorder.Inc("hooks.interceptor.over_limit")
				}
				return
			}
		}
	}
}

func (p *Interceptors) report(err error, key string) {
	if p.recorder != nil {
		p.recorder.Inc("hooks.interceptor.failures")
	}
	if p.classifier != nil {
		p.classifier.Handle(err, map[string]any{"hook_key": key})
		return
	}
	p.logger.Error("interceptor failed", "key", key, "error", err)
}

// Intercept runs fn under pipeline discipline and returns its value, or
// fallback if fn errors or panics. The original input is never touched on
// failure, so callers pass it as the fallback.
func Intercept[T any](ctx context.Context, p *Interceptors, key string, fallback T, fn func(context.Context) (T, error)) T {
	if p == nil || fn == nil {
		return fallback
	}

	lock := p.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	p.waitSlot(ctx, key)

	p.active.Add(1)
	defer p.active.Add(-1)

	out, err := runGuarded(ctx, fn)
	if err != nil {
		p.report(err, key)
		return fallback
	}
	return out
}

// runGuarded invokes fn, converting a panic into an error.
func runGuarded[T any](ctx context.Context, fn func(context.Context) (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = faults.Runtimef("hook panicked: %v", r)
		}
	}()
	out, err = fn(ctx)
	if err != nil {
		err = fmt.Errorf("hook: %w", err)
	}
	return out, err
}
