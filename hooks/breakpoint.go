package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richinex/ixion/faults"
	"github.com/richinex/ixion/telemetry"
)

// Breakpoints runs observe-only hooks. They never block the turn for long:
// at the concurrency ceiling new observations are skipped, a duplicate key
// already in flight is skipped, and a slow hook is left to finish in the
// background after a soft wait.
type Breakpoints struct {
	limits     Limits
	logger     *slog.Logger
	recorder   *telemetry.Recorder
	classifier *faults.Classifier

	active atomic.Int64

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewBreakpoints builds a breakpoint pipeline. Zero-value limits fields
// fall back to DefaultLimits.
func NewBreakpoints(limits Limits, recorder *telemetry.Recorder, classifier *faults.Classifier, logger *slog.Logger) *Breakpoints {
	if logger == nil {
		logger = slog.Default()
	}
	return &Breakpoints{
		limits:     limits.withDefaults(),
		logger:     logger.With("component", "breakpoints"),
		recorder:   recorder,
		classifier: classifier,
		inflight:   make(map[string]struct{}),
	}
}

// Active returns the number of currently running breakpoint hooks,
// including ones that outlived their soft wait.
func (p *Breakpoints) Active() int {
	return int(p.active.Load())
}

func (p *Breakpoints) admit(key string) bool {
	if p.active.Load() >= int64(p.limits.MaxActive) {
		p.logger.Warn("breakpoint skipped at concurrency limit",
			"key", key, "limit", p.limits.MaxActive)
		if p.recorder != nil {
			p.recorder.Inc("hooks.breakpoint.skipped")
		}
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.inflight[key]; dup {
		p.logger.Debug("breakpoint skipped, key already in flight", "key", key)
		if p.recorder != nil {
			p.recorder.Inc("hooks.breakpoint.skipped")
		}
		return false
	}
	p.inflight[key] = struct{}{}
	return true
}

func (p *Breakpoints) release(key string) {
	p.mu.Lock()
	delete(p.inflight, key)
	p.mu.Unlock()
	p.active.Add(-1)
}

func (p *Breakpoints) report(err error, key string) {
	if p.recorder != nil {
		p.recorder.Inc("hooks.breakpoint.failures")
	}
	if p.classifier != nil {
		p.classifier.Handle(err, map[string]any{"hook_key": key})
		return
	}
	p.logger.Error("breakpoint failed", "key", key, "error", err)
}

// Observe runs fn without letting it stall the caller. Failures and panics
// are reported and swallowed. When fn is still running after ObserveTimeout
// the caller moves on and fn finishes in the background on a context
// detached from the caller's cancellation.
func (p *Breakpoints) Observe(ctx context.Context, key string, fn func(context.Context) error) {
	if p == nil || fn == nil {
		return
	}
	if !p.admit(key) {
		return
	}
	p.active.Add(1)

	// Detach so a caller that stops waiting does not cancel the hook
	// mid-flight. The hook still gets its own cancelable context.
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer p.release(key)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				p.report(faults.Runtimef("hook panicked: %v", r), key)
			}
		}()
		if err := fn(bg); err != nil {
			p.report(err, key)
		}
	}()

	timer := time.NewTimer(p.limits.ObserveTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		p.logger.Warn("breakpoint still running after soft wait, detaching",
			"key", key, "timeout", p.limits.ObserveTimeout)
		if p.recorder != nil {
			p.recorder.Inc("hooks.breakpoint.detached")
		}
	}
}
