// Package telemetry provides an in-process recorder for timers, counters,
// memory samples, and per-tool execution statistics.
//
// Information Hiding:
// - Metric storage layout hidden behind snapshot accessors
// - Memory sampling mechanism hidden
// - Trend classification thresholds encapsulated
package telemetry

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// DefaultSampleCapacity is the ring-buffer size for memory snapshots.
const DefaultSampleCapacity = 60

// TimerStats holds aggregate statistics for a named timer.
type TimerStats struct {
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// ToolStats holds running execution statistics for one tool.
type ToolStats struct {
	Count       int64
	TotalTime   time.Duration
	Failures    int64
	SuccessRate float64
}

// MemorySample is one point-in-time memory measurement.
type MemorySample struct {
	Taken      time.Time
	HeapAlloc  uint64
	Sys        uint64
	Goroutines int
}

// Trend classifies the direction of recent memory usage.
type Trend string

const (
	TrendIncreasing   Trend = "increasing"
	TrendDecreasing   Trend = "decreasing"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient data"
)

// Report is a consolidated view of everything the recorder has seen.
type Report struct {
	Timers    map[string]TimerStats `json:"timers"`
	Counters  map[string]int64      `json:"counters"`
	Memory    []MemorySample        `json:"memory"`
	Trend     Trend                 `json:"memory_trend"`
	Tools     map[string]ToolStats  `json:"tools"`
	Uptime    time.Duration         `json:"uptime"`
	HeapAlloc uint64                `json:"heap_alloc"`
}

// Recorder collects in-process metrics. Safe for concurrent use.
// Create one per agent (or per test) rather than sharing a global.
type Recorder struct {
	mu        sync.RWMutex
	started   time.Time
	running   map[string]time.Time
	timers    map[string]*TimerStats
	counters  map[string]int64
	samples   []MemorySample
	sampleCap int
	next      int
	filled    int
	tools     map[string]*ToolStats
	logger    *slog.Logger
}

// NewRecorder creates an empty recorder.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		started:   time.Now(),
		running:   make(map[string]time.Time),
		timers:    make(map[string]*TimerStats),
		counters:  make(map[string]int64),
		samples:   make([]MemorySample, DefaultSampleCapacity),
		sampleCap: DefaultSampleCapacity,
		tools:     make(map[string]*ToolStats),
		logger:    logger.With("component", "telemetry"),
	}
}

// StartTimer marks the named timer as running. Restarting a running timer
// resets its start point.
func (r *Recorder) StartTimer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[name] = time.Now()
}

// StopTimer stops the named timer and folds the elapsed duration into its
// aggregate stats. Stopping a timer that was never started is a no-op and
// returns zero.
func (r *Recorder) StopTimer(name string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	start, ok := r.running[name]
	if !ok {
		r.logger.Warn("stop for timer that was never started", "timer", name)
		return 0
	}
	delete(r.running, name)

	elapsed := time.Since(start)
	stats, ok := r.timers[name]
	if !ok {
		r.timers[name] = &TimerStats{Count: 1, Total: elapsed, Min: elapsed, Max: elapsed}
		return elapsed
	}
	stats.Count++
	stats.Total += elapsed
	if elapsed < stats.Min {
		stats.Min = elapsed
	}
	if elapsed > stats.Max {
		stats.Max = elapsed
	}
	return elapsed
}

// Add increments the named counter by delta.
func (r *Recorder) Add(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

// Inc increments the named counter by one.
func (r *Recorder) Inc(name string) {
	r.Add(name, 1)
}

// Counter returns the current value of the named counter.
func (r *Recorder) Counter(name string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// Timer returns a copy of the named timer's stats.
func (r *Recorder) Timer(name string) (TimerStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats, ok := r.timers[name]
	if !ok {
		return TimerStats{}, false
	}
	return *stats, true
}

// SampleMemory records a memory snapshot into the ring buffer, evicting the
// oldest sample once the buffer is full.
func (r *Recorder) SampleMemory() MemorySample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample := MemorySample{
		Taken:      time.Now(),
		HeapAlloc:  ms.HeapAlloc,
		Sys:        ms.Sys,
		Goroutines: runtime.NumGoroutine(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[r.next] = sample
	r.next = (r.next + 1) % r.sampleCap
	if r.filled < r.sampleCap {
		r.filled++
	}
	return sample
}

// recentSamples returns up to n samples, oldest first. Caller must hold mu.
func (r *Recorder) recentSamples(n int) []MemorySample {
	if n > r.filled {
		n = r.filled
	}
	out := make([]MemorySample, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - n + i + r.sampleCap) % r.sampleCap
		out = append(out, r.samples[idx])
	}
	return out
}

// MemoryTrend classifies heap growth across the most recent five samples.
// More than +5% between the first and last sample is increasing, less than
// -5% is decreasing, anything between is stable. Fewer than two samples is
// not enough to say.
func (r *Recorder) MemoryTrend() Trend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trendLocked()
}

// trendLocked classifies the buffered samples. Caller must hold mu.
func (r *Recorder) trendLocked() Trend {
	recent := r.recentSamples(5)
	if len(recent) < 2 {
		return TrendInsufficient
	}

	first := float64(recent[0].HeapAlloc)
	last := float64(recent[len(recent)-1].HeapAlloc)
	if first == 0 {
		return TrendStable
	}

	change := (last - first) / first
	switch {
	case change > 0.05:
		return TrendIncreasing
	case change < -0.05:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// RecordTool folds one tool invocation into that tool's running stats.
// The success rate is recomputed on every update.
func (r *Recorder) RecordTool(name string, elapsed time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.tools[name]
	if !ok {
		stats = &ToolStats{}
		r.tools[name] = stats
	}
	stats.Count++
	stats.TotalTime += elapsed
	if !success {
		stats.Failures++
	}
	stats.SuccessRate = float64(stats.Count-stats.Failures) / float64(stats.Count)
}

// Tool returns a copy of the named tool's stats.
func (r *Recorder) Tool(name string) (ToolStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats, ok := r.tools[name]
	if !ok {
		return ToolStats{}, false
	}
	return *stats, true
}

// Report builds a consolidated snapshot of all recorded metrics plus current
// process uptime and heap usage.
func (r *Recorder) Report() Report {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	r.mu.RLock()
	defer r.mu.RUnlock()

	report := Report{
		Timers:    make(map[string]TimerStats, len(r.timers)),
		Counters:  make(map[string]int64, len(r.counters)),
		Memory:    r.recentSamples(r.filled),
		Tools:     make(map[string]ToolStats, len(r.tools)),
		Uptime:    time.Since(r.started),
		HeapAlloc: ms.HeapAlloc,
	}
	for name, stats := range r.timers {
		report.Timers[name] = *stats
	}
	for name, v := range r.counters {
		report.Counters[name] = v
	}
	for name, stats := range r.tools {
		report.Tools[name] = *stats
	}

	report.Trend = r.trendLocked()
	return report
}
