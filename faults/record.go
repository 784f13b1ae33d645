// Package faults normalizes failures into typed, severity-ranked records,
// suppresses noisy repeats, and provides a retry helper for retryable kinds.
//
// Information Hiding:
// - Deduplication bookkeeping hidden
// - Severity and retryability defaults per kind encapsulated
// - Backoff arithmetic hidden inside the retry helper
package faults

import (
	"fmt"
	"time"
)

// Kind categorizes a failure.
type Kind int

const (
	KindConfiguration Kind = iota
	KindValidation
	KindRuntime
	KindNetwork
	KindTimeout
	KindResource
	KindPermission
	KindCritical
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindRuntime:
		return "runtime"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindResource:
		return "resource"
	case KindPermission:
		return "permission"
	case KindCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Severity ranks how serious a failure is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the severity's name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Record is a classified failure. Records are immutable after creation;
// re-handling a record produces a new one with merged context.
type Record struct {
	Kind      Kind
	Severity  Severity
	Message   string
	Context   map[string]any
	Code      string
	Retryable bool
	Timestamp time.Time
}

// Error implements the error interface.
func (r *Record) Error() string {
	return fmt.Sprintf("[%s/%s] %s", r.Kind, r.Severity, r.Message)
}

// withContext returns a copy of the record with extra merged in.
// The original record is left untouched.
func (r *Record) withContext(extra map[string]any) *Record {
	if len(extra) == 0 {
		return r
	}
	merged := make(map[string]any, len(r.Context)+len(extra))
	for k, v := range r.Context {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	out := *r
	out.Context = merged
	return &out
}

// defaults returns the severity and retryability conventions for a kind.
// Network, timeout, and resource pressure are worth retrying; everything
// else is not.
func defaults(kind Kind) (Severity, bool) {
	switch kind {
	case KindConfiguration:
		return SeverityHigh, false
	case KindValidation:
		return SeverityMedium, false
	case KindNetwork:
		return SeverityMedium, true
	case KindTimeout:
		return SeverityMedium, true
	case KindResource:
		return SeverityHigh, true
	case KindPermission:
		return SeverityHigh, false
	case KindCritical:
		return SeverityCritical, false
	default:
		return SeverityMedium, false
	}
}

// New creates a record of the given kind with the kind's default severity
// and retryability.
func New(kind Kind, message string) *Record {
	severity, retryable := defaults(kind)
	return &Record{
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now(),
	}
}

// Newf creates a record with a formatted message.
func Newf(kind Kind, format string, args ...any) *Record {
	return New(kind, fmt.Sprintf(format, args...))
}

// Configf creates a configuration record.
func Configf(format string, args ...any) *Record { return Newf(KindConfiguration, format, args...) }

// Validationf creates a validation record.
func Validationf(format string, args ...any) *Record { return Newf(KindValidation, format, args...) }

// Runtimef creates a runtime record.
func Runtimef(format string, args ...any) *Record { return Newf(KindRuntime, format, args...) }

// Networkf creates a network record.
func Networkf(format string, args ...any) *Record { return Newf(KindNetwork, format, args...) }

// Timeoutf creates a timeout record.
func Timeoutf(format string, args ...any) *Record { return Newf(KindTimeout, format, args...) }
