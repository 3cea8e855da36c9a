package loadtest

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies why a request failed.
type ErrorKind string

const (
	ErrorKindTimeout    ErrorKind = "timeout"
	ErrorKindThrottled  ErrorKind = "throttled"
	ErrorKindService    ErrorKind = "service_error"
	ErrorKindValidation ErrorKind = "validation_error"
	ErrorKindUnknown    ErrorKind = "unknown"
)

// Transient reports whether a failure of this kind is worth retrying.
// Only throttling and service-side errors are; validation errors indicate
// a caller bug and timeouts already consumed their full budget.
func (k ErrorKind) Transient() bool {
	return k == ErrorKindThrottled || k == ErrorKindService
}

// Outcome describes one completed logical request. It is created exactly
// once by the Executor after internal retries are resolved and is never
// mutated afterwards.
type Outcome struct {
	Label        string
	StartedAt    time.Time
	Latency      time.Duration
	Success      bool
	InputTokens  int
	OutputTokens int
	Cost         float64
	TTFT         time.Duration
	ErrorKind    ErrorKind
	ErrorMessage string
}

// InvokeResult is what a collaborator returns for a successful invocation.
type InvokeResult struct {
	Latency      time.Duration
	TTFT         time.Duration
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// InvokeFunc issues one request against the system under test. The prompt
// is the only input; everything else (model, credentials, wire format) is
// bound inside the function. Implementations should honor ctx so that
// per-attempt timeouts can interrupt slow calls.
type InvokeFunc func(ctx context.Context, prompt string) (*InvokeResult, error)

// ClassifiedError carries an ErrorKind alongside the underlying error so
// collaborators can pre-classify failures they understand.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func NewClassifiedError(kind ErrorKind, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Err: err}
}

func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify maps an invocation error to its ErrorKind. Errors already
// wrapped in a ClassifiedError keep their kind; context deadline errors
// become timeouts; anything else is unknown.
func Classify(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	return ErrorKindUnknown
}
