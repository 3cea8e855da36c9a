package loadtest

import (
	"context"
	"fmt"
	"math"
	"time"
)

// defaultRequestTimeout applies when a config leaves the timeout unset.
const defaultRequestTimeout = 30 * time.Second

// ExecutorConfig holds the per-request policy knobs.
type ExecutorConfig struct {
	// RequestTimeout bounds each individual attempt.
	RequestTimeout time.Duration
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BackoffFactor is the base of the exponential backoff between
	// retries: retry k (0-based) waits BackoffFactor^k seconds.
	BackoffFactor float64
}

// Executor wraps a single logical request with timeout, retry and backoff.
// It produces exactly one Outcome per call regardless of how many internal
// attempts were made, and never touches the aggregator itself.
type Executor struct {
	timeout    time.Duration
	maxRetries int
	backoff    float64

	// backoffUnit scales the computed backoff; tests shrink it so retry
	// paths run in milliseconds.
	backoffUnit time.Duration
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	backoff := cfg.BackoffFactor
	if backoff < 1 {
		backoff = 1
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Executor{
		timeout:     timeout,
		maxRetries:  cfg.MaxRetries,
		backoff:     backoff,
		backoffUnit: time.Second,
	}
}

// Execute runs one logical request against invoke. Transient failures
// (throttling, service errors) are retried up to MaxRetries times with
// exponential backoff; other failures return immediately. The returned
// Outcome reflects the terminal attempt only: the elapsed time spent in
// earlier attempts and backoff waits is not folded into its latency.
//
// ctx gates the backoff waits between attempts, not the attempts
// themselves; a cancellation during backoff makes the last failure
// terminal. Each attempt runs against its own timeout so an in-flight
// request is never cut short by stage shutdown.
func (e *Executor) Execute(ctx context.Context, label, prompt string, invoke InvokeFunc) Outcome {
	var out Outcome
	for attempt := 0; ; attempt++ {
		out = e.attempt(label, prompt, invoke)
		if out.Success || !out.ErrorKind.Transient() || attempt >= e.maxRetries {
			return out
		}
		if err := sleepContext(ctx, e.backoffDelay(attempt)); err != nil {
			return out
		}
	}
}

// attempt performs a single invocation bounded by the request timeout.
// The invoke call runs in its own goroutine so that a collaborator that
// ignores ctx can still be abandoned at the deadline; the buffered channel
// lets the stray goroutine finish without blocking.
func (e *Executor) attempt(label, prompt string, invoke InvokeFunc) Outcome {
	start := time.Now()

	attemptCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	type reply struct {
		res *InvokeResult
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		res, err := invoke(attemptCtx, prompt)
		ch <- reply{res: res, err: err}
	}()

	select {
	case r := <-ch:
		measured := time.Since(start)
		if r.err != nil {
			return Outcome{
				Label:        label,
				StartedAt:    start,
				Latency:      measured,
				ErrorKind:    Classify(r.err),
				ErrorMessage: r.err.Error(),
			}
		}
		if r.res == nil {
			return Outcome{
				Label:        label,
				StartedAt:    start,
				Latency:      measured,
				ErrorKind:    ErrorKindUnknown,
				ErrorMessage: "invoke returned no result",
			}
		}
		latency := r.res.Latency
		if latency <= 0 {
			latency = measured
		}
		return Outcome{
			Label:        label,
			StartedAt:    start,
			Latency:      latency,
			Success:      true,
			InputTokens:  r.res.InputTokens,
			OutputTokens: r.res.OutputTokens,
			Cost:         r.res.Cost,
			TTFT:         r.res.TTFT,
		}
	case <-attemptCtx.Done():
		return Outcome{
			Label:        label,
			StartedAt:    start,
			Latency:      time.Since(start),
			ErrorKind:    ErrorKindTimeout,
			ErrorMessage: fmt.Sprintf("no response within %s", e.timeout),
		}
	}
}

// backoffDelay returns the wait before retrying after failed attempt k.
func (e *Executor) backoffDelay(attempt int) time.Duration {
	return time.Duration(math.Pow(e.backoff, float64(attempt)) * float64(e.backoffUnit))
}

// sleepContext sleeps for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
