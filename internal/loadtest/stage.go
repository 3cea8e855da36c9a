package loadtest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NoRequestCap makes a stage bounded by duration alone.
const NoRequestCap = int(^uint(0) >> 1)

// Target is one invocable endpoint a stage drives load against: a label
// for the outcome records, the prompts cycled through, and the bound
// invoke function.
type Target struct {
	Label   string
	Prompts []string
	Invoke  InvokeFunc
}

// StageConfig describes one load stage at a fixed concurrency.
type StageConfig struct {
	Concurrency int
	// Duration is the wall-clock bound for the stage.
	Duration time.Duration
	// MaxRequests caps the total dispatched requests across all workers.
	// Zero means the stage dispatches nothing; use NoRequestCap for a
	// duration-only stage. Whichever bound hits first stops the stage.
	MaxRequests int
	// RampUp staggers worker starts evenly across this window so the
	// stage's concurrency climbs linearly instead of arriving as a
	// synchronized burst.
	RampUp time.Duration
	// RequestDelay paces each worker's request stream.
	RequestDelay time.Duration
}

// StageRunner drives one stage: it spawns Concurrency workers that pull
// targets round-robin, execute requests through the shared Executor, and
// ingest every outcome into the stage's Aggregator. Stopping is
// cooperative: workers check the bounds between iterations and in-flight
// requests always finish and are recorded.
type StageRunner struct {
	cfg      StageConfig
	targets  []Target
	exec     *Executor
	agg      *Aggregator
	progress *Progress
	log      *zap.Logger

	remaining atomic.Int64
	wg        sync.WaitGroup
}

// NewStageRunner wires a runner to its stage-scoped aggregator. The
// progress tracker is optional.
func NewStageRunner(cfg StageConfig, targets []Target, exec *Executor, agg *Aggregator, progress *Progress, logger *zap.Logger) *StageRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageRunner{
		cfg:      cfg,
		targets:  targets,
		exec:     exec,
		agg:      agg,
		progress: progress,
		log:      logger,
	}
}

// Run executes the stage and returns its finalized snapshot. An error is
// returned only when the stage cannot start at all; once workers are
// launched the stage always completes with a snapshot, partial if ctx was
// canceled early.
func (r *StageRunner) Run(ctx context.Context) (StageStats, error) {
	if r.cfg.Concurrency < 1 {
		return StageStats{}, errors.New("stage concurrency must be at least 1")
	}
	if len(r.targets) == 0 {
		return StageStats{}, errors.New("stage has no targets")
	}

	stageCtx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	r.remaining.Store(int64(r.cfg.MaxRequests))

	r.log.Debug("starting stage workers",
		zap.Int("concurrency", r.cfg.Concurrency),
		zap.Duration("duration", r.cfg.Duration),
		zap.Duration("ramp_up", r.cfg.RampUp))

	for i := 0; i < r.cfg.Concurrency; i++ {
		r.wg.Add(1)
		go r.worker(stageCtx, i)
	}
	r.wg.Wait()

	r.agg.Finalize()
	return r.agg.Snapshot(r.cfg.Concurrency), nil
}

// worker is the per-goroutine request loop. Worker i first waits its
// ramp-up slot, then loops: check the stop conditions, reserve a request
// from the shared budget, pick a target and prompt round-robin (offset by
// the worker index so targets see even load), execute and ingest.
//
// The stage context gates new iterations only. Execute detaches the
// in-flight attempt from it, so a request running when the window closes
// finishes naturally and still lands in the aggregator.
func (r *StageRunner) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	if r.cfg.RampUp > 0 && r.cfg.Concurrency > 0 {
		stagger := r.cfg.RampUp * time.Duration(id) / time.Duration(r.cfg.Concurrency)
		if sleepContext(ctx, stagger) != nil {
			return
		}
	}

	var limiter *rate.Limiter
	if r.cfg.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(r.cfg.RequestDelay), 1)
	}

	for iter := 0; ; iter++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		if r.remaining.Add(-1) < 0 {
			return
		}

		target := r.targets[(id+iter)%len(r.targets)]
		prompt := ""
		if len(target.Prompts) > 0 {
			prompt = target.Prompts[iter%len(target.Prompts)]
		}

		outcome := r.exec.Execute(ctx, target.Label, prompt, target.Invoke)
		r.agg.Ingest(outcome)
		if r.progress != nil {
			r.progress.Observe(outcome)
		}
	}
}
