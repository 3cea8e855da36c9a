package loadtest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// progressInterval is how often a running stage logs a progress line.
const progressInterval = 5 * time.Second

// RunConfig describes one suite: an ordered ladder of concurrency levels
// plus the per-stage and per-request policy shared by all of them.
type RunConfig struct {
	// Suite names the run in logs and reports.
	Suite string
	// Levels is the ordered list of concurrency levels to execute.
	Levels []int
	// Duration and MaxRequests bound each stage (see StageConfig).
	Duration    time.Duration
	MaxRequests int
	// RequestTimeout, MaxRetries and BackoffFactor form the executor
	// policy applied to every request.
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffFactor  float64
	// RampUp and RequestDelay shape each stage's load curve.
	RampUp       time.Duration
	RequestDelay time.Duration
	// Quiescence is the idle wait inserted between stages so one stage's
	// tail cannot bleed into the next stage's numbers.
	Quiescence time.Duration
}

// Orchestrator runs a suite's stages strictly in sequence: stage K+1 never
// starts before every worker of stage K has terminated. A stage that fails
// to start is recorded as a failed snapshot and the ladder continues.
type Orchestrator struct {
	cfg     RunConfig
	targets []Target
	exec    *Executor
	log     *zap.Logger
}

func NewOrchestrator(cfg RunConfig, targets []Target, logger *zap.Logger) (*Orchestrator, error) {
	if len(cfg.Levels) == 0 {
		return nil, errors.New("no concurrency levels configured")
	}
	if len(targets) == 0 {
		return nil, errors.New("no targets configured")
	}
	for _, t := range targets {
		if t.Label == "" {
			return nil, errors.New("target label must not be empty")
		}
		if t.Invoke == nil {
			return nil, errors.New("target " + t.Label + " has no invoke function")
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	exec := NewExecutor(ExecutorConfig{
		RequestTimeout: cfg.RequestTimeout,
		MaxRetries:     cfg.MaxRetries,
		BackoffFactor:  cfg.BackoffFactor,
	})

	return &Orchestrator{
		cfg:     cfg,
		targets: targets,
		exec:    exec,
		log:     logger,
	}, nil
}

// Run executes every configured stage in order and returns the cross-stage
// result set. A finished run always produces a result set: stage-level
// failures degrade to failed snapshots, and cancellation mid-ladder
// returns whatever stages completed.
func (o *Orchestrator) Run(ctx context.Context) *ResultSet {
	start := time.Now()
	rs := &ResultSet{
		Suite:     o.cfg.Suite,
		RunID:     uuid.NewString(),
		StartedAt: start,
	}

	o.log.Info("starting suite",
		zap.String("suite", o.cfg.Suite),
		zap.String("run_id", rs.RunID),
		zap.Ints("levels", o.cfg.Levels),
		zap.Int("targets", len(o.targets)))

	for i, level := range o.cfg.Levels {
		if ctx.Err() != nil {
			o.log.Warn("run canceled, returning partial results",
				zap.Int("completed_stages", len(rs.Stages)))
			break
		}

		st := o.runStage(ctx, level)
		rs.Stages = append(rs.Stages, st)

		o.log.Info("stage complete",
			zap.Int("concurrency", level),
			zap.Int("requests", st.Overall.TotalRequests),
			zap.Float64("success_rate", st.Overall.SuccessRate),
			zap.Float64("p50_seconds", st.Overall.P50Latency),
			zap.Float64("p99_seconds", st.Overall.P99Latency),
			zap.Bool("failed", st.Failed))

		if i < len(o.cfg.Levels)-1 && o.cfg.Quiescence > 0 {
			if err := sleepContext(ctx, o.cfg.Quiescence); err != nil {
				continue
			}
		}
	}

	rs.WallClockSeconds = time.Since(start).Seconds()
	rs.accumulateTotals()
	return rs
}

// runStage runs a single concurrency level with a live progress monitor.
func (o *Orchestrator) runStage(ctx context.Context, level int) StageStats {
	o.log.Info("starting stage", zap.Int("concurrency", level))

	agg := NewAggregator()
	progress := NewProgress()
	runner := NewStageRunner(StageConfig{
		Concurrency:  level,
		Duration:     o.cfg.Duration,
		MaxRequests:  o.cfg.MaxRequests,
		RampUp:       o.cfg.RampUp,
		RequestDelay: o.cfg.RequestDelay,
	}, o.targets, o.exec, agg, progress, o.log)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				snap := progress.Snapshot()
				totals := agg.Totals()
				o.log.Info("stage progress",
					zap.Int("concurrency", level),
					zap.Int64("completed", snap.Completed),
					zap.Int64("failures", snap.Failures),
					zap.Int64("p50_ms", snap.P50Millis),
					zap.Int64("p99_ms", snap.P99Millis),
					zap.Int64("output_tokens", totals.OutputTokens),
					zap.Float64("cost_usd", totals.Cost))
			}
		}
	}()

	st, err := runner.Run(ctx)
	close(done)

	if err != nil {
		o.log.Warn("stage failed to start",
			zap.Int("concurrency", level),
			zap.Error(err))
		return StageStats{
			Concurrency: level,
			Failed:      true,
			Overall:     Stats{NoData: true},
		}
	}
	return st
}
