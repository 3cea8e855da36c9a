package loadtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubInvoke returns an InvokeFunc that reports a fixed latency without
// actually sleeping that long, so distribution assertions are exact.
func stubInvoke(reported time.Duration, cost float64, work time.Duration) InvokeFunc {
	return func(ctx context.Context, prompt string) (*InvokeResult, error) {
		if work > 0 {
			time.Sleep(work)
		}
		return &InvokeResult{
			Latency:      reported,
			InputTokens:  8,
			OutputTokens: 16,
			Cost:         cost,
		}, nil
	}
}

func runStage(t *testing.T, ctx context.Context, cfg StageConfig, targets []Target) StageStats {
	t.Helper()
	agg := NewAggregator()
	exec := testExecutor(5*time.Second, 0, 2)
	runner := NewStageRunner(cfg, targets, exec, agg, NewProgress(), nil)
	st, err := runner.Run(ctx)
	require.NoError(t, err)
	return st
}

func TestStageFixedRequestCount(t *testing.T) {
	st := runStage(t, context.Background(), StageConfig{
		Concurrency: 5,
		Duration:    5 * time.Second,
		MaxRequests: 5,
	}, []Target{{
		Label:   "model-a",
		Prompts: []string{"p"},
		Invoke:  stubInvoke(500*time.Millisecond, 0.001, 20*time.Millisecond),
	}})

	assert.Equal(t, 5, st.Overall.TotalRequests)
	assert.Equal(t, 5, st.Overall.Successes)
	assert.InDelta(t, 1.0, st.Overall.SuccessRate, 1e-9)
	assert.InDelta(t, 0.5, st.Overall.P50Latency, 1e-9)
	assert.InDelta(t, 0.005, st.Overall.TotalCost, 1e-9)
	assert.Equal(t, 5, st.Concurrency)
}

func TestStageZeroBudgetProducesNothing(t *testing.T) {
	start := time.Now()
	st := runStage(t, context.Background(), StageConfig{
		Concurrency: 3,
		Duration:    5 * time.Second,
		MaxRequests: 0,
	}, []Target{{Label: "m", Invoke: stubInvoke(time.Millisecond, 0, 0)}})

	assert.Equal(t, 0, st.Overall.TotalRequests)
	assert.True(t, st.Overall.NoData)
	assert.Less(t, time.Since(start), time.Second,
		"workers exit immediately on an exhausted budget instead of waiting out the window")
}

func TestStageBudgetSharedAcrossWorkers(t *testing.T) {
	st := runStage(t, context.Background(), StageConfig{
		Concurrency: 10,
		Duration:    5 * time.Second,
		MaxRequests: 25,
	}, []Target{{Label: "m", Invoke: stubInvoke(time.Millisecond, 0, time.Millisecond)}})

	assert.Equal(t, 25, st.Overall.TotalRequests,
		"the request cap bounds the stage total, not each worker")
}

func TestStageDurationBound(t *testing.T) {
	start := time.Now()
	st := runStage(t, context.Background(), StageConfig{
		Concurrency: 2,
		Duration:    150 * time.Millisecond,
		MaxRequests: NoRequestCap,
	}, []Target{{Label: "m", Invoke: stubInvoke(time.Millisecond, 0, 10*time.Millisecond)}})
	elapsed := time.Since(start)

	assert.Greater(t, st.Overall.TotalRequests, 0)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestStageCancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	st := runStage(t, ctx, StageConfig{
		Concurrency: 2,
		Duration:    10 * time.Second,
		MaxRequests: NoRequestCap,
	}, []Target{{Label: "m", Invoke: stubInvoke(time.Millisecond, 0, 5*time.Millisecond)}})

	assert.Greater(t, st.Overall.TotalRequests, 0, "outcomes before cancellation are kept")
	assert.Less(t, time.Since(start), time.Second)
}

func TestStageInFlightRequestsFinishAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	st := runStage(t, ctx, StageConfig{
		Concurrency: 3,
		Duration:    10 * time.Second,
		MaxRequests: NoRequestCap,
	}, []Target{{Label: "m", Invoke: stubInvoke(0, 0.001, 200*time.Millisecond)}})

	assert.Equal(t, 3, st.Overall.TotalRequests,
		"each worker's in-flight request completes and is recorded")
	assert.Equal(t, 3, st.Overall.Successes)
}

func TestStageRampUpStaggersWorkers(t *testing.T) {
	var mu sync.Mutex
	var starts []time.Time

	// Each request outlasts the stagger so the second budget slot is
	// taken by the second worker, not a quick second lap of the first.
	invoke := func(ctx context.Context, prompt string) (*InvokeResult, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(150 * time.Millisecond)
		return &InvokeResult{Latency: time.Millisecond}, nil
	}

	runStage(t, context.Background(), StageConfig{
		Concurrency: 2,
		Duration:    5 * time.Second,
		MaxRequests: 2,
		RampUp:      200 * time.Millisecond,
	}, []Target{{Label: "m", Invoke: invoke}})

	require.Len(t, starts, 2)
	gap := starts[1].Sub(starts[0])
	if gap < 0 {
		gap = -gap
	}
	assert.GreaterOrEqual(t, gap, 80*time.Millisecond,
		"the second worker starts roughly half a ramp window later")
}

func TestStageRoundRobinAcrossTargets(t *testing.T) {
	st := runStage(t, context.Background(), StageConfig{
		Concurrency: 2,
		Duration:    5 * time.Second,
		MaxRequests: 4,
	}, []Target{
		{Label: "model-a", Invoke: stubInvoke(time.Millisecond, 0, time.Millisecond)},
		{Label: "model-b", Invoke: stubInvoke(time.Millisecond, 0, time.Millisecond)},
	})

	require.Len(t, st.PerLabel, 2)
	assert.Equal(t, 2, st.PerLabel["model-a"].TotalRequests)
	assert.Equal(t, 2, st.PerLabel["model-b"].TotalRequests)
}

func TestStagePromptsCycle(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	invoke := func(ctx context.Context, prompt string) (*InvokeResult, error) {
		mu.Lock()
		seen[prompt]++
		mu.Unlock()
		return &InvokeResult{Latency: time.Millisecond}, nil
	}

	runStage(t, context.Background(), StageConfig{
		Concurrency: 1,
		Duration:    5 * time.Second,
		MaxRequests: 6,
	}, []Target{{Label: "m", Prompts: []string{"alpha", "beta", "gamma"}, Invoke: invoke}})

	assert.Equal(t, map[string]int{"alpha": 2, "beta": 2, "gamma": 2}, seen)
}

func TestStageRequestPacing(t *testing.T) {
	start := time.Now()
	st := runStage(t, context.Background(), StageConfig{
		Concurrency:  1,
		Duration:     5 * time.Second,
		MaxRequests:  4,
		RequestDelay: 30 * time.Millisecond,
	}, []Target{{Label: "m", Invoke: stubInvoke(time.Millisecond, 0, 0)}})
	elapsed := time.Since(start)

	assert.Equal(t, 4, st.Overall.TotalRequests)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond,
		"a paced worker spaces its requests by the configured delay")
}

func TestStageRunRejectsBadConfig(t *testing.T) {
	exec := testExecutor(time.Second, 0, 2)
	target := []Target{{Label: "m", Invoke: stubInvoke(time.Millisecond, 0, 0)}}

	_, err := NewStageRunner(StageConfig{Concurrency: 0, Duration: time.Second}, target, exec, NewAggregator(), nil, nil).Run(context.Background())
	assert.ErrorContains(t, err, "concurrency")

	_, err = NewStageRunner(StageConfig{Concurrency: 1, Duration: time.Second}, nil, exec, NewAggregator(), nil, nil).Run(context.Background())
	assert.ErrorContains(t, err, "no targets")
}
