package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-etl/internal/weather"
	"github.com/i474232898/weather-etl/pkg/logger"
)

type runnerFunc func(ctx context.Context) (weather.RunResult, error)

func (f runnerFunc) RunOnce(ctx context.Context) (weather.RunResult, error) { return f(ctx) }

type recordingNotifier struct {
	mu     sync.Mutex
	stages []string
	errs   []error
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, stage string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stages = append(n.stages, stage)
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.stages)
}

func TestJobNotifiesOnceOnFailure(t *testing.T) {
	boom := errors.New("provider down")
	n := &recordingNotifier{}
	s := New(runnerFunc(func(context.Context) (weather.RunResult, error) {
		return weather.RunResult{}, boom
	}), n, time.Minute, logger.Discard())

	s.job()

	require.Equal(t, 1, n.count())
	assert.Equal(t, "etl_once", n.stages[0])
	assert.ErrorIs(t, n.errs[0], boom)
}

func TestJobSuccessDoesNotNotify(t *testing.T) {
	n := &recordingNotifier{}
	s := New(runnerFunc(func(context.Context) (weather.RunResult, error) {
		return weather.RunResult{Inserted: 3}, nil
	}), n, time.Minute, logger.Discard())

	s.job()
	assert.Zero(t, n.count())
}

func TestJobRecoversPanics(t *testing.T) {
	n := &recordingNotifier{}
	s := New(runnerFunc(func(context.Context) (weather.RunResult, error) {
		panic("nil map")
	}), n, time.Minute, logger.Discard())

	assert.NotPanics(t, s.job)
	require.Equal(t, 1, n.count())
	assert.Contains(t, n.errs[0].Error(), "nil map")
}

func TestRunKeepsTickingAfterFailures(t *testing.T) {
	var calls atomic.Int32
	n := &recordingNotifier{}
	s := New(runnerFunc(func(context.Context) (weather.RunResult, error) {
		calls.Add(1)
		return weather.RunResult{}, errors.New("always fails")
	}), n, time.Second, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, n.count(), 2)
}

func TestStartRejectsNonPositiveInterval(t *testing.T) {
	s := New(runnerFunc(func(context.Context) (weather.RunResult, error) {
		return weather.RunResult{}, nil
	}), &recordingNotifier{}, 0, logger.Discard())

	assert.Error(t, s.Start())
}
