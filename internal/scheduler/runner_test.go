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
)

type countingJob struct {
	name  string
	calls atomic.Int32
	err   error
	panic bool

	mu    sync.Mutex
	times []time.Time
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(_ context.Context, now time.Time) error {
	j.calls.Add(1)
	j.mu.Lock()
	j.times = append(j.times, now)
	j.mu.Unlock()
	if j.panic {
		panic("boom")
	}
	return j.err
}

func TestRunner_RunOnceRunsEveryJob(t *testing.T) {
	a := &countingJob{name: "a"}
	b := &countingJob{name: "b", err: errors.New("failed")}
	c := &countingJob{name: "c", panic: true}
	r := NewRunner(time.Minute, discardLogger(), a, b, c)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.RunOnce(context.Background(), now)

	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
	assert.Equal(t, int32(1), c.calls.Load())
	assert.Equal(t, []time.Time{now}, a.times)
}

func TestRunner_StartTicksUntilCancelled(t *testing.T) {
	job := &countingJob{name: "tick"}
	r := NewRunner(5*time.Millisecond, discardLogger(), job)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	require.Eventually(t, func() bool { return job.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
