package jobqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesEnqueuedJobs(t *testing.T) {
	q := New(8)
	var processed int32
	q.Register(TypeIfcToWexBim, func(ctx context.Context, job Job) error {
		atomic.AddInt32(&processed, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 2)
	defer func() {
		cancel()
		q.Stop()
	}()

	require.True(t, q.Enqueue(Job{ID: "1", Type: TypeIfcToWexBim}))
	require.True(t, q.Enqueue(Job{ID: "2", Type: TypeIfcToWexBim}))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&processed) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestQueueSkipsAlreadyCompletedIdempotencyKey(t *testing.T) {
	q := New(8)
	var processed int32
	q.Register(TypeExtractProperties, func(ctx context.Context, job Job) error {
		atomic.AddInt32(&processed, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 1)
	defer func() {
		cancel()
		q.Stop()
	}()

	job := Job{ID: "1", Type: TypeExtractProperties, IdempotencyKey: "version-1"}
	require.True(t, q.Enqueue(job))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&processed) == 1
	}, time.Second, 10*time.Millisecond)

	// Re-enqueuing the same idempotency key must not run the handler again.
	require.True(t, q.Enqueue(job))
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&processed))
}

func TestUnknownJobTypeInvokesFallbackAndMarksProcessed(t *testing.T) {
	q := New(8)
	var failed int32
	q.RegisterUnknownTypeHandler(func(ctx context.Context, job Job) error {
		atomic.AddInt32(&failed, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 1)
	defer func() {
		cancel()
		q.Stop()
	}()

	job := Job{ID: "1", Type: "SomeUnregisteredType", IdempotencyKey: "version-unknown"}
	require.True(t, q.Enqueue(job))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&failed) == 1
	}, time.Second, 10*time.Millisecond)

	// Re-enqueuing after the fallback ran must not invoke it again: the job
	// was marked processed like any other completed job.
	require.True(t, q.Enqueue(job))
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&failed))
}

func TestSameModelVersionJobsAreSerialized(t *testing.T) {
	q := New(8)
	var inFlight, maxInFlight int32

	track := func(ctx context.Context, job Job) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}
	q.Register(TypeIfcToWexBim, track)
	q.Register(TypeExtractProperties, track)

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 4)
	defer func() {
		cancel()
		q.Stop()
	}()

	require.True(t, q.Enqueue(Job{ID: "1", Type: TypeIfcToWexBim, ModelVersionID: "v1"}))
	require.True(t, q.Enqueue(Job{ID: "2", Type: TypeExtractProperties, ModelVersionID: "v1"}))

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&maxInFlight))
}

func TestEnqueueReturnsFalseWhenFull(t *testing.T) {
	q := New(1)
	q.Register(TypeIfcToWexBim, func(ctx context.Context, job Job) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	// No Start() call: nothing drains the channel, so it fills up.
	require.True(t, q.Enqueue(Job{ID: "1"}))
	assert.False(t, q.Enqueue(Job{ID: "2"}))
}
