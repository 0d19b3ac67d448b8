package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 10, func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(ctx, i))
	}

	pool.Stop()

	assert.EqualValues(t, 5, processed.Load())
	assert.EqualValues(t, 5, pool.Processed())
}

func TestPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(4, 100, func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = pool.Submit(ctx, n)
		}(i)
	}
	wg.Wait()
	pool.Stop()

	assert.EqualValues(t, 100, processed.Load())
}

func TestPool_ErrorCallback(t *testing.T) {
	boom := errors.New("boom")

	var (
		mu     sync.Mutex
		failed []int
	)
	pool := NewPool(1, 10, func(ctx context.Context, job int) error {
		if job%2 == 0 {
			return boom
		}
		return nil
	}).OnError(func(job int, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.ErrorIs(t, err, boom)
		failed = append(failed, job)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(ctx, i))
	}
	pool.Stop()

	assert.Equal(t, []int{0, 2}, failed)
	assert.EqualValues(t, 2, pool.Failed())
	assert.EqualValues(t, 2, pool.Processed())
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, func(ctx context.Context, job int) error { return nil })
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	assert.ErrorIs(t, pool.Submit(context.Background(), 1), ErrStopped)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 0, func(ctx context.Context, job int) error {
		<-release
		return nil
	})
	pool.Start(context.Background())

	// The single worker blocks on the first job, so the second cannot be handed off.
	require.NoError(t, pool.Submit(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	pool.Stop()
}

func TestPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 50, func(ctx context.Context, job int) error {
		time.Sleep(5 * time.Millisecond)
		processed.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(ctx, i))
	}
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}
	t.Logf("processed %d jobs before shutdown", processed.Load())
}

func TestPool_FailsQueuedJobsOnCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	var (
		mu     sync.Mutex
		failed []int
	)
	pool := NewPool(1, 10, func(ctx context.Context, job int) error {
		if job == 0 {
			close(started)
			<-release
		}
		return nil
	}).OnError(func(job int, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.ErrorIs(t, err, context.Canceled)
		failed = append(failed, job)
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	require.NoError(t, pool.Submit(context.Background(), 0))
	<-started
	for i := 1; i <= 3; i++ {
		require.NoError(t, pool.Submit(context.Background(), i))
	}

	cancel()
	close(release)
	pool.Stop()

	assert.ElementsMatch(t, []int{1, 2, 3}, failed)
	assert.EqualValues(t, 1, pool.Processed())
	assert.EqualValues(t, 3, pool.Failed())
}

func TestPool_SubmitAfterContextEnds(t *testing.T) {
	pool := NewPool(1, 0, func(ctx context.Context, job int) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	cancel()

	// With no worker left to receive, Submit must not block on an unbuffered queue.
	done := make(chan error, 1)
	go func() {
		var err error
		for err == nil {
			err = pool.Submit(context.Background(), 1)
		}
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked after the pool context ended")
	}
	pool.Stop()
}
