package taskqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/scanledger/waitlist/internal/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubmitRunsTask(t *testing.T) {
	m := metrics.New()
	q := New(zap.NewNop(), 2, 8, m)
	q.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	id, err := q.Submit("mail", func(ctx context.Context) error {
		defer wg.Done()
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	wg.Wait()
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("mail", string(TaskCompleted))))
}

func TestFailuresAndPanicsAreContained(t *testing.T) {
	m := metrics.New()
	q := New(zap.NewNop(), 1, 8, m)
	q.Start()

	_, err := q.Submit("boom", func(ctx context.Context) error { panic("kaboom") })
	require.NoError(t, err)
	_, err = q.Submit("fail", func(ctx context.Context) error { return errors.New("smtp down") })
	require.NoError(t, err)

	var ran atomic.Bool
	_, err = q.Submit("ok", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, q.Shutdown(context.Background()))
	assert.True(t, ran.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("boom", string(TaskFailed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tasks.WithLabelValues("fail", string(TaskFailed))))
}

func TestSubmitFull(t *testing.T) {
	q := New(zap.NewNop(), 1, 1, nil)
	// Not started, so the single slot stays occupied.
	_, err := q.Submit("a", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	_, err = q.Submit("b", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, q.Len())
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestShutdownDrainsAndCloses(t *testing.T) {
	q := New(zap.NewNop(), 2, 16, nil)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		_, err := q.Submit("n", func(ctx context.Context) error {
			count.Add(1)
			return nil
		})
		require.NoError(t, err)
	}
	q.Start()
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(10), count.Load())

	_, err := q.Submit("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.NoError(t, q.Shutdown(context.Background()))
}

func TestShutdownDeadlineCancelsRunningTasks(t *testing.T) {
	q := New(zap.NewNop(), 1, 1, nil)
	q.Start()

	started := make(chan struct{})
	_, err := q.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Shutdown(ctx), context.DeadlineExceeded)
}

func TestShutdownDeadlineDoesNotWaitForStuckTask(t *testing.T) {
	q := New(zap.NewNop(), 1, 1, nil)
	q.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	_, err := q.Submit("stuck", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	begin := time.Now()
	assert.ErrorIs(t, q.Shutdown(ctx), context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), time.Second)
}

func TestSubmitNilFunc(t *testing.T) {
	q := New(nil, 1, 1, nil)
	_, err := q.Submit("x", nil)
	assert.Error(t, err)
}
