package tasks

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsSubmittedTasks(t *testing.T) {
	q := New(Config{Workers: 2, Size: 10}, zerolog.Nop())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.True(t, q.Submit("count", func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := New(Config{Workers: 1, Size: 1}, zerolog.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, q.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.True(t, q.Submit("buffered", func(context.Context) error { return nil }))
	assert.False(t, q.Submit("overflow", func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, q.Close(context.Background()))
}

func TestQueueLogsFailuresAndKeepsGoing(t *testing.T) {
	var buf bytes.Buffer
	q := New(Config{Workers: 1, Size: 4}, zerolog.New(&buf))

	var ran atomic.Int32
	q.Submit("fails", func(context.Context) error { return errors.New("sink down") })
	q.Submit("panics", func(context.Context) error { panic("boom") })
	q.Submit("ok", func(context.Context) error {
		ran.Add(1)
		return nil
	})

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int32(1), ran.Load())
	assert.Contains(t, buf.String(), "sink down")
	assert.Contains(t, buf.String(), "task panicked")
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := New(Config{Workers: 1}, zerolog.Nop())
	require.NoError(t, q.Close(context.Background()))

	assert.False(t, q.Submit("late", func(context.Context) error { return nil }))
	assert.ErrorIs(t, q.Close(context.Background()), ErrClosed)
}

func TestQueueCloseDeadlineCancelsTasks(t *testing.T) {
	q := New(Config{Workers: 1, Size: 1}, zerolog.Nop())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	q.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestQueueTaskTimeout(t *testing.T) {
	q := New(Config{Workers: 1, Size: 1, Timeout: 10 * time.Millisecond}, zerolog.Nop())

	errCh := make(chan error, 1)
	q.Submit("bounded", func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	})
	require.NoError(t, q.Close(context.Background()))
	assert.ErrorIs(t, <-errCh, context.DeadlineExceeded)
}
