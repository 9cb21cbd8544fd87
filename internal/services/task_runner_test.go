package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRunner_RecoversPanics(t *testing.T) {
	runner := NewTaskRunner(discardLogger())

	var recovered atomic.Value
	ok := runner.Go(context.Background(), "boom", func(ctx context.Context) {
		panic("stage exploded")
	}, func(ctx context.Context, rec any) {
		recovered.Store(rec)
	})
	require.True(t, ok)

	require.NoError(t, runner.Wait(context.Background()))
	assert.Equal(t, "stage exploded", recovered.Load())
}

func TestTaskRunner_OutlivesRequestContext(t *testing.T) {
	runner := NewTaskRunner(discardLogger())
	reqCtx, cancel := context.WithCancel(context.Background())

	var ctxErr atomic.Value
	runner.Go(reqCtx, "detached", func(ctx context.Context) {
		cancel()
		time.Sleep(5 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
	}, nil)

	require.NoError(t, runner.Wait(context.Background()))
	assert.Nil(t, ctxErr.Load())
}

func TestTaskRunner_RejectsAfterClose(t *testing.T) {
	runner := NewTaskRunner(discardLogger())
	require.NoError(t, runner.Close(context.Background()))

	ran := false
	ok := runner.Go(context.Background(), "late", func(ctx context.Context) { ran = true }, nil)
	assert.False(t, ok)
	assert.False(t, ran)
}

func TestTaskRunner_WaitHonoursContext(t *testing.T) {
	runner := NewTaskRunner(discardLogger())
	release := make(chan struct{})
	defer close(release)

	runner.Go(context.Background(), "slow", func(ctx context.Context) { <-release }, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, runner.Wait(ctx), context.DeadlineExceeded)
}
