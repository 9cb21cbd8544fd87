package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedQuestion struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheManager(client), mr
}

func TestCacheHelper_SetGetDelete(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	want := []cachedQuestion{{ID: 1, Text: "What is 2+2?"}}
	require.NoError(t, cm.Question.Set(ctx, ExamQuestionsKey(7), want, time.Minute))
	assert.True(t, mr.Exists("question:exam:7"))

	var got []cachedQuestion
	require.NoError(t, cm.Question.Get(ctx, ExamQuestionsKey(7), &got))
	assert.Equal(t, want, got)

	InvalidateExamQuestions(ctx, cm, 7)
	err := cm.Question.Get(ctx, ExamQuestionsKey(7), &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return &cachedQuestion{ID: 3, Text: "fetched"}, nil
	}

	var got cachedQuestion
	require.NoError(t, cm.Progress.CacheOrExecute(ctx, LearnerProgressKey("u1"), &got, time.Minute, fetch))
	assert.Equal(t, "fetched", got.Text)
	assert.Equal(t, 1, calls)

	assert.True(t, mr.Exists("progress:learner:u1"), "fetched value is stored before returning")

	var again cachedQuestion
	require.NoError(t, cm.Progress.CacheOrExecute(ctx, LearnerProgressKey("u1"), &again, time.Minute, fetch))
	assert.Equal(t, 1, calls, "second read must be served from cache")
	assert.Equal(t, got, again)
}

func TestCacheHelper_CacheOrExecutePropagatesFetchError(t *testing.T) {
	cm, _ := newTestManager(t)
	sentinel := errors.New("boom")

	var got cachedQuestion
	err := cm.Result.CacheOrExecute(context.Background(), "k", &got, time.Minute, func() (interface{}, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestCacheManager_NilClientDegradesGracefully(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	assert.False(t, cm.Enabled())
	assert.NoError(t, cm.Question.Set(ctx, "k", "v", time.Minute))
	assert.ErrorIs(t, cm.Question.Get(ctx, "k", new(string)), ErrCacheNotAvailable)
	assert.ErrorIs(t, cm.HealthCheck(ctx), ErrCacheNotAvailable)

	var got cachedQuestion
	err := cm.Question.CacheOrExecute(ctx, "k", &got, time.Minute, func() (interface{}, error) {
		return cachedQuestion{ID: 9}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(9), got.ID)
}

func TestCacheHelper_DeleteAfterCacheOrExecuteWins(t *testing.T) {
	cm, mr := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		var got cachedQuestion
		require.NoError(t, cm.Progress.CacheOrExecute(ctx, LearnerProgressKey("u2"), &got, time.Minute, func() (interface{}, error) {
			return cachedQuestion{ID: uint(i)}, nil
		}))
		InvalidateLearnerProgress(ctx, cm, "u2")
		assert.False(t, mr.Exists("progress:learner:u2"), "iteration %d", i)
	}
}
