package content

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"ok":true}`)})
	p := WithRetry(mock, fastRetry(), discardLogger())

	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Content))
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_BusyThenSuccess(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrServiceBusy{Err: errors.New("overloaded")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("slow down")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	p := WithRetry(mock, fastRetry(), discardLogger())

	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 3, mock.CallCount())
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := NewMockProvider()
	for i := 0; i < 6; i++ {
		mock.AddResponse(MockResponse{Err: &ErrRateLimit{Err: errors.New("limited")}})
	}
	p := WithRetry(mock, fastRetry(), discardLogger())

	_, err := p.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 4, mock.CallCount(), "first attempt plus three retries")
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "unavailable", err: &ErrProviderUnavailable{Err: errors.New("bad request")}},
		{name: "invalid response", err: &ErrInvalidResponse{Err: errors.New("not json")}},
		{name: "max tokens", err: &ErrMaxTokensExceeded{}},
		{name: "plain error", err: errors.New("network")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(MockResponse{Err: tt.err}, MockResponse{Content: json.RawMessage(`{}`)})
			p := WithRetry(mock, fastRetry(), discardLogger())

			_, err := p.Generate(context.Background(), Request{})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, mock.CallCount())
		})
	}
}

func TestRetry_BackoffDoublesAndRespectsRetryAfter(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrServiceBusy{}},
		MockResponse{Err: &ErrServiceBusy{}},
		MockResponse{Err: &ErrRateLimit{RetryAfter: 7 * time.Second}},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	var waits []time.Duration
	p := &RetryProvider{
		inner:  mock,
		config: DefaultRetryConfig(),
		logger: discardLogger(),
		sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}

	_, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 7 * time.Second}, waits)
}

func TestRetry_ContextCancellation(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrServiceBusy{}}, MockResponse{Err: &ErrServiceBusy{}})
	cfg := fastRetry()
	cfg.InitialWait = time.Hour
	cfg.MaxWait = time.Hour
	p := WithRetry(mock, cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.CallCount())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&ErrRateLimit{}))
	assert.True(t, IsRetryable(&ErrServiceBusy{}))
	assert.False(t, IsRetryable(&ErrProviderUnavailable{}))
	assert.False(t, IsRetryable(nil))
}
