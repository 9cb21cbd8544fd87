package content

import (
	"context"
	"log/slog"
	"time"
)

type contextKey string

const purposeKey contextKey = "content_purpose"

// WithPurpose labels calls made with ctx in the request log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// LoggingProvider logs one structured line per provider call.
type LoggingProvider struct {
	inner  Provider
	logger *slog.Logger
}

func WithLogging(p Provider, logger *slog.Logger) Provider {
	return &LoggingProvider{inner: p, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	args := []any{
		"model", l.inner.ModelID(),
		"purpose", PurposeFrom(ctx),
		"latency_ms", time.Since(start).Milliseconds(),
		"images", countImages(req),
	}
	if resp != nil {
		args = append(args,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens)
	}

	if err != nil {
		l.logger.Warn("Content request failed", append(args, "error", err, "retryable", IsRetryable(err))...)
	} else {
		l.logger.Debug("Content request completed", args...)
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func countImages(req Request) int {
	n := 0
	for _, m := range req.Messages {
		n += len(m.Images)
	}
	return n
}
