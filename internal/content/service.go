package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/models"
)

// Service is the contract the pipeline requires of the content capability.
// Failures satisfy IsRetryable when they were busy or rate-limit signals.
type Service interface {
	// ExtractText turns image bytes into study text via the vision capability.
	ExtractText(ctx context.Context, data []byte, kind models.DocumentKind, mimeType string) (string, error)

	// GenerateQuestions returns exactly count validated descriptors.
	GenerateQuestions(ctx context.Context, text string, count int) ([]QuestionDescriptor, error)
}

type ClientOptions struct {
	// Timeout bounds one operation including its retries
	Timeout   time.Duration
	MaxTokens int
}

// Client implements Service on top of a Provider.
type Client struct {
	provider Provider
	logger   *slog.Logger
	opts     ClientOptions
}

func NewClient(provider Provider, logger *slog.Logger, opts ClientOptions) *Client {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}
	return &Client{provider: provider, logger: logger, opts: opts}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout > 0 {
		return context.WithTimeout(ctx, c.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Client) ExtractText(ctx context.Context, data []byte, kind models.DocumentKind, mimeType string) (string, error) {
	if kind != models.DocumentImage {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
	if len(data) == 0 {
		return "", ErrEmptyText
	}

	ctx, cancel := c.withTimeout(WithPurpose(ctx, "vision_extract"))
	defer cancel()

	resp, err := c.provider.Generate(ctx, Request{
		System: visionSystemPrompt,
		Messages: []Message{{
			Role:    RoleUser,
			Content: "Transcribe the study material in this image.",
			Images:  []Image{{MimeType: mimeType, Data: data}},
		}},
		MaxTokens: c.opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(string(resp.Content))
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

func (c *Client) GenerateQuestions(ctx context.Context, text string, count int) ([]QuestionDescriptor, error) {
	if count <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", count)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	ctx, cancel := c.withTimeout(WithPurpose(ctx, "question_generation"))
	defer cancel()

	resp, err := c.provider.Generate(ctx, Request{
		System:      generationSystemPrompt,
		Messages:    []Message{{Role: RoleUser, Content: generationPrompt(text, count)}},
		Schema:      questionSetSchema(count),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: 0.4,
	})
	if err != nil {
		raw, ok := malformedContent(err)
		if !ok {
			return nil, err
		}

		descriptors, salvageErr := salvageQuestions(raw)
		if salvageErr != nil {
			return nil, &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("%v; salvage failed: %v", err, salvageErr)}
		}
		c.logger.Info("Salvaged malformed question set", "descriptors", len(descriptors), "requested", count)
		return normalizeQuestions(descriptors, count)
	}

	descriptors, err := parseQuestionSet(resp.Content)
	if err != nil {
		return nil, err
	}
	return normalizeQuestions(descriptors, count)
}

// malformedContent returns the raw output of a present-but-invalid response
func malformedContent(err error) ([]byte, bool) {
	var inv *ErrInvalidResponse
	if errors.As(err, &inv) && len(inv.Content) > 0 {
		return inv.Content, true
	}
	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) && len(maxTok.Content) > 0 {
		return maxTok.Content, true
	}
	return nil, false
}
