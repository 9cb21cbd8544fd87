package content

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", Model: "claude-haiku"}, option.WithBaseURL(server.URL))
	require.NoError(t, err)
	return p
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func TestAnthropicProvider_ImageBlockBeforeText(t *testing.T) {
	var captured map[string]any
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(anthropicMessage("Mitosis diagram.", "end_turn"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System:    visionSystemPrompt,
		Messages:  []Message{{Role: RoleUser, Content: "Transcribe", Images: []Image{{MimeType: "image/jpeg", Data: []byte("jpg")}}}},
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mitosis diagram.", string(resp.Content))
	assert.Equal(t, 80, resp.Usage.TotalTokens)

	messages := captured["messages"].([]any)
	blocks := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, blocks, 2)
	assert.Equal(t, "image", blocks[0].(map[string]any)["type"])
	assert.Equal(t, "text", blocks[1].(map[string]any)["type"])
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{status: http.StatusTooManyRequests, retryable: true},
		{status: 529, retryable: true},
		{status: http.StatusBadRequest, retryable: false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			calls := 0
			p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"type":  "error",
					"error": map[string]any{"type": "overloaded_error", "message": "busy"},
				})
			})

			_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}, MaxTokens: 10})
			require.Error(t, err)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, 1, calls, "the SDK does not retry on its own")
		})
	}
}

func TestAnthropicModelMapping(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-20250514", resolveModel("claude-sonnet", anthropicModels))
	assert.Equal(t, "claude-haiku-4-5-20251001", resolveModel("claude-haiku", anthropicModels))
}
