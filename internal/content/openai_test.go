package content

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  "gpt-4o-mini",
	}
}

func openAICompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func openAIErrorHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "failure", "type": "server_error"},
		})
	}
}

func TestOpenAIProvider_StructuredQuestionSet(t *testing.T) {
	body := string(questionSetJSON(t, validQuestion(1, "A"), validQuestion(2, "B")))
	var captured map[string]any

	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAICompletion(body, "stop"))
	})

	c := NewClient(p, discardLogger(), ClientOptions{})
	questions, err := c.GenerateQuestions(context.Background(), "osmosis", 2)
	require.NoError(t, err)
	assert.Len(t, questions, 2)

	format, ok := captured["response_format"].(map[string]any)
	require.True(t, ok, "structured output requested")
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAIProvider_VisionMessage(t *testing.T) {
	var captured map[string]any
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAICompletion("The water cycle.", "stop"))
	})

	resp, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "Transcribe", Images: []Image{{MimeType: "image/png", Data: []byte("png")}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "The water cycle.", string(resp.Content))

	messages := captured["messages"].([]any)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestOpenAIProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{status: http.StatusTooManyRequests, retryable: true},
		{status: http.StatusServiceUnavailable, retryable: true},
		{status: http.StatusInternalServerError, retryable: false},
		{status: http.StatusBadRequest, retryable: false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestOpenAIProvider(t, openAIErrorHandler(tt.status))
			_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
			require.Error(t, err)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestOpenAIProvider_Truncated(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAICompletion(`{"questions":[`, "length"))
	})

	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var maxTok *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &maxTok)
}

func TestRetryOverOpenAI_ServiceBusyRetried(t *testing.T) {
	calls := 0
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			openAIErrorHandler(http.StatusServiceUnavailable)(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAICompletion("ok", "stop"))
	})

	resp, err := WithRetry(p, fastRetry(), discardLogger()).Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Content))
	assert.Equal(t, 3, calls)
}

func TestOpenAIModelMapping(t *testing.T) {
	assert.Equal(t, "gpt-4o", resolveModel("gpt-4o", openaiModels))
	assert.Equal(t, "custom-model", resolveModel("custom-model", openaiModels))
}
