package content

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider returns canned responses in FIFO order and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request

	// Fallback, when set, answers once the queue is empty
	Fallback func(req Request) (*Response, error)
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		if m.Fallback != nil {
			return m.Fallback(req)
		}
		return nil, &ErrProviderUnavailable{}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	if err := validateResponse(req.Schema, resp.Content); err != nil {
		return nil, err
	}

	return &Response{
		Content:    resp.Content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// DemoFallback answers every request locally: schema requests get a
// placeholder question set of the requested size, others a fixed text.
// Used by the "mock" provider outside tests.
func DemoFallback(req Request) (*Response, error) {
	if req.Schema == nil {
		return &Response{Content: json.RawMessage("Transcribed text of the uploaded image."), Model: "mock", StopReason: "end"}, nil
	}

	count := 5
	if n, ok := requestedCountFrom(req); ok {
		count = n
	}
	body, err := json.Marshal(questionSet{Questions: PlaceholderQuestions(count)})
	if err != nil {
		return nil, err
	}
	return &Response{Content: body, Model: "mock", StopReason: "end"}, nil
}

func requestedCountFrom(req Request) (int, bool) {
	props, ok := req.Schema.Definition["properties"].(map[string]any)
	if !ok {
		return 0, false
	}
	questions, ok := props["questions"].(map[string]any)
	if !ok {
		return 0, false
	}
	n, ok := questions["minItems"].(int)
	return n, ok && n > 0
}
