// Package content is the client side of the generative content capability:
// vision text extraction and multiple-choice question generation.
package content

import (
	"context"
	"encoding/json"
)

// Provider is the vendor abstraction. Generate sends a prompt and returns
// the model output; when Request.Schema is set, Content is validated JSON.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the provider for structured output conforming to it.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Message is a single conversation turn. Images are only honoured on user turns.
type Message struct {
	Role    Role
	Content string
	Images  []Image
}

// Image is an inline image attachment.
type Image struct {
	MimeType string
	Data     []byte
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema definition.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is validated JSON when a schema was requested, raw text otherwise.
	Content json.RawMessage

	Usage Usage
	Model string

	// StopReason is normalized to "end" or "max_tokens"
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
