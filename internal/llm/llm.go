package llm

import "context"

// PartType distinguishes the parts of a user message.
type PartType string

const (
	PartImage PartType = "image_url"
	PartText  PartType = "text"
)

// Part is one element of the multi-modal user message.
type Part struct {
	Type     PartType
	Text     string
	ImageURL string
}

// PromptRequest is the provider-agnostic completion request.
type PromptRequest struct {
	System string
	Parts  []Part
}

// Completer abstracts chat-completion providers.
type Completer interface {
	Complete(ctx context.Context, req PromptRequest) (string, error)
	Name() string
}

// Usage reports token counts when a provider returns them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
