package ada

import "context"

// Provider abstracts the LLM backend.
type Provider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// ChatStream streams text chunks into ch, then returns the final
	// response with usage stats. Implementations close ch before returning.
	ChatStream(ctx context.Context, req ChatRequest, ch chan<- string) (ChatResponse, error)
	// Name returns the provider name (e.g. "openai").
	Name() string
}

// Models bundles the providers used at different stages of a request.
// Researcher drives planning and evaluation, General drives the final
// answer, Fast replaces General when the client asks for fast mode.
type Models struct {
	General    Provider
	Researcher Provider
	Fast       Provider
}

// Answer returns the synthesis provider for the requested mode, falling
// back to General when no separate fast model is configured.
func (m Models) Answer(fastMode bool) Provider {
	if fastMode && m.Fast != nil {
		return m.Fast
	}
	return m.General
}
