// Package llm provides the completion capability port consumed by the
// orchestration core, with OpenAI-compatible HTTP clients for the supported
// providers and a deterministic fallback client that keeps the system
// operable without live credentials.
package llm

import (
	"context"
	"time"
)

// Request is a single completion request.
type Request struct {
	System string
	User   string
}

// StreamDelta is one chunk of a streamed completion.
type StreamDelta struct {
	Content string
	Done    bool
	Err     error
}

// Client is the completion port. Complete blocks until the full reply is
// available; CompleteStream emits token deltas and closes the channel after
// the final delta (Done or Err set).
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	CompleteStream(ctx context.Context, req Request) (<-chan StreamDelta, error)
	Model() string
}

// Config configures an HTTP-backed client.
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Override carries per-request model settings from the caller. Empty fields
// fall back to configured defaults.
type Override struct {
	Provider string
	Model    string
	APIKey   string
}

// baseURLFor maps a provider name to its OpenAI-compatible endpoint.
func baseURLFor(provider, localURL string) string {
	switch provider {
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	case "local":
		if localURL != "" {
			return localURL
		}
		return "http://localhost:11434/v1"
	default:
		return "https://api.openai.com/v1"
	}
}
