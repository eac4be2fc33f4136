// Package llm provides a provider-agnostic client for language-model
// completions. Gemini, Groq, OpenAI, and local Ollama backends sit behind a
// single Client interface; swapping providers never changes a caller's
// contract. Transient provider errors (rate limits, 5xx) are retried with
// exponential backoff up to a configured attempt budget.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Provider names accepted by New.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Request is a single completion request.
type Request struct {
	// System conditions the model (persona, output contract). Optional.
	System string

	// Prompt is the user-facing input.
	Prompt string
}

// Response is the model's completion.
type Response struct {
	Content string
}

// Client is the uniform interface over a language-model backend.
type Client interface {
	// Generate produces a completion for the request. The context bounds
	// the whole call including retries.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Config selects and tunes a provider. It is read-only after New.
type Config struct {
	// Provider is one of the Provider* constants.
	Provider string

	// Model is the provider-specific model identifier.
	Model string

	// APIKey authenticates to the provider. Unused by ollama.
	APIKey string

	// BaseURL overrides the provider's default endpoint. Required for
	// ollama when the daemon is not on localhost; used by tests.
	BaseURL string

	// Temperature and MaxTokens are passed through to the provider.
	// Zero values leave the provider defaults in place.
	Temperature float64
	MaxTokens   int

	// Timeout bounds each HTTP attempt. Zero means 120s.
	Timeout time.Duration

	// MaxAttempts is the total attempt budget per call, including the
	// first try. Zero means 3.
	MaxAttempts int

	// RetryBaseDelay seeds the backoff schedule. Zero means 1s.
	RetryBaseDelay time.Duration

	// HTTPClient replaces the default transport. Used by tests.
	HTTPClient *http.Client
}

// Sentinel errors for errors.Is checks.
var (
	// ErrUnsupportedProvider is returned by New for unknown providers.
	ErrUnsupportedProvider = errors.New("llm: unsupported provider")

	// ErrInvalidResponse marks a completion the client could not decode
	// or an empty completion.
	ErrInvalidResponse = errors.New("llm: invalid response")
)

// ExhaustedError is returned when every attempt failed transiently.
type ExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("llm: exhausted %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

// StatusError is a non-OK HTTP response from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: %s: HTTP %d: %s", e.Provider, e.Code, e.Body)
}

// Default tuning values.
const (
	defaultTimeout     = 120 * time.Second
	defaultMaxAttempts = 3
)

// Provider endpoint defaults.
const (
	geminiBaseURL = "https://generativelanguage.googleapis.com"
	groqBaseURL   = "https://api.groq.com/openai/v1"
	openAIBaseURL = "https://api.openai.com/v1"
	ollamaBaseURL = "http://localhost:11434"
)

// New constructs a Client for the configured provider. Unknown providers
// fail fast with ErrUnsupportedProvider.
func New(cfg Config) (Client, error) {
	cfg = withDefaults(cfg)

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.BaseURL == "" {
			cfg.BaseURL = geminiBaseURL
		}
		return &geminiClient{cfg: cfg}, nil
	case ProviderGroq:
		if cfg.BaseURL == "" {
			cfg.BaseURL = groqBaseURL
		}
		return &chatClient{cfg: cfg}, nil
	case ProviderOpenAI:
		if cfg.BaseURL == "" {
			cfg.BaseURL = openAIBaseURL
		}
		return &chatClient{cfg: cfg}, nil
	case ProviderOllama:
		if cfg.BaseURL == "" {
			cfg.BaseURL = ollamaBaseURL
		}
		// Ollama serves an OpenAI-compatible API under /v1.
		cfg.BaseURL += "/v1"
		return &chatClient{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return cfg
}
