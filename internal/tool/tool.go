// Package tool provides the single gateway through which agents reach
// external capabilities. Every tool call goes through the Adapter, which owns
// the timeout, retry, and backoff policy; no other component performs tool
// network I/O.
package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Declandp/market-research-agent/internal/backoff"
)

// Tool is one external capability (web search, page scraping).
// Implementations perform a single attempt; the Adapter handles retries.
type Tool interface {
	// Name is the identifier agents use to request the tool.
	Name() string

	// Description tells the model what the tool does and what arguments
	// it takes.
	Description() string

	// Call performs one invocation. The returned string is the
	// observation fed back to the model.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ErrUnknownTool is returned when no tool with the requested name is
// registered.
var ErrUnknownTool = errors.New("tool: unknown tool")

// InvalidArgsError marks malformed arguments. Never retried.
type InvalidArgsError struct {
	Tool   string
	Reason string
}

func (e *InvalidArgsError) Error() string {
	return fmt.Sprintf("tool: %s: invalid arguments: %s", e.Tool, e.Reason)
}

// ExhaustedError is returned when every attempt failed transiently.
type ExhaustedError struct {
	Tool     string
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("tool: %s: exhausted %d attempts: %v", e.Tool, e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

// StatusError is a non-2xx HTTP response from a tool's backing API.
type StatusError struct {
	Tool string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tool: %s: HTTP %d: %s", e.Tool, e.Code, e.Body)
}

// Adapter default tuning.
const (
	DefaultMaxAttempts = 3
	DefaultCallTimeout = 30 * time.Second
)

// Adapter wraps a registry of tools with the shared retry/backoff/timeout
// policy. Tools are registered once at construction time; the registry is
// read-only afterwards, so a single Adapter is safe for concurrent calls.
type Adapter struct {
	tools       map[string]Tool
	names       []string // registration order
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithMaxAttempts sets the total attempt budget per Invoke.
func WithMaxAttempts(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithRetryBaseDelay seeds the backoff schedule.
func WithRetryBaseDelay(d time.Duration) AdapterOption {
	return func(a *Adapter) { a.baseDelay = d }
}

// WithCallTimeout bounds each attempt.
func WithCallTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAdapter creates an Adapter over the given tools.
func NewAdapter(tools []Tool, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		tools:       make(map[string]Tool, len(tools)),
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultCallTimeout,
	}
	for _, t := range tools {
		if _, dup := a.tools[t.Name()]; dup {
			continue
		}
		a.tools[t.Name()] = t
		a.names = append(a.names, t.Name())
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Names returns the registered tool names in registration order.
func (a *Adapter) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Has reports whether a tool with the given name is registered.
func (a *Adapter) Has(name string) bool {
	_, ok := a.tools[name]
	return ok
}

// Describe renders a usage catalog of the registered tools for inclusion in
// an agent prompt. Names are sorted for deterministic output.
func (a *Adapter) Describe(allowed []string) string {
	permitted := make(map[string]bool, len(allowed))
	for _, n := range allowed {
		permitted[n] = true
	}

	var names []string
	for n := range a.tools {
		if permitted[n] {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintf(&sb, "- %s: %s\n", n, a.tools[n].Description())
	}
	return sb.String()
}

// Invoke calls the named tool under the retry policy: transient failures
// (rate limits, 5xx, transport errors) are retried with exponential backoff
// up to the attempt budget; invalid arguments and other client errors fail
// immediately; a per-attempt timeout aborts slow calls.
func (a *Adapter) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := a.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := backoff.Sleep(ctx, backoff.Delay(attempt-1, a.baseDelay)); err != nil {
				return "", err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
		out, err := t.Call(attemptCtx, args)
		cancel()

		if err == nil {
			return out, nil
		}
		if !retryable(ctx, err) {
			return "", err
		}
		lastErr = err
	}

	return "", &ExhaustedError{Tool: name, Attempts: a.maxAttempts, Cause: lastErr}
}

// retryable classifies an attempt error under the shared policy. Timeouts
// and cancellation surface directly rather than being retried.
func retryable(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	var ia *InvalidArgsError
	if errors.As(err, &ia) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return backoff.RetryableStatus(se.Code)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
