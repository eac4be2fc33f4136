package tool

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool is a scriptable Tool whose Call runs a function field.
type fakeTool struct {
	name string
	call func(ctx context.Context, args map[string]any) (string, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool for tests" }
func (f *fakeTool) Call(ctx context.Context, args map[string]any) (string, error) {
	return f.call(ctx, args)
}

// fastAdapter builds an Adapter with millisecond backoff for tests.
func fastAdapter(tools ...Tool) *Adapter {
	return NewAdapter(tools,
		WithMaxAttempts(3),
		WithRetryBaseDelay(time.Millisecond),
		WithCallTimeout(time.Second),
	)
}

func TestAdapter_UnknownTool(t *testing.T) {
	a := fastAdapter()
	_, err := a.Invoke(context.Background(), "nope", nil)
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestAdapter_TransientFailuresThenSuccess(t *testing.T) {
	calls := 0
	ft := &fakeTool{name: "flaky", call: func(context.Context, map[string]any) (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{Tool: "flaky", Code: http.StatusTooManyRequests}
		}
		return "done", nil
	}}

	out, err := fastAdapter(ft).Invoke(context.Background(), "flaky", nil)
	require.NoError(t, err, "success within the attempt budget must not surface an error")
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, calls)
}

func TestAdapter_Exhaustion(t *testing.T) {
	calls := 0
	ft := &fakeTool{name: "down", call: func(context.Context, map[string]any) (string, error) {
		calls++
		return "", &StatusError{Tool: "down", Code: http.StatusBadGateway}
	}}

	_, err := fastAdapter(ft).Invoke(context.Background(), "down", nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)

	var se *StatusError
	require.ErrorAs(t, err, &se, "last cause must be preserved")
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestAdapter_InvalidArgsNotRetried(t *testing.T) {
	calls := 0
	ft := &fakeTool{name: "strict", call: func(context.Context, map[string]any) (string, error) {
		calls++
		return "", &InvalidArgsError{Tool: "strict", Reason: "missing query"}
	}}

	_, err := fastAdapter(ft).Invoke(context.Background(), "strict", nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "invalid arguments must fail immediately")

	var ia *InvalidArgsError
	assert.ErrorAs(t, err, &ia)
}

func TestAdapter_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	ft := &fakeTool{name: "denied", call: func(context.Context, map[string]any) (string, error) {
		calls++
		return "", &StatusError{Tool: "denied", Code: http.StatusForbidden}
	}}

	_, err := fastAdapter(ft).Invoke(context.Background(), "denied", nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAdapter_Timeout(t *testing.T) {
	ft := &fakeTool{name: "slow", call: func(ctx context.Context, _ map[string]any) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	a := NewAdapter([]Tool{ft},
		WithMaxAttempts(3),
		WithRetryBaseDelay(time.Millisecond),
		WithCallTimeout(20*time.Millisecond),
	)

	start := time.Now()
	_, err := a.Invoke(context.Background(), "slow", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got: %v", err)
	assert.Less(t, time.Since(start), time.Second, "timeouts must not be retried")
}

func TestAdapter_RunCancellationAbortsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ft := &fakeTool{name: "flaky", call: func(context.Context, map[string]any) (string, error) {
		cancel()
		return "", &StatusError{Tool: "flaky", Code: http.StatusInternalServerError}
	}}

	a := NewAdapter([]Tool{ft},
		WithMaxAttempts(3),
		WithRetryBaseDelay(time.Minute),
	)

	start := time.Now()
	_, err := a.Invoke(ctx, "flaky", nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation must not wait out the backoff")
}

func TestAdapter_NamesAndDescribe(t *testing.T) {
	search := &fakeTool{name: "web_search", call: nil}
	scrape := &fakeTool{name: "scrape_website", call: nil}
	a := NewAdapter([]Tool{search, scrape})

	assert.Equal(t, []string{"web_search", "scrape_website"}, a.Names())
	assert.True(t, a.Has("web_search"))
	assert.False(t, a.Has("delete_database"))

	desc := a.Describe([]string{"web_search"})
	assert.Contains(t, desc, "web_search")
	assert.NotContains(t, desc, "scrape_website", "catalog is limited to allowed tools")
}
