// Package backoff provides the exponential-backoff schedule shared by the
// tool adapter and the model clients, so every outbound call site applies the
// same retry discipline.
package backoff

import (
	"context"
	"crypto/rand"
	"math"
	"net/http"
	"time"
)

// DefaultBaseDelay is used when a caller does not configure a base delay.
const DefaultBaseDelay = 1 * time.Second

// Delay returns the wait before retry number attempt (attempt >= 1):
// base * 2^(attempt-1) plus up to 50% jitter. Jitter uses crypto/rand; if
// random bytes are unavailable the raw exponential delay is returned.
func Delay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	d := float64(base) * math.Pow(2, float64(attempt-1))

	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Duration(d)
	}
	jitter := float64(b[0]) / 255.0 * (d / 2)
	return time.Duration(d + jitter)
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter
// case so callers abort the retry loop promptly.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryableStatus reports whether an HTTP status code signals a transient
// failure worth retrying: rate limiting, request timeout, or a server error.
func RetryableStatus(code int) bool {
	switch {
	case code == http.StatusTooManyRequests:
		return true
	case code == http.StatusRequestTimeout:
		return true
	case code >= 500:
		return true
	}
	return false
}
