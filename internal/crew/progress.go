package crew

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ProgressEvent is emitted to the user as tasks move through the run.
type ProgressEvent struct {
	TaskID  string
	Role    Role
	Status  Status
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch        chan ProgressEvent
	closeOnce sync.Once
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{ch: make(chan ProgressEvent, 64)}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel. Safe to call more than once.
func (pr *ProgressReporter) Close() {
	pr.closeOnce.Do(func() { close(pr.ch) })
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case StatusPending:
		return fmt.Sprintf("  ○ %s (pending)", event.TaskID)
	case StatusRunning:
		return fmt.Sprintf("  ● %s (%s)...", event.TaskID, event.Role)
	case StatusSucceeded:
		return fmt.Sprintf("  ✓ %s complete", event.TaskID)
	case StatusSkipped:
		return fmt.Sprintf("  - %s skipped: %s", event.TaskID, event.Message)
	case StatusFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.TaskID, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.TaskID)
	}
}

// throttle spaces model calls by a minimum interval across the whole run,
// keeping free-tier providers within their request-per-minute quotas.
// A zero interval never waits.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// wait blocks until the interval since the previous call has elapsed or the
// context is done.
func (t *throttle) wait(ctx context.Context) error {
	if t == nil || t.interval <= 0 {
		return nil
	}

	t.mu.Lock()
	now := time.Now()
	next := t.last.Add(t.interval)
	if next.Before(now) {
		next = now
	}
	t.last = next
	t.mu.Unlock()

	d := time.Until(next)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
