package crew

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a task within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Task is one unit of orchestrated work: a description, an output contract,
// an assigned agent, and the upstream tasks whose outputs become its input
// context. Tasks are immutable once handed to NewCrew.
type Task struct {
	// ID identifies the task within its crew. Must be unique and non-empty.
	ID string

	// Description tells the agent what to do.
	Description string

	// ExpectedOutput describes the shape the output must take.
	ExpectedOutput string

	// Agent performs the task.
	Agent *Agent

	// DependsOn lists upstream task IDs whose results feed this task.
	// Must form a DAG; fan-in (multiple upstream tasks) is supported.
	DependsOn []string
}

// TaskResult is the outcome of one task execution. Produced exactly once per
// task per run and immutable after creation.
type TaskResult struct {
	// ID is a unique identifier for this result.
	ID string

	// TaskID names the task this result belongs to.
	TaskID string

	// Status is the terminal state: Succeeded, Failed, or Skipped.
	Status Status

	// Output is the agent's final answer. Empty unless Succeeded.
	Output string

	// Err is the failure cause. Nil unless Failed or Skipped.
	Err error

	// Rounds counts the reasoning rounds the agent used.
	Rounds int

	// CompletedAt records when the result was produced.
	CompletedAt time.Time
}

// executionContext accumulates task results over a run. Writes happen only
// from the orchestrator after a task completes; reads see fully formed
// results scoped to a task's declared dependencies. The map grows
// monotonically and entries are never mutated after insertion.
type executionContext struct {
	mu      sync.RWMutex
	results map[string]*TaskResult
}

func newExecutionContext() *executionContext {
	return &executionContext{results: make(map[string]*TaskResult)}
}

// record inserts a completed result. Results are write-once.
func (c *executionContext) record(res *TaskResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.results[res.TaskID]; exists {
		return
	}
	c.results[res.TaskID] = res
}

// get returns the result for a task ID, if recorded.
func (c *executionContext) get(taskID string) (*TaskResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[taskID]
	return res, ok
}

// view returns the results for the given dependency IDs in declaration
// order, dropping any not yet recorded.
func (c *executionContext) view(deps []string) []*TaskResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*TaskResult, 0, len(deps))
	for _, id := range deps {
		if res, ok := c.results[id]; ok {
			out = append(out, res)
		}
	}
	return out
}
