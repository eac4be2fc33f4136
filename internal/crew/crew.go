// Package crew contains the orchestration core: role-bound agents, tasks
// with declared dependencies, and the Crew that sequences tasks, propagates
// completed outputs downstream, and contains failures. Agents reach the
// outside world only through the model client and the tool adapter.
package crew

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Declandp/market-research-agent/internal/tool"
)

// Default tuning values.
const (
	DefaultMaxRounds = 6
)

// Crew executes an ordered list of tasks. Tasks run in declaration order,
// which must be a topological order of the dependency graph; with
// WithParallelism, tasks whose dependencies are all satisfied may run
// concurrently. The only state shared across tasks is the append-only
// execution context, owned and written exclusively by the Crew.
type Crew struct {
	tasks       []*Task
	byID        map[string]*Task
	tools       *tool.Adapter
	maxRounds   int
	parallelism int
	throttle    *throttle
	progress    *ProgressReporter
}

// Option configures a Crew.
type Option func(*Crew)

// WithTools provides the tool adapter agents invoke through.
func WithTools(a *tool.Adapter) Option {
	return func(c *Crew) { c.tools = a }
}

// WithMaxRounds bounds each agent's reasoning loop.
func WithMaxRounds(n int) Option {
	return func(c *Crew) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithParallelism allows up to n tasks with satisfied dependencies to run
// concurrently. The default (1) is strictly sequential.
func WithParallelism(n int) Option {
	return func(c *Crew) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithRequestInterval spaces model calls across the run, keeping free-tier
// providers within their rate limits.
func WithRequestInterval(d time.Duration) Option {
	return func(c *Crew) {
		if d > 0 {
			c.throttle = &throttle{interval: d}
		}
	}
}

// WithProgress makes the crew emit events through an externally owned
// reporter instead of creating its own. The caller is then responsible for
// closing it.
func WithProgress(pr *ProgressReporter) Option {
	return func(c *Crew) {
		if pr != nil {
			c.progress = pr
		}
	}
}

// NewCrew validates the task list and builds a Crew. Construction fails on
// duplicate or empty task IDs, missing agents or model clients, unknown or
// self-referential dependencies, cycles, and dependencies declared after
// their dependents (declaration order must be a topological order).
func NewCrew(tasks []*Task, opts ...Option) (*Crew, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("crew: no tasks")
	}

	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("crew: task with empty ID")
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("crew: duplicate task ID %q", t.ID)
		}
		if t.Agent == nil {
			return nil, fmt.Errorf("crew: task %q has no agent", t.ID)
		}
		if t.Agent.LLM == nil {
			return nil, fmt.Errorf("crew: task %q agent %q has no model client", t.ID, t.Agent.Role)
		}
		byID[t.ID] = t
	}

	declared := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return nil, fmt.Errorf("crew: task %q depends on itself", t.ID)
			}
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("crew: task %q depends on unknown task %q", t.ID, dep)
			}
			if !declared[dep] {
				return nil, fmt.Errorf("crew: task %q depends on %q, which is declared later (declaration order must be topological)", t.ID, dep)
			}
		}
		declared[t.ID] = true
	}

	if cycle := findCycle(tasks, byID); cycle != "" {
		return nil, fmt.Errorf("crew: dependency cycle involving task %q", cycle)
	}

	c := &Crew{
		tasks:       tasks,
		byID:        byID,
		maxRounds:   DefaultMaxRounds,
		parallelism: 1,
		progress:    NewProgressReporter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// findCycle returns the ID of a task involved in a dependency cycle, or "".
// Topological declaration order already excludes cycles; this is the
// defensible check in graph terms, kept so the error names the right task
// when both problems exist.
func findCycle(tasks []*Task, byID map[string]*Task) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, dep := range byID[id].DependsOn {
			switch color[dep] {
			case gray:
				return dep
			case white:
				if hit := visit(dep); hit != "" {
					return hit
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			if hit := visit(t.ID); hit != "" {
				return hit
			}
		}
	}
	return ""
}

// Progress returns a channel that emits progress events during Kickoff.
func (c *Crew) Progress() <-chan ProgressEvent {
	return c.progress.Subscribe()
}

// Close shuts down the progress reporter. Call when the crew is no longer
// needed.
func (c *Crew) Close() {
	c.progress.Close()
}

// RunResult is the outcome of one Kickoff.
type RunResult struct {
	// RunID identifies the run.
	RunID string

	// Results holds one TaskResult per task, in declaration order.
	Results []*TaskResult

	// Final is the terminal (last-declared) task's result.
	Final *TaskResult
}

// Output returns the terminal task's output.
func (r *RunResult) Output() string {
	if r.Final == nil {
		return ""
	}
	return r.Final.Output
}

// Kickoff executes every task. It always returns the accumulated results;
// the error is non-nil when any task failed or was skipped, carrying the
// first such task (in declaration order) and its cause. A failed task is
// never retried at this level; all its transitive dependents end Skipped
// without their agents being invoked.
func (c *Crew) Kickoff(ctx context.Context) (*RunResult, error) {
	execCtx := newExecutionContext()

	for _, t := range c.tasks {
		c.progress.Emit(ProgressEvent{TaskID: t.ID, Role: t.Agent.Role, Status: StatusPending})
	}

	if c.parallelism > 1 {
		c.runParallel(ctx, execCtx)
	} else {
		c.runSequential(ctx, execCtx)
	}

	result := &RunResult{RunID: uuid.NewString()}
	for _, t := range c.tasks {
		res, _ := execCtx.get(t.ID)
		result.Results = append(result.Results, res)
	}
	result.Final = result.Results[len(result.Results)-1]

	for _, res := range result.Results {
		if res.Status == StatusSucceeded {
			continue
		}
		return result, &TaskError{
			TaskID:  res.TaskID,
			Skipped: res.Status == StatusSkipped,
			Cause:   res.Err,
		}
	}
	return result, nil
}

// runSequential executes tasks one at a time in declaration order.
func (c *Crew) runSequential(ctx context.Context, execCtx *executionContext) {
	for _, t := range c.tasks {
		if blocked, dep := c.blockedBy(t, execCtx); blocked {
			c.skip(t, dep, execCtx)
			continue
		}
		c.runTask(ctx, t, execCtx)
	}
}

// runParallel executes tasks in waves: every pending task whose dependencies
// have all succeeded runs in the current wave, bounded by the parallelism
// limit. Tasks blocked by a non-succeeded dependency are skipped as soon as
// that outcome is known.
func (c *Crew) runParallel(ctx context.Context, execCtx *executionContext) {
	pending := make(map[string]bool, len(c.tasks))
	for _, t := range c.tasks {
		pending[t.ID] = true
	}

	for len(pending) > 0 {
		var ready []*Task
		progressed := false

		for _, t := range c.tasks {
			if !pending[t.ID] {
				continue
			}
			if blocked, dep := c.blockedBy(t, execCtx); blocked {
				c.skip(t, dep, execCtx)
				delete(pending, t.ID)
				progressed = true
				continue
			}
			if c.depsSatisfied(t, execCtx) {
				ready = append(ready, t)
			}
		}

		if len(ready) == 0 {
			if !progressed {
				// Cannot happen with a validated DAG; bail rather than spin.
				return
			}
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.parallelism)
		for _, t := range ready {
			delete(pending, t.ID)
			g.Go(func() error {
				c.runTask(gctx, t, execCtx)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// depsSatisfied reports whether every dependency has a Succeeded result.
func (c *Crew) depsSatisfied(t *Task, execCtx *executionContext) bool {
	for _, dep := range t.DependsOn {
		res, ok := execCtx.get(dep)
		if !ok || res.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// blockedBy returns the first dependency with a terminal non-Succeeded
// result, if any.
func (c *Crew) blockedBy(t *Task, execCtx *executionContext) (bool, string) {
	for _, dep := range t.DependsOn {
		if res, ok := execCtx.get(dep); ok && res.Status.IsTerminal() && res.Status != StatusSucceeded {
			return true, dep
		}
	}
	return false, ""
}

// skip records a Skipped result without invoking the task's agent.
func (c *Crew) skip(t *Task, dep string, execCtx *executionContext) {
	cause := fmt.Errorf("%w: %q", ErrDependencyFailed, dep)
	execCtx.record(&TaskResult{
		ID:          uuid.NewString(),
		TaskID:      t.ID,
		Status:      StatusSkipped,
		Err:         cause,
		CompletedAt: time.Now(),
	})
	c.progress.Emit(ProgressEvent{TaskID: t.ID, Role: t.Agent.Role, Status: StatusSkipped, Message: cause.Error()})
}

// runTask delegates to the agent runtime and records the outcome. The
// result is fully formed before it is recorded, so dependents never observe
// a partial output.
func (c *Crew) runTask(ctx context.Context, t *Task, execCtx *executionContext) {
	c.progress.Emit(ProgressEvent{TaskID: t.ID, Role: t.Agent.Role, Status: StatusRunning})

	r := &runner{
		agent:     t.Agent,
		tools:     c.tools,
		maxRounds: c.maxRounds,
		throttle:  c.throttle,
	}

	deps := execCtx.view(t.DependsOn)
	output, rounds, err := r.execute(ctx, t, deps)

	res := &TaskResult{
		ID:          uuid.NewString(),
		TaskID:      t.ID,
		Rounds:      rounds,
		CompletedAt: time.Now(),
	}
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		c.progress.Emit(ProgressEvent{TaskID: t.ID, Role: t.Agent.Role, Status: StatusFailed, Message: err.Error()})
	} else {
		res.Status = StatusSucceeded
		res.Output = output
		c.progress.Emit(ProgressEvent{TaskID: t.ID, Role: t.Agent.Role, Status: StatusSucceeded})
	}
	execCtx.record(res)
}
