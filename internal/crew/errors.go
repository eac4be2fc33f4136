package crew

import (
	"errors"
	"fmt"
)

// Agent runtime errors.
var (
	// ErrRoundLimitExceeded marks a reasoning loop that hit its round
	// budget without producing a final answer.
	ErrRoundLimitExceeded = errors.New("crew: reasoning round limit exceeded")

	// ErrToolNotAllowed marks a model request for a tool outside the
	// agent's capability set.
	ErrToolNotAllowed = errors.New("crew: tool not allowed for agent")

	// ErrDependencyFailed is the cause recorded on skipped tasks.
	ErrDependencyFailed = errors.New("crew: upstream task did not succeed")
)

// TaskError is the run-level failure: the first task that failed or was
// skipped, with its underlying cause.
type TaskError struct {
	TaskID  string
	Skipped bool
	Cause   error
}

func (e *TaskError) Error() string {
	if e.Skipped {
		return fmt.Sprintf("crew: task %q skipped: %v", e.TaskID, e.Cause)
	}
	return fmt.Sprintf("crew: task %q failed: %v", e.TaskID, e.Cause)
}

func (e *TaskError) Unwrap() error { return e.Cause }
