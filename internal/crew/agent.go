package crew

import (
	"context"
	"fmt"
	"strings"

	"github.com/Declandp/market-research-agent/internal/llm"
	"github.com/Declandp/market-research-agent/internal/tool"
)

// Role identifies an agent's specialty.
type Role string

const (
	RoleScout    Role = "scout"
	RoleAnalyst  Role = "analyst"
	RoleReporter Role = "reporter"
)

// Agent is a named role bound to a persona, a capability set, and a model
// client. Agents hold no per-task state; everything they need arrives with
// the task.
type Agent struct {
	// Role names the specialty.
	Role Role

	// Goal and Backstory condition the model.
	Goal      string
	Backstory string

	// AllowedTools lists the tool names this agent may invoke. A model
	// request for anything else fails the task with ErrToolNotAllowed.
	AllowedTools []string

	// LLM produces the agent's reasoning and answers.
	LLM llm.Client
}

// allowed reports whether the agent may use the named tool.
func (a *Agent) allowed(name string) bool {
	for _, t := range a.AllowedTools {
		if t == name {
			return true
		}
	}
	return false
}

// runner drives one agent through one task: a bounded loop of model calls,
// each of which either yields the final answer or requests a permitted tool
// whose observation is appended to the conversation.
type runner struct {
	agent     *Agent
	tools     *tool.Adapter
	maxRounds int
	throttle  *throttle
}

// execute produces the task's output. It returns the final answer, the
// number of reasoning rounds used, and the first terminal error.
func (r *runner) execute(ctx context.Context, t *Task, deps []*TaskResult) (string, int, error) {
	system := r.systemPrompt()
	prompt := r.taskPrompt(t, deps)

	useTools := r.tools != nil && len(r.agent.AllowedTools) > 0

	for round := 1; round <= r.maxRounds; round++ {
		if err := r.throttle.wait(ctx); err != nil {
			return "", round, err
		}

		resp, err := r.agent.LLM.Generate(ctx, &llm.Request{System: system, Prompt: prompt})
		if err != nil {
			return "", round, err
		}

		if !useTools {
			return resp.Content, round, nil
		}

		d := parseDecision(resp.Content)
		if d.kind == decisionFinal {
			return d.answer, round, nil
		}

		if !r.agent.allowed(d.tool) {
			return "", round, fmt.Errorf("%w: %s requested %q", ErrToolNotAllowed, r.agent.Role, d.tool)
		}

		observation, err := r.tools.Invoke(ctx, d.tool, d.args)
		if err != nil {
			return "", round, err
		}

		prompt += fmt.Sprintf("\n\n[Round %d] You called %s and observed:\n%s\n\nContinue. Answer directly if you have enough information.",
			round, d.tool, observation)
	}

	return "", r.maxRounds, fmt.Errorf("%w: %d rounds", ErrRoundLimitExceeded, r.maxRounds)
}

// systemPrompt renders the agent's persona and, when tools are available,
// the tool-calling protocol.
func (r *runner) systemPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the %s agent.\nGoal: %s\nBackstory: %s\n", r.agent.Role, r.agent.Goal, r.agent.Backstory)

	if r.tools != nil && len(r.agent.AllowedTools) > 0 {
		sb.WriteString("\nYou may use these tools:\n")
		sb.WriteString(r.tools.Describe(r.agent.AllowedTools))
		sb.WriteString("\nTo use a tool, reply with ONLY a fenced JSON block:\n")
		sb.WriteString("```json\n{\"tool\": \"<name>\", \"arguments\": {...}}\n```\n")
		sb.WriteString("When you have the answer, reply with the answer itself and no JSON block.\n")
	}
	return sb.String()
}

// taskPrompt renders the task description, the output contract, and the
// serialized outputs of the task's dependencies.
func (r *runner) taskPrompt(t *Task, deps []*TaskResult) string {
	var sb strings.Builder
	sb.WriteString("Task:\n")
	sb.WriteString(t.Description)
	sb.WriteString("\n\nExpected output:\n")
	sb.WriteString(t.ExpectedOutput)

	if len(deps) > 0 {
		sb.WriteString("\n\n## Context from completed tasks\n")
		for _, dep := range deps {
			fmt.Fprintf(&sb, "\n### Output of task %q\n\n%s\n", dep.TaskID, dep.Output)
		}
	}
	return sb.String()
}
