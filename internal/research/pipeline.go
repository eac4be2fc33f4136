// Package research wires configuration, model clients, tools, agents, and
// the report assembler into the competitive-research pipeline.
package research

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Declandp/market-research-agent/internal/config"
	"github.com/Declandp/market-research-agent/internal/crew"
	"github.com/Declandp/market-research-agent/internal/llm"
	"github.com/Declandp/market-research-agent/internal/prompts"
	"github.com/Declandp/market-research-agent/internal/report"
	"github.com/Declandp/market-research-agent/internal/tool"
)

// Task IDs used by every run.
const (
	TaskResearch = "research"
	TaskAnalyze  = "analyze"
	TaskReport   = "report"
)

// Pipeline runs the scout -> analyst -> reporter crew and assembles the
// final report. One Pipeline can serve multiple runs.
type Pipeline struct {
	cfg      *config.Config
	client   llm.Client
	tools    *tool.Adapter
	progress *crew.ProgressReporter
	now      func() time.Time
}

// Option customizes a Pipeline. Used by tests to inject fakes.
type Option func(*Pipeline)

// WithModelClient replaces the provider-backed model client.
func WithModelClient(c llm.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

// WithTools replaces the default tool adapter.
func WithTools(a *tool.Adapter) Option {
	return func(p *Pipeline) { p.tools = a }
}

// WithClock replaces the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline builds a Pipeline from resolved configuration. Unless
// overridden by options, the model client comes from the configured provider
// and the tool set contains web_search (when a Serper key is present) and
// scrape_website.
func NewPipeline(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:      cfg,
		progress: crew.NewProgressReporter(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := llm.New(llm.Config{
			Provider:    string(cfg.Provider),
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			BaseURL:     ollamaBase(cfg),
			Timeout:     cfg.CallTimeout,
			MaxAttempts: cfg.MaxAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("research: model client: %w", err)
		}
		p.client = client
	}

	if p.tools == nil {
		var tools []tool.Tool
		if cfg.SerperAPIKey != "" {
			tools = append(tools, tool.NewSerperSearch(cfg.SerperAPIKey))
		} else {
			log.Printf("research: SERPER_API_KEY not set, web search disabled")
		}
		tools = append(tools, tool.NewScrapeWebsite(nil))
		p.tools = tool.NewAdapter(tools,
			tool.WithMaxAttempts(cfg.MaxAttempts),
			tool.WithCallTimeout(cfg.CallTimeout),
		)
	}

	return p, nil
}

func ollamaBase(cfg *config.Config) string {
	if cfg.Provider == config.ProviderOllama {
		return cfg.OllamaBaseURL
	}
	return ""
}

// Tools returns the adapter the pipeline's agents call through.
func (p *Pipeline) Tools() *tool.Adapter {
	return p.tools
}

// Progress returns a channel that emits task progress events across runs.
func (p *Pipeline) Progress() <-chan crew.ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Call when the pipeline is no
// longer needed.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// Result is the outcome of one research run.
type Result struct {
	// RunID identifies the run.
	RunID string

	// Report is the validated, section-ordered report.
	Report *report.Report

	// Markdown is the rendered report document.
	Markdown string
}

// Run executes the full pipeline for a company and its competitors. The
// competitor list may be empty; the report then carries the market-level
// sections only. The error is non-nil when any task failed or the terminal
// output violates the report contract.
func (p *Pipeline) Run(ctx context.Context, company string, competitors []string) (*Result, error) {
	if company == "" {
		return nil, fmt.Errorf("research: company is required")
	}

	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	tasks, err := p.buildTasks(company, competitors)
	if err != nil {
		return nil, err
	}

	c, err := crew.NewCrew(tasks,
		crew.WithTools(p.tools),
		crew.WithMaxRounds(p.cfg.MaxRounds),
		crew.WithRequestInterval(p.cfg.RequestInterval),
		crew.WithProgress(p.progress),
	)
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	run, err := c.Kickoff(ctx)
	if err != nil {
		return nil, err
	}

	rep, err := report.Assemble(company, competitors, run.Output(), p.now())
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:    run.RunID,
		Report:   rep,
		Markdown: report.Render(rep),
	}, nil
}

// buildTasks renders the prompt templates and binds each task to its agent.
// The reporter receives both the raw findings and the analysis, matching the
// fan-in the report contract needs.
func (p *Pipeline) buildTasks(company string, competitors []string) ([]*crew.Task, error) {
	vars := prompts.TaskVars{
		Company:     company,
		Competitors: competitors,
		Sections:    report.SectionPlan(competitors),
	}

	scout, err := p.newAgent(crew.RoleScout, []string{"web_search", "scrape_website"})
	if err != nil {
		return nil, err
	}
	analyst, err := p.newAgent(crew.RoleAnalyst, nil)
	if err != nil {
		return nil, err
	}
	reporter, err := p.newAgent(crew.RoleReporter, nil)
	if err != nil {
		return nil, err
	}

	specs := []struct {
		id        string
		agent     *crew.Agent
		dependsOn []string
	}{
		{TaskResearch, scout, nil},
		{TaskAnalyze, analyst, []string{TaskResearch}},
		{TaskReport, reporter, []string{TaskResearch, TaskAnalyze}},
	}

	tasks := make([]*crew.Task, 0, len(specs))
	for _, s := range specs {
		prefix := string(s.agent.Role)
		description, err := prompts.Task(prefix+"_description", vars)
		if err != nil {
			return nil, fmt.Errorf("research: %w", err)
		}
		expected, err := prompts.Task(prefix+"_expected", vars)
		if err != nil {
			return nil, fmt.Errorf("research: %w", err)
		}
		tasks = append(tasks, &crew.Task{
			ID:             s.id,
			Description:    description,
			ExpectedOutput: expected,
			Agent:          s.agent,
			DependsOn:      s.dependsOn,
		})
	}
	return tasks, nil
}

// newAgent binds a role's persona to the shared model client. Only agents
// with allowed tools participate in the tool-calling protocol. The allowed
// set is intersected with the tools actually registered, so a degraded run
// (no search key) excludes web_search from the capability set up front
// instead of failing at call time.
func (p *Pipeline) newAgent(role crew.Role, allowedTools []string) (*crew.Agent, error) {
	persona, err := prompts.PersonaFor(string(role))
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	var registered []string
	for _, name := range allowedTools {
		if p.tools != nil && p.tools.Has(name) {
			registered = append(registered, name)
		}
	}

	return &crew.Agent{
		Role:         role,
		Goal:         persona.Goal,
		Backstory:    persona.Backstory,
		AllowedTools: registered,
		LLM:          p.client,
	}, nil
}
