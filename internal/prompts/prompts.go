// Package prompts embeds the persona and task prompt text used to condition
// the research agents. Embedding keeps the prompt content versioned with the
// binary while keeping it out of the orchestration code.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates
var templatesFS embed.FS

// Persona conditions an agent's model calls.
type Persona struct {
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// TaskVars feeds the task description templates.
type TaskVars struct {
	Company     string
	Competitors []string

	// Sections lists the required report section titles, in order.
	// Only the reporter templates use it.
	Sections []string
}

// CompetitorList renders the competitors as a comma-separated list.
func (v TaskVars) CompetitorList() string {
	return strings.Join(v.Competitors, ", ")
}

var (
	loadOnce sync.Once
	personas map[string]Persona
	tasks    *template.Template
	loadErr  error
)

func load() {
	data, err := templatesFS.ReadFile("templates/personas.yml")
	if err != nil {
		loadErr = fmt.Errorf("prompts: read personas: %w", err)
		return
	}
	if err := yaml.Unmarshal(data, &personas); err != nil {
		loadErr = fmt.Errorf("prompts: parse personas: %w", err)
		return
	}
	tasks, err = template.ParseFS(templatesFS, "templates/tasks.tmpl")
	if err != nil {
		loadErr = fmt.Errorf("prompts: parse tasks: %w", err)
	}
}

// PersonaFor returns the persona for a role name (scout, analyst, reporter).
func PersonaFor(role string) (Persona, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return Persona{}, loadErr
	}
	p, ok := personas[role]
	if !ok {
		return Persona{}, fmt.Errorf("prompts: no persona for role %q", role)
	}
	return p, nil
}

// Task renders a named task template (for example "scout_description" or
// "reporter_expected") with the given variables.
func Task(name string, v TaskVars) (string, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return "", loadErr
	}
	var sb strings.Builder
	if err := tasks.ExecuteTemplate(&sb, name, v); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
