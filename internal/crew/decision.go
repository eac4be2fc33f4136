package crew

import (
	"encoding/json"
	"regexp"
	"strings"
)

// decisionKind distinguishes a final answer from a tool request.
type decisionKind int

const (
	decisionFinal decisionKind = iota
	decisionTool
)

// decision is the structured reading of a model response: either the final
// answer or a request to invoke a tool.
type decision struct {
	kind   decisionKind
	tool   string
	args   map[string]any
	answer string
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// toolDirective is the wire shape of a tool request.
type toolDirective struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// parseDecision classifies a model response. A fenced JSON block (or a bare
// JSON object) carrying a "tool" key is a tool request; anything else is the
// final answer. Malformed JSON falls back to final answer, so a model that
// quotes JSON in prose is not misread as a tool call.
func parseDecision(content string) decision {
	trimmed := strings.TrimSpace(content)

	candidates := []string{}
	for _, m := range fencedJSONRe.FindAllStringSubmatch(trimmed, -1) {
		candidates = append(candidates, m[1])
	}
	if strings.HasPrefix(trimmed, "{") {
		candidates = append(candidates, trimmed)
	}

	for _, candidate := range candidates {
		var d toolDirective
		if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &d); err != nil {
			continue
		}
		if d.Tool == "" {
			continue
		}
		if d.Arguments == nil {
			d.Arguments = map[string]any{}
		}
		return decision{kind: decisionTool, tool: d.Tool, args: d.Arguments}
	}

	return decision{kind: decisionFinal, answer: trimmed}
}
