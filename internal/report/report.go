// Package report assembles the Reporter agent's free-text output into a
// structurally guaranteed competitive-intelligence report. The assembler
// validates the output against a fixed section plan and refuses to emit a
// malformed document.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Section is one titled chunk of the final report.
type Section struct {
	Title string
	Body  string
}

// Report is the final artifact of a successful run.
type Report struct {
	Company     string
	Competitors []string
	GeneratedAt time.Time
	Sections    []Section
}

// Fixed section titles. SWOT sections are derived per competitor.
const (
	SectionExecutiveSummary  = "Executive Summary"
	SectionComparativeMatrix = "Comparative Matrix"
	SectionRecommend30Days   = "Recommendations: Next 30 Days"
	SectionRecommend3Months  = "Recommendations: Next 3 Months"
	SectionRecommend12Months = "Recommendations: Next 12 Months"
)

// SWOTSection returns the section title for one competitor's SWOT analysis.
func SWOTSection(competitor string) string {
	return "SWOT: " + competitor
}

// SectionPlan returns the required section titles in delivery order:
// executive summary, one SWOT per competitor in input order, the comparative
// matrix, and the three recommendation horizons.
func SectionPlan(competitors []string) []string {
	plan := make([]string, 0, len(competitors)+5)
	plan = append(plan, SectionExecutiveSummary)
	for _, c := range competitors {
		plan = append(plan, SWOTSection(c))
	}
	plan = append(plan,
		SectionComparativeMatrix,
		SectionRecommend30Days,
		SectionRecommend3Months,
		SectionRecommend12Months,
	)
	return plan
}

// FormatError reports a Reporter output that does not conform to the
// section plan.
type FormatError struct {
	Missing    []string
	Duplicates []string
}

func (e *FormatError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing sections: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate sections: %s", strings.Join(e.Duplicates, ", ")))
	}
	return "report: " + strings.Join(parts, "; ")
}

var (
	headingRe = regexp.MustCompile(`^##\s+(.*)$`)
	numberRe  = regexp.MustCompile(`^\d+[.)]\s+`)
)

// Assemble parses the Reporter's markdown output into a Report and validates
// it against the section plan. Planned sections appear first in plan order;
// extra sections the model produced are appended after them in input order.
// Nonconforming output yields a *FormatError, never a partial report.
func Assemble(company string, competitors []string, output string, at time.Time) (*Report, error) {
	sections := splitSections(output)

	seen := make(map[string]int, len(sections))
	byTitle := make(map[string]Section, len(sections))
	for _, sec := range sections {
		seen[sec.Title]++
		byTitle[sec.Title] = sec
	}

	var ferr FormatError
	for title, count := range seen {
		if count > 1 {
			ferr.Duplicates = append(ferr.Duplicates, fmt.Sprintf("%q (x%d)", title, count))
		}
	}

	plan := SectionPlan(competitors)
	planned := make(map[string]bool, len(plan))
	for _, title := range plan {
		planned[title] = true
		if _, ok := byTitle[title]; !ok {
			ferr.Missing = append(ferr.Missing, fmt.Sprintf("%q", title))
		}
	}
	if len(ferr.Missing) > 0 || len(ferr.Duplicates) > 0 {
		return nil, &ferr
	}

	ordered := make([]Section, 0, len(sections))
	for _, title := range plan {
		ordered = append(ordered, byTitle[title])
	}
	for _, sec := range sections {
		if !planned[sec.Title] {
			ordered = append(ordered, sec)
		}
	}

	return &Report{
		Company:     company,
		Competitors: append([]string(nil), competitors...),
		GeneratedAt: at,
		Sections:    ordered,
	}, nil
}

// splitSections parses markdown into "## "-delimited sections. Text before
// the first heading is dropped. Titles are normalized: surrounding bold
// markers and a leading "1. "-style enumeration are stripped.
func splitSections(output string) []Section {
	var sections []Section
	var current *Section

	for _, line := range strings.Split(output, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				current.Body = strings.TrimSpace(current.Body)
				sections = append(sections, *current)
			}
			current = &Section{Title: normalizeTitle(m[1])}
			continue
		}
		if current != nil {
			current.Body += line + "\n"
		}
	}
	if current != nil {
		current.Body = strings.TrimSpace(current.Body)
		sections = append(sections, *current)
	}
	return sections
}

func normalizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "*_")
	title = numberRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}
