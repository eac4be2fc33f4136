package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeRe = regexp.MustCompile(`[^a-z0-9]+`)

// Render produces the delivered markdown document.
func Render(r *Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Competitive Intelligence Report: %s\n\n", r.Company)
	fmt.Fprintf(&sb, "**Date:** %s\n", r.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&sb, "**Competitors Analyzed:** %s\n", strings.Join(r.Competitors, ", "))

	for _, sec := range r.Sections {
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", sec.Title, sec.Body)
	}

	return sb.String()
}

// Filename returns the report file name for a company and timestamp:
// report_<company>_<YYYYMMDD_HHMMSS>.md with the company name slugified.
func Filename(r *Report) string {
	slug := unsafeRe.ReplaceAllString(strings.ToLower(r.Company), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "report"
	}
	return fmt.Sprintf("report_%s_%s.md", slug, r.GeneratedAt.Format("20060102_150405"))
}

// Write renders the report and persists it under outputDir, creating the
// directory as needed. It returns the written file path.
func Write(r *Report, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", outputDir, err)
	}
	path := filepath.Join(outputDir, Filename(r))
	if err := os.WriteFile(path, []byte(Render(r)), 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}
