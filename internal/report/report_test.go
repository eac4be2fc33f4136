package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// conformingOutput builds Reporter output covering the full plan for the
// given competitors.
func conformingOutput(competitors ...string) string {
	var sb strings.Builder
	sb.WriteString("Some preamble the model added.\n")
	sb.WriteString("## Executive Summary\n- finding one\n")
	for _, c := range competitors {
		sb.WriteString("## SWOT: " + c + "\nStrengths of " + c + ".\n")
	}
	sb.WriteString("## Comparative Matrix\n| dim | a | b |\n")
	sb.WriteString("## Recommendations: Next 30 Days\n- act now\n")
	sb.WriteString("## Recommendations: Next 3 Months\n- act soon\n")
	sb.WriteString("## Recommendations: Next 12 Months\n- act later\n")
	return sb.String()
}

func TestSectionPlan_Order(t *testing.T) {
	plan := SectionPlan([]string{"Adidas", "Puma"})
	assert.Equal(t, []string{
		"Executive Summary",
		"SWOT: Adidas",
		"SWOT: Puma",
		"Comparative Matrix",
		"Recommendations: Next 30 Days",
		"Recommendations: Next 3 Months",
		"Recommendations: Next 12 Months",
	}, plan)
}

func TestSectionPlan_NoCompetitors(t *testing.T) {
	plan := SectionPlan(nil)
	assert.Len(t, plan, 5, "no SWOT sections for an empty competitor list")
	assert.NotContains(t, strings.Join(plan, "|"), "SWOT")
}

func TestAssemble_Conforming(t *testing.T) {
	competitors := []string{"Adidas", "Puma"}
	r, err := Assemble("Nike", competitors, conformingOutput(competitors...), testTime)
	require.NoError(t, err)

	require.Len(t, r.Sections, 7)
	assert.Equal(t, "Executive Summary", r.Sections[0].Title)
	assert.Equal(t, "SWOT: Adidas", r.Sections[1].Title)
	assert.Equal(t, "SWOT: Puma", r.Sections[2].Title)
	assert.Equal(t, "Recommendations: Next 12 Months", r.Sections[6].Title)
	assert.Equal(t, "Strengths of Adidas.", r.Sections[1].Body)
}

func TestAssemble_Deterministic(t *testing.T) {
	competitors := []string{"Adidas", "Puma"}
	out := conformingOutput(competitors...)

	a, err := Assemble("Nike", competitors, out, testTime)
	require.NoError(t, err)
	b, err := Assemble("Nike", competitors, out, testTime)
	require.NoError(t, err)

	assert.Equal(t, Render(a), Render(b), "identical input must render identically")
}

func TestAssemble_MissingSection(t *testing.T) {
	out := conformingOutput("Adidas") // plan will also require Puma
	_, err := Assemble("Nike", []string{"Adidas", "Puma"}, out, testTime)
	require.Error(t, err)

	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Error(), "SWOT: Puma")
}

func TestAssemble_DuplicateSection(t *testing.T) {
	out := conformingOutput("Adidas") + "\n## Executive Summary\nagain\n"
	_, err := Assemble("Nike", []string{"Adidas"}, out, testTime)

	var ferr *FormatError
	require.ErrorAs(t, err, &ferr)
	assert.NotEmpty(t, ferr.Duplicates)
}

func TestAssemble_ExtraSectionsAppended(t *testing.T) {
	out := "## Appendix\nsources\n" + conformingOutput("Adidas")
	r, err := Assemble("Nike", []string{"Adidas"}, out, testTime)
	require.NoError(t, err)

	last := r.Sections[len(r.Sections)-1]
	assert.Equal(t, "Appendix", last.Title, "extra sections follow the planned ones")
}

func TestAssemble_NormalizesHeadings(t *testing.T) {
	out := strings.ReplaceAll(conformingOutput("Adidas"),
		"## Executive Summary", "## **1. Executive Summary**")
	r, err := Assemble("Nike", []string{"Adidas"}, out, testTime)
	require.NoError(t, err)
	assert.Equal(t, "Executive Summary", r.Sections[0].Title)
}

func TestAssemble_EmptyCompetitors(t *testing.T) {
	r, err := Assemble("Nike", nil, conformingOutput(), testTime)
	require.NoError(t, err)
	assert.Len(t, r.Sections, 5)
	for _, sec := range r.Sections {
		assert.NotContains(t, sec.Title, "SWOT")
	}
}

func TestRender_Layout(t *testing.T) {
	r, err := Assemble("Nike", []string{"Adidas"}, conformingOutput("Adidas"), testTime)
	require.NoError(t, err)

	doc := Render(r)
	assert.True(t, strings.HasPrefix(doc, "# Competitive Intelligence Report: Nike\n"))
	assert.Contains(t, doc, "**Date:** 2026-03-14")
	assert.Contains(t, doc, "**Competitors Analyzed:** Adidas")

	// Section order in the rendered document matches the plan.
	exec := strings.Index(doc, "## Executive Summary")
	swot := strings.Index(doc, "## SWOT: Adidas")
	matrix := strings.Index(doc, "## Comparative Matrix")
	assert.True(t, exec < swot && swot < matrix)
}

func TestFilename(t *testing.T) {
	r := &Report{Company: "Acme Inc.", GeneratedAt: testTime}
	assert.Equal(t, "report_acme_inc_20260314_093000.md", Filename(r))

	r.Company = "!!!"
	assert.Equal(t, "report_report_20260314_093000.md", Filename(r))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	r, err := Assemble("Nike", []string{"Adidas"}, conformingOutput("Adidas"), testTime)
	require.NoError(t, err)

	path, err := Write(r, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Competitive Intelligence Report: Nike")
}
