package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonaFor(t *testing.T) {
	for _, role := range []string{"scout", "analyst", "reporter"} {
		p, err := PersonaFor(role)
		require.NoError(t, err, "role %s", role)
		assert.NotEmpty(t, p.Goal)
		assert.NotEmpty(t, p.Backstory)
	}
}

func TestPersonaFor_Unknown(t *testing.T) {
	_, err := PersonaFor("janitor")
	require.Error(t, err)
}

func TestTask_Scout(t *testing.T) {
	out, err := Task("scout_description", TaskVars{
		Company:     "Nike",
		Competitors: []string{"Adidas", "Puma"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `"Nike"`)
	assert.Contains(t, out, "Adidas, Puma")
}

func TestTask_ReporterListsSections(t *testing.T) {
	sections := []string{"Executive Summary", "SWOT: Adidas", "Comparative Matrix"}
	out, err := Task("reporter_description", TaskVars{
		Company:  "Nike",
		Sections: sections,
	})
	require.NoError(t, err)
	for _, s := range sections {
		assert.Contains(t, out, "## "+s)
	}
}

func TestTask_AllTemplatesRender(t *testing.T) {
	v := TaskVars{Company: "Acme", Competitors: []string{"Rival"}, Sections: []string{"Executive Summary"}}
	for _, name := range []string{
		"scout_description", "scout_expected",
		"analyst_description", "analyst_expected",
		"reporter_description", "reporter_expected",
	} {
		out, err := Task(name, v)
		require.NoError(t, err, "template %s", name)
		assert.NotEmpty(t, out, "template %s", name)
	}
}

func TestTask_UnknownTemplate(t *testing.T) {
	_, err := Task("nope", TaskVars{})
	require.Error(t, err)
}
