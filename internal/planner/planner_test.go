package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preisradar/internal/domain/models"
)

func TestPlan_ExplicitOnly(t *testing.T) {
	p := models.Product{
		Slug:        "catan",
		Title:       "Catan",
		SearchTerms: []string{"Catan Brettspiel", "Siedler von Catan"},
		AltTitles:   []string{"ignored"},
	}
	assert.Equal(t, []string{"Catan Brettspiel", "Siedler von Catan"}, Plan(p, PolicyExplicit))
}

func TestPlan_Synonyms(t *testing.T) {
	p := models.Product{
		Slug:          "catan",
		SearchTerms:   []string{"Catan Brettspiel", " catan  brettspiel "},
		SearchQueries: []string{"Siedler von Catan"},
		AltTitles:     []string{"Die Siedler von Catan", "siedler von catan"},
		Synonyms:      []string{"Catan Basisspiel"},
	}
	assert.Equal(t, []string{
		"Catan Brettspiel",
		"Siedler von Catan",
		"Die Siedler von Catan",
		"Catan Basisspiel",
	}, Plan(p, PolicySynonyms))
}

func TestPlan_FallbackToTitleAndSlug(t *testing.T) {
	p := models.Product{Slug: "ticket-to-ride", Title: "Zug um Zug"}
	assert.Equal(t, []string{"Zug um Zug", "ticket to ride"}, Plan(p, PolicyExplicit))

	p = models.Product{Slug: "catan", Title: "Catan"}
	assert.Equal(t, []string{"Catan"}, Plan(p, PolicySynonyms))
}

func TestPlan_Capped(t *testing.T) {
	p := models.Product{
		SearchTerms: []string{"a", "b", "c", "d"},
		Synonyms:    []string{"e", "f", "g", "h"},
	}
	assert.Len(t, Plan(p, PolicySynonyms), MaxQueries)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Explicit")
	require.NoError(t, err)
	assert.Equal(t, PolicyExplicit, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySynonyms, p)

	_, err = ParsePolicy("fuzzy")
	require.Error(t, err)
}
