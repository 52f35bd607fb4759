// Package planner turns a product definition into search query strings.
package planner

import (
	"fmt"
	"strings"

	"preisradar/internal/domain/models"
)

// MaxQueries bounds API calls per product per run.
const MaxQueries = 6

type Policy string

const (
	// PolicyExplicit uses only the product's search terms.
	PolicyExplicit Policy = "explicit"
	// PolicySynonyms also searches alternate titles and synonyms.
	PolicySynonyms Policy = "synonyms"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyExplicit, PolicySynonyms:
		return p, nil
	case "":
		return PolicySynonyms, nil
	default:
		return "", fmt.Errorf("unknown query policy %q", s)
	}
}

// Plan returns ordered, case-insensitively unique queries for p.
// Title and slug are only used when no explicit terms exist.
func Plan(p models.Product, policy Policy) []string {
	out := make([]string, 0, MaxQueries)
	seen := make(map[string]struct{}, MaxQueries)

	add := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" || len(out) >= MaxQueries {
			return
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}

	terms := p.Terms()
	for _, s := range terms {
		add(s)
	}

	if policy == PolicySynonyms {
		for _, s := range p.AltTitles {
			add(s)
		}
		for _, s := range p.Synonyms {
			add(s)
		}
	}

	if len(terms) == 0 {
		add(p.Title)
		add(strings.ReplaceAll(p.Slug, "-", " "))
	}

	return out
}
