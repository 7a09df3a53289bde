package override

import (
	"strings"

	"ankispeech/pkg/model"
)

// Resolver selects the overrides that apply to a passage.
type Resolver struct {
	table *Table
}

// NewResolver creates a resolver over t. A nil table resolves nothing.
func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t}
}

// Resolve returns the pairs whose original occurs literally in text and whose
// scope matches citation, broadest scope first. A pair redeclared by a narrower
// scope is returned once.
func (r *Resolver) Resolve(text, citation string) []model.OverridePair {
	if r == nil || r.table == nil || text == "" {
		return nil
	}

	c, _ := ParseCitation(citation)

	var out []model.OverridePair
	seen := make(map[string]bool)
	for _, scope := range r.table.scopes(c) {
		for _, p := range scope {
			if seen[p.Key()] || !strings.Contains(text, p.Original) {
				continue
			}
			seen[p.Key()] = true
			out = append(out, p)
		}
	}
	return out
}
