package override

import (
	"regexp"
	"strings"
)

// Citation locates a card's sentence in its source material.
type Citation struct {
	Document string   // e.g. "FUR"
	Volume   string   // e.g. "V1"
	Pages    []string // e.g. ["P12", "P13"]
}

var citationRegex = regexp.MustCompile(`^([A-Z][A-Z0-9]*)\s+(V\d+)\s+P(\d+(?:\s*,\s*P?\d+)*)$`)

// ParseCitation parses "<DOC> V<n> P<n>[,<n>...]". Anything else yields a zero
// Citation and false; callers treat that as "global scope only".
func ParseCitation(s string) (Citation, bool) {
	m := citationRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Citation{}, false
	}

	c := Citation{Document: m[1], Volume: m[2]}
	seen := make(map[string]bool)
	for _, raw := range strings.Split(m[3], ",") {
		page := "P" + strings.TrimPrefix(strings.TrimSpace(raw), "P")
		if seen[page] {
			continue
		}
		seen[page] = true
		c.Pages = append(c.Pages, page)
	}
	return c, true
}

// IsZero reports whether the citation carries no scope.
func (c Citation) IsZero() bool {
	return c.Document == ""
}

// String renders the canonical form, e.g. "FUR V1 P12,13".
func (c Citation) String() string {
	if c.IsZero() {
		return ""
	}
	nums := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		nums = append(nums, strings.TrimPrefix(p, "P"))
	}
	return c.Document + " " + c.Volume + " P" + strings.Join(nums, ",")
}
