// Package prompt builds the text handed to a speech backend.
package prompt

import (
	"html"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"ankispeech/pkg/model"
)

// Compose returns the synthesis prompt for text spoken by p. Overrides are
// rendered as inline phoneme hints; persona style and emotion become a
// leading directive line.
func Compose(text string, p model.Persona, emotion string, pairs []model.OverridePair) string {
	annotated := Annotate(text, pairs)

	style := Style(p.PromptPrefix, emotion)
	if style == "" {
		return annotated
	}
	return style + ", please read this aloud:\n" + annotated
}

// Style merges a persona prefix with an emotion directive.
func Style(prefix, emotion string) string {
	style := strings.TrimRightFunc(prefix, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	style = strings.TrimSpace(style)

	emotion = strings.TrimSpace(emotion)
	if emotion == "" {
		return style
	}
	if style == "" {
		return "Speak with a " + emotion + " tone"
	}
	return style + " with a " + emotion + " tone"
}

// Annotate wraps every override match in a phoneme tag. Matching runs left
// to right; at each position the longest original wins, and equal lengths
// keep list order. Replaced spans are never rescanned.
func Annotate(text string, pairs []model.OverridePair) string {
	candidates := make([]model.OverridePair, 0, len(pairs))
	for _, p := range pairs {
		if p.Original != "" {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return text
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].Original) > len(candidates[j].Original)
	})

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if p, ok := matchAt(text[i:], candidates); ok {
			b.WriteString(`<phoneme ph="`)
			b.WriteString(html.EscapeString(p.Replacement))
			b.WriteString(`">`)
			b.WriteString(p.Original)
			b.WriteString(`</phoneme>`)
			i += len(p.Original)
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		b.WriteString(text[i : i+size])
		i += size
	}
	return b.String()
}

func matchAt(s string, candidates []model.OverridePair) (model.OverridePair, bool) {
	for _, p := range candidates {
		if strings.HasPrefix(s, p.Original) {
			return p, true
		}
	}
	return model.OverridePair{}, false
}
