// Package htmltext turns rich-text note fields into the plain text that is spoken.
package htmltext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var tagRegex = regexp.MustCompile(`<[^>]+>`)

// Clean strips markup from a field value, decodes entities and collapses whitespace.
func Clean(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		// Fall back to tag removal; the tokenizer rarely rejects input.
		return collapse(tagRegex.ReplaceAllString(s, ""))
	}

	var b strings.Builder
	for _, n := range nodes {
		traverse(n, &b)
	}
	return collapse(b.String())
}

// IsBlank reports whether a field has no speakable content once cleaned.
func IsBlank(s string) bool {
	return Clean(s) == ""
}

func traverse(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
		if isBreaking(n.DataAtom) {
			b.WriteByte(' ')
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		traverse(c, b)
	}

	if n.Type == html.ElementNode && isBreaking(n.DataAtom) {
		b.WriteByte(' ')
	}
}

// isBreaking reports elements that Anki's editor uses as line separators.
func isBreaking(a atom.Atom) bool {
	switch a {
	case atom.Br, atom.Div, atom.P, atom.Li, atom.Tr, atom.Td, atom.H1, atom.H2, atom.H3:
		return true
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
