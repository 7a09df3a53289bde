package prompt

import (
	"html"
	"regexp"
	"strings"
)

const directiveSuffix = ", please read this aloud:"

var phonemeTag = regexp.MustCompile(`<phoneme ph="([^"]*)">(.*?)</phoneme>`)

// SplitDirective separates the style directive line from the spoken body.
// A prompt without a directive is returned whole as the body.
func SplitDirective(prompt string) (directive, body string) {
	first, rest, ok := strings.Cut(prompt, "\n")
	if !ok || !strings.HasSuffix(first, directiveSuffix) {
		return "", prompt
	}
	return strings.TrimSuffix(first, directiveSuffix), rest
}

// PlainText drops phoneme hints, keeping the original words.
func PlainText(body string) string {
	return phonemeTag.ReplaceAllString(body, "$2")
}

// SSML converts an annotated body into SSML content: plain text is escaped
// and phoneme hints become IPA phoneme elements. The result is not wrapped in
// a speak element.
func SSML(body string) string {
	var b strings.Builder
	last := 0
	for _, m := range phonemeTag.FindAllStringSubmatchIndex(body, -1) {
		b.WriteString(escapeXML(body[last:m[0]]))
		ph := html.UnescapeString(body[m[2]:m[3]])
		b.WriteString(`<phoneme alphabet="ipa" ph="`)
		b.WriteString(escapeXML(ph))
		b.WriteString(`">`)
		b.WriteString(escapeXML(body[m[4]:m[5]]))
		b.WriteString(`</phoneme>`)
		last = m[1]
	}
	b.WriteString(escapeXML(body[last:]))
	return b.String()
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}
