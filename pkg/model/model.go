package model

import (
	"strings"
)

// Field is a single note field as returned by AnkiConnect.
type Field struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// Card represents a flashcard together with the fields of its note.
type Card struct {
	CardID    int64            `json:"cardId"`
	NoteID    int64            `json:"note"`
	Deck      string           `json:"deckName"`
	ModelName string           `json:"modelName"`
	Fields    map[string]Field `json:"fields"`
}

// Field returns the raw value of the named field, or "" if the note has no such field.
func (c *Card) Field(name string) string {
	if c == nil || name == "" {
		return ""
	}
	f, ok := c.Fields[name]
	if !ok {
		return ""
	}
	return f.Value
}

// HasField reports whether the note declares the named field.
func (c *Card) HasField(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Fields[name]
	return ok
}

// UpdateID returns the identifier used for field updates.
// Notes own the fields; cards without a note id fall back to their card id.
func (c *Card) UpdateID() int64 {
	if c.NoteID != 0 {
		return c.NoteID
	}
	return c.CardID
}

// FieldMap names the note fields the synchronizer reads and writes.
type FieldMap struct {
	Sentence   string `yaml:"sentence"`
	Speaker    string `yaml:"speaker"`
	Emotion    string `yaml:"emotion"`
	Source     string `yaml:"source"`
	Audio      string `yaml:"audio"`
	Regenerate string `yaml:"regenerate"`
}

// DefaultFieldMap returns the field names used by the stock note type.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Sentence:   "Expression",
		Speaker:    "Speaker",
		Emotion:    "Emotion",
		Source:     "Source",
		Audio:      "Audio",
		Regenerate: "Regenerate",
	}
}

// Persona is a named voice configuration.
type Persona struct {
	Name         string `json:"-"`
	Voice        string `json:"speaker"`
	PromptPrefix string `json:"promptPrefix"`
}

// OverridePair is a literal pronunciation substitution.
type OverridePair struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// Key returns a stable identity for deduplication.
func (p OverridePair) Key() string {
	return p.Original + "\x00" + p.Replacement
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
