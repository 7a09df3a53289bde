package override

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"ankispeech/pkg/model"
)

// Wildcard is the key that applies at its level regardless of narrower keys.
const Wildcard = "*"

// ErrMalformed indicates the override file does not follow the nested layout.
var ErrMalformed = errors.New("malformed override table")

// Table holds pronunciation overrides keyed by document, volume and page.
// Entries keep their file order so "first occurrence wins" is meaningful.
type Table struct {
	global []model.OverridePair
	docs   map[string]*documentScope
}

type documentScope struct {
	all     []model.OverridePair
	volumes map[string]*volumeScope
}

type volumeScope struct {
	all   []model.OverridePair
	pages map[string][]model.OverridePair
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{docs: make(map[string]*documentScope)}
}

// Load reads an override table from a JSON file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return Parse(data)
}

// LoadOrEmpty loads the table and degrades to an empty one on any error.
func LoadOrEmpty(path string) *Table {
	if path == "" {
		return NewTable()
	}
	t, err := Load(path)
	if err != nil {
		slog.Warn("Pronunciation overrides unavailable, continuing without them", "path", path, "error", err)
		return NewTable()
	}
	slog.Info("Loaded pronunciation overrides", "path", path, "entries", t.Len())
	return t
}

// Parse decodes the nested JSON layout:
//
//	{"*": {orig: repl}, "DOC": {"*": {...}, "V1": {"*": {...}, "P12": {...}}}}
func Parse(data []byte) (*Table, error) {
	t := NewTable()
	if len(bytes.TrimSpace(data)) == 0 {
		return t, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	err := readObject(dec, func(doc string) error {
		if doc == Wildcard {
			pairs, err := readPairs(dec)
			t.global = append(t.global, pairs...)
			return err
		}
		return t.readDocument(dec, doc)
	})
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return t, nil
}

func (t *Table) readDocument(dec *json.Decoder, doc string) error {
	ds := t.docs[doc]
	if ds == nil {
		ds = &documentScope{volumes: make(map[string]*volumeScope)}
		t.docs[doc] = ds
	}
	return readObject(dec, func(vol string) error {
		if vol == Wildcard {
			pairs, err := readPairs(dec)
			ds.all = append(ds.all, pairs...)
			return err
		}
		vol = normalizeToken(vol, "V")
		vs := ds.volumes[vol]
		if vs == nil {
			vs = &volumeScope{pages: make(map[string][]model.OverridePair)}
			ds.volumes[vol] = vs
		}
		return readObject(dec, func(page string) error {
			pairs, err := readPairs(dec)
			if page == Wildcard {
				vs.all = append(vs.all, pairs...)
				return err
			}
			page = normalizeToken(page, "P")
			vs.pages[page] = append(vs.pages[page], pairs...)
			return err
		})
	})
}

// scopes returns the applicable pair lists from broadest to narrowest.
func (t *Table) scopes(c Citation) [][]model.OverridePair {
	out := [][]model.OverridePair{t.global}
	if c.IsZero() {
		return out
	}
	ds := t.docs[c.Document]
	if ds == nil {
		return out
	}
	out = append(out, ds.all)
	vs := ds.volumes[c.Volume]
	if vs == nil {
		return out
	}
	out = append(out, vs.all)
	for _, p := range c.Pages {
		out = append(out, vs.pages[p])
	}
	return out
}

// Len returns the total number of declared pairs.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	n := len(t.global)
	for _, ds := range t.docs {
		n += len(ds.all)
		for _, vs := range ds.volumes {
			n += len(vs.all)
			for _, pairs := range vs.pages {
				n += len(pairs)
			}
		}
	}
	return n
}

// normalizeToken lets "12" stand for "P12" (and "1" for "V1") in the file.
func normalizeToken(s, prefix string) string {
	s = strings.TrimSpace(s)
	if s != "" && strings.Trim(s, "0123456789") == "" {
		return prefix + s
	}
	return s
}

func readObject(dec *json.Decoder, fn func(key string) error) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected object, got %v", ErrMalformed, tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected key, got %v", ErrMalformed, tok)
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func readPairs(dec *json.Decoder) ([]model.OverridePair, error) {
	var pairs []model.OverridePair
	err := readObject(dec, func(orig string) error {
		var repl string
		if err := dec.Decode(&repl); err != nil {
			return fmt.Errorf("%w: replacement for %q: %v", ErrMalformed, orig, err)
		}
		if orig == "" {
			return nil
		}
		pairs = append(pairs, model.OverridePair{Original: orig, Replacement: repl})
		return nil
	})
	return pairs, err
}
