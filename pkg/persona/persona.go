// Package persona manages the character table that maps speakers to voices.
package persona

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ankispeech/pkg/model"
)

const (
	// DefaultName is used when a card has no speaker.
	DefaultName = "Narrator"
	// DefaultVoice is used for speakers missing from the table.
	DefaultVoice = "Charon"
)

var (
	// ErrNotFound indicates the personas file does not exist. Voices cannot be
	// resolved without it, so callers treat this as fatal.
	ErrNotFound = errors.New("personas file not found")
	// ErrInvalid indicates a persona definition was rejected.
	ErrInvalid = errors.New("invalid persona")
)

// Table is the in-memory persona table backed by a JSON file.
type Table struct {
	mu       sync.RWMutex
	path     string
	personas map[string]model.Persona
}

// Load reads the persona table. A missing file returns ErrNotFound; an
// unparsable file logs a warning and yields an empty table.
func Load(path string) (*Table, error) {
	t := &Table{path: path, personas: make(map[string]model.Persona)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read personas: %w", err)
	}

	var raw map[string]model.Persona
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("Personas file is not valid JSON, using defaults for every speaker", "path", path, "error", err)
		return t, nil
	}
	for name, p := range raw {
		p.Name = name
		t.personas[name] = p
	}
	return t, nil
}

// Open loads the table for editing. A missing file yields an empty table
// that is written on the first Add.
func Open(path string) (*Table, error) {
	t, err := Load(path)
	if errors.Is(err, ErrNotFound) {
		return &Table{path: path, personas: make(map[string]model.Persona)}, nil
	}
	return t, err
}

// New creates an unbacked table, mainly for tests and previews.
func New(personas ...model.Persona) *Table {
	t := &Table{personas: make(map[string]model.Persona)}
	for _, p := range personas {
		t.personas[p.Name] = p
	}
	return t
}

// Lookup returns the persona registered under name.
func (t *Table) Lookup(name string) (model.Persona, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.personas[name]
	return p, ok
}

// Resolve maps a speaker field to a persona, falling back to the default voice
// with no style prefix for unknown speakers.
func (t *Table) Resolve(speaker string) model.Persona {
	speaker = strings.TrimSpace(speaker)
	if speaker == "" {
		speaker = DefaultName
	}
	if p, ok := t.Lookup(speaker); ok {
		if p.Voice == "" {
			p.Voice = DefaultVoice
		}
		return p
	}
	return model.Persona{Name: speaker, Voice: DefaultVoice}
}

// List returns all personas sorted by name.
func (t *Table) List() []model.Persona {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.Persona, 0, len(t.personas))
	for _, p := range t.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of personas.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.personas)
}

// Add registers or replaces a persona and writes the table back to disk.
func (t *Table) Add(p model.Persona) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Voice = strings.TrimSpace(p.Voice)
	if p.Name == "" || p.Voice == "" {
		return fmt.Errorf("%w: name and voice are required", ErrInvalid)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.personas[p.Name] = p
	if t.path == "" {
		return nil
	}
	return t.save()
}

func (t *Table) save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.personas); err != nil {
		return fmt.Errorf("encode personas: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create personas dir: %w", err)
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write personas: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("replace personas: %w", err)
	}
	return nil
}
