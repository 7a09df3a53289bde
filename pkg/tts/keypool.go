package tts

import (
	"errors"
	"sync"
)

// ErrNoKeys is returned when a pool is built without entries.
var ErrNoKeys = errors.New("no API keys configured")

// KeyPool rotates through credentialed clients. The active entry stays
// current until Rotate is called, typically after a throttle response.
type KeyPool[T any] struct {
	mu    sync.Mutex
	items []T
	idx   int
}

// NewKeyPool builds a pool over items.
func NewKeyPool[T any](items ...T) (*KeyPool[T], error) {
	if len(items) == 0 {
		return nil, ErrNoKeys
	}
	return &KeyPool[T]{items: items}, nil
}

// Current returns the active entry and its index.
func (p *KeyPool[T]) Current() (T, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items[p.idx], p.idx
}

// Rotate advances to the next entry, wrapping around, and returns it.
func (p *KeyPool[T]) Rotate() (T, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idx = (p.idx + 1) % len(p.items)
	return p.items[p.idx], p.idx
}

// Len returns the number of entries.
func (p *KeyPool[T]) Len() int {
	return len(p.items)
}
