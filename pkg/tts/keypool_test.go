package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPool(t *testing.T) {
	_, err := NewKeyPool[string]()
	assert.ErrorIs(t, err, ErrNoKeys)

	p, err := NewKeyPool("a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	cur, idx := p.Current()
	assert.Equal(t, "a", cur)
	assert.Equal(t, 0, idx)

	cur, _ = p.Current()
	assert.Equal(t, "a", cur, "Current must not advance")

	for _, want := range []string{"b", "c", "a"} {
		got, _ := p.Rotate()
		assert.Equal(t, want, got)
	}
}
