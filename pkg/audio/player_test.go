package audio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPlayer_ClampsVolume(t *testing.T) {
	assert.Equal(t, 1.0, NewPlayer(3).Volume())
	assert.Equal(t, 0.0, NewPlayer(-1).Volume())
	assert.Equal(t, 0.5, NewPlayer(0.5).Volume())
}

func TestVolumeToPower(t *testing.T) {
	assert.Equal(t, 0.0, volumeToPower(1))
	assert.Equal(t, -1.0, volumeToPower(0.5))
	assert.Equal(t, -10.0, volumeToPower(0))
}

func TestPlayMP3_RejectsGarbage(t *testing.T) {
	// Decoding fails before the speaker is touched.
	err := NewPlayer(1).PlayMP3(context.Background(), []byte("not an mp3"))
	assert.ErrorContains(t, err, "decode mp3")
}
