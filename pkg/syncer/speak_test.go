package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ankispeech/pkg/fingerprint"
)

func TestSpeak(t *testing.T) {
	b := newFakeBackend()
	h := newHarness(t, b)
	c := mapCache{}
	h.deps.Cache = c
	s := h.syncer()

	data, fp, err := s.Speak(context.Background(), Line{Text: "a foo b", Speaker: "Alice", Emotion: "calm"})
	require.NoError(t, err)
	assert.Len(t, fp, 16)
	assert.Equal(t, "mp3@64k:pcm:Speak warmly with a calm tone, please read this aloud:\na <phoneme ph=\"bar\">foo</phoneme> b", string(data))
	assert.Equal(t, []string{"Kore"}, b.voices)
	assert.Contains(t, c, fp)

	// Same inputs come from the cache.
	_, again, err := s.Speak(context.Background(), Line{Text: "a foo b", Speaker: "Alice", Emotion: "calm"})
	require.NoError(t, err)
	assert.Equal(t, fp, again)
	assert.Len(t, b.prompts, 1)
}

func TestSpeak_MatchesCardFingerprint(t *testing.T) {
	b := newFakeBackend()
	h := newHarness(t, b, newCard(1, 10, map[string]string{fields.Sentence: "hello", fields.Speaker: "Alice"}))
	h.run(t)
	stored, ok := fingerprint.Extract(h.store.field(10, fields.Audio))
	require.True(t, ok)

	_, fp, err := h.syncer().Speak(context.Background(), Line{Text: "hello", Speaker: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, stored, fp)
}

func TestSpeak_EmptyText(t *testing.T) {
	b := newFakeBackend()
	_, _, err := newHarness(t, b).syncer().Speak(context.Background(), Line{Text: " <br> "})
	assert.ErrorIs(t, err, ErrNoContent)
	assert.Empty(t, b.prompts)
}
