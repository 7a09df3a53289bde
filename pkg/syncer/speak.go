package syncer

import (
	"context"
	"fmt"

	"ankispeech/pkg/model"
)

// Line is free text to speak outside any deck.
type Line struct {
	Text     string
	Speaker  string
	Emotion  string
	Citation string
}

// Speak synthesizes and encodes one line without touching the store. It
// returns the audio and the fingerprint a card with the same inputs carries,
// so auditioned audio lands in the cache for the next run.
func (s *Syncer) Speak(ctx context.Context, l Line) ([]byte, string, error) {
	c := model.Card{Fields: map[string]model.Field{
		s.fields.Sentence: {Value: l.Text},
		s.fields.Speaker:  {Value: l.Speaker},
		s.fields.Emotion:  {Value: l.Emotion},
		s.fields.Source:   {Value: l.Citation},
	}}
	it := s.plan(c, s.backend.ID())
	if it.decision.State == SkipEmpty {
		return nil, "", ErrNoContent
	}
	fp := it.decision.Fingerprint

	if data, ok := s.cache.GetAudio(ctx, fp); ok {
		return data, fp, nil
	}
	audio, err := s.synthesize(ctx, it)
	if err != nil {
		return nil, "", err
	}
	data, err := s.encoder.Encode(ctx, audio, s.opts.Bitrate, s.opts.Speed)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrTranscode, err)
	}
	if err := s.cache.PutAudio(ctx, fp, data); err != nil {
		it.log().Warn("Failed to cache audio", "error", err)
	}
	return data, fp, nil
}
