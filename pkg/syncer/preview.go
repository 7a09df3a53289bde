package syncer

import (
	"context"

	"ankispeech/pkg/fingerprint"
	"ankispeech/pkg/model"
)

// PreviewItem shows what a run would do for one card.
type PreviewItem struct {
	CardID      int64
	NoteID      int64
	Text        string
	Speaker     string
	Voice       string
	Emotion     string
	Citation    string
	Overrides   []model.OverridePair
	State       State
	Fingerprint string
	Reference   string
	Prompt      string
}

// Preview plans up to limit cards (all when limit <= 0) without calling the
// backend or writing anything. providerID must match the backend a real run
// would use, or every card shows as stale.
func (s *Syncer) Preview(ctx context.Context, query, providerID string, limit int) ([]PreviewItem, error) {
	cards, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}

	out := make([]PreviewItem, 0, len(cards))
	for _, c := range cards {
		it := s.plan(c, providerID)
		p := PreviewItem{
			CardID:    c.CardID,
			NoteID:    c.UpdateID(),
			Text:      it.text,
			Speaker:   it.persona.Name,
			Voice:     it.persona.Voice,
			Emotion:   it.emotion,
			Citation:  it.citation,
			Overrides: it.overrides,
			State:     it.decision.State,
		}
		if it.decision.State != SkipEmpty {
			p.Fingerprint = it.decision.Fingerprint
			p.Reference = fingerprint.SoundTag(it.decision.Fingerprint)
			p.Prompt = it.prompt()
		}
		out = append(out, p)
	}
	return out, nil
}
