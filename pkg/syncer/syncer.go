// Package syncer keeps card audio in step with card content. For every card
// it fingerprints the inputs that shape the audio, decides whether the stored
// audio is still valid and, when it is not, synthesizes, encodes and writes
// new audio back to the record store.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ankispeech/pkg/cache"
	"ankispeech/pkg/fingerprint"
	"ankispeech/pkg/htmltext"
	"ankispeech/pkg/logging"
	"ankispeech/pkg/model"
	"ankispeech/pkg/override"
	"ankispeech/pkg/persona"
	"ankispeech/pkg/prompt"
	"ankispeech/pkg/store"
	"ankispeech/pkg/transcode"
	"ankispeech/pkg/tts"
)

// Options control a run.
type Options struct {
	Force         bool
	Batch         bool
	Bitrate       string
	Speed         float64
	RetryAttempts int
	RetryDelay    time.Duration
	PollInterval  time.Duration
	// OutputDir receives a copy of every written file when KeepLocalFiles is set.
	OutputDir      string
	KeepLocalFiles bool
}

// Deps are the collaborators of a Syncer. Cache and Runs are optional.
type Deps struct {
	Store    Store
	Backend  tts.Provider
	Encoder  transcode.Encoder
	Personas *persona.Table
	Resolver *override.Resolver
	Fields   model.FieldMap
	Cache    cache.Cacher
	Runs     store.RunStore
}

// Syncer processes cards one at a time.
type Syncer struct {
	store    Store
	backend  tts.Provider
	encoder  transcode.Encoder
	personas *persona.Table
	resolver *override.Resolver
	fields   model.FieldMap
	cache    cache.Cacher
	runs     store.RunStore
	opts     Options

	// fatal is set once the backend rejects the credentials; later cards
	// fail fast with it instead of calling the backend again.
	fatal error
}

// New creates a Syncer.
func New(d Deps, opts Options) *Syncer {
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Personas == nil {
		d.Personas = persona.New()
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	return &Syncer{
		store:    d.Store,
		backend:  d.Backend,
		encoder:  d.Encoder,
		personas: d.Personas,
		resolver: d.Resolver,
		fields:   d.Fields,
		cache:    d.Cache,
		runs:     d.Runs,
		opts:     opts,
	}
}

// item is one card with everything derived from it.
type item struct {
	card      model.Card
	text      string
	persona   model.Persona
	emotion   string
	citation  string
	overrides []model.OverridePair
	trigger   string
	decision  Decision
}

func (it *item) log() *slog.Logger {
	return slog.With("card", it.card.CardID, "note", it.card.UpdateID(), "fingerprint", it.decision.Fingerprint)
}

func (it *item) prompt() string {
	return prompt.Compose(it.text, it.persona, it.emotion, it.overrides)
}

// plan resolves persona, overrides and fingerprint for a card and runs the
// decision gate.
func (s *Syncer) plan(c model.Card, providerID string) *item {
	it := &item{
		card:     c,
		text:     htmltext.Clean(c.Field(s.fields.Sentence)),
		persona:  s.personas.Resolve(htmltext.Clean(c.Field(s.fields.Speaker))),
		emotion:  htmltext.Clean(c.Field(s.fields.Emotion)),
		citation: htmltext.Clean(c.Field(s.fields.Source)),
		trigger:  c.Field(s.fields.Regenerate),
	}

	in := DecisionInput{
		Text:        c.Field(s.fields.Sentence),
		StoredAudio: c.Field(s.fields.Audio),
		Trigger:     it.trigger,
		Force:       s.opts.Force,
	}
	it.decision = Decide(in, func() string {
		it.overrides = s.resolver.Resolve(it.text, it.citation)
		return fingerprint.Compute(fingerprint.Input{
			Sentence:        it.text,
			SpeakerName:     it.persona.Name,
			SpeakerVoice:    it.persona.Voice,
			SpeakerPrompt:   it.persona.PromptPrefix,
			Emotion:         it.emotion,
			Citation:        it.citation,
			Overrides:       it.overrides,
			Provider:        providerID,
			Bitrate:         s.opts.Bitrate,
			SpeedMultiplier: s.opts.Speed,
		})
	})
	return it
}

// load finds and fetches the cards for query, newest note first, one card
// per note.
func (s *Syncer) load(ctx context.Context, query string) ([]model.Card, error) {
	ids, err := s.store.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: find %q: %w", ErrStore, query, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	cards, err := s.store.Fetch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %d cards: %w", ErrStore, len(ids), err)
	}

	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].UpdateID() != cards[j].UpdateID() {
			return cards[i].UpdateID() > cards[j].UpdateID()
		}
		return cards[i].CardID > cards[j].CardID
	})

	seen := make(map[int64]bool, len(cards))
	out := cards[:0]
	for _, c := range cards {
		if seen[c.UpdateID()] {
			continue
		}
		seen[c.UpdateID()] = true
		out = append(out, c)
	}
	return out, nil
}

// Process synchronizes every card matching query. Only failures to load the
// cards are returned as errors; per-card failures are counted in Stats.
func (s *Syncer) Process(ctx context.Context, query string) (Stats, error) {
	started := time.Now()
	var st Stats

	cards, err := s.load(ctx, query)
	if err != nil {
		return st, err
	}
	st.Total = len(cards)
	defer s.recordRun(ctx, query, started, &st)
	slog.Info("Processing cards", "query", query, "cards", st.Total, "provider", s.backend.ID(), "batch", s.opts.Batch)

	var pending []*item
	for _, c := range cards {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		it := s.plan(c, s.backend.ID())

		switch it.decision.State {
		case SkipEmpty:
			st.SkippedEmpty++
			slog.Debug("Skipping card without text", "card", c.CardID)
			continue
		case Fresh:
			st.SkippedFresh++
			it.log().Debug("Audio up to date")
			continue
		}

		if err := s.checkFields(it); err != nil {
			st.fail(it, err)
			continue
		}

		logging.Trace("Card plan", "card", c.CardID, "state", it.decision.State, "previous", it.decision.Previous, "overrides", len(it.overrides), "prompt", it.prompt())

		if data, ok := s.cache.GetAudio(ctx, it.decision.Fingerprint); ok {
			st.CacheHits++
			st.record(it, s.commit(ctx, it, data))
			continue
		}
		pending = append(pending, it)
	}

	if bp, ok := s.backend.(tts.BatchProvider); ok && s.opts.Batch && len(pending) > 0 {
		s.processBatch(ctx, bp, pending, &st)
	} else {
		if s.opts.Batch && len(pending) > 0 {
			slog.Warn("Backend does not support batches, synthesizing one card at a time", "provider", s.backend.ID())
		}
		for _, it := range pending {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			st.record(it, s.processOne(ctx, it))
		}
	}

	slog.Info("Run finished", "summary", st.String(), "took", time.Since(started).Round(time.Millisecond))
	return st, ctx.Err()
}

func (s *Syncer) checkFields(it *item) error {
	if !it.card.HasField(s.fields.Audio) {
		return fmt.Errorf("%w: note type %q has no field %q", ErrConfig, it.card.ModelName, s.fields.Audio)
	}
	return nil
}

// processOne synthesizes, encodes and commits a single card.
func (s *Syncer) processOne(ctx context.Context, it *item) error {
	audio, err := s.synthesize(ctx, it)
	if err != nil {
		return err
	}
	return s.finish(ctx, it, audio)
}

func (s *Syncer) synthesize(ctx context.Context, it *item) (*tts.Audio, error) {
	if s.fatal != nil {
		return nil, fmt.Errorf("%w: backend disabled after earlier failure: %w", ErrBackend, s.fatal)
	}

	text := it.prompt()
	start := time.Now()
	audio, err := tts.Retry(ctx, s.opts.RetryAttempts, s.opts.RetryDelay, func(ctx context.Context) (*tts.Audio, error) {
		a, err := s.backend.Synthesize(ctx, text, it.persona.Voice)
		if err != nil {
			return nil, err
		}
		return a, tts.CheckAudio(a)
	})
	if err != nil {
		if tts.IsFatalError(err) {
			s.fatal = err
			slog.Error("Backend rejected the request; remaining cards will not be synthesized", "provider", s.backend.ID(), "error", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	it.log().Debug("Synthesized", "voice", it.persona.Voice, "bytes", len(audio.Data), "took", time.Since(start).Round(time.Millisecond))
	return audio, nil
}

// finish encodes audio, caches it and commits it to the store.
func (s *Syncer) finish(ctx context.Context, it *item, audio *tts.Audio) error {
	data, err := s.encoder.Encode(ctx, audio, s.opts.Bitrate, s.opts.Speed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTranscode, err)
	}
	if err := s.cache.PutAudio(ctx, it.decision.Fingerprint, data); err != nil {
		it.log().Warn("Failed to cache audio", "error", err)
	}
	return s.commit(ctx, it, data)
}

// commit stores the media file and points the note at it. The trigger field
// is cleared in the same update, so it only clears when the update succeeds.
func (s *Syncer) commit(ctx context.Context, it *item, data []byte) error {
	fp := it.decision.Fingerprint
	filename := fingerprint.Reference(fp)

	if err := s.store.StoreMedia(ctx, filename, data); err != nil {
		return fmt.Errorf("%w: store media %s: %w", ErrStore, filename, err)
	}

	fields := map[string]string{s.fields.Audio: fingerprint.SoundTag(fp)}
	if it.trigger != "" && s.fields.Regenerate != "" {
		fields[s.fields.Regenerate] = ""
	}
	if err := s.store.Update(ctx, it.card.UpdateID(), fields); err != nil {
		return fmt.Errorf("%w: update note: %w", ErrStore, err)
	}

	if s.opts.KeepLocalFiles && s.opts.OutputDir != "" {
		if err := writeLocal(s.opts.OutputDir, filename, data); err != nil {
			it.log().Warn("Failed to keep local copy", "error", err)
		}
	}

	it.log().Info("Audio updated", "state", it.decision.State, "speaker", it.persona.Name, "file", filename, "text", model.Truncate(it.text, 60))
	return nil
}

func writeLocal(dir, filename string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, filename), data, 0o644)
}

func (s *Syncer) recordRun(ctx context.Context, query string, started time.Time, st *Stats) {
	if s.runs == nil {
		return
	}
	r := &store.Run{
		Command:      "process",
		Query:        query,
		Provider:     s.backend.ID(),
		StartedAt:    started,
		FinishedAt:   time.Now(),
		Total:        st.Total,
		Processed:    st.Processed,
		SkippedFresh: st.SkippedFresh,
		SkippedEmpty: st.SkippedEmpty,
		Errors:       st.Errors,
		CacheHits:    st.CacheHits,
	}
	// The run is recorded even if ctx was cancelled mid-way.
	if err := s.runs.RecordRun(context.WithoutCancel(ctx), r); err != nil {
		slog.Warn("Failed to record run history", "error", err)
	}
}
