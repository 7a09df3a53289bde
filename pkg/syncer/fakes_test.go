package syncer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ankispeech/pkg/model"
	"ankispeech/pkg/store"
	"ankispeech/pkg/tts"
)

var fields = model.DefaultFieldMap()

func newCard(cardID, noteID int64, values map[string]string) model.Card {
	c := model.Card{CardID: cardID, NoteID: noteID, ModelName: "Basic", Fields: map[string]model.Field{}}
	// Every note type in these tests carries the full field set.
	for i, name := range []string{fields.Sentence, fields.Speaker, fields.Emotion, fields.Source, fields.Audio, fields.Regenerate} {
		c.Fields[name] = model.Field{Value: values[name], Order: i}
	}
	return c
}

// fakeStore keeps cards in memory and applies updates to them.
type fakeStore struct {
	mu         sync.Mutex
	cards      []model.Card
	findErr    error
	fetchErr   error
	failUpdate map[int64]bool
	failMedia  bool
	media      map[string][]byte
	updates    map[int64]map[string]string
}

func newFakeStore(cards ...model.Card) *fakeStore {
	return &fakeStore{
		cards:      cards,
		failUpdate: map[int64]bool{},
		media:      map[string][]byte{},
		updates:    map[int64]map[string]string{},
	}
}

func (f *fakeStore) Find(_ context.Context, _ string) ([]int64, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	ids := make([]int64, len(f.cards))
	for i, c := range f.cards {
		ids[i] = c.CardID
	}
	return ids, nil
}

func (f *fakeStore) Fetch(_ context.Context, ids []int64) ([]model.Card, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Card, 0, len(ids))
	for _, c := range f.cards {
		cp := c
		cp.Fields = make(map[string]model.Field, len(c.Fields))
		for k, v := range c.Fields {
			cp.Fields[k] = v
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, noteID int64, values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate[noteID] {
		return errors.New("note is locked")
	}
	f.updates[noteID] = values
	for i := range f.cards {
		if f.cards[i].UpdateID() != noteID {
			continue
		}
		for k, v := range values {
			fl := f.cards[i].Fields[k]
			fl.Value = v
			f.cards[i].Fields[k] = fl
		}
	}
	return nil
}

func (f *fakeStore) StoreMedia(_ context.Context, filename string, data []byte) error {
	if f.failMedia {
		return errors.New("media folder not writable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media[filename] = data
	return nil
}

func (f *fakeStore) field(noteID int64, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.UpdateID() == noteID {
			return c.Field(name)
		}
	}
	return ""
}

// fakeBackend records prompts and fails for prompts containing a marker.
type fakeBackend struct {
	id      string
	prompts []string
	voices  []string
	failOn  map[string]error
	// throttleFirst makes the first call return a throttle error.
	throttleFirst bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{id: "fake/model", failOn: map[string]error{}}
}

func (b *fakeBackend) ID() string { return b.id }

func (b *fakeBackend) Synthesize(_ context.Context, prompt, voice string) (*tts.Audio, error) {
	b.prompts = append(b.prompts, prompt)
	b.voices = append(b.voices, voice)
	if b.throttleFirst && len(b.prompts) == 1 {
		return nil, &tts.ThrottleError{Provider: b.id, Err: errors.New("429")}
	}
	for marker, err := range b.failOn {
		if strings.Contains(prompt, marker) {
			return nil, err
		}
	}
	return pcm(prompt), nil
}

func pcm(s string) *tts.Audio {
	return &tts.Audio{Data: []byte("pcm:" + s), Format: tts.FormatPCM, SampleRate: tts.DefaultSampleRate, Channels: 1}
}

// fakeBatch is a batch-capable backend returning at most keep results.
type fakeBatch struct {
	*fakeBackend
	keep      int
	state     tts.JobState
	pollErr   error
	polls     int
	submitted []tts.Request
	results   []tts.Result
}

func (b *fakeBatch) SubmitBatch(_ context.Context, reqs []tts.Request) (tts.Job, error) {
	b.submitted = reqs
	b.results = nil
	for _, r := range reqs {
		b.results = append(b.results, tts.Result{Audio: pcm(r.Prompt)})
	}
	return tts.Job{Name: "batches/1", Count: len(reqs)}, nil
}

func (b *fakeBatch) Poll(context.Context, tts.Job) (tts.JobStatus, error) {
	b.polls++
	if b.pollErr != nil {
		return tts.JobStatus{}, b.pollErr
	}
	return tts.JobStatus{State: b.state}, nil
}

func (b *fakeBatch) FetchResults(context.Context, tts.Job) ([]tts.Result, error) {
	if b.keep >= 0 && b.keep < len(b.results) {
		return b.results[:b.keep], nil
	}
	return b.results, nil
}

// fakeEncoder tags its output so tests can tell encoded data apart.
type fakeEncoder struct {
	calls int
	err   error
}

func (e *fakeEncoder) Encode(_ context.Context, a *tts.Audio, bitrate string, _ float64) ([]byte, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return append([]byte("mp3@"+bitrate+":"), a.Data...), nil
}

// mapCache is an in-memory cache.Cacher.
type mapCache map[string][]byte

func (m mapCache) GetAudio(_ context.Context, fp string) ([]byte, bool) {
	v, ok := m[fp]
	return v, ok
}

func (m mapCache) PutAudio(_ context.Context, fp string, data []byte) error {
	m[fp] = data
	return nil
}

type fakeRuns struct {
	runs []store.Run
}

func (f *fakeRuns) RecordRun(_ context.Context, r *store.Run) error {
	f.runs = append(f.runs, *r)
	return nil
}

func (f *fakeRuns) RecentRuns(context.Context, int) ([]store.Run, error) { return f.runs, nil }
