package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"ankispeech/pkg/tracker"
	"ankispeech/pkg/tts"
)

type fakeModels struct {
	calls  int
	voices []string
	err    error
	resp   *genai.GenerateContentResponse
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.voices = append(f.voices, cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func audioResponse(data []byte, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "ignored"},
				{InlineData: &genai.Blob{Data: data, MIMEType: mime}},
			}},
		}},
	}
}

func TestSynthesize(t *testing.T) {
	tts.SetLogPath("")
	defer tts.SetLogPath("logs/tts.log")

	fm := &fakeModels{resp: audioResponse([]byte{1, 2, 3, 4}, "audio/L16;codec=pcm;rate=24000")}
	tr := tracker.New()
	p, err := newProvider("", tr, &backend{models: fm})
	require.NoError(t, err)

	assert.Equal(t, "gemini/gemini-2.5-flash-preview-tts", p.ID())

	audio, err := p.Synthesize(context.Background(), "hello", "Kore")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, audio.Data)
	assert.Equal(t, tts.FormatPCM, audio.Format)
	assert.Equal(t, 24000, audio.SampleRate)
	assert.Equal(t, []string{"Kore"}, fm.voices)
	assert.Equal(t, int64(1), tr.Snapshot()[p.ID()].APISuccess)
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	tts.SetLogPath("")
	defer tts.SetLogPath("logs/tts.log")

	empty := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}
	p, err := newProvider("m", nil, &backend{models: &fakeModels{resp: empty}})
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "hello", "Kore")
	assert.ErrorIs(t, err, tts.ErrEmptyAudio)
	assert.False(t, tts.IsThrottle(err))
}

func TestSynthesize_ThrottleRotatesKey(t *testing.T) {
	tts.SetLogPath("")
	defer tts.SetLogPath("logs/tts.log")

	throttled := &fakeModels{err: genai.APIError{Code: 429, Message: "quota exhausted"}}
	healthy := &fakeModels{resp: audioResponse([]byte{9}, "audio/L16;rate=16000")}
	p, err := newProvider("m", tracker.New(), &backend{models: throttled}, &backend{models: healthy})
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "hello", "Kore")
	require.Error(t, err)
	assert.True(t, tts.IsThrottle(err))

	audio, err := p.Synthesize(context.Background(), "hello", "Kore")
	require.NoError(t, err)
	assert.Equal(t, 16000, audio.SampleRate)
	assert.Equal(t, 1, throttled.calls)
	assert.Equal(t, 1, healthy.calls)
}

func TestSynthesize_AuthIsFatal(t *testing.T) {
	tts.SetLogPath("")
	defer tts.SetLogPath("logs/tts.log")

	p, err := newProvider("m", nil, &backend{models: &fakeModels{err: genai.APIError{Code: 403, Message: "denied"}}})
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "hello", "Kore")
	assert.True(t, tts.IsFatalError(err))
}

func TestSynthesize_OtherError(t *testing.T) {
	tts.SetLogPath("")
	defer tts.SetLogPath("logs/tts.log")

	boom := errors.New("connection reset")
	p, err := newProvider("m", nil, &backend{models: &fakeModels{err: boom}})
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "hello", "Kore")
	assert.ErrorIs(t, err, boom)
	assert.False(t, tts.IsThrottle(err))
}

func TestParseMIME(t *testing.T) {
	tests := []struct {
		mime   string
		format tts.Format
		rate   int
	}{
		{"audio/L16;codec=pcm;rate=24000", tts.FormatPCM, 24000},
		{"audio/L16; rate=16000", tts.FormatPCM, 16000},
		{"", tts.FormatPCM, tts.DefaultSampleRate},
		{"audio/wav", tts.FormatWAV, tts.DefaultSampleRate},
		{"audio/mpeg", tts.FormatMP3, tts.DefaultSampleRate},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			f, r := parseMIME(tt.mime)
			assert.Equal(t, tt.format, f)
			assert.Equal(t, tt.rate, r)
		})
	}
}

func TestNewProvider_NoKeys(t *testing.T) {
	_, err := newProvider("m", nil)
	assert.ErrorIs(t, err, tts.ErrNoKeys)
}
