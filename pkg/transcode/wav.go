package transcode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"ankispeech/pkg/tts"
)

// pcmStreamer streams signed 16-bit little-endian samples.
type pcmStreamer struct {
	data     []byte
	channels int
	pos      int
}

func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	frame := 2 * s.channels
	for n < len(samples) && s.pos+frame <= len(s.data) {
		left := float64(int16(binary.LittleEndian.Uint16(s.data[s.pos:]))) / 32768
		right := left
		if s.channels > 1 {
			right = float64(int16(binary.LittleEndian.Uint16(s.data[s.pos+2:]))) / 32768
		}
		samples[n][0], samples[n][1] = left, right
		s.pos += frame
		n++
	}
	return n, n > 0
}

func (s *pcmStreamer) Err() error { return nil }

// PCMToWAV wraps raw PCM audio in a WAV container.
func PCMToWAV(a *tts.Audio) ([]byte, error) {
	if a == nil || a.Format != tts.FormatPCM {
		return nil, fmt.Errorf("%w: expected pcm input", ErrUnsupported)
	}
	if len(a.Data) == 0 {
		return nil, tts.ErrEmptyAudio
	}
	rate := a.SampleRate
	if rate <= 0 {
		rate = tts.DefaultSampleRate
	}
	ch := a.Channels
	if ch <= 0 {
		ch = 1
	}

	// wav.Encode seeks back to patch the header, so it needs a file.
	f, err := os.CreateTemp("", "ankispeech-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: ch, Precision: 2}
	if err := wav.Encode(f, &pcmStreamer{data: a.Data, channels: ch}, format); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

// MP3Duration decodes an MP3 payload and returns its playback length.
func MP3Duration(data []byte) (time.Duration, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}
