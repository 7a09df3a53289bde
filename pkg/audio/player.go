// Package audio plays synthesized speech on the local output device.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// outputRate is the speaker rate; every clip is resampled to it.
const outputRate = beep.SampleRate(48000)

// Player plays MP3 clips one at a time.
type Player struct {
	mu          sync.Mutex
	volume      float64
	initialized bool
}

// NewPlayer creates a player. Volume is linear, 0 to 1.
func NewPlayer(volume float64) *Player {
	return &Player{volume: clamp(volume)}
}

// Volume returns the playback volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlayMP3 decodes data and blocks until playback finishes or ctx is done.
func (p *Player) PlayMP3(ctx context.Context, data []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureSpeaker(); err != nil {
		return err
	}

	resampled := beep.Resample(3, format.SampleRate, outputRate, streamer)
	ctrl := &beep.Ctrl{Streamer: &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeToPower(p.volume),
		Silent:   p.volume <= 0.01,
	}}

	done := make(chan struct{})
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() { close(done) })))
	slog.Debug("Playing clip", "duration", format.SampleRate.D(streamer.Len()).Round(time.Millisecond))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func (p *Player) ensureSpeaker() error {
	if p.initialized {
		return nil
	}
	if err := speaker.Init(outputRate, outputRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("initialize speaker: %w", err)
	}
	p.initialized = true
	return nil
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// volumeToPower maps linear volume onto beep's base-2 exponent.
func volumeToPower(vol float64) float64 {
	if vol <= 0.01 {
		return -10
	}
	return math.Log2(vol)
}
