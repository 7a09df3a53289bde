// Package transcode turns backend audio into the MP3 files stored with cards.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"ankispeech/pkg/tts"
)

// ErrUnsupported is returned for input formats the encoder cannot read.
var ErrUnsupported = errors.New("unsupported audio format")

// Encoder converts synthesized audio to MP3 at a bitrate and playback speed.
type Encoder interface {
	Encode(ctx context.Context, a *tts.Audio, bitrate string, speed float64) ([]byte, error)
}

// FFmpeg encodes through the ffmpeg binary using stdin/stdout pipes.
type FFmpeg struct {
	path    string
	timeout time.Duration
}

// New returns an FFmpeg encoder. An empty path means "ffmpeg" from PATH.
func New(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, timeout: 2 * time.Minute}
}

// AssertReady checks that the ffmpeg binary can be found.
func (f *FFmpeg) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(f.path); err != nil {
		return fmt.Errorf("missing required binary %q: %w", f.path, err)
	}
	return nil
}

// Encode implements Encoder.
func (f *FFmpeg) Encode(ctx context.Context, a *tts.Audio, bitrate string, speed float64) ([]byte, error) {
	if err := tts.CheckAudio(a); err != nil {
		return nil, err
	}

	input := a.Data
	inFormat := string(a.Format)
	switch a.Format {
	case tts.FormatPCM:
		wavData, err := PCMToWAV(a)
		if err != nil {
			return nil, err
		}
		input, inFormat = wavData, string(tts.FormatWAV)
	case tts.FormatWAV, tts.FormatMP3:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, a.Format)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.path, Args(inFormat, bitrate, speed)...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w; out=%s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output: %w", tts.ErrEmptyAudio)
	}

	slog.Debug("Transcoded audio", "from", a.Format, "bytes", stdout.Len(), "bitrate", bitrate, "speed", speed, "took", time.Since(start))
	return stdout.Bytes(), nil
}

// Args builds the ffmpeg command line for one conversion.
func Args(inFormat, bitrate string, speed float64) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", inFormat, "-i", "pipe:0"}
	if filter := AtempoChain(speed); filter != "" {
		args = append(args, "-filter:a", filter)
	}
	args = append(args, "-codec:a", "libmp3lame", "-b:a", bitrate, "-f", "mp3", "pipe:1")
	return args
}

// AtempoChain returns an atempo filter reaching speed. Each stage is kept
// within the 0.5 to 2.0 range accepted by older ffmpeg builds. Speed 1
// (or a non-positive speed) yields no filter.
func AtempoChain(speed float64) string {
	if speed <= 0 || speed == 1 {
		return ""
	}
	var stages []string
	for speed > 2.0 {
		stages = append(stages, "atempo=2.0")
		speed /= 2.0
	}
	for speed < 0.5 {
		stages = append(stages, "atempo=0.5")
		speed /= 0.5
	}
	stages = append(stages, "atempo="+strconv.FormatFloat(speed, 'f', -1, 64))
	return strings.Join(stages, ",")
}
