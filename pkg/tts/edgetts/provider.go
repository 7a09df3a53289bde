// Package edgetts synthesizes speech through the Edge read-aloud websocket.
package edgetts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ankispeech/pkg/config"
	"ankispeech/pkg/prompt"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/tts"
)

// Provider implements tts.Provider for Microsoft Edge TTS.
type Provider struct {
	defaultVoice string
	tracker      *tracker.Tracker
}

// NewProvider creates a new Edge TTS provider.
func NewProvider(cfg config.EdgeTTSConfig, t *tracker.Tracker) *Provider {
	return &Provider{defaultVoice: cfg.VoiceID, tracker: t}
}

// ID implements tts.Provider.
func (p *Provider) ID() string {
	return config.EngineEdgeTTS
}

// Synthesize implements tts.Provider. Persona voices that are not Edge neural
// voice names fall back to the configured voice.
func (p *Provider) Synthesize(ctx context.Context, prompt, voice string) (*tts.Audio, error) {
	voice = p.resolveVoice(voice)
	if voice == "" {
		return nil, fmt.Errorf("voice ID is required")
	}

	conn, err := p.dial(ctx)
	if err != nil {
		p.tracker.TrackAPIFailure(p.ID())
		return nil, err
	}
	defer conn.Close()

	if err := p.sendConfig(conn); err != nil {
		return nil, err
	}

	requestID := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := p.sendSSML(conn, voice, prompt, requestID); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.consumeResponses(ctx, conn, &buf); err != nil {
		p.tracker.TrackAPIFailure(p.ID())
		return nil, err
	}

	audio := &tts.Audio{Data: buf.Bytes(), Format: tts.FormatMP3, Channels: 1}
	if err := tts.CheckAudio(audio); err != nil {
		p.tracker.TrackEmptyAudio(p.ID())
		return nil, err
	}
	p.tracker.TrackAPISuccess(p.ID())
	return audio, nil
}

func (p *Provider) resolveVoice(voice string) string {
	if strings.HasSuffix(voice, "Neural") {
		return voice
	}
	return p.defaultVoice
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	edgeOrigin := os.Getenv("EDGE_TTS_ORIGIN")
	if edgeOrigin == "" {
		return nil, fmt.Errorf("EDGE_TTS_ORIGIN environment variable is required")
	}

	header := http.Header{}
	header.Set("Origin", edgeOrigin)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")

	userAgent := os.Getenv("EDGE_TTS_USER_AGENT")
	if userAgent == "" {
		return nil, fmt.Errorf("EDGE_TTS_USER_AGENT environment variable is required")
	}
	header.Set("User-Agent", userAgent)
	header.Set("Accept-Language", "en-US,en;q=0.9")

	muid := strings.ReplaceAll(uuid.New().String(), "-", "")
	header.Set("Cookie", fmt.Sprintf("muid=%s", muid))

	trustedClientToken := os.Getenv("EDGE_TTS_TRUSTED_CLIENT_TOKEN")
	if trustedClientToken == "" {
		return nil, fmt.Errorf("EDGE_TTS_TRUSTED_CLIENT_TOKEN environment variable is required")
	}
	token := generateSecMSGec(trustedClientToken, time.Now())
	version := os.Getenv("EDGE_TTS_SEC_MS_GEC_VERSION")
	if version == "" {
		return nil, fmt.Errorf("EDGE_TTS_SEC_MS_GEC_VERSION environment variable is required")
	}

	edgeBaseURL := os.Getenv("EDGE_TTS_BASE_URL")
	if edgeBaseURL == "" {
		return nil, fmt.Errorf("EDGE_TTS_BASE_URL environment variable is required")
	}

	url := fmt.Sprintf("%s?TrustedClientToken=%s&Sec-MS-GEC=%s&Sec-MS-GEC-Version=%s",
		edgeBaseURL, trustedClientToken, token, version)

	var dialErr error
	for i := 0; i < 3; i++ {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
		if err == nil {
			return conn, nil
		}
		dialErr = err
		if resp != nil {
			slog.Warn("EdgeTTS: handshake failure", "status", resp.Status, "status_code", resp.StatusCode)
			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, &tts.ThrottleError{Provider: p.ID(), Err: err}
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("websocket dial failed after retries: %w", dialErr)
}

// generateSecMSGec derives the rolling access token: Windows file-time ticks
// rounded down to five minutes, concatenated with the client token.
func generateSecMSGec(trustedClientToken string, now time.Time) string {
	ticks := now.Unix() + 11644473600
	ticks -= ticks % 300
	strToHash := fmt.Sprintf("%d%s", ticks*10_000_000, trustedClientToken)

	hash := sha256.Sum256([]byte(strToHash))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

func (p *Provider) sendConfig(conn *websocket.Conn) error {
	configMsg := "Content-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n{\"context\":{\"synthesis\":{\"audio\":{\"metadataoptions\":{\"sentenceBoundaryEnabled\":\"false\",\"wordBoundaryEnabled\":\"false\"},\"outputFormat\":\"audio-24khz-48kbitrate-mono-mp3\"}}}}"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(configMsg)); err != nil {
		return fmt.Errorf("failed to send speech.config: %w", err)
	}
	return nil
}

func (p *Provider) sendSSML(conn *websocket.Conn, voice, text, requestID string) error {
	ssml := buildSSML(voice, text)
	tts.Log("EDGETTS", voice, ssml, 0, nil)

	ssmlMsg := fmt.Sprintf("X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nPath:ssml\r\n\r\n%s", requestID, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return fmt.Errorf("failed to send ssml: %w", err)
	}
	return nil
}

// buildSSML wraps the spoken body for the read-aloud service. It accepts no
// style directives or phoneme hints, so both are dropped.
func buildSSML(voice, text string) string {
	_, body := prompt.SplitDirective(text)
	text = prompt.PlainText(body)
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	escapedText := replacer.Replace(text)
	lang := "en-US"
	if parts := strings.SplitN(voice, "-", 3); len(parts) == 3 {
		lang = parts[0] + "-" + parts[1]
	}
	return fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>", lang, voice, escapedText)
}

func (p *Provider) consumeResponses(ctx context.Context, conn *websocket.Conn, w io.Writer) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message failed: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				return nil
			}
		case websocket.BinaryMessage:
			if err := handleBinaryMessage(data, w); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// handleBinaryMessage strips the length-prefixed header and writes the audio.
func handleBinaryMessage(data []byte, w io.Writer) error {
	if len(data) < 2 {
		return nil
	}
	headerLength := int(uint16(data[0])<<8 | uint16(data[1]))
	if len(data) < 2+headerLength {
		return nil
	}
	audioData := data[2+headerLength:]
	if len(audioData) > 0 {
		if _, err := w.Write(audioData); err != nil {
			return fmt.Errorf("write audio data failed: %w", err)
		}
	}
	return nil
}
