// Package azure synthesizes speech with Azure Speech. Phoneme hints are sent
// as IPA phoneme elements, so pronunciation overrides are honoured exactly.
package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ankispeech/pkg/config"
	"ankispeech/pkg/prompt"
	"ankispeech/pkg/tracker"
	"ankispeech/pkg/tts"
)

// Provider implements tts.Provider for Azure Speech.
type Provider struct {
	key      string
	region   string
	voiceID  string
	language string
	client   *http.Client
	url      string
	tracker  *tracker.Tracker
}

// NewProvider creates a new Azure Speech TTS provider.
func NewProvider(cfg config.AzureSpeechConfig, t *tracker.Tracker) *Provider {
	url := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	lang := cfg.Language
	if lang == "" {
		lang = "en-US"
	}
	return &Provider{
		key:      cfg.Key,
		region:   cfg.Region,
		voiceID:  cfg.VoiceID,
		language: lang,
		client:   &http.Client{},
		url:      url,
		tracker:  t,
	}
}

// ID implements tts.Provider.
func (p *Provider) ID() string {
	return tts.ProviderID(config.EngineAzure, p.region)
}

// Synthesize implements tts.Provider. Persona voices that are not Azure
// neural voice names fall back to the configured voice.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) (*tts.Audio, error) {
	vid := p.voiceID
	if strings.HasSuffix(voice, "Neural") {
		vid = voice
	}
	if vid == "" {
		return nil, fmt.Errorf("no voice ID configured for Azure Speech")
	}

	ssml := p.buildSSML(vid, text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBufferString(ssml))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "audio-24khz-160kbitrate-mono-mp3")
	req.Header.Set("User-Agent", "ankispeech")

	resp, err := p.client.Do(req)
	if err != nil {
		tts.Log("AZURE", vid, ssml, 0, err)
		p.tracker.TrackAPIFailure(p.ID())
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tts.Log("AZURE", vid, ssml, resp.StatusCode, nil)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		bodyStr := strings.TrimSpace(string(body))
		if bodyStr == "" {
			bodyStr = "[empty body]"
		}
		errMsg := fmt.Sprintf("azure speech api error (status %d): %s", resp.StatusCode, bodyStr)

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			p.tracker.TrackThrottle(p.ID())
			return nil, &tts.ThrottleError{Provider: p.ID(), Err: fmt.Errorf("%s", errMsg)}
		case http.StatusUnauthorized, http.StatusForbidden:
			p.tracker.TrackAPIFailure(p.ID())
			return nil, tts.NewFatalError(resp.StatusCode, errMsg)
		default:
			p.tracker.TrackAPIFailure(p.ID())
			return nil, fmt.Errorf("%s", errMsg)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		p.tracker.TrackAPIFailure(p.ID())
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	audio := &tts.Audio{Data: data, Format: tts.FormatMP3, Channels: 1}
	if err := tts.CheckAudio(audio); err != nil {
		tts.Log("AZURE", vid, ssml, resp.StatusCode, err)
		p.tracker.TrackEmptyAudio(p.ID())
		return nil, err
	}

	tts.Log("AZURE", vid, ssml, resp.StatusCode, nil)
	p.tracker.TrackAPISuccess(p.ID())
	return audio, nil
}

// validateSSML checks if the SSML string is well-formed XML.
func validateSSML(ssml string) error {
	decoder := xml.NewDecoder(strings.NewReader(ssml))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (p *Provider) buildSSML(vid, text string) string {
	_, body := prompt.SplitDirective(text)
	const tmpl = `<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>`

	ssml := fmt.Sprintf(tmpl, p.language, vid, prompt.SSML(body))
	if err := validateSSML(ssml); err != nil {
		// Speak the plain words rather than fail on a broken hint.
		plain := prompt.PlainText(body)
		return fmt.Sprintf(tmpl, p.language, vid, xmlEscape(plain))
	}
	return ssml
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
