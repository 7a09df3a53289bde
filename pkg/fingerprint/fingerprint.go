// Package fingerprint derives the content hash that decides whether a card's
// audio is current, and builds/parses the media reference that carries it.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ankispeech/pkg/model"
)

// SchemaVersion is bumped whenever the payload layout changes. Every stored
// reference computed under an older schema becomes stale.
const SchemaVersion = 3

// Length is the number of hex characters kept from the digest.
const Length = 16

// Input gathers everything that influences the synthesized audio.
type Input struct {
	Sentence        string
	SpeakerName     string
	SpeakerVoice    string
	SpeakerPrompt   string
	Emotion         string
	Citation        string
	Overrides       []model.OverridePair
	Provider        string
	Bitrate         string
	SpeedMultiplier float64
}

// Compute returns the fingerprint for in. The result does not depend on the
// order or multiplicity of Overrides.
func Compute(in Input) string {
	payload := map[string]any{
		"schema":           SchemaVersion,
		"sentence":         in.Sentence,
		"speaker_name":     in.SpeakerName,
		"speaker_voice":    in.SpeakerVoice,
		"speaker_prompt":   in.SpeakerPrompt,
		"emotion":          in.Emotion,
		"citation":         in.Citation,
		"overrides":        canonicalPairs(in.Overrides),
		"provider":         in.Provider,
		"bitrate":          in.Bitrate,
		"speed_multiplier": strconv.FormatFloat(in.SpeedMultiplier, 'f', -1, 64),
	}

	// json encodes map keys in sorted order.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		// Only strings, ints and string slices are encoded.
		panic("fingerprint: encode payload: " + err.Error())
	}

	sum := sha256.Sum256(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:])[:Length]
}

func canonicalPairs(pairs []model.OverridePair) [][2]string {
	seen := make(map[model.OverridePair]struct{}, len(pairs))
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, [2]string{p.Original, p.Replacement})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

const (
	refPrefix = "speech_"
	refSuffix = ".mp3"
)

var fpPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

// Reference returns the media filename for fp.
func Reference(fp string) string {
	return refPrefix + fp + refSuffix
}

// SoundTag returns the field value that embeds the reference for playback.
func SoundTag(fp string) string {
	return "[sound:" + Reference(fp) + "]"
}

// Extract recovers the fingerprint from a stored audio field value. Both the
// bare filename and the [sound:...] form are accepted.
func Extract(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "[sound:") && strings.HasSuffix(v, "]") {
		v = strings.TrimSpace(v[len("[sound:") : len(v)-1])
	}
	if !strings.HasPrefix(v, refPrefix) || !strings.HasSuffix(v, refSuffix) {
		return "", false
	}
	fp := v[len(refPrefix) : len(v)-len(refSuffix)]
	if !fpPattern.MatchString(fp) {
		return "", false
	}
	return fp, true
}
