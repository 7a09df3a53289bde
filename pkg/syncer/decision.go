package syncer

import (
	"strings"

	"ankispeech/pkg/fingerprint"
	"ankispeech/pkg/htmltext"
)

// State is the outcome of the regeneration gate for one card.
type State int

const (
	// SkipEmpty means the card has no spoken text.
	SkipEmpty State = iota
	// Forced means regeneration was requested explicitly.
	Forced
	// Fresh means the stored audio matches the current inputs.
	Fresh
	// Stale means the stored audio is missing or out of date.
	Stale
)

func (s State) String() string {
	switch s {
	case SkipEmpty:
		return "empty"
	case Forced:
		return "forced"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// DecisionInput carries the raw field values the gate looks at.
type DecisionInput struct {
	Text        string
	StoredAudio string
	Trigger     string
	Force       bool
}

// Decision is the gate result. Fingerprint is empty only for SkipEmpty.
type Decision struct {
	State       State
	Fingerprint string
	Previous    string
}

// NeedsSynthesis reports whether the card must be regenerated.
func (d Decision) NeedsSynthesis() bool {
	return d.State == Forced || d.State == Stale
}

// Decide runs the regeneration gate. Empty text wins over everything and
// skips hashing; a force flag or non-empty trigger regenerates but still
// carries the real fingerprint.
func Decide(in DecisionInput, compute func() string) Decision {
	if htmltext.IsBlank(in.Text) {
		return Decision{State: SkipEmpty}
	}

	fp := compute()
	prev, _ := fingerprint.Extract(in.StoredAudio)
	d := Decision{Fingerprint: fp, Previous: prev}

	switch {
	case in.Force || strings.TrimSpace(htmltext.Clean(in.Trigger)) != "":
		d.State = Forced
	case prev != "" && prev == fp:
		d.State = Fresh
	default:
		d.State = Stale
	}
	return d
}
