package channel

// SoundingVoice is the minimal capability a currently-playing voice
// must expose for the mono Note-On legato machine to decide what to do
// with it. internal/compile's voice wrapper implements this; channel
// itself never touches rvoice state directly.
type SoundingVoice interface {
	// InRangeFor reports whether this voice's instrument zone would
	// also have matched (key, vel) — i.e. the same zone covers the new
	// note, so retriggering can reuse it instead of starting fresh.
	InRangeFor(key, vel int) bool
}

// LegatoAction is one instruction the legato machine emits for a
// single already-sounding voice.
type LegatoAction int

const (
	// ActionRetriggerFastRelease: release this voice quickly, a new
	// voice will be started separately for the new key.
	ActionRetriggerFastRelease LegatoAction = iota
	// ActionRetriggerNormalRelease: release this voice normally.
	ActionRetriggerNormalRelease
	// ActionMultiRetrigger: keep oscillator phase and filter state, jump
	// back into the attack segment for the new key.
	ActionMultiRetrigger
	// ActionRepitchOnly: keep envelope state, only update the voice's
	// pitch for the new key.
	ActionRepitchOnly
	// ActionRepitchAndRefilter: like ActionRepitchOnly but also
	// recomputes filter cutoff for the new key (single-trigger mode 1).
	ActionRepitchAndRefilter
)

// LegatoPlan is the full result of running the legato machine for one
// Note-On: an action per already-sounding voice that remains in play,
// plus whether a fresh voice must also be started for zones the new
// key enters that weren't already covered.
type LegatoPlan struct {
	VoiceActions   []LegatoAction // parallel to the voices slice passed in
	NeedsNewVoices bool
}

// PlanLegato implements the mono legato dispatch: for every
// currently sounding voice on the channel, decide whether it should be
// retriggered, repitched in place, or left for a fresh voice to cover a
// zone it doesn't reach.
func PlanLegato(mode LegatoMode, voices []SoundingVoice, newKey, newVel int) LegatoPlan {
	plan := LegatoPlan{VoiceActions: make([]LegatoAction, len(voices))}

	anyUncovered := false
	for i, v := range voices {
		covered := v.InRangeFor(newKey, newVel)
		if !covered {
			anyUncovered = true
		}
		switch mode {
		case LegatoRetriggerFastRelease:
			plan.VoiceActions[i] = ActionRetriggerFastRelease
		case LegatoRetriggerNormalRelease:
			plan.VoiceActions[i] = ActionRetriggerNormalRelease
		case LegatoMultiRetrigger:
			plan.VoiceActions[i] = ActionMultiRetrigger
		case LegatoSingleTrigger0:
			plan.VoiceActions[i] = ActionRepitchOnly
		case LegatoSingleTrigger1:
			plan.VoiceActions[i] = ActionRepitchAndRefilter
		}
	}

	switch mode {
	case LegatoSingleTrigger0, LegatoSingleTrigger1:
		// New voices are only needed for zones the new key enters that no
		// existing voice already covers.
		plan.NeedsNewVoices = anyUncovered || len(voices) == 0
	default:
		// Retrigger/multi-retrigger strategies always ask for new-voice
		// coverage of the new key; under multi-retrigger the compiler
		// still starts none while a retriggered voice covers it.
		plan.NeedsNewVoices = true
	}
	return plan
}
