// Package compile implements the voice parameter compiler: given a
// channel, a note, and a resolved preset, it matches sample zones,
// combines and evaluates modulators, and compiles the result into the
// physical parameters a render-thread voice needs to start. It also
// carries the mono/legato/portamento dispatch since that decides which
// of this package's
// outputs (new voices vs. in-place legato actions) actually apply to
// a given Note-On.
package compile

import (
	"github.com/go-synth/fluidcore/internal/channel"
	"github.com/go-synth/fluidcore/internal/sfont"
)

// LegatoVoiceAction pairs a sounding voice's index (in the slice the
// caller passed to CompileNoteOn) with the action the legato machine
// chose for it.
type LegatoVoiceAction struct {
	VoiceIndex int
	Action     channel.LegatoAction
}

// Result is everything a Note-On compiled to: new voices to start,
// in-place actions for already-sounding voices, and the bookkeeping
// decisions the caller needs to apply to the voice pool.
type Result struct {
	// NoteOff is true when the incoming event was velocity-0 and
	// should be redirected to NoteOff entirely; no other field is
	// populated in that case.
	NoteOff bool
	// Suppressed is true when breath-sync gating swallowed the event.
	Suppressed bool

	Starts        []CompiledVoice
	LegatoActions []LegatoVoiceAction

	// ExclusiveKill lists the exclusive class of any new voice about
	// to start; the caller must immediately voiceoff (not note-off)
	// every other sounding voice on the channel sharing that class
	// before adding these.
	ExclusiveKill []int

	// ReleaseSameNote is true when a still-pedal-sustained voice at
	// the same (channel, key) must be force-released before the new
	// voices start.
	ReleaseSameNote bool

	Portamento channel.PortamentoResult
}

// Sounding is the minimal view of an already-playing voice the
// compiler needs: its zone coverage (for legato voice selection) and
// its exclusive class / sustain state (for the exclusive-class and
// same-note-release edge cases).
type Sounding interface {
	channel.SoundingVoice
	ExclusiveClassOf() int
	KeyOf() int
	PedalSustained() bool
}

// CompileNoteOn runs the full Note-On pipeline: channel mode dispatch,
// zone matching, modulator evaluation and generator compilation.
// sounding lists every voice currently playing on ch's channel.
func CompileNoteOn(ch *channel.Channel, sf *sfont.SoundFont, preset *sfont.Preset, key, vel int, sounding []Sounding, pedalOn bool, interpOrder int, outputRate float64) Result {
	if vel == 0 {
		return Result{NoteOff: true}
	}
	// A muted channel still allocates and starts voices normally; only
	// their amplitude is forced to zero, below, once params are
	// compiled.

	soundingIface := make([]channel.SoundingVoice, len(sounding))
	for i, v := range sounding {
		soundingIface[i] = v
	}

	decision := channel.NoteOn(ch, key, vel, soundingIface, pedalOn)
	if decision.Suppressed {
		return Result{Suppressed: true}
	}

	result := Result{Portamento: decision.Portamento}

	for _, v := range sounding {
		if v.KeyOf() == key && v.PedalSustained() {
			result.ReleaseSameNote = true
		}
	}

	needsNewVoices := decision.Legato == nil || decision.Legato.NeedsNewVoices
	if decision.Legato != nil {
		for i, action := range decision.Legato.VoiceActions {
			result.LegatoActions = append(result.LegatoActions, LegatoVoiceAction{VoiceIndex: i, Action: action})
		}
	}

	if !needsNewVoices {
		return result
	}

	presetGlobal := GlobalPresetZone(preset.Zones)
	matches := MatchZones(preset, sf.Instruments, key, vel)

	for _, mz := range matches {
		instrumentGlobal := GlobalInstrumentZone(sf.Instruments[mz.PresetZone.InstrumentIdx].Zones)

		if decision.Legato != nil && ch.Legato != channel.LegatoRetriggerFastRelease && ch.Legato != channel.LegatoRetriggerNormalRelease {
			// single-trigger and multi-retrigger modes keep a sounding
			// voice that already covers the note, so they only start
			// voices when no sounding voice covers it; the two
			// retrigger-release modes release the old voices and start
			// fresh coverage for every matched zone.
			covered := false
			for _, v := range sounding {
				if v.InRangeFor(key, vel) {
					covered = true
					break
				}
			}
			if covered {
				continue
			}
		}

		cv, ok := CompileVoiceParams(mz, instrumentGlobal, presetGlobal, sf, ch, key, vel, interpOrder, outputRate)
		if !ok {
			continue
		}
		if ch.Muted {
			cv.Params.Attenuation = 1440 // effectively silent; keeps voice allocated per spec
		}
		if cv.Params.ExclusiveClass != 0 {
			result.ExclusiveKill = append(result.ExclusiveKill, cv.Params.ExclusiveClass)
		}
		result.Starts = append(result.Starts, cv)
	}

	return result
}

// CompileNoteOff runs the channel mode dispatch for a released key
// and reports what the caller should do to voices: release everything
// on the channel, or slide the remaining mono voices to a new key.
func CompileNoteOff(ch *channel.Channel, key int) channel.NoteOffDecision {
	return channel.NoteOff(ch, key)
}
