// Package rvoice implements the render-thread voice: oscillator phase
// advancement, interpolated sample playback, the filter/envelope/LFO
// chain from internal/dsp, and per-block bus routing.
// It is exclusively mutated by the render thread while active; the
// control thread only ever touches a voice through ring events.
package rvoice

import (
	"github.com/go-synth/fluidcore/internal/dsp"
	"github.com/go-synth/fluidcore/internal/sfont"
)

// SampleMode is the render-side loop mode. It is separate from sfont's
// SF2 sample-mode values (the compiler maps those onto it) since the
// render path must never import the compiler's generator-vector types
// on its hot path — only the handful of resolved scalars below.
type SampleMode int

const (
	SampleModeNoLoop SampleMode = iota
	SampleModeLoopDuringRelease
	SampleModeLoopUntilRelease
)

// phaseFracBits is the number of fractional bits in the 64-bit fixed
// point oscillator phase; the integer part selects the frame, the
// fraction selects an interpolation table phase.
const phaseFracBits = 32

// VoiceStatus reports what a voice did on its most recent render block.
type VoiceStatus int

const (
	StatusPlaying VoiceStatus = iota
	StatusFinished
)

// Voice is one playing note. Every field is render-thread-owned once
// Start has been called; the control thread reaches it only by posting
// events that the mixer applies between blocks.
type Voice struct {
	Sample *sfont.Sample

	Channel int
	Key     int
	Vel     int

	phase         uint64 // fixed point, integer:frame, fraction:interp phase
	incr          uint64 // base phase increment per sample at unity pitch bend
	pitchBend     float64
	portamento    portamentoState
	modEnvToPitch float64
	vibLFOToPitch float64
	modLFOToPitch float64

	InterpOrder int // dsp.InterpNone..dsp.InterpSinc7

	VolEnv dsp.Envelope
	ModEnv dsp.Envelope
	ModLFO dsp.LFO
	VibLFO dsp.LFO

	Filter         dsp.Filter
	modLFOToFc     float64
	modEnvToFc     float64
	baseFc         float64
	modLFOToVolume float64

	Attenuation float64 // centibels
	Pan         float64 // -1..+1
	DryBus      int
	ReverbSend  float64
	ChorusSend  float64

	SampleMode SampleMode

	ExclusiveClass int
	Muted          bool

	released         bool
	releasePending   bool // a note-off arrived before min-note-length elapsed
	releaseCountdown int
	finished         bool
	sustained        bool // held past its note-off by the channel's sustain pedal
	outputRateHz     float64
	rootPitchHz      float64
	sampleRateRatio  float64

	// sampleStart/sampleEnd/loopStart/loopEnd are frame indices into
	// Sample.Data16 after the compiler's start/end/loop offset
	// generators have been applied and clamped to the sample's own
	// bounds; rendering and looping always read these instead of the
	// raw Sample fields.
	sampleStart, sampleEnd int
	loopStart, loopEnd     int

	zone ZoneRange

	scratch []float32
}

type portamentoState struct {
	active     bool
	fromHz     float64
	toHz       float64
	elapsed    int
	totalSamps int
}

// ZoneRange is the key/velocity range of the instrument zone a voice was
// compiled from. The compiler supplies it in StartParams.Zone since
// rvoice itself holds no copy of the SF2 zone table; InRangeFor, which
// satisfies channel.SoundingVoice, checks another note against it so the
// mono legato machine can ask whether this voice would also cover it.
type ZoneRange struct {
	KeyLo, KeyHi, VelLo, VelHi int
}

func (z ZoneRange) Contains(key, vel int) bool {
	return key >= z.KeyLo && key <= z.KeyHi && vel >= z.VelLo && vel <= z.VelHi
}

// Zone is retained only so InRangeFor can answer the legato machine;
// it plays no role in rendering.
func (v *Voice) SetZone(z ZoneRange) { v.zone = z }

// Reset clears a voice back to its pre-allocation state so the pool
// can hand it out again.
func (v *Voice) Reset() {
	sc := v.scratch
	*v = Voice{scratch: sc}
}

func (v *Voice) InRangeFor(key, vel int) bool { return v.zone.Contains(key, vel) }
