package rvoice

import (
	"math"

	"github.com/go-synth/fluidcore/internal/dsp"
	"github.com/go-synth/fluidcore/internal/sfont"
)

// StartParams is the full bundle of physical parameters the voice
// compiler (internal/compile) resolves from a generator vector before
// posting a voice-start event.
type StartParams struct {
	RootPitchHz   float64 // target playback pitch in Hz, from note+tuning+generators
	Attenuation   float64 // centibels
	FilterFcCents float64
	FilterQdB     float64
	NoGainAmp     bool

	VolDelay, VolAttack, VolHold, VolDecay, VolRelease dsp.EnvSegment
	VolSustainLevel                                    float64
	ModDelay, ModAttack, ModHold, ModDecay, ModRelease dsp.EnvSegment
	ModSustainLevel                                    float64

	ModLFODelay    int
	ModLFORateHz   float64
	ModLFOToPitch  float64
	ModLFOToFc     float64
	ModLFOToVolume float64

	VibLFODelay   int
	VibLFORateHz  float64
	VibLFOToPitch float64

	ModEnvToPitch float64
	ModEnvToFc    float64

	InterpOrder    int
	SampleMode     SampleMode
	Pan            float64
	DryBus         int
	ReverbSend     float64
	ChorusSend     float64
	ExclusiveClass int

	// PortamentoFromKey/PortamentoFrames configure an initial pitch
	// slide from another key into this voice's own key; Frames<=0 means
	// no slide.
	PortamentoFromKey int
	PortamentoFrames  int

	// StartOffset/EndOffset/LoopStartOffset/LoopEndOffset are frame
	// deltas (coarse*32768 + fine, already combined by the compiler)
	// applied to the sample's own start/end/loop-start/loop-end
	// points.
	StartOffset, EndOffset         int
	LoopStartOffset, LoopEndOffset int

	Zone ZoneRange
}

// Start initializes a pooled voice for playback. outputRate is the
// mixer's sample rate, used to convert the compiled Hz/second
// parameters into per-sample increments.
func (v *Voice) Start(sample *sfont.Sample, ch, key, vel int, p StartParams, outputRate float64) {
	v.Sample = sample
	v.Channel, v.Key, v.Vel = ch, key, vel
	v.outputRateHz = outputRate
	v.rootPitchHz = p.RootPitchHz
	v.incr = phaseIncrement(p.RootPitchHz, sample, outputRate)
	v.pitchBend = 1.0

	v.sampleStart = clampFrame(p.StartOffset, 0, sample.FrameCount)
	v.sampleEnd = clampFrame(sample.FrameCount+p.EndOffset, v.sampleStart, sample.FrameCount)
	v.loopStart = clampFrame(sample.LoopStart+p.LoopStartOffset, v.sampleStart, v.sampleEnd)
	v.loopEnd = clampFrame(sample.LoopEnd+p.LoopEndOffset, v.loopStart, v.sampleEnd)
	v.phase = uint64(v.sampleStart) << phaseFracBits

	v.InterpOrder = p.InterpOrder
	v.SampleMode = p.SampleMode
	v.Attenuation = p.Attenuation
	v.Pan = p.Pan
	v.DryBus = p.DryBus
	v.ReverbSend = p.ReverbSend
	v.ChorusSend = p.ChorusSend
	v.ExclusiveClass = p.ExclusiveClass
	v.zone = p.Zone

	v.VolEnv.SetData(p.VolDelay, p.VolAttack, p.VolHold, p.VolDecay, p.VolSustainLevel, p.VolRelease)
	v.VolEnv.Start()
	v.ModEnv.SetData(p.ModDelay, p.ModAttack, p.ModHold, p.ModDecay, p.ModSustainLevel, p.ModRelease)
	v.ModEnv.Start()

	v.ModLFO.Set(p.ModLFODelay, p.ModLFORateHz, outputRate)
	v.VibLFO.Set(p.VibLFODelay, p.VibLFORateHz, outputRate)
	v.modLFOToPitch = p.ModLFOToPitch
	v.modLFOToFc = p.ModLFOToFc
	v.modLFOToVolume = p.ModLFOToVolume
	v.vibLFOToPitch = p.VibLFOToPitch
	v.modEnvToPitch = p.ModEnvToPitch
	v.modEnvToFc = p.ModEnvToFc
	v.baseFc = p.FilterFcCents

	v.Filter = *dsp.NewFilter(dsp.FilterLowpass, outputRate)
	v.Filter.SetNoGainAmp(p.NoGainAmp)
	v.Filter.SetQdB(p.FilterQdB)
	v.Filter.SetFres(centsToHz(p.FilterFcCents), 0)

	v.released = false
	v.releasePending = false
	v.releaseCountdown = 0
	v.finished = false
	v.portamento = portamentoState{}
	if p.PortamentoFrames > 0 {
		v.SetPortamento(p.PortamentoFromKey, p.PortamentoFrames)
	}
}

// phaseIncrement computes the fixed-point phase step that plays the
// sample at rootPitchHz, as a ratio to the sample's own recorded pitch,
// scaled by the sample-rate/output-rate ratio.
func phaseIncrement(rootPitchHz float64, sample *sfont.Sample, outputRate float64) uint64 {
	originalHz := keyToHz(float64(sample.OriginalPitch) + float64(sample.PitchCorrection)/100.0)
	pitchRatio := rootPitchHz / originalHz
	framesPerOutputSample := pitchRatio * float64(sample.SampleRate) / outputRate
	return uint64(framesPerOutputSample * (1 << phaseFracBits))
}

// clampFrame clamps v into [lo,hi], used to keep compiler-supplied
// offsets from pushing a playback boundary outside the sample's own
// data or past another boundary it's nested within.
func clampFrame(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// keyToHz converts a fractional MIDI key number to Hz using A4=440 at
// key 69, the SF2-standard 12-TET reference.
func keyToHz(key float64) float64 {
	return 440.0 * math.Exp2((key-69.0)/12.0)
}

// centsToHz converts SF2 absolute cents (8.176 Hz reference at 0
// cents) to Hz, used for filter cutoff generators.
func centsToHz(cents float64) float64 {
	return 8.176 * math.Exp2(cents/1200.0)
}
