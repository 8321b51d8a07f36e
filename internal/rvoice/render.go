package rvoice

import (
	"math"

	"github.com/go-synth/fluidcore/internal/dsp"
)

// BusOutput is one sample frame's worth of a voice's contribution to
// the mixer's buses: dry left/right plus the amount to send to the
// reverb and chorus effect buses (the mixer applies its own bus-level
// mixing, these are just the voice-local send values).
type BusOutput struct {
	DryL, DryR       float32
	ReverbL, ReverbR float32
	ChorusL, ChorusR float32
}

// Render advances the voice by up to len(out) frames. It returns the
// number of frames actually produced; a result
// less than len(out) means the voice finished partway through the
// block (sample end with no loop, or envelope release complete).
//
// Every LFO and envelope is stepped exactly once per output frame, in
// this function, so pitch modulation, filter modulation and amplitude
// modulation all see a consistent instant of modulator state.
func (v *Voice) Render(out []BusOutput) int {
	if v.finished {
		return 0
	}

	data := v.Sample.Data16
	sampleEnd := v.sampleEnd
	loopStart, loopEnd := v.loopStart, v.loopEnd
	looping := v.SampleMode == SampleModeLoopDuringRelease ||
		(v.SampleMode == SampleModeLoopUntilRelease && !v.released)

	for i := range out {
		if v.releasePending {
			if v.releaseCountdown <= 0 {
				v.releasePending = false
				v.Release()
				looping = v.SampleMode == SampleModeLoopDuringRelease
			} else {
				v.releaseCountdown--
			}
		}

		frameIdx := int(v.phase >> phaseFracBits)
		if !looping && frameIdx >= sampleEnd {
			return i
		}

		vibVal := v.VibLFO.Step()
		modVal := v.ModLFO.Step()
		modEnvVal := v.ModEnv.Step()
		volEnvVal := v.VolEnv.Step()

		phaseFrac := int(v.phase & (1<<phaseFracBits - 1))
		interpPhase := phaseFrac >> (phaseFracBits - 8) // top 8 bits -> InterpMax=256 table
		raw := sample16At(data, frameIdx, v.InterpOrder, interpPhase, v.Sample.FrameCount, looping, loopStart, loopEnd)

		fc := v.baseFc + v.modLFOToFc*modVal*100 + v.modEnvToFc*modEnvVal*100
		v.Filter.SetFres(centsToHz(fc), 0)
		filtered := v.applyFilterSample(raw)

		ampLfoGain := math.Exp2(v.modLFOToVolume * modVal / 6.0) // cB-ish 6dB/unit
		envLinear := volEnvVal
		if v.Muted {
			envLinear = 0
		}
		attenLinear := math.Pow(10, -v.Attenuation/200.0)
		amp := float32(envLinear * attenLinear * ampLfoGain)

		s := filtered * amp
		l, r := v.panSplit(s)
		out[i] = BusOutput{
			DryL: l, DryR: r,
			ReverbL: l * float32(v.ReverbSend), ReverbR: r * float32(v.ReverbSend),
			ChorusL: l * float32(v.ChorusSend), ChorusR: r * float32(v.ChorusSend),
		}

		semis := v.pitchBendSemitones() + v.vibLFOToPitch*vibVal + v.modLFOToPitch*modVal + v.modEnvToPitch*modEnvVal
		if v.portamento.active {
			semis += v.portamentoSemitones()
		}
		v.phase += uint64(float64(v.incr) * math.Exp2(semis/12.0))
		if looping && loopEnd > loopStart {
			loopLen := uint64(loopEnd-loopStart) << phaseFracBits
			loopEndFixed := uint64(loopEnd) << phaseFracBits
			if v.phase >= loopEndFixed {
				v.phase -= loopLen
			}
		}

		if v.VolEnv.Done() {
			v.finished = true
			return i + 1
		}
	}
	return len(out)
}

// applyFilterSample runs the biquad on a single sample, since the
// render loop modulates cutoff every frame and Filter.Apply operates
// on whatever slice it's given.
func (v *Voice) applyFilterSample(raw float32) float32 {
	buf := [1]float32{raw}
	v.Filter.Apply(buf[:])
	return buf[0]
}

func sample16At(data []int16, frameIdx, order, phase, frameCount int, looping bool, loopStart, loopEnd int) float32 {
	at := func(n int) float32 {
		if looping && loopEnd > loopStart {
			for n >= loopEnd {
				n -= loopEnd - loopStart
			}
		}
		if n < 0 || n >= frameCount || n >= len(data) {
			return 0
		}
		return float32(data[n]) / 32768.0
	}
	return interpolateAt(order, at, frameIdx, phase)
}

// interpolateAt dispatches into dsp's coefficient tables centered on
// frameIdx, mirroring dsp.Interpolate's tap layout but taking an
// already-bound accessor so loop wraparound can be applied per-tap.
func interpolateAt(order int, at func(int) float32, frameIdx, phase int) float32 {
	switch order {
	case dsp.InterpNone:
		return at(frameIdx)
	case dsp.InterpLinear:
		c0, c1 := dsp.LinearCoeffs(phase)
		return float32(c0)*at(frameIdx) + float32(c1)*at(frameIdx+1)
	case dsp.InterpCubic:
		c0, c1, c2, c3 := dsp.CubicCoeffs(phase)
		return float32(c0)*at(frameIdx-1) + float32(c1)*at(frameIdx) +
			float32(c2)*at(frameIdx+1) + float32(c3)*at(frameIdx+2)
	default:
		coeffs := dsp.SincCoeffs(phase)
		var sum float32
		for tap := 0; tap < dsp.SincOrder; tap++ {
			sum += float32(coeffs[tap]) * at(frameIdx-dsp.SincOrder/2+tap+1)
		}
		return sum
	}
}

func (v *Voice) pitchBendSemitones() float64 {
	if v.pitchBend <= 0 {
		return 0
	}
	return math.Log2(v.pitchBend) * 12.0
}

func (v *Voice) portamentoSemitones() float64 {
	if v.portamento.totalSamps <= 0 {
		v.portamento.active = false
		return 0
	}
	t := float64(v.portamento.elapsed) / float64(v.portamento.totalSamps)
	if t >= 1 {
		v.portamento.active = false
		return 0
	}
	v.portamento.elapsed++
	fromSemi := hzToSemi(v.portamento.fromHz)
	toSemi := hzToSemi(v.portamento.toHz)
	return fromSemi*(1-t) + toSemi*t - toSemi
}

func hzToSemi(hz float64) float64 {
	if hz <= 0 {
		return 0
	}
	return 12.0 * math.Log2(hz/440.0)
}

func (v *Voice) panSplit(s float32) (l, r float32) {
	theta := float64(v.Pan+1) * (math.Pi / 4)
	return s * float32(math.Cos(theta)), s * float32(math.Sin(theta))
}

// Release transitions the voice into its release segment.
func (v *Voice) Release() {
	v.released = true
	v.releasePending = false
	v.VolEnv.Release()
	v.ModEnv.Release()
}

// ReleaseAfter delays the release by frames samples, used when a
// note-off arrives before the configured minimum note length has
// elapsed. frames<=0 releases immediately.
func (v *Voice) ReleaseAfter(frames int) {
	if frames <= 0 {
		v.Release()
		return
	}
	v.releasePending = true
	v.releaseCountdown = frames
}

// ForceKillShortRelease overrides the release segment with a few-ms
// fade to avoid clicks when the voice pool steals this voice.
func (v *Voice) ForceKillShortRelease(samples int) {
	v.released = true
	v.VolEnv.FastRelease(samples)
	v.ModEnv.FastRelease(samples)
}

// SetPortamento configures a pitch slide from fromKey to the voice's
// own Key over the given number of samples. frames<=0 disables it.
func (v *Voice) SetPortamento(fromKey int, frames int) {
	if frames <= 0 {
		v.portamento = portamentoState{}
		return
	}
	v.portamento = portamentoState{
		active:     true,
		fromHz:     keyToHz(float64(fromKey)),
		toHz:       keyToHz(float64(v.Key)),
		totalSamps: frames,
	}
}

// SetPitchBend updates the ratio applied on top of the voice's base
// increment; 1.0 means no bend.
func (v *Voice) SetPitchBend(ratio float64) { v.pitchBend = ratio }

// Finished reports whether this voice produced its final sample and
// should be reclaimed by the pool.
func (v *Voice) Finished() bool { return v.finished }

// ExclusiveClassOf, KeyOf and PedalSustained/SetSustained satisfy
// compile.Sounding so the voice pool can hand live voices straight to
// the compiler for exclusive-class and release-on-same-note handling.
func (v *Voice) ExclusiveClassOf() int { return v.ExclusiveClass }
func (v *Voice) KeyOf() int            { return v.Key }
func (v *Voice) PedalSustained() bool  { return v.sustained }
func (v *Voice) SetSustained(s bool)   { v.sustained = s }

// Status exposes the voice's lifecycle for bookkeeping logs.
func (v *Voice) Status() VoiceStatus {
	if v.finished {
		return StatusFinished
	}
	return StatusPlaying
}
