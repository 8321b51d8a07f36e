package dsp

// EnvStage enumerates the six-segment envelope shape.
type EnvStage int

const (
	EnvDelay EnvStage = iota
	EnvAttack
	EnvHold
	EnvDecay
	EnvSustain
	EnvRelease
	EnvDone
)

// EnvSegment holds the sample count and per-sample increment for one
// segment of the envelope.
type EnvSegment struct {
	Samples   int     // length of this segment in samples; 0 skips it
	Increment float64 // per-sample delta applied while in this segment
}

// Envelope implements the six-stage delay/attack/hold/decay/sustain/release
// piecewise-linear envelope. Step applies each segment's precomputed
// per-sample increment to the linear amplitude value; the SF2 dB-domain
// generator semantics (sustain level, decay/release slopes) are baked
// into the increments by the voice compiler, not re-derived here.
type Envelope struct {
	segments   [EnvRelease + 1]EnvSegment
	sustainLvl float64

	stage     EnvStage
	value     float64 // current linear amplitude value
	remaining int     // samples left in the current segment
}

// SetData configures all six segments. sustainLevel is linear [0,1].
func (e *Envelope) SetData(delay, attack, hold, decay EnvSegment, sustainLevel float64, release EnvSegment) {
	e.segments[EnvDelay] = delay
	e.segments[EnvAttack] = attack
	e.segments[EnvHold] = hold
	e.segments[EnvDecay] = decay
	e.segments[EnvRelease] = release
	e.sustainLvl = sustainLevel
}

// Start resets the envelope to the delay stage (or attack if delay has no
// samples), value 0.
func (e *Envelope) Start() {
	e.value = 0
	e.enterStage(EnvDelay)
}

func (e *Envelope) enterStage(stage EnvStage) {
	e.stage = stage
	if stage > EnvRelease {
		return
	}
	e.remaining = e.segments[stage].Samples
	// Zero-length stages are skipped, but never past sustain: sustain
	// has no sample count and holds until Release() is called.
	for e.remaining == 0 && e.stage < EnvSustain {
		e.stage++
		e.remaining = e.segments[e.stage].Samples
	}
}

// Release forces an immediate transition into the release segment,
// preserving the current value as the release starting point (used for
// note-off and for voice-stealing fade-outs).
func (e *Envelope) Release() {
	e.enterStage(EnvRelease)
}

// Retrigger jumps back into the attack segment without resetting the
// current value, so a legato retrigger ramps from wherever the envelope
// was instead of stepping down to zero.
func (e *Envelope) Retrigger() {
	e.stage = EnvAttack
	e.remaining = e.segments[EnvAttack].Samples
	if e.remaining == 0 {
		e.enterStage(EnvHold)
	}
}

// FastRelease switches into the release stage with a short fixed-length
// fade (used by voice stealing to avoid clicks). It overwrites the release
// segment's increment so the fade reaches zero after samples; the
// segment's configured length is left unchanged.
func (e *Envelope) FastRelease(samples int) {
	e.stage = EnvRelease
	e.remaining = samples
	if samples > 0 {
		e.segments[EnvRelease].Increment = -e.value / float64(samples)
	}
}

// Stage returns the current envelope stage.
func (e *Envelope) Stage() EnvStage { return e.stage }

// Done reports whether the envelope has completed its release segment.
func (e *Envelope) Done() bool { return e.stage == EnvDone }

// Step advances the envelope by one sample and returns the current linear
// amplitude value.
func (e *Envelope) Step() float64 {
	switch e.stage {
	case EnvDelay:
		e.value = 0
	case EnvAttack:
		e.value += e.segments[EnvAttack].Increment
		if e.value > 1 {
			e.value = 1
		}
	case EnvHold:
		e.value = 1
	case EnvDecay:
		e.value += e.segments[EnvDecay].Increment
		if e.value < e.sustainLvl {
			e.value = e.sustainLvl
		}
	case EnvSustain:
		e.value = e.sustainLvl
	case EnvRelease:
		e.value += e.segments[EnvRelease].Increment
		if e.value < 0 {
			e.value = 0
		}
	case EnvDone:
		e.value = 0
		return 0
	}

	if e.stage != EnvSustain && e.stage <= EnvRelease {
		e.remaining--
		if e.remaining <= 0 {
			switch {
			case e.stage == EnvRelease:
				e.stage = EnvDone
			case e.stage == EnvDecay && e.value <= 0:
				// Decayed all the way to silence: nothing left to sustain.
				e.stage = EnvDone
			default:
				e.enterStage(e.stage + 1)
			}
		}
	}
	return e.value
}
