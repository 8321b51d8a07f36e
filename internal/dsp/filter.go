package dsp

import "math"

// FilterType selects the biquad response.
type FilterType int

const (
	FilterLowpass FilterType = iota
	FilterHighpass
)

// denormalFloor is the denormal-flush threshold.
const denormalFloor = 1e-20

// fresRecalcThreshold is the cutoff change below which coefficients
// are not re-derived.
const fresRecalcThreshold = 0.01

// Filter implements a Direct Form II biquad with smooth coefficient
// transitions: when SetFres re-derives coefficients (fres moved by more
// than fresRecalcThreshold, or Q changed since the last derivation), the
// new coefficients are not applied instantaneously but ramped in
// linearly over the caller-supplied transition length, with a
// history-rescale ("compensate_incr") when the transition would otherwise
// produce an audible gain jump.
type Filter struct {
	kind FilterType

	outputRate float64
	lastFres   float64
	fres       float64
	qLinear    float64
	noGainAmp  bool

	b0, b1, b2 float64
	a1, a2     float64

	b0Inc, b1Inc, b2Inc float64
	a1Inc, a2Inc        float64
	incrCount           int

	hist1, hist2 float64

	startup bool
}

// NewFilter creates a filter in its startup state: the first call to
// Calculate sets coefficients directly rather than ramping.
func NewFilter(kind FilterType, outputRate float64) *Filter {
	return &Filter{
		kind:       kind,
		outputRate: outputRate,
		qLinear:    1,
		startup:    true,
	}
}

// Reset zeroes the filter history and forces the next Calculate to apply
// coefficients immediately.
func (f *Filter) Reset() {
	f.hist1 = 0
	f.hist2 = 0
	f.startup = true
}

// SetQdB sets resonance from a dB value, converting to linear Q.
func (f *Filter) SetQdB(qDB float64) {
	f.qLinear = math.Pow(10, qDB/20)
	f.SetQLinear(f.qLinear)
}

// SetQLinear sets resonance directly in linear units, clamped to a floor
// of 0.001. The matching gain compensation factor (1/Q if Q<=1, else
// 1/sqrt(Q), per SF2 gain-compensation convention) is applied when the
// coefficients are next derived, which the next SetFres call does.
func (f *Filter) SetQLinear(q float64) {
	if q < 0.001 {
		q = 0.001
	}
	f.qLinear = q
	// Force the next SetFres to re-derive coefficients with the new Q.
	f.lastFres = math.Inf(-1)
}

func (f *Filter) gainCompensation() float64 {
	if f.qLinear <= 1 {
		return 1 / f.qLinear
	}
	return 1 / math.Sqrt(f.qLinear)
}

// SetNoGainAmp disables the 1/sqrt(Q) feedforward gain compensation.
func (f *Filter) SetNoGainAmp(v bool) { f.noGainAmp = v }

// SetFres sets the target cutoff in Hz, clamped to [5, 0.45*outputRate].
// Coefficients are only re-derived if fres changed by more than 0.01 Hz
// since the last recalculation, and transition_samples is supplied by the
// caller (typically one render block's worth of samples).
func (f *Filter) SetFres(fresHz float64, transitionSamples int) {
	lo := 5.0
	hi := 0.45 * f.outputRate
	if fresHz < lo {
		fresHz = lo
	}
	if fresHz > hi {
		fresHz = hi
	}
	f.fres = fresHz
	if math.Abs(f.fres-f.lastFres) > fresRecalcThreshold {
		f.lastFres = f.fres
		f.calculateCoefficients(transitionSamples)
	}
}

// Bypassed reports whether Q has dropped low enough that the filter should
// be skipped entirely (linear passthrough). The threshold is inclusive:
// SetQLinear clamps to the same floor, so a strict compare would make
// the bypass unreachable.
func (f *Filter) Bypassed() bool {
	return f.qLinear <= 1e-3
}

// calculateCoefficients derives the RBJ cookbook biquad coefficients for
// the current fres/Q and either applies them immediately (startup, or
// transitionSamples<=0) or ramps toward them over transitionSamples,
// rescaling filter history if the gain jump between old and new b0 would
// otherwise be audible (the "compensate_incr" branch).
func (f *Filter) calculateCoefficients(transitionSamples int) {
	omega := 2 * math.Pi * f.fres / f.outputRate
	sn := math.Sin(omega)
	cs := math.Cos(omega)
	alpha := sn / (2 * f.qLinear)
	a0Inv := 1 / (1 + alpha)

	a1 := -2 * cs * a0Inv
	a2 := (1 - alpha) * a0Inv

	var b0, b1, b2 float64
	switch f.kind {
	case FilterHighpass:
		b1 = -(1 + cs) * a0Inv
		b0 = -b1 / 2
		b2 = b0
	default: // lowpass
		b1 = (1 - cs) * a0Inv
		b0 = b1 / 2
		b2 = b0
	}

	if !f.noGainAmp {
		gain := f.gainCompensation()
		b0 *= gain
		b1 *= gain
		b2 *= gain
	}

	if f.startup || transitionSamples <= 0 {
		f.b0, f.b1, f.b2 = b0, b1, b2
		f.a1, f.a2 = a1, a2
		f.incrCount = 0
		f.startup = false
		return
	}

	oldB0 := f.b0
	f.b0Inc = (b0 - f.b0) / float64(transitionSamples)
	f.b1Inc = (b1 - f.b1) / float64(transitionSamples)
	f.b2Inc = (b2 - f.b2) / float64(transitionSamples)
	f.a1Inc = (a1 - f.a1) / float64(transitionSamples)
	f.a2Inc = (a2 - f.a2) / float64(transitionSamples)
	f.incrCount = transitionSamples

	if oldB0 != 0 {
		ratio := b0 / oldB0
		if ratio < 0.5 || ratio > 2 {
			// Rescale history so the step doesn't produce an audible jump
			// once the new coefficients take hold.
			scale := math.Sqrt(math.Abs(ratio))
			f.hist1 *= scale
			f.hist2 *= scale
		}
	}
}

// Apply filters a block of samples in place, advancing any in-progress
// coefficient transition one sample at a time. A bypassed filter
// passes the block through untouched.
func (f *Filter) Apply(buf []float32) {
	if f.Bypassed() {
		return
	}
	for i := range buf {
		if f.incrCount > 0 {
			f.b0 += f.b0Inc
			f.b1 += f.b1Inc
			f.b2 += f.b2Inc
			f.a1 += f.a1Inc
			f.a2 += f.a2Inc
			f.incrCount--
		}

		centernode := float64(buf[i]) - f.a1*f.hist1 - f.a2*f.hist2
		if math.Abs(centernode) < denormalFloor {
			centernode = 0
		}
		out := f.b0*centernode + f.b1*f.hist1 + f.b2*f.hist2
		f.hist2 = f.hist1
		f.hist1 = centernode
		buf[i] = float32(out)
	}
}
