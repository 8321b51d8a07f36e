package dsp

// Reverb implements a Schroeder/Freeverb-style topology: four parallel comb
// filters feeding two cascaded allpass filters, with roomsize, damping,
// width and level parameters all clamped to [0,1]. Damping is a
// per-comb one-pole lowpass in the feedback path; width decorrelates
// the stereo image by spreading the combs' contributions between L/R.
type Reverb struct {
	combs    [4]comb
	allpassL [2]allpass
	allpassR [2]allpass

	roomsize float64
	damping  float64
	width    float64
	level    float64
}

type comb struct {
	buf         []float32
	pos         int
	feedback    float32
	damp1       float32
	damp2       float32
	filterStore float32
}

type allpass struct {
	buf []float32
	pos int
	fb  float32
}

var combLenRatios = [4]float64{1.0, 1.117, 1.271, 1.437}
var allpassLenRatios = [2]float64{0.347, 0.213}

// NewReverb creates a reverb unit at the given sample rate with all
// parameters clamped into [0,1]. Delay buffers are allocated once at
// their roomsize=1 maximum so later SetParams calls from the render
// thread only re-slice, never allocate.
func NewReverb(sampleRate int, roomsize, damping, width, level float64) *Reverb {
	r := &Reverb{}
	r.SetParams(sampleRate, 1, damping, width, level)
	r.SetParams(sampleRate, roomsize, damping, width, level)
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SetParams reconfigures the unit; reached from the control thread via
// a mixer parameter event.
func (r *Reverb) SetParams(sampleRate int, roomsize, damping, width, level float64) {
	r.roomsize = clamp01(roomsize)
	r.damping = clamp01(damping)
	r.width = clamp01(width)
	r.level = clamp01(level)

	base := float64(sampleRate) * (0.01 + r.roomsize*0.04)
	if base < 10 {
		base = 10
	}
	fb := float32(0.28 + r.roomsize*0.7)
	dampCoeff := float32(r.damping * 0.4)

	for i := range r.combs {
		length := int(base * combLenRatios[i])
		r.combs[i] = comb{
			buf:      resizeLine(r.combs[i].buf, length),
			feedback: fb,
			damp1:    dampCoeff,
			damp2:    1 - dampCoeff,
		}
	}
	for i := range r.allpassL {
		length := int(base * allpassLenRatios[i])
		if length < 1 {
			length = 1
		}
		r.allpassL[i] = allpass{buf: resizeLine(r.allpassL[i].buf, length), fb: 0.5}
		r.allpassR[i] = allpass{buf: resizeLine(r.allpassR[i].buf, length), fb: 0.5}
	}
}

// resizeLine returns a zeroed delay line of the requested length,
// reusing buf's backing array when it is already big enough.
func resizeLine(buf []float32, length int) []float32 {
	if cap(buf) < length {
		return make([]float32, length)
	}
	buf = buf[:length]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (c *comb) process(in float32) float32 {
	out := c.buf[c.pos]
	c.filterStore = out*c.damp2 + c.filterStore*c.damp1
	c.buf[c.pos] = in + c.filterStore*c.feedback
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpass) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

// Process runs one stereo sample through the reverb, mixing the wet signal
// back with the input at the configured level. Width spreads the combs'
// contribution unevenly between L/R to decorrelate the stereo image.
func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	mono := (l + r2) * 0.5
	var outL, outR float32
	for i := range r.combs {
		v := r.combs[i].process(mono)
		wL := float32(0.5 + r.width*0.5*float64(boolSign(i%2 == 0)))
		outL += v * wL
		outR += v * (1 - wL)
	}
	outL *= 0.25
	outR *= 0.25
	for i := range r.allpassL {
		outL = r.allpassL[i].process(outL)
	}
	for i := range r.allpassR {
		outR = r.allpassR[i].process(outR)
	}
	wet := float32(r.level)
	return l + outL*wet, r2 + outR*wet
}

func boolSign(b bool) float32 {
	if b {
		return 1
	}
	return -1
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		for j := range r.combs[i].buf {
			r.combs[i].buf[j] = 0
		}
		r.combs[i].pos = 0
		r.combs[i].filterStore = 0
	}
	for i := range r.allpassL {
		for j := range r.allpassL[i].buf {
			r.allpassL[i].buf[j] = 0
		}
		r.allpassL[i].pos = 0
	}
	for i := range r.allpassR {
		for j := range r.allpassR[i].buf {
			r.allpassR[i].buf[j] = 0
		}
		r.allpassR[i].pos = 0
	}
}
