package dsp

// LFO is a triangular low-frequency oscillator with a pre-oscillation
// delay phase, used for both modLFO and vibLFO.
type LFO struct {
	delaySamples int
	incrPerSamp  float64 // phase increment per sample, in cycles
	phase        float64 // [0,1)
	delayLeft    int
}

// Set configures the delay (samples before oscillation starts) and rate.
func (l *LFO) Set(delaySamples int, rateHz, sampleRate float64) {
	l.delaySamples = delaySamples
	l.delayLeft = delaySamples
	if sampleRate > 0 {
		l.incrPerSamp = rateHz / sampleRate
	}
}

// Reset restarts the delay countdown and zeroes phase.
func (l *LFO) Reset() {
	l.phase = 0
	l.delayLeft = l.delaySamples
}

// Step advances the LFO by one sample and returns a value in [-1,+1]; 0
// while still within the delay phase.
func (l *LFO) Step() float64 {
	if l.delayLeft > 0 {
		l.delayLeft--
		return 0
	}
	var val float64
	if l.phase < 0.5 {
		val = 4*l.phase - 1
	} else {
		val = 3 - 4*l.phase
	}
	l.phase += l.incrPerSamp
	for l.phase >= 1 {
		l.phase -= 1
	}
	return val
}
