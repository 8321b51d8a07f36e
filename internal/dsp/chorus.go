package dsp

import "math"

// Chorus safety-clamp constants.
const (
	MaxChorusLines = 99
	MaxDelayMs     = 100.0
	MaxDepthMs     = 10.0
	MinSpeedHz     = 0.29
	MaxSpeedHz     = 5.0
)

// ChorusWaveform selects the modulation shape for a chorus line.
type ChorusWaveform int

const (
	ChorusSine ChorusWaveform = iota
	ChorusTriangle
)

// Chorus implements N parallel modulated delay lines with first-order
// all-pass fractional-delay interpolation, summed and mixed equally
// into both output channels.
type Chorus struct {
	lines      []chorusLine
	active     int // lines currently in use; capacity stays allocated
	level      float64
	sampleRate int
}

type chorusLine struct {
	buf       []float32
	pos       int
	size      int
	centerPos float64
	depth     float64 // modulation depth in samples
	phaseIncr float64 // radians/sample or cycles/sample depending on wave
	phase     float64
	wave      ChorusWaveform
	apState   float32 // first-order all-pass history
}

// NewChorus builds a chorus unit with n lines, each centered at
// MaxDelayMs/2 with modulation depthMs at speedHz, clamped to the
// safety envelope.
func NewChorus(sampleRate int, n int, level, speedHz, depthMs float64, wave ChorusWaveform) *Chorus {
	if n < 0 {
		n = 0
	}
	if n > MaxChorusLines {
		n = MaxChorusLines
	}
	if speedHz < MinSpeedHz {
		speedHz = MinSpeedHz
	}
	if speedHz > MaxSpeedHz {
		speedHz = MaxSpeedHz
	}
	if depthMs > MaxDepthMs {
		depthMs = MaxDepthMs
	}
	if level < 0 {
		level = 0
	}
	if level > 10 {
		level = 10
	}

	c := &Chorus{level: level, sampleRate: sampleRate, active: n}
	baseMs := MaxDelayMs / 2
	baseSamples := baseMs * float64(sampleRate) / 1000.0
	maxDepthSamples := MaxDepthMs * float64(sampleRate) / 1000.0
	if maxDepthSamples > baseSamples {
		maxDepthSamples = baseSamples
	}

	// Lines are allocated once, sized for the deepest legal modulation, so
	// later SetParams calls from the render thread never allocate.
	lines := make([]chorusLine, n)
	for i := range lines {
		size := int(baseSamples+maxDepthSamples) + 2
		if size < 4 {
			size = 4
		}
		lines[i] = chorusLine{
			buf:       make([]float32, size),
			size:      size,
			centerPos: baseSamples,
		}
	}
	c.lines = lines
	c.retune(n, level, speedHz, depthMs, wave)
	return c
}

// SetParams retunes the unit in place: line count (up to the allocated
// capacity), level, speed, depth and waveform, with the same safety
// clamps as NewChorus. Safe to call between render blocks; no allocation.
func (c *Chorus) SetParams(n int, level, speedHz, depthMs float64, wave ChorusWaveform) {
	if n < 0 {
		n = 0
	}
	if n > len(c.lines) {
		n = len(c.lines)
	}
	if speedHz < MinSpeedHz {
		speedHz = MinSpeedHz
	}
	if speedHz > MaxSpeedHz {
		speedHz = MaxSpeedHz
	}
	if depthMs > MaxDepthMs {
		depthMs = MaxDepthMs
	}
	if depthMs < 0 {
		depthMs = 0
	}
	if level < 0 {
		level = 0
	}
	if level > 10 {
		level = 10
	}
	c.retune(n, level, speedHz, depthMs, wave)
}

func (c *Chorus) retune(n int, level, speedHz, depthMs float64, wave ChorusWaveform) {
	c.active = n
	c.level = level
	depthSamples := depthMs * float64(c.sampleRate) / 1000.0
	for i := range c.lines {
		line := &c.lines[i]
		maxDepth := float64(line.size) - line.centerPos - 2
		line.depth = depthSamples
		if line.depth > maxDepth {
			line.depth = maxDepth
		}
		line.wave = wave
		if wave == ChorusTriangle {
			line.phase = float64(i) / float64(maxInt(n, 1))
			line.phaseIncr = speedHz / float64(c.sampleRate)
		} else {
			line.phase = 2 * math.Pi * float64(i) / float64(maxInt(n, 1))
			line.phaseIncr = 2 * math.Pi * speedHz / float64(c.sampleRate)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (l *chorusLine) modulate() float64 {
	switch l.wave {
	case ChorusTriangle:
		p := l.phase
		for p >= 1 {
			p -= 1
		}
		var tri float64
		if p < 0.5 {
			tri = 4*p - 1
		} else {
			tri = 3 - 4*p
		}
		l.phase += l.phaseIncr
		return tri
	default:
		s := math.Sin(l.phase)
		l.phase += l.phaseIncr
		if l.phase > 2*math.Pi {
			l.phase -= 2 * math.Pi
		}
		return s
	}
}

func (l *chorusLine) process(in float32) float32 {
	mod := l.modulate() * l.depth
	readPos := float64(l.pos) - l.centerPos - mod
	for readPos < 0 {
		readPos += float64(l.size)
	}
	idx := int(readPos)
	frac := float32(readPos - float64(idx))
	idx2 := idx + 1
	if idx2 >= l.size {
		idx2 = 0
	}
	// First-order all-pass fractional delay: y = x1 + frac*(x0 - y_prev).
	x0 := l.buf[idx]
	x1 := l.buf[idx2]
	out := x1 + frac*(x0-l.apState)
	l.apState = out

	l.buf[l.pos] = in
	l.pos++
	if l.pos >= l.size {
		l.pos = 0
	}
	return out
}

// Process mixes the dry signal with the summed, level-scaled chorus lines
// equally into L and R.
func (c *Chorus) Process(l, r float32) (float32, float32) {
	if c.active == 0 {
		return l, r
	}
	mono := (l + r) * 0.5
	var sum float32
	for i := range c.lines[:c.active] {
		sum += c.lines[i].process(mono)
	}
	wet := sum * float32(c.level) / float32(c.active)
	return l + wet, r + wet
}

func (c *Chorus) Reset() {
	for i := range c.lines {
		for j := range c.lines[i].buf {
			c.lines[i].buf[j] = 0
		}
		c.lines[i].pos = 0
		c.lines[i].apState = 0
	}
}
