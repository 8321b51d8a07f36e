package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearCoeffsSumToOne(t *testing.T) {
	for i := 0; i < InterpMax; i++ {
		c0, c1 := LinearCoeffs(i)
		assert.InDelta(t, 1.0, c0+c1, 1e-9, "phase %d", i)
	}
}

func TestCubicCoeffsSumToOneWithinTolerance(t *testing.T) {
	for i := 0; i < InterpMax; i++ {
		c0, c1, c2, c3 := CubicCoeffs(i)
		assert.InDelta(t, 1.0, c0+c1+c2+c3, 1e-6, "phase %d", i)
	}
}

func TestSincSingularityIsOne(t *testing.T) {
	require.InDelta(t, 1.0, sincWindowed(0), 1e-12)
}

func TestEnvelopeProducesOutputThroughAttack(t *testing.T) {
	var e Envelope
	e.SetData(
		EnvSegment{Samples: 0},
		EnvSegment{Samples: 100, Increment: 0.01},
		EnvSegment{Samples: 0},
		EnvSegment{Samples: 100, Increment: -0.005},
		0.5,
		EnvSegment{Samples: 200, Increment: -0.0025},
	)
	e.Start()
	for i := 0; i < 50; i++ {
		v := e.Step()
		if i > 0 {
			assert.Greater(t, v, 0.0)
		}
	}
}

func TestEnvelopeReleaseReachesDone(t *testing.T) {
	var e Envelope
	e.SetData(
		EnvSegment{}, EnvSegment{Samples: 10, Increment: 0.1}, EnvSegment{},
		EnvSegment{Samples: 10, Increment: -0.05}, 0.5,
		EnvSegment{Samples: 10, Increment: -0.05},
	)
	e.Start()
	for i := 0; i < 10; i++ {
		e.Step()
	}
	e.Release()
	for i := 0; i < 50 && !e.Done(); i++ {
		e.Step()
	}
	assert.True(t, e.Done())
}

func TestFilterBypassedBelowMinQ(t *testing.T) {
	f := NewFilter(FilterLowpass, 44100)
	f.SetQLinear(0.0001)
	assert.True(t, f.Bypassed())
}

func TestFilterAppliesWithoutPanicking(t *testing.T) {
	f := NewFilter(FilterLowpass, 44100)
	f.SetFres(1000, 64)
	buf := make([]float32, 64)
	for i := range buf {
		buf[i] = 1
	}
	f.Apply(buf)
	for _, v := range buf {
		assert.False(t, isNaNf32(v))
	}
}

func isNaNf32(v float32) bool {
	return v != v
}

func TestChorusClampsSafetyEnvelope(t *testing.T) {
	c := NewChorus(44100, 200, 20, 100, 1000, ChorusSine)
	assert.LessOrEqual(t, len(c.lines), MaxChorusLines)
}

func TestReverbParamsClamp(t *testing.T) {
	r := NewReverb(44100, 2.0, -1.0, 0.5, 5.0)
	assert.Equal(t, 1.0, r.roomsize)
	assert.Equal(t, 0.0, r.damping)
	assert.Equal(t, 1.0, r.level)
}
