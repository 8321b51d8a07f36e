package rvoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-synth/fluidcore/internal/dsp"
	"github.com/go-synth/fluidcore/internal/sfont"
)

func sineSample(n int, freq, sampleRate float64) *sfont.Sample {
	data := make([]int16, n)
	for i := range data {
		data[i] = int16(8000)
	}
	return &sfont.Sample{
		Name:          "test",
		Data16:        data,
		SampleRate:    int(sampleRate),
		LoopStart:     0,
		LoopEnd:       n,
		FrameCount:    n,
		OriginalPitch: 69,
	}
}

func TestVoiceRenderProducesNonZeroOutputThroughAttack(t *testing.T) {
	s := sineSample(4410, 440, 44100)
	v := &Voice{}
	params := StartParams{
		RootPitchHz:     440,
		VolAttack:       dsp.EnvSegment{Samples: 100, Increment: 0.01},
		VolHold:         dsp.EnvSegment{Samples: 100},
		VolDecay:        dsp.EnvSegment{Samples: 100, Increment: -0.01},
		VolSustainLevel: 0.5,
		VolRelease:      dsp.EnvSegment{Samples: 200, Increment: -0.0025},
		InterpOrder:     dsp.InterpLinear,
		SampleMode:      SampleModeLoopUntilRelease,
		FilterFcCents:   13500,
		FilterQdB:       0,
	}
	v.Start(s, 0, 69, 100, params, 44100)

	out := make([]BusOutput, 50)
	n := v.Render(out)
	require.Equal(t, 50, n)

	var nonZero bool
	for _, b := range out {
		if b.DryL != 0 || b.DryR != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero, "expected nonzero output during attack")
}

func TestVoiceReleaseReachesFinished(t *testing.T) {
	s := sineSample(4410, 440, 44100)
	v := &Voice{}
	params := StartParams{
		RootPitchHz:     440,
		VolAttack:       dsp.EnvSegment{Samples: 1, Increment: 1},
		VolSustainLevel: 1,
		VolRelease:      dsp.EnvSegment{Samples: 10, Increment: -0.1},
		InterpOrder:     dsp.InterpLinear,
		SampleMode:      SampleModeLoopUntilRelease,
	}
	v.Start(s, 0, 69, 100, params, 44100)
	v.Release()

	out := make([]BusOutput, 200)
	total := 0
	for total < len(out) && !v.Finished() {
		n := v.Render(out[total:])
		total += n
		if n == 0 {
			break
		}
	}
	assert.True(t, v.Finished())
}

func TestVoiceNoLoopStopsAtSampleEnd(t *testing.T) {
	s := sineSample(100, 440, 44100)
	s.LoopStart, s.LoopEnd = 0, 0
	v := &Voice{}
	params := StartParams{
		RootPitchHz:     440,
		VolSustainLevel: 1,
		InterpOrder:     dsp.InterpNone,
		SampleMode:      SampleModeNoLoop,
	}
	v.Start(s, 0, 69, 100, params, 44100)

	out := make([]BusOutput, 1000)
	n := v.Render(out)
	assert.Less(t, n, 1000, "voice should stop once it runs off the end of a 100-frame non-looping sample")
}

func TestVoiceInRangeForZone(t *testing.T) {
	v := &Voice{}
	v.SetZone(ZoneRange{KeyLo: 60, KeyHi: 72, VelLo: 0, VelHi: 127})
	assert.True(t, v.InRangeFor(64, 100))
	assert.False(t, v.InRangeFor(80, 100))
}
