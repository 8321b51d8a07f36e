package mixer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-synth/fluidcore/internal/dsp"
	"github.com/go-synth/fluidcore/internal/ring"
	"github.com/go-synth/fluidcore/internal/rvoice"
	"github.com/go-synth/fluidcore/internal/sfont"
)

const testRate = 44100

func sineSample() *sfont.Sample {
	const frames = 1024
	data := make([]int16, frames)
	for i := range data {
		data[i] = int16(30000 * math.Sin(2*math.Pi*float64(i)/64))
	}
	return &sfont.Sample{
		Name:          "sine",
		Data16:        data,
		SampleRate:    testRate,
		FrameCount:    frames,
		LoopStart:     0,
		LoopEnd:       frames,
		OriginalPitch: 69,
	}
}

func sustainedParams() rvoice.StartParams {
	return rvoice.StartParams{
		RootPitchHz:     440,
		FilterFcCents:   13500,
		VolAttack:       dsp.EnvSegment{Samples: 32, Increment: 1.0 / 32},
		VolHold:         dsp.EnvSegment{Samples: 1 << 30},
		VolSustainLevel: 1,
		VolRelease:      dsp.EnvSegment{Samples: 64, Increment: -1.0 / 64},
		ModSustainLevel: 1,
		SampleMode:      rvoice.SampleModeLoopUntilRelease,
		InterpOrder:     dsp.InterpLinear,
		ReverbSend:      0.5,
		ChorusSend:      0.0,
	}
}

func testMixer(ringSize int) (*Mixer, *ring.EventRing, *ring.FinishedVoiceRing) {
	events := ring.NewEventRing(ringSize)
	done := ring.NewFinishedVoiceRing(ringSize)
	m := New(Config{
		SampleRate: testRate,
		DryBuses:   1,
		MaxVoices:  16,
		Gain:       1,
		ReverbOn:   true,
		Reverb:     ring.ReverbParams{RoomSize: 0.2, Damping: 0, Width: 0.5, Level: 0.9},
		Chorus:     ring.ChorusParams{Voices: 3, Level: 2, Speed: 0.3, DepthMs: 8},
	}, events, done)
	return m, events, done
}

func renderFrames(m *Mixer, frames int) ([]float32, []float32) {
	l := make([]float32, frames)
	r := make([]float32, frames)
	m.Render([][]float32{l, r}, frames)
	return l, r
}

func rms(buf []float32) float64 {
	var sum float64
	for _, v := range buf {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(buf)))
}

func TestAddVoiceEventProducesAudio(t *testing.T) {
	m, events, _ := testMixer(16)
	v := &rvoice.Voice{}
	require.True(t, events.Push(ring.Event{
		Method:   ring.MethodAddVoice,
		Voice:    v,
		IntParam: ring.PackNote(0, 69, 100),
		Start:    sustainedParams(),
		Sample:   sineSample(),
	}))

	l, r := renderFrames(m, 512)
	assert.Greater(t, rms(l), 0.001)
	assert.Greater(t, rms(r), 0.001)
	assert.Equal(t, 1, m.ActiveVoices())
}

func TestFinishedVoiceIsReportedAndRemoved(t *testing.T) {
	m, events, done := testMixer(16)
	v := &rvoice.Voice{}
	events.Push(ring.Event{
		Method:   ring.MethodAddVoice,
		Voice:    v,
		IntParam: ring.PackNote(0, 69, 100),
		Start:    sustainedParams(),
		Sample:   sineSample(),
	})
	renderFrames(m, 128)
	events.Push(ring.Event{Method: ring.MethodNoteOff, Voice: v})
	renderFrames(m, 1024)

	assert.Equal(t, 0, m.ActiveVoices())
	got := done.Drain()
	require.Len(t, got, 1)
	assert.Same(t, v, got[0])
}

func TestEventsDrainBeforeSamplesWithinBlock(t *testing.T) {
	m, events, _ := testMixer(16)
	v := &rvoice.Voice{}
	events.Push(ring.Event{
		Method:   ring.MethodAddVoice,
		Voice:    v,
		IntParam: ring.PackNote(0, 69, 100),
		Start:    sustainedParams(),
		Sample:   sineSample(),
	})
	// One block is enough: the add-voice drained at block start must be
	// audible inside the same block (after the attack ramp).
	l, _ := renderFrames(m, BlockSize)
	assert.Greater(t, rms(l[32:]), 0.0)
	assert.NotZero(t, rms(l))
}

func TestReverbParameterEventChangesWetOutput(t *testing.T) {
	runWith := func(level float64) []float32 {
		m, events, _ := testMixer(16)
		events.Push(ring.Event{
			Method: ring.MethodMixerSetReverbParams,
			Reverb: ring.ReverbParams{RoomSize: 0.8, Damping: 0, Width: 1, Level: level},
		})
		v := &rvoice.Voice{}
		events.Push(ring.Event{
			Method:   ring.MethodAddVoice,
			Voice:    v,
			IntParam: ring.PackNote(0, 69, 100),
			Start:    sustainedParams(),
			Sample:   sineSample(),
		})
		l, _ := renderFrames(m, 8192)
		return l
	}
	dry, withWet := runWith(0.0), runWith(1.0)
	// The wet signal adds to the dry one with arbitrary phase, so the mix
	// is not necessarily louder; the difference between the two runs is
	// the reverb's wet output, which must be clearly present.
	diff := make([]float32, len(dry))
	for i := range dry {
		diff[i] = withWet[i] - dry[i]
	}
	assert.Greater(t, rms(diff), 0.01)
}

func TestGainEventScalesOutput(t *testing.T) {
	m, events, _ := testMixer(16)
	v := &rvoice.Voice{}
	events.Push(ring.Event{
		Method:   ring.MethodAddVoice,
		Voice:    v,
		IntParam: ring.PackNote(0, 69, 100),
		Start:    sustainedParams(),
		Sample:   sineSample(),
	})
	renderFrames(m, 256)
	loud, _ := renderFrames(m, 256)

	events.Push(ring.Event{Method: ring.MethodMixerSetGain, Real: [5]float64{0.1}})
	quiet, _ := renderFrames(m, 256)
	assert.Less(t, rms(quiet), rms(loud)*0.5)
}

func TestParallelRenderMatchesVoiceCount(t *testing.T) {
	events := ring.NewEventRing(32)
	done := ring.NewFinishedVoiceRing(32)
	m := New(Config{
		SampleRate: testRate,
		DryBuses:   1,
		MaxVoices:  16,
		Workers:    4,
		Gain:       1,
	}, events, done)

	for i := 0; i < 6; i++ {
		events.Push(ring.Event{
			Method:   ring.MethodAddVoice,
			Voice:    &rvoice.Voice{},
			IntParam: ring.PackNote(0, 60+i, 100),
			Start:    sustainedParams(),
			Sample:   sineSample(),
		})
	}
	l, _ := renderFrames(m, 512)
	assert.Equal(t, 6, m.ActiveVoices())
	assert.Greater(t, rms(l), 0.001)
}
