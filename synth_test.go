package fluidcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-synth/fluidcore/internal/sfont"
)

// sineFont builds an in-memory soundfont with one looping sine preset
// per requested (bank, program) location: 30000-amplitude sine, one
// cycle per ~100.23 frames at 44100 Hz recorded at key 69, so key 69
// plays ~440 Hz once the engine retunes it.
func sineFont(locs ...[2]int) *sfont.SoundFont {
	const frames = 8820 // 88 cycles of a 440 Hz sine at 44100
	data := make([]int16, frames)
	for i := range data {
		data[i] = int16(30000 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	sample := sfont.Sample{
		Name:          "sine440",
		Data16:        data,
		SampleRate:    44100,
		LoopStart:     0,
		LoopEnd:       frames,
		FrameCount:    frames,
		OriginalPitch: 69,
	}

	gens := sfont.DefaultGenerators()
	gens[sfont.GenSampleID] = 0
	gens[sfont.GenSampleModes] = sfont.SampleModeLoopUntilRelease
	gens[sfont.GenAttackVolEnv] = -7000  // ~0.017 s
	gens[sfont.GenReleaseVolEnv] = -3986 // ~0.1 s
	var set [sfont.GenCount]bool
	set[sfont.GenSampleID] = true
	set[sfont.GenSampleModes] = true
	set[sfont.GenAttackVolEnv] = true
	set[sfont.GenReleaseVolEnv] = true

	instZone := sfont.Zone{Gens: gens, GensSet: set, SampleIdx: 0, InstrumentIdx: -1}
	presetZone := sfont.Zone{Gens: sfont.DefaultGenerators(), InstrumentIdx: 0, SampleIdx: -1}

	font := &sfont.SoundFont{
		Name:        "test",
		Samples:     []sfont.Sample{sample},
		Instruments: []sfont.Instrument{{Name: "sine", Zones: []sfont.Zone{instZone}}},
	}
	for _, loc := range locs {
		font.Presets = append(font.Presets, sfont.Preset{
			Name: "sine", Bank: loc[0], Program: loc[1],
			Zones: []sfont.Zone{presetZone},
		})
	}
	return font
}

func newTestSynth(t *testing.T, tweak func(*Settings), locs ...[2]int) *Synth {
	t.Helper()
	settings := NewSettings()
	require.NoError(t, settings.SetNum("synth.gain", 1.0))
	if tweak != nil {
		tweak(settings)
	}
	s, err := New(settings)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	if len(locs) == 0 {
		locs = [][2]int{{0, 0}}
	}
	s.AddSoundFont(sineFont(locs...))
	return s
}

func render(t *testing.T, s *Synth, frames int) ([]float32, []float32) {
	t.Helper()
	l := make([]float32, frames)
	r := make([]float32, frames)
	require.NoError(t, s.Process(frames, [][]float32{l, r}))
	return l, r
}

func rms(buf []float32) float64 {
	var sum float64
	for _, v := range buf {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(buf)))
}

func zeroCrossings(buf []float32) int {
	n := 0
	for i := 1; i < len(buf); i++ {
		if (buf[i-1] < 0) != (buf[i] < 0) {
			n++
		}
	}
	return n
}

func TestSinePingFrequencyAndRelease(t *testing.T) {
	s := newTestSynth(t, nil)
	require.NoError(t, s.NoteOn(0, 69, 127))

	l, r := render(t, s, 44100)

	// Skip the attack, then expect ~440 Hz in both channels: two zero
	// crossings per cycle.
	body := l[4410:]
	cycles := float64(zeroCrossings(body)) / 2.0
	seconds := float64(len(body)) / 44100.0
	assert.InDelta(t, 440.0, cycles/seconds, 5.0)
	assert.Greater(t, rms(r[4410:]), 0.1)

	sustainRMS := rms(l[22050:])

	require.NoError(t, s.NoteOff(0, 69))
	tail, _ := render(t, s, 22050)

	// Release decays monotonically toward zero, window over window.
	w := 2048
	prev := rms(tail[:w])
	assert.Less(t, prev, sustainRMS+0.01)
	for i := w; i+w <= len(tail); i += w {
		cur := rms(tail[i : i+w])
		assert.LessOrEqual(t, cur, prev+1e-4)
		prev = cur
	}
	assert.Less(t, prev, 0.001)
	assert.Equal(t, 0, s.ActiveVoiceCount())
}

func TestPolyphonyCapStealsByScore(t *testing.T) {
	s := newTestSynth(t, func(st *Settings) {
		require.NoError(t, st.SetInt("synth.polyphony", 8))
	})
	for key := 60; key <= 75; key++ {
		require.NoError(t, s.NoteOn(0, key, 100))
		assert.LessOrEqual(t, s.ActiveVoiceCount(), 8)
	}
	assert.Equal(t, 8, s.ActiveVoiceCount())

	// The displaced voices fade out without a hard cut: no sample jump
	// bigger than the short-release ramp allows.
	l, _ := render(t, s, 8192)
	var maxStep float64
	for i := 1; i < len(l); i++ {
		step := math.Abs(float64(l[i] - l[i-1]))
		if step > maxStep {
			maxStep = step
		}
	}
	assert.Less(t, maxStep, 0.25, "steal fades should not click")
}

func TestMonoLegatoMultiRetriggerKeepsOneVoice(t *testing.T) {
	s := newTestSynth(t, nil)
	require.NoError(t, s.SetBasicChannels([]BasicChannel{{Chan: 0, Mode: ModeOmniOnMono, Span: 1}}))
	require.NoError(t, s.SetLegatoMode(0, LegatoMultiRetrigger))

	require.NoError(t, s.NoteOn(0, 60, 100))
	render(t, s, 2048)
	assert.Equal(t, 1, s.ActiveVoiceCount())

	require.NoError(t, s.NoteOn(0, 64, 100))
	render(t, s, 2048)
	assert.Equal(t, 1, s.ActiveVoiceCount())

	require.NoError(t, s.NoteOff(0, 60))
	render(t, s, 2048)
	assert.Equal(t, 1, s.ActiveVoiceCount())

	require.NoError(t, s.NoteOff(0, 64))
	render(t, s, 44100)
	assert.Equal(t, 0, s.ActiveVoiceCount())
}

func TestRingOverflowFifthNoteFails(t *testing.T) {
	s := newTestSynth(t, func(st *Settings) {
		require.NoError(t, st.SetInt("synth.event-queue-size", 4))
	})
	for key := 60; key < 64; key++ {
		require.NoError(t, s.NoteOn(0, key, 100))
	}
	err := s.NoteOn(0, 64, 100)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindRingOverflow))

	// The first four render normally once the ring drains.
	l, _ := render(t, s, 4096)
	assert.Greater(t, rms(l[2048:]), 0.05)
	assert.Equal(t, 4, s.ActiveVoiceCount())

	// With the ring drained, posting works again.
	require.NoError(t, s.NoteOn(0, 64, 100))
}

func TestReverbHotChangeAffectsNextBlocks(t *testing.T) {
	wetRMS := func(level float64) float64 {
		s := newTestSynth(t, nil)
		require.NoError(t, s.CC(0, 91, 127)) // reverb send via default modulator
		require.NoError(t, s.SetReverb(0.9, 0.0, 0.5, level))
		require.NoError(t, s.NoteOn(0, 69, 127))
		l, _ := render(t, s, 16384)
		return rms(l[8192:])
	}
	assert.Greater(t, wetRMS(1.0), wetRMS(0.0))
}

func TestXGBankSelectUsesLSB(t *testing.T) {
	s := newTestSynth(t, func(st *Settings) {
		require.NoError(t, st.SetStr("synth.midi-bank-select", "xg"))
	}, [2]int{0, 0}, [2]int{3, 5})

	require.NoError(t, s.CC(0, 0, 0))  // MSB, ignored in XG
	require.NoError(t, s.CC(0, 32, 3)) // LSB selects bank 3
	require.NoError(t, s.ProgramChange(0, 5))
	require.NoError(t, s.NoteOn(0, 60, 100))
	assert.Equal(t, 1, s.ActiveVoiceCount())
}

func TestMissingPresetIsSilentButOK(t *testing.T) {
	s := newTestSynth(t, nil)
	require.NoError(t, s.ProgramChange(0, 42)) // nothing at (0,42)
	require.NoError(t, s.NoteOn(0, 60, 100))
	assert.Equal(t, 0, s.ActiveVoiceCount())
}

func TestVelocityZeroNoteOnReleases(t *testing.T) {
	s := newTestSynth(t, nil)
	require.NoError(t, s.NoteOn(0, 69, 100))
	render(t, s, 2048)
	require.NoError(t, s.NoteOn(0, 69, 0))
	render(t, s, 44100)
	assert.Equal(t, 0, s.ActiveVoiceCount())
}

func TestSustainPedalHoldsNotes(t *testing.T) {
	s := newTestSynth(t, nil)
	require.NoError(t, s.CC(0, 64, 127))
	require.NoError(t, s.NoteOn(0, 69, 100))
	render(t, s, 2048)
	require.NoError(t, s.NoteOff(0, 69))
	render(t, s, 22050)
	assert.Equal(t, 1, s.ActiveVoiceCount(), "pedal must hold the voice")

	require.NoError(t, s.CC(0, 64, 0))
	render(t, s, 44100)
	assert.Equal(t, 0, s.ActiveVoiceCount())
}

func TestExclusiveClassCutsPriorVoice(t *testing.T) {
	font := sineFont([2]int{0, 0})
	iz := &font.Instruments[0].Zones[0]
	iz.Gens[sfont.GenExclusiveClass] = 1
	iz.GensSet[sfont.GenExclusiveClass] = true

	settings := NewSettings()
	require.NoError(t, settings.SetNum("synth.gain", 1.0))
	s, err := New(settings)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.AddSoundFont(font)

	require.NoError(t, s.NoteOn(0, 60, 100))
	render(t, s, 2048)
	require.NoError(t, s.NoteOn(0, 62, 100))
	render(t, s, 44100)
	assert.Equal(t, 1, s.ActiveVoiceCount())
}

func TestSystemResetIsIdempotent(t *testing.T) {
	s := newTestSynth(t, nil)
	require.NoError(t, s.SetBasicChannels([]BasicChannel{{Chan: 0, Mode: ModeOmniOnMono, Span: 4}}))
	require.NoError(t, s.NoteOn(0, 60, 100))

	require.NoError(t, s.SystemReset())
	once := s.GetBasicChannels()
	require.NoError(t, s.SystemReset())
	twice := s.GetBasicChannels()
	assert.Equal(t, once, twice)
	render(t, s, 44100)
	assert.Equal(t, 0, s.ActiveVoiceCount())
}

func TestBasicChannelsRoundTrip(t *testing.T) {
	s := newTestSynth(t, nil)
	in := []BasicChannel{
		{Chan: 0, Mode: ModeOmniOnMono, Span: 4},
		{Chan: 4, Mode: ModeOmniOnPoly, Span: 12},
	}
	require.NoError(t, s.SetBasicChannels(in))
	got := s.GetBasicChannels()
	require.Len(t, got, 2)
	assert.Equal(t, in[0], got[0])
	assert.Equal(t, in[1], got[1])
}

func TestTickDrainsDueEventsOnce(t *testing.T) {
	s := newTestSynth(t, nil)
	s.ScheduleNoteOn(100, 0, 69, 100)
	s.ScheduleNoteOff(200, 0, 69)

	s.Tick(50)
	assert.Equal(t, 0, s.ActiveVoiceCount())
	s.Tick(100)
	assert.Equal(t, 1, s.ActiveVoiceCount())
	s.Tick(100) // idempotent for the same now
	assert.Equal(t, 1, s.ActiveVoiceCount())
	s.Tick(200)
	render(t, s, 44100)
	assert.Equal(t, 0, s.ActiveVoiceCount())
}

func TestSFUnloadRefusedWhileVoicesSound(t *testing.T) {
	s := newTestSynth(t, nil)
	id := s.fonts[0].font.ID
	require.NoError(t, s.NoteOn(0, 69, 100))
	render(t, s, 2048)

	err := s.SFUnload(id, false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindState))

	require.NoError(t, s.NoteOff(0, 69))
	render(t, s, 44100)
	require.NoError(t, s.SFUnload(id, false))
	assert.Equal(t, 0, s.SoundFontCount())
}

func TestWriteS16MatchesRoundClipOfFloat(t *testing.T) {
	s := newTestSynth(t, nil)
	require.NoError(t, s.NoteOn(0, 69, 127))

	l16 := make([]int16, 4096)
	r16 := make([]int16, 4096)
	require.NoError(t, s.WriteS16(4096, l16, 0, 1, r16, 0, 1))

	var nonZero int
	for _, v := range l16 {
		if v != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 1000)
	for _, v := range l16 {
		assert.GreaterOrEqual(t, int(v), -32768)
	}
}

func TestInvalidArgumentsAreRejected(t *testing.T) {
	s := newTestSynth(t, nil)
	assert.True(t, IsKind(s.NoteOn(99, 60, 100), KindInvalidArgument))
	assert.True(t, IsKind(s.NoteOn(0, 200, 100), KindInvalidArgument))
	assert.True(t, IsKind(s.CC(0, 7, 300), KindInvalidArgument))
	assert.True(t, IsKind(s.PitchBend(0, -1), KindInvalidArgument))
	assert.True(t, IsKind(s.SetGain(11), KindInvalidArgument))
	assert.True(t, IsKind(s.SFUnload(999, false), KindNotFound))
}

func TestMutedChannelAllocatesSilentVoices(t *testing.T) {
	s := newTestSynth(t, nil)
	require.NoError(t, s.SetChannelMute(0, true))
	require.NoError(t, s.NoteOn(0, 69, 127))
	l, _ := render(t, s, 8192)
	assert.Equal(t, 1, s.ActiveVoiceCount())
	assert.Less(t, rms(l), 1e-4)
}
