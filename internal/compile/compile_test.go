package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-synth/fluidcore/internal/channel"
	"github.com/go-synth/fluidcore/internal/sfont"
)

func onePresetSoundFont() *sfont.SoundFont {
	gens := sfont.DefaultGenerators()
	gens[sfont.GenSampleID] = 0
	gens[sfont.GenInitialAttenuation] = 100

	instZone := sfont.Zone{
		Gens:      gens,
		GensSet:   [sfont.GenCount]bool{sfont.GenSampleID: true, sfont.GenInitialAttenuation: true},
		SampleIdx: 0,
	}

	presetZone := sfont.Zone{
		Gens:          sfont.DefaultGenerators(),
		InstrumentIdx: 0,
		SampleIdx:     -1,
	}

	return &sfont.SoundFont{
		ID:   1,
		Name: "test",
		Samples: []sfont.Sample{
			{Name: "sine", Data16: make([]int16, 1000), SampleRate: 44100, FrameCount: 1000, LoopStart: 0, LoopEnd: 1000, OriginalPitch: 60},
		},
		Instruments: []sfont.Instrument{
			{Name: "inst", Zones: []sfont.Zone{instZone}},
		},
		Presets: []sfont.Preset{
			{Name: "preset", Bank: 0, Program: 0, Zones: []sfont.Zone{presetZone}},
		},
	}
}

func TestMatchZonesFindsInstrumentZoneWithSample(t *testing.T) {
	sf := onePresetSoundFont()
	preset := &sf.Presets[0]
	matches := MatchZones(preset, sf.Instruments, 60, 100)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].InstZone.SampleIdx)
}

func TestCompileNoteOnProducesOneVoiceForPolyChannel(t *testing.T) {
	sf := onePresetSoundFont()
	preset := &sf.Presets[0]
	ch := channel.NewChannel(0)

	result := CompileNoteOn(ch, sf, preset, 60, 100, nil, false, 1, 44100)
	require.False(t, result.NoteOff)
	require.False(t, result.Suppressed)
	require.Len(t, result.Starts, 1)
	assert.Equal(t, sf.Samples[0].Name, result.Starts[0].Sample.Name)
	assert.InDelta(t, 261.6, result.Starts[0].Params.RootPitchHz, 1.0)
}

func TestCompileNoteOnVelocityZeroIsNoteOff(t *testing.T) {
	sf := onePresetSoundFont()
	preset := &sf.Presets[0]
	ch := channel.NewChannel(0)

	result := CompileNoteOn(ch, sf, preset, 60, 0, nil, false, 1, 44100)
	assert.True(t, result.NoteOff)
	assert.Empty(t, result.Starts)
}

func TestCompileNoteOnMutedChannelStillAllocatesButSilent(t *testing.T) {
	sf := onePresetSoundFont()
	preset := &sf.Presets[0]
	ch := channel.NewChannel(0)
	ch.Muted = true

	result := CompileNoteOn(ch, sf, preset, 60, 100, nil, false, 1, 44100)
	require.Len(t, result.Starts, 1)
	assert.Equal(t, float64(1440), result.Starts[0].Params.Attenuation)
}

func TestEvaluateModulatorsFullVelocityAddsNoAttenuation(t *testing.T) {
	ch := channel.NewChannel(0)
	deltas := EvaluateModulators(sfont.DefaultModulators(), ch, 60, 127, nil)
	// Full velocity should contribute no (or minimal) extra attenuation
	// from the default velocity->attenuation modulator.
	assert.LessOrEqual(t, deltas[sfont.GenInitialAttenuation], 1.0)
}

func TestCombineModulatorsIdentityReplaces(t *testing.T) {
	base := []sfont.Modulator{
		{Src1: sfont.ModSource{Controller: 7, Flags: sfont.ModCC}, Dest: sfont.GenPan, Amount: 100},
	}
	override := []sfont.Modulator{
		{Src1: sfont.ModSource{Controller: 7, Flags: sfont.ModCC}, Dest: sfont.GenPan, Amount: 500},
	}
	combined := CombineModulators(base, override)
	require.Len(t, combined, 1)
	assert.EqualValues(t, 500, combined[0].Amount)
}
