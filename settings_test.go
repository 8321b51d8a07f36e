package fluidcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDefaults(t *testing.T) {
	s := NewSettings()

	rate, err := s.Num("synth.sample-rate")
	require.NoError(t, err)
	assert.Equal(t, 44100.0, rate)

	poly, err := s.Int("synth.polyphony")
	require.NoError(t, err)
	assert.Equal(t, 256, poly)

	style, err := s.Str("synth.midi-bank-select")
	require.NoError(t, err)
	assert.Equal(t, "gs", style)

	ts, err := s.Bool("synth.threadsafe-api")
	require.NoError(t, err)
	assert.True(t, ts)

	verbose, err := s.Bool("synth.verbose")
	require.NoError(t, err)
	assert.False(t, verbose)
}

func TestSettingsRangeValidation(t *testing.T) {
	s := NewSettings()

	assert.True(t, IsKind(s.SetNum("synth.sample-rate", 7000), KindInvalidArgument))
	assert.True(t, IsKind(s.SetNum("synth.gain", 11), KindInvalidArgument))
	assert.True(t, IsKind(s.SetInt("synth.polyphony", 0), KindInvalidArgument))
	assert.True(t, IsKind(s.SetStr("synth.midi-bank-select", "roland"), KindInvalidArgument))
	assert.NoError(t, s.SetStr("synth.midi-bank-select", "xg"))
}

func TestSettingsMidiChannelsMultipleOf16(t *testing.T) {
	s := NewSettings()
	assert.True(t, IsKind(s.SetInt("synth.midi-channels", 20), KindInvalidArgument))
	assert.NoError(t, s.SetInt("synth.midi-channels", 32))
}

func TestSettingsUnknownNameIsNotFound(t *testing.T) {
	s := NewSettings()
	assert.True(t, IsKind(s.SetNum("synth.bogus", 1), KindNotFound))
	_, err := s.Int("synth.bogus")
	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, NoType, s.Type("synth.bogus"))
	assert.Equal(t, NumType, s.Type("synth.gain"))
	assert.Equal(t, SetType, s.Type("synth.midi-bank-select"))
}

func TestSettingsTypeMismatchRejected(t *testing.T) {
	s := NewSettings()
	assert.True(t, IsKind(s.SetInt("synth.gain", 1), KindInvalidArgument))
	assert.True(t, IsKind(s.SetNum("synth.polyphony", 10), KindInvalidArgument))
}
