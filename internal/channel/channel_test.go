package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteStackPushPopLegatoClassification(t *testing.T) {
	var s NoteStack
	s.Reset()
	assert.True(t, s.Empty())

	legato := s.Push(60, 100)
	assert.False(t, legato, "first push is staccato")

	legato = s.Push(64, 90)
	assert.True(t, legato, "second push is legato")

	found, empty := s.Remove(64)
	require.True(t, found)
	assert.False(t, empty)
	key, _, ok := s.Prev()
	require.True(t, ok)
	assert.Equal(t, 64, key)

	found, empty = s.Remove(60)
	require.True(t, found)
	assert.True(t, empty)
}

func TestNoteStackOverflowDropsOldest(t *testing.T) {
	var s NoteStack
	for i := 0; i < stackCapacity+3; i++ {
		s.Push(i, 100)
	}
	assert.Equal(t, stackCapacity, s.nNotes)
	top, _ := s.Top()
	assert.Equal(t, stackCapacity+2, top)
}

func TestPartitionSetGroupNarrowsOverlap(t *testing.T) {
	p := NewPartition(16)
	changed := p.SetGroup(4, 4, ModeOmniOffMono)
	assert.Len(t, changed, 4)
	assert.Equal(t, ModeOmniOffMono, p.ModeOf(5))
	assert.Equal(t, ModeOmniOnPoly, p.ModeOf(0))
	assert.Equal(t, ModeOmniOnPoly, p.ModeOf(8))
}

func TestPartitionSpanClampedToChannelCount(t *testing.T) {
	p := NewPartition(8)
	p.SetGroup(6, 10, ModeOmniOffPoly)
	assert.Equal(t, ModeOmniOffPoly, p.ModeOf(7))
}

func TestResolvePortamentoCCSupersedes(t *testing.T) {
	c := NewChannel(0)
	c.PortamentoCtrl = 42
	c.Portamento = PortamentoEachNote
	res := ResolvePortamento(c, true, false)
	assert.True(t, res.Valid)
	assert.Equal(t, 42, res.FromKey)
}

func TestResolvePortamentoPedalFilteredByMode(t *testing.T) {
	c := NewChannel(0)
	c.Notes.Push(60, 100)
	c.Notes.Remove(60)
	c.Portamento = PortamentoStaccatoOnly

	res := ResolvePortamento(c, true, true)
	assert.False(t, res.Valid, "legato arrival should not qualify under staccato-only")

	res = ResolvePortamento(c, false, true)
	assert.True(t, res.Valid)
	assert.Equal(t, 60, res.FromKey)
}

type fakeVoice struct{ inRange bool }

func (f fakeVoice) InRangeFor(key, vel int) bool { return f.inRange }

func TestPlanLegatoSingleTriggerOnlyAddsVoicesForUncoveredZones(t *testing.T) {
	voices := []SoundingVoice{fakeVoice{inRange: true}, fakeVoice{inRange: false}}
	plan := PlanLegato(LegatoSingleTrigger0, voices, 64, 100)
	assert.True(t, plan.NeedsNewVoices)
	assert.Equal(t, ActionRepitchOnly, plan.VoiceActions[0])
}

func TestPlanLegatoRetriggerAlwaysNeedsNewVoices(t *testing.T) {
	voices := []SoundingVoice{fakeVoice{inRange: true}}
	plan := PlanLegato(LegatoRetriggerFastRelease, voices, 64, 100)
	assert.True(t, plan.NeedsNewVoices)
	assert.Equal(t, ActionRetriggerFastRelease, plan.VoiceActions[0])
}

func TestNoteOnMonoStaccatoThenLegato(t *testing.T) {
	c := NewChannel(0)
	c.Mode = ModeOmniOnMono

	d := NoteOn(c, 60, 100, nil, false)
	assert.True(t, d.Staccato)
	assert.Nil(t, d.Legato)

	d = NoteOn(c, 64, 90, []SoundingVoice{fakeVoice{inRange: true}}, false)
	assert.False(t, d.Staccato)
	require.NotNil(t, d.Legato)
}

func TestNoteOffMonoSlidesToRemainingTop(t *testing.T) {
	c := NewChannel(0)
	c.Mode = ModeOmniOffMono
	NoteOn(c, 60, 100, nil, false)
	NoteOn(c, 64, 90, []SoundingVoice{}, false)

	d := NoteOff(c, 64)
	assert.True(t, d.HasSlide)
	assert.Equal(t, 60, d.SlideToKey)

	d = NoteOff(c, 60)
	assert.True(t, d.ReleaseAll)
}

func TestBreathSyncGatesNoteOn(t *testing.T) {
	c := NewChannel(0)
	c.Mode = ModeOmniOnMono
	c.BreathSync = true

	d := NoteOn(c, 60, 100, nil, false)
	assert.True(t, d.Suppressed)

	edge := BreathCC(c, 100)
	assert.Equal(t, BreathRising, edge)

	d = NoteOn(c, 60, 100, nil, false)
	assert.False(t, d.Suppressed)
}

func TestEffectiveBankStyles(t *testing.T) {
	c := NewChannel(0)
	c.CC[0] = 2
	c.CC[32] = 5

	c.BankStyle = BankStyleGM
	assert.Equal(t, 0, c.EffectiveBank())

	c.BankStyle = BankStyleGS
	assert.Equal(t, 2, c.EffectiveBank())

	c.BankStyle = BankStyleXG
	assert.Equal(t, 5, c.EffectiveBank())

	c.BankStyle = BankStyleMMA
	assert.Equal(t, 2*128+5, c.EffectiveBank())
}
