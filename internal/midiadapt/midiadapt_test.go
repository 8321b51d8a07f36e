package midiadapt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

type call struct {
	name string
	args [3]int
}

type recordingSink struct {
	calls []call
}

func (r *recordingSink) rec(name string, args ...int) error {
	c := call{name: name}
	copy(c.args[:], args)
	r.calls = append(r.calls, c)
	return nil
}

func (r *recordingSink) NoteOn(ch, key, vel int) error      { return r.rec("noteon", ch, key, vel) }
func (r *recordingSink) NoteOff(ch, key int) error          { return r.rec("noteoff", ch, key) }
func (r *recordingSink) CC(ch, num, val int) error          { return r.rec("cc", ch, num, val) }
func (r *recordingSink) PitchBend(ch, val int) error        { return r.rec("bend", ch, val) }
func (r *recordingSink) ProgramChange(ch, prog int) error   { return r.rec("prog", ch, prog) }
func (r *recordingSink) ChannelPressure(ch, val int) error  { return r.rec("press", ch, val) }
func (r *recordingSink) KeyPressure(ch, key, val int) error { return r.rec("keypress", ch, key, val) }
func (r *recordingSink) Sysex(data []byte) ([]byte, error)  { return nil, r.rec("sysex", len(data)) }

func TestApplyTranslatesChannelMessages(t *testing.T) {
	s := &recordingSink{}

	require.NoError(t, Apply(s, midi.NoteOn(3, 60, 100)))
	require.NoError(t, Apply(s, midi.NoteOff(3, 60)))
	require.NoError(t, Apply(s, midi.ControlChange(0, 7, 99)))
	require.NoError(t, Apply(s, midi.ProgramChange(9, 35)))
	require.NoError(t, Apply(s, midi.Pitchbend(1, 2000)))

	require.Len(t, s.calls, 5)
	assert.Equal(t, call{name: "noteon", args: [3]int{3, 60, 100}}, s.calls[0])
	assert.Equal(t, "noteoff", s.calls[1].name)
	assert.Equal(t, call{name: "cc", args: [3]int{0, 7, 99}}, s.calls[2])
	assert.Equal(t, call{name: "prog", args: [3]int{9, 35}}, s.calls[3])
	assert.Equal(t, "bend", s.calls[4].name)
}

func TestRenderSequenceInterleavesAudioAndEvents(t *testing.T) {
	s := &recordingSink{}
	seq := []TimedMessage{
		{MicroSeconds: 0, Message: midi.NoteOn(0, 60, 100)},
		{MicroSeconds: 500_000, Message: midi.NoteOff(0, 60)},
	}

	var rendered int
	err := RenderSequence(s, seq, 44100, 1000, func(frames int) error {
		rendered += frames
		return nil
	})
	require.NoError(t, err)
	// Half a second at 44100 Hz between the two events, plus the tail.
	assert.Equal(t, 22050+1000, rendered)
	require.Len(t, s.calls, 2)
	assert.Equal(t, "noteon", s.calls[0].name)
	assert.Equal(t, "noteoff", s.calls[1].name)
}
