// Package midiadapt translates gomidi/midi/v2 messages — live driver
// input or Standard MIDI File events — into calls against the synth
// facade. The MIDI transport itself stays an external collaborator;
// this is the reference glue demonstrating that boundary.
package midiadapt

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Sink is the subset of the synth facade API a MIDI stream drives.
type Sink interface {
	NoteOn(ch, key, vel int) error
	NoteOff(ch, key int) error
	CC(ch, num, val int) error
	PitchBend(ch, val int) error
	ProgramChange(ch, prog int) error
	ChannelPressure(ch, val int) error
	KeyPressure(ch, key, val int) error
	Sysex(data []byte) ([]byte, error)
}

// Apply dispatches one MIDI message to the sink. Unrecognized messages
// (meta events, realtime clock) are ignored without error.
func Apply(s Sink, msg midi.Message) error {
	var ch, b1, b2 uint8
	var rel int16
	var abs uint16
	var sys []byte
	switch {
	case msg.GetNoteOn(&ch, &b1, &b2):
		return s.NoteOn(int(ch), int(b1), int(b2))
	case msg.GetNoteOff(&ch, &b1, &b2):
		return s.NoteOff(int(ch), int(b1))
	case msg.GetControlChange(&ch, &b1, &b2):
		return s.CC(int(ch), int(b1), int(b2))
	case msg.GetPitchBend(&ch, &rel, &abs):
		return s.PitchBend(int(ch), int(abs))
	case msg.GetProgramChange(&ch, &b1):
		return s.ProgramChange(int(ch), int(b1))
	case msg.GetAfterTouch(&ch, &b1):
		return s.ChannelPressure(int(ch), int(b1))
	case msg.GetPolyAfterTouch(&ch, &b1, &b2):
		return s.KeyPressure(int(ch), int(b1), int(b2))
	case msg.GetSysEx(&sys):
		_, err := s.Sysex(sys)
		return err
	default:
		return nil
	}
}

// TimedMessage is one SMF event stamped with its absolute wall-clock
// position, tempo map already applied.
type TimedMessage struct {
	MicroSeconds int64
	Message      midi.Message
}

// LoadSMF reads a Standard MIDI File and flattens all tracks into one
// time-ordered message sequence.
func LoadSMF(path string) ([]TimedMessage, error) {
	var out []TimedMessage
	rd := smf.ReadTracks(path).Do(func(te smf.TrackEvent) {
		msg := te.Message
		if msg.IsMeta() {
			return
		}
		out = append(out, TimedMessage{
			MicroSeconds: te.AbsMicroSeconds,
			Message:      midi.Message(msg.Bytes()),
		})
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("read smf %s: %w", path, err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MicroSeconds < out[j].MicroSeconds })
	return out, nil
}

// RenderSequence drives a sink from a timed sequence while pulling
// audio through render(frames): events due at each point are applied,
// then the gap to the next event is rendered, so offline rendering
// stays sample-accurate without a real-time clock. tailFrames renders
// past the last event to let releases finish.
func RenderSequence(s Sink, seq []TimedMessage, sampleRate int, tailFrames int, render func(frames int) error) error {
	framePos := int64(0)
	for _, tm := range seq {
		due := tm.MicroSeconds * int64(sampleRate) / 1_000_000
		if due > framePos {
			if err := render(int(due - framePos)); err != nil {
				return err
			}
			framePos = due
		}
		if err := Apply(s, tm.Message); err != nil {
			return err
		}
	}
	if tailFrames > 0 {
		return render(tailFrames)
	}
	return nil
}
