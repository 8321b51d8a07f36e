package fluidcore

import "github.com/go-synth/fluidcore/internal/channel"

// BasicChannel describes one basic-channel group: its first channel,
// its MIDI mode, and how many consecutive channels it spans.
type BasicChannel struct {
	Chan int
	Mode channel.Mode
	Span int
}

// MIDI channel modes, re-exported for callers configuring groups.
const (
	ModeOmniOnPoly  = channel.ModeOmniOnPoly
	ModeOmniOnMono  = channel.ModeOmniOnMono
	ModeOmniOffPoly = channel.ModeOmniOffPoly
	ModeOmniOffMono = channel.ModeOmniOffMono
)

// Legato modes, re-exported.
const (
	LegatoRetriggerFastRelease   = channel.LegatoRetriggerFastRelease
	LegatoRetriggerNormalRelease = channel.LegatoRetriggerNormalRelease
	LegatoMultiRetrigger         = channel.LegatoMultiRetrigger
	LegatoSingleTrigger0         = channel.LegatoSingleTrigger0
	LegatoSingleTrigger1         = channel.LegatoSingleTrigger1
)

// Portamento modes, re-exported.
const (
	PortamentoEachNote     = channel.PortamentoEachNote
	PortamentoLegatoOnly   = channel.PortamentoLegatoOnly
	PortamentoStaccatoOnly = channel.PortamentoStaccatoOnly
)

// SetBasicChannels installs the given basic-channel groups. Each group
// clamps or splits any previously overlapping group, and every channel
// whose mode changes gets All-Notes-Off first.
func (s *Synth) SetBasicChannels(groups []BasicChannel) error {
	for _, g := range groups {
		if !s.validChannel(g.Chan) || g.Span < 1 {
			return newError(KindInvalidArgument, "set-basic-channels", "chan=%d span=%d", g.Chan, g.Span)
		}
		if g.Mode < channel.ModeOmniOnPoly || g.Mode > channel.ModeOmniOffMono {
			return newError(KindInvalidArgument, "set-basic-channels", "mode=%d", g.Mode)
		}
	}
	s.lock()
	defer s.unlock()
	for _, g := range groups {
		changed := s.partition.SetGroup(g.Chan, g.Span, g.Mode)
		for _, ch := range changed {
			if err := s.allNotesOffLocked(ch); err != nil {
				return err
			}
			s.channels[ch].Mode = g.Mode
		}
		// SetGroup clamps the span; mirror the surviving group onto the
		// channel structs even when nothing "changed" (same mode
		// reapplied).
		for ch := g.Chan; ch < len(s.channels) && ch < g.Chan+g.Span; ch++ {
			s.channels[ch].Mode = s.partition.ModeOf(ch)
		}
	}
	return nil
}

// GetBasicChannels returns the current groups, adjacent equal modes
// coalesced.
func (s *Synth) GetBasicChannels() []BasicChannel {
	s.lock()
	defer s.unlock()
	var out []BasicChannel
	for _, g := range s.partition.Groups() {
		out = append(out, BasicChannel{Chan: g.Start, Mode: g.Mode, Span: g.Span})
	}
	return out
}

// SetLegatoMode selects the channel's legato retrigger strategy.
func (s *Synth) SetLegatoMode(ch int, mode channel.LegatoMode) error {
	if !s.validChannel(ch) || mode < channel.LegatoRetriggerFastRelease || mode > channel.LegatoSingleTrigger1 {
		return newError(KindInvalidArgument, "set-legato-mode", "channel=%d mode=%d", ch, mode)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].Legato = mode
	return nil
}

// GetLegatoMode reports the channel's legato mode.
func (s *Synth) GetLegatoMode(ch int) (channel.LegatoMode, error) {
	if !s.validChannel(ch) {
		return 0, newError(KindInvalidArgument, "get-legato-mode", "channel=%d", ch)
	}
	s.lock()
	defer s.unlock()
	return s.channels[ch].Legato, nil
}

// SetPortamentoMode selects which note transitions slide.
func (s *Synth) SetPortamentoMode(ch int, mode channel.PortamentoMode) error {
	if !s.validChannel(ch) || mode < channel.PortamentoEachNote || mode > channel.PortamentoStaccatoOnly {
		return newError(KindInvalidArgument, "set-portamento-mode", "channel=%d mode=%d", ch, mode)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].Portamento = mode
	return nil
}

// GetPortamentoMode reports the channel's portamento mode.
func (s *Synth) GetPortamentoMode(ch int) (channel.PortamentoMode, error) {
	if !s.validChannel(ch) {
		return 0, newError(KindInvalidArgument, "get-portamento-mode", "channel=%d", ch)
	}
	s.lock()
	defer s.unlock()
	return s.channels[ch].Portamento, nil
}

// SetBreathMode enables breath-sync gating: note-ons wait for CC#2 to
// rise above zero, and a fall releases the gated note.
func (s *Synth) SetBreathMode(ch int, on bool) error {
	if !s.validChannel(ch) {
		return newError(KindInvalidArgument, "set-breath-mode", "channel=%d", ch)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].BreathSync = on
	return nil
}

// GetBreathMode reports whether breath-sync gating is active.
func (s *Synth) GetBreathMode(ch int) (bool, error) {
	if !s.validChannel(ch) {
		return false, newError(KindInvalidArgument, "get-breath-mode", "channel=%d", ch)
	}
	s.lock()
	defer s.unlock()
	return s.channels[ch].BreathSync, nil
}

// SetChannelMute silences a channel's voices without deallocating
// them: new notes still consume polyphony, their amplitude stays zero.
func (s *Synth) SetChannelMute(ch int, mute bool) error {
	if !s.validChannel(ch) {
		return newError(KindInvalidArgument, "set-channel-mute", "channel=%d", ch)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].Muted = mute
	return nil
}
