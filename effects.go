package fluidcore

import "github.com/go-synth/fluidcore/internal/ring"

// Mask bits for SetReverbFull/SetChorusFull: only the masked
// parameters change, the rest keep their current values.
const (
	ReverbRoomSize = 1 << iota
	ReverbDamping
	ReverbWidth
	ReverbLevel
	ReverbAll = ReverbRoomSize | ReverbDamping | ReverbWidth | ReverbLevel
)

const (
	ChorusVoices = 1 << iota
	ChorusLevel
	ChorusSpeed
	ChorusDepth
	ChorusType
	ChorusAll = ChorusVoices | ChorusLevel | ChorusSpeed | ChorusDepth | ChorusType
)

// Chorus modulation waveforms.
const (
	ChorusModSine     = 0
	ChorusModTriangle = 1
)

// SetReverbFull updates the masked reverb parameters. The change is
// posted as one event, so the next rendered block reflects all of it
// at once.
func (s *Synth) SetReverbFull(mask int, roomsize, damping, width, level float64) error {
	s.lock()
	defer s.unlock()
	p := s.reverbParams
	if mask&ReverbRoomSize != 0 {
		p.RoomSize = roomsize
	}
	if mask&ReverbDamping != 0 {
		p.Damping = damping
	}
	if mask&ReverbWidth != 0 {
		p.Width = width
	}
	if mask&ReverbLevel != 0 {
		p.Level = level
	}
	if !s.events.Push(ring.Event{Method: ring.MethodMixerSetReverbParams, Reverb: p}) {
		return newError(KindRingOverflow, "set-reverb", "event ring full")
	}
	s.reverbParams = p
	return nil
}

// SetReverb updates every reverb parameter.
func (s *Synth) SetReverb(roomsize, damping, width, level float64) error {
	return s.SetReverbFull(ReverbAll, roomsize, damping, width, level)
}

// SetChorusFull updates the masked chorus parameters.
func (s *Synth) SetChorusFull(mask, voices int, level, speed, depthMs float64, modType int) error {
	s.lock()
	defer s.unlock()
	p := s.chorusParams
	if mask&ChorusVoices != 0 {
		p.Voices = voices
	}
	if mask&ChorusLevel != 0 {
		p.Level = level
	}
	if mask&ChorusSpeed != 0 {
		p.Speed = speed
	}
	if mask&ChorusDepth != 0 {
		p.DepthMs = depthMs
	}
	if mask&ChorusType != 0 {
		p.ModType = modType
	}
	if !s.events.Push(ring.Event{Method: ring.MethodMixerSetChorusParams, Chorus: p}) {
		return newError(KindRingOverflow, "set-chorus", "event ring full")
	}
	s.chorusParams = p
	return nil
}

// SetChorus updates every chorus parameter.
func (s *Synth) SetChorus(voices int, level, speed, depthMs float64, modType int) error {
	return s.SetChorusFull(ChorusAll, voices, level, speed, depthMs, modType)
}

// EnableReverb switches the reverb unit on or off.
func (s *Synth) EnableReverb(on bool) error {
	s.lock()
	defer s.unlock()
	iv := 0
	if on {
		iv = 1
	}
	if !s.events.Push(ring.Event{Method: ring.MethodMixerSetReverbEnabled, IntParam: iv}) {
		return newError(KindRingOverflow, "enable-reverb", "event ring full")
	}
	s.reverbOn = on
	return nil
}

// EnableChorus switches the chorus unit on or off.
func (s *Synth) EnableChorus(on bool) error {
	s.lock()
	defer s.unlock()
	iv := 0
	if on {
		iv = 1
	}
	if !s.events.Push(ring.Event{Method: ring.MethodMixerSetChorusEnabled, IntParam: iv}) {
		return newError(KindRingOverflow, "enable-chorus", "event ring full")
	}
	s.chorusOn = on
	return nil
}

// ReverbParams returns the control-side view of the reverb settings.
func (s *Synth) ReverbParams() (roomsize, damping, width, level float64, on bool) {
	s.lock()
	defer s.unlock()
	p := s.reverbParams
	return p.RoomSize, p.Damping, p.Width, p.Level, s.reverbOn
}

// ChorusParams returns the control-side view of the chorus settings.
func (s *Synth) ChorusParams() (voices int, level, speed, depthMs float64, modType int, on bool) {
	s.lock()
	defer s.unlock()
	p := s.chorusParams
	return p.Voices, p.Level, p.Speed, p.DepthMs, p.ModType, s.chorusOn
}

// SetGain sets the master output gain in [0,10].
func (s *Synth) SetGain(g float64) error {
	if g < 0 || g > 10 {
		return newError(KindInvalidArgument, "set-gain", "gain=%g outside [0,10]", g)
	}
	s.lock()
	defer s.unlock()
	if !s.events.Push(ring.Event{Method: ring.MethodMixerSetGain, Real: [5]float64{g}}) {
		return newError(KindRingOverflow, "set-gain", "event ring full")
	}
	s.gain = g
	return nil
}

// Gain returns the control-side view of the master gain.
func (s *Synth) Gain() float64 {
	s.lock()
	defer s.unlock()
	return s.gain
}
