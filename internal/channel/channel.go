// Package channel implements the per-channel MIDI state machine: basic
// channel partitioning, monophonic note tracking, portamento resolution
// and legato retrigger strategies. A channel is one flat bag of
// independently updated mode flags and cached controller values;
// everything here is control-thread state.
package channel

// BankSelectStyle picks which convention governs how CC0 (MSB) and
// CC32 (LSB) combine into a bank number.
type BankSelectStyle int

const (
	BankStyleGM BankSelectStyle = iota
	BankStyleGS
	BankStyleXG
	BankStyleMMA
)

// Mode is a basic-channel group's poly/mono × omni-on/off setting.
type Mode int

const (
	ModeOmniOnPoly Mode = iota
	ModeOmniOnMono
	ModeOmniOffPoly
	ModeOmniOffMono
)

func (m Mode) Mono() bool {
	return m == ModeOmniOnMono || m == ModeOmniOffMono
}

// LegatoMode selects which of the five legato retrigger strategies a
// channel's mono Note-On handling uses.
type LegatoMode int

const (
	LegatoRetriggerFastRelease LegatoMode = iota
	LegatoRetriggerNormalRelease
	LegatoMultiRetrigger
	LegatoSingleTrigger0
	LegatoSingleTrigger1
)

// PortamentoMode filters which note transitions produce a pedal-sourced
// portamento slide when no CC portamento-control value is present.
type PortamentoMode int

const (
	PortamentoEachNote PortamentoMode = iota
	PortamentoLegatoOnly
	PortamentoStaccatoOnly
)

// PresetRef is a weak reference to a compiled preset: the preset's
// owning soundfont retains the real memory, a channel only remembers
// enough to re-resolve or to no-op if the soundfont was unloaded.
type PresetRef struct {
	SoundFontID int
	Bank        int
	Program     int
}

// Channel is one of the synth's 16 (or more, if configured) MIDI
// channels. Every field here is control-thread state: it is read and
// written only while holding the synth's control lock, never from the
// render thread.
type Channel struct {
	Num int

	Program   int
	Bank      int
	BankStyle BankSelectStyle
	Preset    PresetRef
	presetSet bool

	CC                  [128]int
	Pressure            int
	KeyPressure         [128]int
	PitchBend           int // 14-bit, centered at 8192
	PitchWheelSensCents int
	Tuning              [128]int // cents offset per key

	Mode Mode

	Notes NoteStack

	Legato           LegatoMode
	BreathSync       bool
	BreathVel        int // velocity remembered while breath-sync gates a note-on
	breathGateOpen   bool
	Portamento       PortamentoMode
	PortamentoCtrl   int // CC-sourced "portamento control" last key, -1 if none pending
	SustainedMonoKey int // key remembered for portamento/legato continuity, -1 if none

	Muted bool
	Gain  float64
}

// NewChannel returns a channel with every controller/tuning slot at its
// MIDI-defined default.
func NewChannel(num int) *Channel {
	c := &Channel{
		Num:              num,
		BankStyle:        BankStyleGM,
		PitchBend:        8192,
		PortamentoCtrl:   -1,
		SustainedMonoKey: -1,
		Gain:             1.0,
	}
	c.CC[7] = 127  // volume
	c.CC[11] = 127 // expression
	c.CC[10] = 64  // pan, centered
	c.Notes.Reset()
	return c
}

// ResetOnProgramChange clears per-note continuity state; the program
// itself is left untouched since the caller just set it.
func (c *Channel) ResetOnProgramChange() {
	c.Notes.Reset()
	c.SustainedMonoKey = -1
	c.PortamentoCtrl = -1
}

// AllNotesOff clears the note stack. The caller is responsible for
// telling the voice pool to release every voice on this channel; this
// only resets the bookkeeping side.
func (c *Channel) AllNotesOff() {
	c.Notes.Reset()
	c.SustainedMonoKey = -1
}

// EffectiveBank combines CC0/CC32 per BankStyle. GM ignores bank
// select entirely and always resolves to bank 0.
func (c *Channel) EffectiveBank() int {
	switch c.BankStyle {
	case BankStyleGM:
		return 0
	case BankStyleXG:
		return c.CC[32] // XG uses the LSB only
	case BankStyleMMA:
		return c.CC[0]*128 + c.CC[32]
	default: // GS: MSB selects the bank, LSB is ignored
		return c.CC[0]
	}
}
