package sfont

// Zone is a (key-range, velocity-range, generator-set, modulator-list)
// record attached to either a preset or an instrument.
type Zone struct {
	KeyRange Range
	VelRange Range
	Gens     GeneratorSet
	// GensSet records which generator slots this zone actually specifies
	// (as opposed to a zero value that happens to equal the slot's default),
	// so the compiler can distinguish "delta of 0" from "unset".
	GensSet [GenCount]bool
	Mods    []Modulator

	// InstrumentIdx indexes into SoundFont.Instruments for a preset-zone
	// that references an instrument (GenInstrument).
	InstrumentIdx int
	// SampleIdx indexes into SoundFont.Samples for an instrument-zone that
	// references a sample (GenSampleID). -1 if this is a global zone.
	SampleIdx int
}

// InRange reports whether the zone's key/velocity ranges contain (key,vel).
// A zone with a default full-range (0,0) for a slot that was never set is
// always considered to match that axis, per SF2 semantics (unset ranges
// are full-range).
func (z *Zone) InRange(key, vel int) bool {
	if z.GensSet[GenKeyRange] && !z.KeyRange.Contains(key) {
		return false
	}
	if z.GensSet[GenVelRange] && !z.VelRange.Contains(vel) {
		return false
	}
	return true
}

// Instrument is a set of instrument-zones referencing samples.
type Instrument struct {
	Name  string
	Zones []Zone
}

// Preset is a MIDI-addressable patch (bank, program) composed of
// preset-zones referencing instruments.
type Preset struct {
	Name    string
	Bank    int
	Program int
	Zones   []Zone
}

// SoundFont is the arena owning every Sample, Instrument and Preset loaded
// from one SF2 file, referenced elsewhere by an sfid+index pair so the
// mixer never dereferences a stale pointer.
type SoundFont struct {
	ID          int
	Name        string
	Samples     []Sample
	Instruments []Instrument
	Presets     []Preset

	refcount int
}

// GetPreset returns the preset matching (bank, program), or nil if none
// loaded in this soundfont matches.
func (sf *SoundFont) GetPreset(bank, program int) *Preset {
	for i := range sf.Presets {
		if sf.Presets[i].Bank == bank && sf.Presets[i].Program == program {
			return &sf.Presets[i]
		}
	}
	return nil
}

// Retain/Release track sounding voices: unload is refused while
// refcount > 0.
func (sf *SoundFont) Retain()     { sf.refcount++ }
func (sf *SoundFont) Release()    { sf.refcount-- }
func (sf *SoundFont) InUse() bool { return sf.refcount > 0 }
