package compile

import "github.com/go-synth/fluidcore/internal/sfont"

// MatchedZone is one (preset-zone, instrument-zone) pair whose key/
// velocity ranges both contain the note being compiled.
type MatchedZone struct {
	PresetZone *sfont.Zone
	InstZone   *sfont.Zone
}

// fullRange is the implicit range of a generator slot that was never
// set on a zone: SF2 treats an absent key/velocity range as "matches
// everything", not "matches nothing".
var fullRange = sfont.Range{Lo: 0, Hi: 127}

func effectiveKeyRange(z *sfont.Zone) sfont.Range {
	if z.GensSet[sfont.GenKeyRange] {
		return z.KeyRange
	}
	return fullRange
}

func effectiveVelRange(z *sfont.Zone) sfont.Range {
	if z.GensSet[sfont.GenVelRange] {
		return z.VelRange
	}
	return fullRange
}

func zoneContains(z *sfont.Zone, key, vel int) bool {
	return effectiveKeyRange(z).Contains(key) && effectiveVelRange(z).Contains(vel)
}

// GlobalInstrumentZone returns instrument.Zones[0] if it carries no
// sample reference — the SF2 convention for a zone that supplies
// defaults to every other zone in the instrument instead of playing a
// sample itself.
func GlobalInstrumentZone(zones []sfont.Zone) *sfont.Zone {
	if len(zones) > 0 && zones[0].SampleIdx < 0 {
		return &zones[0]
	}
	return nil
}

// GlobalPresetZone mirrors GlobalInstrumentZone for a preset's zone
// list, keyed on the absence of an instrument reference instead.
func GlobalPresetZone(zones []sfont.Zone) *sfont.Zone {
	if len(zones) > 0 && zones[0].InstrumentIdx < 0 {
		return &zones[0]
	}
	return nil
}

// MatchZones enumerates every preset-zone/instrument-zone pair whose
// ranges both contain (key, vel) and whose instrument-zone actually
// references a sample. Global zones (no
// sample/instrument reference) are never returned as matches — they
// are merged into the matched zones' generators/modulators instead,
// by mergedGenerators/mergedModulators.
func MatchZones(preset *sfont.Preset, instruments []sfont.Instrument, key, vel int) []MatchedZone {
	var out []MatchedZone
	presetGlobal := GlobalPresetZone(preset.Zones)

	for i := range preset.Zones {
		pz := &preset.Zones[i]
		if pz == presetGlobal {
			continue
		}
		if pz.InstrumentIdx < 0 || pz.InstrumentIdx >= len(instruments) {
			continue
		}
		if !zoneContains(pz, key, vel) {
			continue
		}
		instr := &instruments[pz.InstrumentIdx]
		instGlobal := GlobalInstrumentZone(instr.Zones)
		for j := range instr.Zones {
			iz := &instr.Zones[j]
			if iz == instGlobal {
				continue
			}
			if iz.SampleIdx < 0 {
				continue
			}
			if !zoneContains(iz, key, vel) {
				continue
			}
			out = append(out, MatchedZone{PresetZone: pz, InstZone: iz})
		}
	}
	return out
}
