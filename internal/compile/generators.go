package compile

import (
	"math"

	"github.com/go-synth/fluidcore/internal/channel"
	"github.com/go-synth/fluidcore/internal/dsp"
	"github.com/go-synth/fluidcore/internal/rvoice"
	"github.com/go-synth/fluidcore/internal/sfont"
)

// nonAdditiveGens are the generator slots (instrument/sample
// references, ranges, and the few per-note-only slots) that only ever
// come from the instrument zone itself; every other slot follows SF2's
// "preset-zone amount adds to instrument-zone amount" rule.
var nonAdditiveGens = map[sfont.GenID]bool{
	sfont.GenInstrument:     true,
	sfont.GenKeyRange:       true,
	sfont.GenVelRange:       true,
	sfont.GenSampleID:       true,
	sfont.GenSampleModes:    true,
	sfont.GenExclusiveClass: true,
	sfont.GenKeynum:         true,
	sfont.GenVelocity:       true,
}

// mergedGenerators folds a zone's own generators over its global
// zone's (if any), then adds the preset-zone's additive deltas over
// the instrument-zone baseline.
func mergedGenerators(mz MatchedZone, instGlobal, presetGlobal *sfont.Zone) sfont.GeneratorSet {
	g := mergeOverGlobal(mz.InstZone, instGlobal)

	pg := mergeOverGlobal(mz.PresetZone, presetGlobal)
	for i := 0; i < int(sfont.GenCount); i++ {
		id := sfont.GenID(i)
		if nonAdditiveGens[id] {
			continue
		}
		if mz.PresetZone.GensSet[i] || (presetGlobal != nil && presetGlobal.GensSet[i]) {
			g[i] = clampGen(id, g[i]+pg[i])
		}
	}
	return g
}

func mergeOverGlobal(z, global *sfont.Zone) sfont.GeneratorSet {
	g := z.Gens
	if global == nil {
		return g
	}
	for i := range g {
		if !z.GensSet[i] && global.GensSet[i] {
			g[i] = global.Gens[i]
		}
	}
	return g
}

// mergedModulators combines a matched zone's modulators with its
// global zone's, instrument over preset, on top of the SF2 default
// list.
func mergedModulators(mz MatchedZone, instGlobal, presetGlobal *sfont.Zone) []sfont.Modulator {
	lists := [][]sfont.Modulator{sfont.DefaultModulators()}
	if presetGlobal != nil {
		lists = append(lists, presetGlobal.Mods)
	}
	lists = append(lists, mz.PresetZone.Mods)
	if instGlobal != nil {
		lists = append(lists, instGlobal.Mods)
	}
	lists = append(lists, mz.InstZone.Mods)
	return CombineModulators(lists...)
}

// clampGen applies the SF2-defined legal range for the handful of
// generator slots whose compiled value feeds directly into audible
// DSP parameters; everything else is left to whatever range the
// loader already validated.
func clampGen(id sfont.GenID, v int16) int16 {
	clamp := func(v, lo, hi int16) int16 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	switch id {
	case sfont.GenInitialAttenuation:
		return clamp(v, 0, 1440)
	case sfont.GenInitialFilterFc:
		return clamp(v, 1500, 13500)
	case sfont.GenInitialFilterQ:
		return clamp(v, 0, 960)
	case sfont.GenPan:
		return clamp(v, -500, 500)
	case sfont.GenChorusEffectsSend, sfont.GenReverbEffectsSend:
		return clamp(v, 0, 1000)
	default:
		return v
	}
}

// secFromTimecents converts an SF2 timecents value to seconds:
// seconds = 2^(timecents/1200). SF2 reserves -32768 to mean "no
// segment" (zero seconds) rather than a vanishingly short one.
func secFromTimecents(tc int16) float64 {
	if tc <= -32768 {
		return 0
	}
	return math.Exp2(float64(tc) / 1200.0)
}

func samplesFromTimecents(tc int16, sampleRate float64) int {
	return int(secFromTimecents(tc) * sampleRate)
}

// CompiledVoice is the complete output of compiling one matched zone:
// the physical start parameters, the sample, and the merged generator/
// modulator lists retained so the modulation graph can be re-evaluated
// on later controller changes without re-matching zones.
type CompiledVoice struct {
	Params rvoice.StartParams
	Sample *sfont.Sample
	Gens   sfont.GeneratorSet
	Mods   []sfont.Modulator

	// PitchModCents is the modulator contribution to pitch (fine +
	// 100*coarse tune deltas) already baked into Params.RootPitchHz at
	// compile time; later refreshes subtract it so pitch-bend changes
	// apply relative to the start-time state.
	PitchModCents float64
}

// CompileVoiceParams turns one matched zone's merged generator vector
// plus the incoming note into the physical parameters rvoice.Start
// needs.
func CompileVoiceParams(mz MatchedZone, instGlobal, presetGlobal *sfont.Zone, sf *sfont.SoundFont, ch *channel.Channel, key, vel int, interpOrder int, outputRate float64) (CompiledVoice, bool) {
	gens := mergedGenerators(mz, instGlobal, presetGlobal)

	// GenKeynum/GenVelocity (typically set on a drum-kit instrument
	// zone) force the key/velocity fed to pitch, envelope and
	// modulator evaluation to a fixed value regardless of what was
	// actually played, while zone matching above still used the real
	// note.
	effectiveKey, effectiveVel := key, vel
	if mz.InstZone.GensSet[sfont.GenKeynum] || (instGlobal != nil && instGlobal.GensSet[sfont.GenKeynum]) {
		effectiveKey = int(gens[sfont.GenKeynum])
	}
	if mz.InstZone.GensSet[sfont.GenVelocity] || (instGlobal != nil && instGlobal.GensSet[sfont.GenVelocity]) {
		effectiveVel = int(gens[sfont.GenVelocity])
	}

	mods := mergedModulators(mz, instGlobal, presetGlobal)
	deltas := EvaluateModulators(mods, ch, effectiveKey, effectiveVel, nil)

	var working [sfont.GenCount]float64
	for i := range gens {
		working[i] = float64(gens[i]) + deltas[i]
	}

	sampleIdx := mz.InstZone.SampleIdx
	if sampleIdx < 0 || sampleIdx >= len(sf.Samples) {
		return CompiledVoice{}, false
	}
	sample := &sf.Samples[sampleIdx]

	rootKey := int(working[sfont.GenOverridingRootKey])
	if gens[sfont.GenOverridingRootKey] < 0 {
		rootKey = sample.OriginalPitch
	}
	scaleTuning := working[sfont.GenScaleTuning]
	deviationCents := (float64(effectiveKey) - float64(rootKey)) * scaleTuning
	coarseTuneCents := working[sfont.GenCoarseTune] * 100
	fineTuneCents := working[sfont.GenFineTune]
	channelTuningCents := float64(ch.Tuning[clampKey(effectiveKey)])
	totalCents := coarseTuneCents + fineTuneCents + deviationCents + channelTuningCents
	rootPitchHz := keyToHzCompile(float64(rootKey)) * math.Exp2(totalCents/1200.0)

	volSustainLevel := math.Pow(10, -working[sfont.GenSustainVolEnv]/200.0)
	modSustainLevel := 1 - working[sfont.GenSustainModEnv]/1000.0
	if modSustainLevel < 0 {
		modSustainLevel = 0
	}

	mkEnv := func(delayGen, attackGen, holdGen, decayGen sfont.GenID, sustain float64, releaseGen sfont.GenID, keynumToHold, keynumToDecay sfont.GenID) (dsp.EnvSegment, dsp.EnvSegment, dsp.EnvSegment, dsp.EnvSegment, dsp.EnvSegment) {
		holdTC := working[holdGen] + working[keynumToHold]*(60-float64(effectiveKey))
		decayTC := working[decayGen] + working[keynumToDecay]*(60-float64(effectiveKey))

		delaySamp := int(secFromTimecents(int16(working[delayGen])) * outputRate)
		attackSamp := int(secFromTimecents(int16(working[attackGen])) * outputRate)
		holdSamp := int(secFromTimecents(int16(holdTC)) * outputRate)
		decaySamp := int(secFromTimecents(int16(decayTC)) * outputRate)
		releaseSamp := int(secFromTimecents(int16(working[releaseGen])) * outputRate)

		attackInc := 0.0
		if attackSamp > 0 {
			attackInc = 1.0 / float64(attackSamp)
		}
		decayInc := 0.0
		if decaySamp > 0 {
			decayInc = (sustain - 1.0) / float64(decaySamp)
		}
		releaseInc := 0.0
		if releaseSamp > 0 {
			releaseInc = -sustain / float64(releaseSamp)
		}
		return dsp.EnvSegment{Samples: delaySamp},
			dsp.EnvSegment{Samples: attackSamp, Increment: attackInc},
			dsp.EnvSegment{Samples: holdSamp},
			dsp.EnvSegment{Samples: decaySamp, Increment: decayInc},
			dsp.EnvSegment{Samples: releaseSamp, Increment: releaseInc}
	}

	volDelay, volAttack, volHold, volDecay, volRelease := mkEnv(
		sfont.GenDelayVolEnv, sfont.GenAttackVolEnv, sfont.GenHoldVolEnv, sfont.GenDecayVolEnv,
		volSustainLevel, sfont.GenReleaseVolEnv, sfont.GenKeynumToVolEnvHold, sfont.GenKeynumToVolEnvDecay)
	modDelay, modAttack, modHold, modDecay, modRelease := mkEnv(
		sfont.GenDelayModEnv, sfont.GenAttackModEnv, sfont.GenHoldModEnv, sfont.GenDecayModEnv,
		modSustainLevel, sfont.GenReleaseModEnv, sfont.GenKeynumToModEnvHold, sfont.GenKeynumToModEnvDecay)

	var sampleMode rvoice.SampleMode
	switch gens[sfont.GenSampleModes] {
	case sfont.SampleModeLoopDuringRelease:
		sampleMode = rvoice.SampleModeLoopDuringRelease
	case sfont.SampleModeLoopUntilRelease:
		sampleMode = rvoice.SampleModeLoopUntilRelease
	default: // no-loop, and the unused value treated as no-loop
		sampleMode = rvoice.SampleModeNoLoop
	}

	p := rvoice.StartParams{
		RootPitchHz:   rootPitchHz,
		Attenuation:   working[sfont.GenInitialAttenuation],
		FilterFcCents: working[sfont.GenInitialFilterFc],
		FilterQdB:     working[sfont.GenInitialFilterQ] / 10,

		VolDelay: volDelay, VolAttack: volAttack, VolHold: volHold, VolDecay: volDecay, VolRelease: volRelease,
		VolSustainLevel: volSustainLevel,
		ModDelay:        modDelay, ModAttack: modAttack, ModHold: modHold, ModDecay: modDecay, ModRelease: modRelease,
		ModSustainLevel: modSustainLevel,

		ModLFODelay:    samplesFromTimecents(int16(working[sfont.GenDelayModLFO]), outputRate),
		ModLFORateHz:   centsToHzCompile(working[sfont.GenFreqModLFO]),
		ModLFOToPitch:  working[sfont.GenModLfoToPitch] / 100,
		ModLFOToFc:     working[sfont.GenModLfoToFilterFc] / 100,
		ModLFOToVolume: working[sfont.GenModLfoToVolume] / 10,

		VibLFODelay:   samplesFromTimecents(int16(working[sfont.GenDelayVibLFO]), outputRate),
		VibLFORateHz:  centsToHzCompile(working[sfont.GenFreqVibLFO]),
		VibLFOToPitch: working[sfont.GenVibLfoToPitch] / 100,

		ModEnvToPitch: working[sfont.GenModEnvToPitch] / 100,
		ModEnvToFc:    working[sfont.GenModEnvToFilterFc] / 100,

		InterpOrder:    interpOrder,
		SampleMode:     sampleMode,
		Pan:            working[sfont.GenPan] / 500,
		DryBus:         0,
		ReverbSend:     working[sfont.GenReverbEffectsSend] / 1000,
		ChorusSend:     working[sfont.GenChorusEffectsSend] / 1000,
		ExclusiveClass: int(gens[sfont.GenExclusiveClass]),

		StartOffset:     int(working[sfont.GenStartAddrsOffset]) + int(working[sfont.GenStartAddrsCoarseOffset])*32768,
		EndOffset:       int(working[sfont.GenEndAddrsOffset]) + int(working[sfont.GenEndAddrsCoarseOffset])*32768,
		LoopStartOffset: int(working[sfont.GenStartloopAddrsOffset]) + int(working[sfont.GenStartloopAddrsCoarseOffset])*32768,
		LoopEndOffset:   int(working[sfont.GenEndloopAddrsOffset]) + int(working[sfont.GenEndloopAddrsCoarseOffset])*32768,

		Zone: rvoice.ZoneRange{
			KeyLo: int(effectiveKeyRange(mz.InstZone).Lo), KeyHi: int(effectiveKeyRange(mz.InstZone).Hi),
			VelLo: int(effectiveVelRange(mz.InstZone).Lo), VelHi: int(effectiveVelRange(mz.InstZone).Hi),
		},
	}
	return CompiledVoice{
		Params:        p,
		Sample:        sample,
		Gens:          gens,
		Mods:          mods,
		PitchModCents: deltas[sfont.GenFineTune] + 100*deltas[sfont.GenCoarseTune],
	}, true
}

// VoiceRefresh is the set of physical parameters the facade re-derives
// for a sounding voice when a controller changes, per §1's requirement
// that the modulation graph be re-evaluated on every control change.
type VoiceRefresh struct {
	Attenuation      float64 // centibels, absolute
	PitchOffsetCents float64 // total modulator pitch contribution (absolute)
	FilterFcCents    float64 // absolute
	FilterQdB        float64
}

// RefreshVoiceParams re-evaluates a sounding voice's modulator list
// against the channel's current controller state. The caller compares
// PitchOffsetCents with the CompiledVoice's start-time PitchModCents to
// derive the relative pitch ratio to post.
func RefreshVoiceParams(gens sfont.GeneratorSet, mods []sfont.Modulator, ch *channel.Channel, key, vel int) VoiceRefresh {
	deltas := EvaluateModulators(mods, ch, key, vel, nil)
	atten := float64(gens[sfont.GenInitialAttenuation]) + deltas[sfont.GenInitialAttenuation]
	if atten < 0 {
		atten = 0
	}
	if atten > 1440 {
		atten = 1440
	}
	return VoiceRefresh{
		Attenuation:      atten,
		PitchOffsetCents: deltas[sfont.GenFineTune] + 100*deltas[sfont.GenCoarseTune],
		FilterFcCents:    float64(gens[sfont.GenInitialFilterFc]) + deltas[sfont.GenInitialFilterFc],
		FilterQdB:        (float64(gens[sfont.GenInitialFilterQ]) + deltas[sfont.GenInitialFilterQ]) / 10,
	}
}

func clampKey(key int) int {
	if key < 0 {
		return 0
	}
	if key > 127 {
		return 127
	}
	return key
}

func keyToHzCompile(key float64) float64     { return 440.0 * math.Exp2((key-69.0)/12.0) }
func centsToHzCompile(cents float64) float64 { return 8.176 * math.Exp2(cents/1200.0) }
