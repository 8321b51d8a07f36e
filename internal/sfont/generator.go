package sfont

// Generator enumeration, per SF2 2.04 §8.1.2. Values keep their
// identical numeric positions from the spec since preset files encode
// these as raw indices; a renumbering here would silently corrupt any real
// SF2 file.
type GenID int

const (
	GenStartAddrsOffset GenID = iota
	GenEndAddrsOffset
	GenStartloopAddrsOffset
	GenEndloopAddrsOffset
	GenStartAddrsCoarseOffset
	GenModLfoToPitch
	GenVibLfoToPitch
	GenModEnvToPitch
	GenInitialFilterFc
	GenInitialFilterQ
	GenModLfoToFilterFc
	GenModEnvToFilterFc
	GenEndAddrsCoarseOffset
	GenModLfoToVolume
	GenUnused1
	GenChorusEffectsSend
	GenReverbEffectsSend
	GenPan
	GenUnused2
	GenUnused3
	GenUnused4
	GenDelayModLFO
	GenFreqModLFO
	GenDelayVibLFO
	GenFreqVibLFO
	GenDelayModEnv
	GenAttackModEnv
	GenHoldModEnv
	GenDecayModEnv
	GenSustainModEnv
	GenReleaseModEnv
	GenKeynumToModEnvHold
	GenKeynumToModEnvDecay
	GenDelayVolEnv
	GenAttackVolEnv
	GenHoldVolEnv
	GenDecayVolEnv
	GenSustainVolEnv
	GenReleaseVolEnv
	GenKeynumToVolEnvHold
	GenKeynumToVolEnvDecay
	GenInstrument
	GenReserved1
	GenKeyRange
	GenVelRange
	GenStartloopAddrsCoarseOffset
	GenKeynum
	GenVelocity
	GenInitialAttenuation
	GenReserved2
	GenEndloopAddrsCoarseOffset
	GenCoarseTune
	GenFineTune
	GenSampleID
	GenSampleModes
	GenReserved3
	GenScaleTuning
	GenExclusiveClass
	GenOverridingRootKey
	GenUnused5
	GenCount // 60: sentinel, not a real generator
)

// SampleMode values for GenSampleModes.
const (
	SampleModeNoLoop            = 0
	SampleModeLoopDuringRelease = 1
	SampleModeUnused            = 2 // open question: treat as no-loop per spec.
	SampleModeLoopUntilRelease  = 3
)

// GeneratorSet is the compiled 60-slot parameter vector for a voice.
// Invariant: every voice has exactly one fully populated GeneratorSet the
// moment it begins playing.
type GeneratorSet [GenCount]int16

// Range represents a SF2 key/velocity range generator's two packed bytes.
type Range struct {
	Lo, Hi uint8
}

// Contains reports whether v falls within [Lo,Hi] inclusive.
func (r Range) Contains(v int) bool {
	return v >= int(r.Lo) && v <= int(r.Hi)
}

// UnpackRange reads a GenKeyRange/GenVelRange generator's packed two-byte
// amount (lo in the low byte, hi in the high byte) into a Range.
func UnpackRange(amount int16) Range {
	u := uint16(amount)
	return Range{Lo: uint8(u & 0xFF), Hi: uint8(u >> 8)}
}

// DefaultGenerators returns a set that is all zero except
// GenScaleTuning=100, GenOverridingRootKey=-1 (use the sample's own
// pitch) and GenInitialFilterFc=13500 (filter fully open), matching SF2's
// defined defaults closely enough for the voice compiler to start from a
// sane baseline when a zone doesn't override a slot.
func DefaultGenerators() GeneratorSet {
	var g GeneratorSet
	g[GenScaleTuning] = 100
	g[GenOverridingRootKey] = -1
	g[GenKeyRange] = 0
	g[GenVelRange] = 0
	g[GenInitialFilterFc] = 13500 // absolute cents, ~= fully open
	g[GenSustainVolEnv] = 0
	g[GenSustainModEnv] = 0
	return g
}
