// Package sfont implements the sample-bank data model: immutable samples,
// generator/modulator records, zones, presets, instruments, soundfonts,
// and the Loader capability interface consumed from an external SF2
// parser.
package sfont

// SampleType flags, numeric values as defined by SF2 since they are
// read directly off disk.
type SampleType uint32

const (
	SampleMono      SampleType = 1
	SampleRight     SampleType = 2
	SampleLeft      SampleType = 4
	SampleLinked    SampleType = 8
	SampleOggVorbis SampleType = 0x10
	SampleRom       SampleType = 0x8000
)

// Sample is immutable after load and shared by reference across every
// RVoice that plays it.
type Sample struct {
	Name string

	// Data16 holds mono 16-bit PCM frames. Data8 carries the optional upper
	// 8 bits for 24-bit samples (nil if the sample is 16-bit only).
	Data16 []int16
	Data8  []uint8

	SampleRate int

	LoopStart, LoopEnd int // frame indices; invariant 0 <= LoopStart < LoopEnd <= FrameCount
	FrameCount         int

	OriginalPitch   int  // MIDI note
	PitchCorrection int8 // cents
	Type            SampleType

	// SampleLink indexes a paired Sample for stereo LINKED samples.
	SampleLink int
}

// Valid checks the sample's loop invariant.
func (s *Sample) Valid() bool {
	return s.LoopStart >= 0 && s.LoopStart < s.LoopEnd && s.LoopEnd <= s.FrameCount
}
