package fluidcore

import (
	"github.com/go-synth/fluidcore/internal/audio"
	"github.com/go-synth/fluidcore/internal/pcm"
)

// Process renders frames samples of planar float audio into out, laid
// out as L0,R0,L1,R1,... per dry bus pair. The buffers are zeroed
// before the mixer sums into them. This is the render-role entry
// point; the audio driver's callback is expected to call it.
func (s *Synth) Process(frames int, out [][]float32) error {
	if len(out) < 2 || frames < 0 {
		return newError(KindInvalidArgument, "process", "need at least 2 output channels")
	}
	for i := range out {
		if len(out[i]) < frames {
			return newError(KindInvalidArgument, "process", "output channel %d shorter than %d frames", i, frames)
		}
		buf := out[i][:frames]
		for j := range buf {
			buf[j] = 0
		}
	}
	s.lock()
	defer s.unlock()
	if s.closed {
		return newError(KindState, "process", "synth is closed")
	}
	s.mix.Render(out, frames)
	s.reclaimFinished()
	return nil
}

// renderPlanarLocked renders into the synth's own planar scratch and
// returns it, for the Write* conversion paths.
func (s *Synth) renderPlanarLocked(frames int) ([][]float32, error) {
	if s.closed {
		return nil, newError(KindState, "render", "synth is closed")
	}
	for i := range s.planar {
		if cap(s.planar[i]) < frames {
			s.planar[i] = make([]float32, frames)
		}
		s.planar[i] = s.planar[i][:frames]
		for j := range s.planar[i] {
			s.planar[i][j] = 0
		}
	}
	s.mix.Render(s.planar, frames)
	s.reclaimFinished()
	return s.planar, nil
}

// WriteFloat renders frames stereo samples into the two float buffers,
// each written starting at its offset with its stride (in samples).
func (s *Synth) WriteFloat(frames int, lout []float32, loff, lincr int, rout []float32, roff, rincr int) error {
	s.lock()
	defer s.unlock()
	planar, err := s.renderPlanarLocked(frames)
	if err != nil {
		return err
	}
	for f := 0; f < frames; f++ {
		lout[loff+f*lincr] = planar[0][f]
		rout[roff+f*rincr] = planar[1][f]
	}
	return nil
}

// WriteS16 renders frames stereo samples as dithered signed 16-bit
// PCM. The dither table index is carried across calls so the noise
// sequence is continuous over buffer boundaries.
func (s *Synth) WriteS16(frames int, lout []int16, loff, lincr int, rout []int16, roff, rincr int) error {
	s.lock()
	defer s.unlock()
	planar, err := s.renderPlanarLocked(frames)
	if err != nil {
		return err
	}
	di := s.ditherIdx
	for f := 0; f < frames; f++ {
		lout[loff+f*lincr] = pcm.RoundClipToI16(planar[0][f]*pcm.ScaleS16 + pcm.Dither(0, di))
		rout[roff+f*rincr] = pcm.RoundClipToI16(planar[1][f]*pcm.ScaleS16 + pcm.Dither(1, di))
		di++
		if di >= pcm.DitherSize {
			di = 0
		}
	}
	s.ditherIdx = di
	return nil
}

// WriteS24 renders frames stereo samples as signed 24-bit-in-32 PCM
// (low 8 bits zero, no dither).
func (s *Synth) WriteS24(frames int, lout []int32, loff, lincr int, rout []int32, roff, rincr int) error {
	s.lock()
	defer s.unlock()
	planar, err := s.renderPlanarLocked(frames)
	if err != nil {
		return err
	}
	for f := 0; f < frames; f++ {
		lout[loff+f*lincr] = pcm.RoundClipToI32(planar[0][f]*pcm.ScaleS32) &^ 0xFF
		rout[roff+f*rincr] = pcm.RoundClipToI32(planar[1][f]*pcm.ScaleS32) &^ 0xFF
	}
	return nil
}

// WriteS32 renders frames stereo samples as signed 32-bit PCM (no
// dither).
func (s *Synth) WriteS32(frames int, lout []int32, loff, lincr int, rout []int32, roff, rincr int) error {
	s.lock()
	defer s.unlock()
	planar, err := s.renderPlanarLocked(frames)
	if err != nil {
		return err
	}
	for f := 0; f < frames; f++ {
		lout[loff+f*lincr] = pcm.RoundClipToI32(planar[0][f] * pcm.ScaleS32)
		rout[roff+f*rincr] = pcm.RoundClipToI32(planar[1][f] * pcm.ScaleS32)
	}
	return nil
}

// IntChannel is one output lane of a multi-channel integer write: a
// destination buffer plus its starting offset and stride in samples.
type IntChannel[T int16 | int32] struct {
	Buf    []T
	Off    int
	Stride int
}

// FloatChannel is the float analogue of IntChannel.
type FloatChannel struct {
	Buf    []float32
	Off    int
	Stride int
}

// WriteFloatChannels renders into one float lane per planar synth
// channel (2 per dry bus pair, L then R).
func (s *Synth) WriteFloatChannels(frames int, chans []FloatChannel) error {
	if len(chans) == 0 || len(chans)%2 != 0 {
		return newError(KindInvalidArgument, "write-float-channels", "need an even, nonzero channel count")
	}
	s.lock()
	defer s.unlock()
	planar, err := s.renderPlanarLocked(frames)
	if err != nil {
		return err
	}
	for ci, c := range chans {
		src := planar[ci%len(planar)]
		for f := 0; f < frames; f++ {
			c.Buf[c.Off+f*c.Stride] = src[f]
		}
	}
	return nil
}

// WriteS16Channels is the multi-channel form of WriteS16; even lanes
// dither with the left table, odd lanes with the right.
func (s *Synth) WriteS16Channels(frames int, chans []IntChannel[int16]) error {
	if len(chans) == 0 || len(chans)%2 != 0 {
		return newError(KindInvalidArgument, "write-s16-channels", "need an even, nonzero channel count")
	}
	s.lock()
	defer s.unlock()
	planar, err := s.renderPlanarLocked(frames)
	if err != nil {
		return err
	}
	di := s.ditherIdx
	for f := 0; f < frames; f++ {
		for ci, c := range chans {
			src := planar[ci%len(planar)]
			c.Buf[c.Off+f*c.Stride] = pcm.RoundClipToI16(src[f]*pcm.ScaleS16 + pcm.Dither(ci, di))
		}
		di++
		if di >= pcm.DitherSize {
			di = 0
		}
	}
	s.ditherIdx = di
	return nil
}

// WriteS24Channels is the multi-channel form of WriteS24.
func (s *Synth) WriteS24Channels(frames int, chans []IntChannel[int32]) error {
	if len(chans) == 0 || len(chans)%2 != 0 {
		return newError(KindInvalidArgument, "write-s24-channels", "need an even, nonzero channel count")
	}
	s.lock()
	defer s.unlock()
	planar, err := s.renderPlanarLocked(frames)
	if err != nil {
		return err
	}
	for f := 0; f < frames; f++ {
		for ci, c := range chans {
			src := planar[ci%len(planar)]
			c.Buf[c.Off+f*c.Stride] = pcm.RoundClipToI32(src[f]*pcm.ScaleS32) &^ 0xFF
		}
	}
	return nil
}

// WriteS32Channels is the multi-channel form of WriteS32.
func (s *Synth) WriteS32Channels(frames int, chans []IntChannel[int32]) error {
	if len(chans) == 0 || len(chans)%2 != 0 {
		return newError(KindInvalidArgument, "write-s32-channels", "need an even, nonzero channel count")
	}
	s.lock()
	defer s.unlock()
	planar, err := s.renderPlanarLocked(frames)
	if err != nil {
		return err
	}
	for f := 0; f < frames; f++ {
		for ci, c := range chans {
			src := planar[ci%len(planar)]
			c.Buf[c.Off+f*c.Stride] = pcm.RoundClipToI32(src[f] * pcm.ScaleS32)
		}
	}
	return nil
}

// streamSource adapts the synth to internal/audio's SampleSource so it
// can feed the oto-backed player: interleaved stereo float from the
// first bus pair.
type streamSource struct {
	s *Synth
	l []float32
	r []float32
}

func (ss *streamSource) Process(dst []float32) {
	frames := len(dst) / 2
	if cap(ss.l) < frames {
		ss.l = make([]float32, frames)
		ss.r = make([]float32, frames)
	}
	ss.l, ss.r = ss.l[:frames], ss.r[:frames]
	if err := ss.s.Process(frames, [][]float32{ss.l, ss.r}); err != nil {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	for f := 0; f < frames; f++ {
		dst[2*f] = ss.l[f]
		dst[2*f+1] = ss.r[f]
	}
}

// StreamSource returns an audio.SampleSource view of the synth for
// driving a real-time output device.
func (s *Synth) StreamSource() audio.SampleSource {
	return &streamSource{s: s}
}
