// Package pcm implements the planar-float to interleaved-integer PCM
// conversion kernels used by the Synth Facade's output path.
package pcm

import "math"

// DitherSize and DitherChannels match the reference dither table dimensions.
const (
	DitherSize     = 48000
	DitherChannels = 2
)

// Scale constants: max-1, leaving one code of headroom on the positive side
// so dither statistics stay symmetric. Preserve exactly.
const (
	ScaleS16 = 32766.0
	ScaleS32 = 2147483646.0

	scaleS16 = ScaleS16
	scaleS32 = ScaleS32
)

// Dither returns the dither value for a channel (0 left, 1 right) at
// table index i, for callers that convert channel-by-channel instead of
// through PlanarToS16.
func Dither(channel, i int) float32 {
	return ditherTable[channel&1][i%DitherSize]
}

// ditherTable holds DitherChannels independent first-difference noise
// sequences, each closed so it sums to zero over DitherSize samples.
var ditherTable [DitherChannels][DitherSize]float32

func init() {
	initDither()
}

// initDither builds the dither table as first-difference noise:
// d(i) = u(i) - 0.5, table(i) = d(i) - d(i-1), with the last entry forced
// so each channel's table sums to zero.
func initDither() {
	for c := 0; c < DitherChannels; c++ {
		var dp float64
		for i := 0; i < DitherSize-1; i++ {
			d := pseudoRand(c, i)/math.MaxInt32 - 0.5
			ditherTable[c][i] = float32(d - dp)
			dp = d
		}
		ditherTable[c][DitherSize-1] = float32(0 - dp)
	}
}

// pseudoRand is a small deterministic LCG standing in for libc rand();
// determinism across runs matters more than statistical quality here,
// since the only requirement is a fixed, closed-sum table.
func pseudoRand(channel, i int) float64 {
	seed := uint32(channel*2654435761 + i*40503 + 1)
	seed = seed*1664525 + 1013904223
	return float64(seed & 0x7fffffff)
}

// RoundClipToI16 rounds and clips a float sample to the int16 range.
// NaN maps to 0; +/-Inf saturate to max/min. The infinities must be
// caught before the integer conversion: a float64→int64 conversion of
// an out-of-range value is implementation-defined and does not
// saturate, so the comparison guards below would never see them.
func RoundClipToI16(x float32) int16 {
	f := float64(x)
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 1) || f > math.MaxInt32 {
		return math.MaxInt16
	}
	if math.IsInf(f, -1) || f < math.MinInt32 {
		return math.MinInt16
	}
	var i int64
	if x >= 0 {
		i = int64(x + 0.5)
		if i > 32767 {
			i = 32767
		}
	} else {
		i = int64(x - 0.5)
		if i < -32768 {
			i = -32768
		}
	}
	return int16(i)
}

// RoundClipToI32 rounds and clips a float sample to the int32 range,
// with the same NaN/Inf handling as RoundClipToI16.
func RoundClipToI32(x float32) int32 {
	f := float64(x)
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 1) || f > math.MaxInt32 {
		return math.MaxInt32
	}
	if math.IsInf(f, -1) || f < math.MinInt32 {
		return math.MinInt32
	}
	var i int64
	if x >= 0 {
		i = int64(x + 0.5)
		if i > math.MaxInt32 {
			i = math.MaxInt32
		}
	} else {
		i = int64(x - 0.5)
		if i < math.MinInt32 {
			i = math.MinInt32
		}
	}
	return int32(i)
}

// PlanarToS16 converts planar float buffers (one slice per channel) into an
// interleaved, dithered int16 buffer. dst must have room for frames*channels
// samples at the given stride (in samples, not bytes). di is the starting
// dither-table index and advances once per frame (not per channel),
// wrapping at DitherSize; the returned value is the next di to use on a
// subsequent call so dithering remains continuous across buffer boundaries.
func PlanarToS16(dst []int16, dstStride int, src [][]float32, channels, frames, di int) int {
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			d := ditherTable[ch&1][di]
			dst[f*dstStride+ch] = RoundClipToI16(src[ch][f]*scaleS16 + d)
		}
		di++
		if di >= DitherSize {
			di = 0
		}
	}
	return di
}

// PlanarToS24 converts planar float buffers into interleaved 24-in-32 PCM
// (low 8 bits always zero). No dithering.
func PlanarToS24(dst []int32, dstStride int, src [][]float32, channels, frames int) {
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			s := RoundClipToI32(src[ch][f] * scaleS32)
			dst[f*dstStride+ch] = s & ^int32(0xFF)
		}
	}
}

// PlanarToS32 converts planar float buffers into interleaved signed 32-bit
// PCM. No dithering.
func PlanarToS32(dst []int32, dstStride int, src [][]float32, channels, frames int) {
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			dst[f*dstStride+ch] = RoundClipToI32(src[ch][f] * scaleS32)
		}
	}
}
