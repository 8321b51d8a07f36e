package pcm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Oracle values for the exact round/clip branch behavior.

func TestRoundClipToI16(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0.0, 0},
		{32766.0, 32766},
		{32767.0, math.MaxInt16},
		{32768.0, math.MaxInt16},
		{2147483520.0, math.MaxInt16},
		{2147483648.0, math.MaxInt16},
		{-2147483648.0, math.MinInt16},
		{-2147483520.0, math.MinInt16},
		{-32766.0, -32766},
		{-32767.0, -32767},
		{-32768.0, math.MinInt16},
		{-0.0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RoundClipToI16(c.in), "input %v", c.in)
	}
}

func TestRoundClipToI32(t *testing.T) {
	cases := []struct {
		in   float32
		want int32
	}{
		{0.0, 0},
		{2147483520.0, 2147483520},
		{2147483646.0, math.MaxInt32},
		{2147483647.0, math.MaxInt32},
		{2147483648.0, math.MaxInt32},
		{-2147483648.0, math.MinInt32},
		{-2147483647.0, math.MinInt32},
		{-2147483646.0, math.MinInt32},
		{-2147483520.0, -2147483520},
		{-0.0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RoundClipToI32(c.in), "input %v", c.in)
	}
}

func TestRoundClipInfinityNaN(t *testing.T) {
	assert.Equal(t, int16(math.MaxInt16), RoundClipToI16(float32(math.Inf(1))))
	assert.Equal(t, int16(math.MinInt16), RoundClipToI16(float32(math.Inf(-1))))
	assert.Equal(t, int16(0), RoundClipToI16(float32(math.NaN())))

	assert.Equal(t, int32(math.MaxInt32), RoundClipToI32(float32(math.Inf(1))))
	assert.Equal(t, int32(math.MinInt32), RoundClipToI32(float32(math.Inf(-1))))
	assert.Equal(t, int32(0), RoundClipToI32(float32(math.NaN())))
}

func TestDitherTableClosedSum(t *testing.T) {
	for ch := 0; ch < DitherChannels; ch++ {
		var sum float64
		for i := 0; i < DitherSize; i++ {
			sum += float64(ditherTable[ch][i])
		}
		assert.InDelta(t, 0.0, sum, 1e-3, "channel %d dither sum should be ~0", ch)
	}
}

func TestPlanarToS24MasksLowByte(t *testing.T) {
	src := [][]float32{{1.0}, {-1.0}}
	dst := make([]int32, 2)
	PlanarToS24(dst, 2, src, 2, 1)
	for _, v := range dst {
		assert.Equal(t, int32(0), v&0xFF)
	}
}

func TestPlanarToS32NoDither(t *testing.T) {
	src := [][]float32{{0.5}, {-0.5}}
	dst := make([]int32, 2)
	PlanarToS32(dst, 2, src, 2, 1)
	assert.Equal(t, RoundClipToI32(0.5*scaleS32), dst[0])
	assert.Equal(t, RoundClipToI32(-0.5*scaleS32), dst[1])
}

func TestPlanarToS16Wraps(t *testing.T) {
	frames := DitherSize + 10
	src := make([][]float32, 2)
	src[0] = make([]float32, frames)
	src[1] = make([]float32, frames)
	dst := make([]int16, frames*2)
	next := PlanarToS16(dst, 2, src, 2, frames, DitherSize-5)
	assert.Equal(t, 5, next)
}
