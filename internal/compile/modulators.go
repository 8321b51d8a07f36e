package compile

import (
	"math"

	"github.com/go-synth/fluidcore/internal/channel"
	"github.com/go-synth/fluidcore/internal/sfont"
)

// CombineModulators layers modulator lists in priority order — later
// lists win on identity collisions, earlier ones otherwise survive
// unchanged: identity replaces, everything else appends. Callers pass
// lists from lowest to highest precedence, e.g.
// CombineModulators(sfont.DefaultModulators(), presetMods, instMods).
func CombineModulators(lists ...[]sfont.Modulator) []sfont.Modulator {
	var combined []sfont.Modulator
	for _, list := range lists {
		for _, m := range list {
			replaced := false
			for i := range combined {
				if combined[i].Identity(m) {
					combined[i] = m
					replaced = true
					break
				}
			}
			if !replaced {
				combined = append(combined, m)
			}
		}
	}
	return combined
}

// CustomCurveFunc lets a caller supply the mapping for a modulator
// source flagged ModCustom. rawValue is the
// controller's unmapped value (0-127 for a CC, 0-16383 for pitch
// wheel, etc.) — the callback returns the mapped value in [-1,+1].
type CustomCurveFunc func(src sfont.ModSource, rawValue float64) float64

// EvaluateModulators maps every modulator's two sources through their
// polarity/unipolarity/curve flags, multiplies them together with the
// amount, optionally takes the absolute value, and accumulates the
// result onto its destination generator slot.
func EvaluateModulators(mods []sfont.Modulator, ch *channel.Channel, key, vel int, custom CustomCurveFunc) [sfont.GenCount]float64 {
	var deltas [sfont.GenCount]float64
	for _, m := range mods {
		v1 := mapSource(m.Src1, ch, key, vel, custom)
		v2 := 1.0
		if m.Src2.Controller != int(sfont.SrcNone) || m.Src2.Flags&sfont.ModCC != 0 {
			v2 = mapSource(m.Src2, ch, key, vel, custom)
		}
		delta := v1 * v2 * float64(m.Amount)
		if m.Transform == sfont.TransformAbs {
			delta = math.Abs(delta)
		}
		deltas[m.Dest] += delta
	}
	return deltas
}

// controllerValue returns a source's raw controller reading and the
// full-scale value that reading is measured against.
func controllerValue(src sfont.ModSource, ch *channel.Channel, key, vel int) (raw, fullScale float64) {
	if src.IsCC() {
		return float64(ch.CC[src.Controller]), 127
	}
	switch sfont.ModSrc(src.Controller) {
	case sfont.SrcVelocity:
		return float64(vel), 127
	case sfont.SrcKey:
		return float64(key), 127
	case sfont.SrcKeyPressure:
		k := key
		if k < 0 {
			k = 0
		} else if k > 127 {
			k = 127
		}
		return float64(ch.KeyPressure[k]), 127
	case sfont.SrcChannelPressure:
		return float64(ch.Pressure), 127
	case sfont.SrcPitchWheel:
		return float64(ch.PitchBend), 16383
	default:
		return 0, 1
	}
}

// mapSource maps a source's raw controller value through its
// polarity × unipolarity × curve flags, producing a real in [-1,+1] (or
// [0,1] for a unipolar source). PitchWheelSens is the one general
// controller SF2 treats as a raw passthrough rather than a mapped
// axis — it returns the channel's configured bend range as a fraction
// of 12700 cents, so the default pitch-wheel modulator (amount 12700)
// bends by exactly that range at full deflection, and it skips the
// curve pipeline entirely.
func mapSource(src sfont.ModSource, ch *channel.Channel, key, vel int, custom CustomCurveFunc) float64 {
	if !src.IsCC() && sfont.ModSrc(src.Controller) == sfont.SrcPitchWheelSens {
		return float64(ch.PitchWheelSensCents) / 12700.0
	}

	raw, fullScale := controllerValue(src, ch, key, vel)

	if src.Flags&sfont.ModCustom != 0 {
		if custom != nil {
			return custom(src, raw)
		}
		return 0
	}

	var x float64
	bipolar := src.Flags&sfont.ModBipolar != 0
	if bipolar {
		x = 2*(raw/fullScale) - 1
	} else {
		x = raw / fullScale
	}

	negative := src.Flags&1 != 0 // ModNegative = 1, ModPositive = 0
	if negative {
		if bipolar {
			x = -x
		} else {
			x = 1 - x
		}
	}

	switch src.Flags & 12 { // ModLinear=0, ModConcave=4, ModConvex=8, ModSwitch=12
	case sfont.ModConcave:
		x = concaveCurve(x)
	case sfont.ModConvex:
		x = convexCurve(x)
	case sfont.ModSwitch:
		if x >= 0.5 {
			x = 1
		} else {
			x = 0
		}
	}
	return x
}

// concaveCurve and convexCurve are closed-form renditions of SF2's
// logarithmic velocity-curve shapes: flat-then-steep and
// steep-then-flat respectively, both fixed at the endpoints.
func concaveCurve(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1
		x = -x
	}
	return sign * (1 - math.Log10(1+9*(1-x)))
}

func convexCurve(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1
		x = -x
	}
	return sign * math.Log10(1+9*x)
}
