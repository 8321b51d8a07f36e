package rvoice

// The methods here implement the in-place side of the mono legato
// strategies: a sounding voice is retuned or retriggered for a new key
// instead of being torn down and restarted, so oscillator phase and
// filter history carry across the note transition.

// Repitch retunes the voice to a new root pitch, keeping every other
// piece of state (oscillator phase, envelopes, filter history) intact.
func (v *Voice) Repitch(rootPitchHz float64) {
	v.rootPitchHz = rootPitchHz
	v.incr = phaseIncrement(rootPitchHz, v.Sample, v.outputRateHz)
}

// RepitchWithFilter additionally moves the filter cutoff target, for
// the single-trigger mode that recomputes cutoff on each slide.
func (v *Voice) RepitchWithFilter(rootPitchHz, fcCents float64) {
	v.Repitch(rootPitchHz)
	v.baseFc = fcCents
}

// Retrigger keeps the oscillator phase and filter state but jumps both
// envelopes back into their attack segment for the new key.
func (v *Voice) Retrigger(key int, rootPitchHz float64) {
	v.Key = key
	v.Repitch(rootPitchHz)
	v.released = false
	v.releasePending = false
	v.VolEnv.Retrigger()
	v.ModEnv.Retrigger()
}

// SetAttenuation replaces the voice's attenuation, in centibels. Posted
// when a controller change re-evaluates the modulation graph.
func (v *Voice) SetAttenuation(cb float64) { v.Attenuation = cb }

// SetFilterFcCents moves the base filter cutoff target; the per-frame
// LFO/envelope modulation in Render is applied on top of it.
func (v *Voice) SetFilterFcCents(cents float64) { v.baseFc = cents }

// SetFilterQdB updates the filter resonance.
func (v *Voice) SetFilterQdB(qDB float64) { v.Filter.SetQdB(qDB) }
