// Package fluidcore is a real-time software synthesizer core: it
// renders polyphonic audio from SoundFont 2 instrument banks driven by
// MIDI-style control events. The Synth type is the facade and the only
// control-thread entry point; rendering happens through Process and the
// Write* output methods, which are expected to be called from the audio
// driver's callback.
package fluidcore

import (
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/go-synth/fluidcore/internal/channel"
	"github.com/go-synth/fluidcore/internal/compile"
	"github.com/go-synth/fluidcore/internal/dsp"
	"github.com/go-synth/fluidcore/internal/mixer"
	"github.com/go-synth/fluidcore/internal/ring"
	"github.com/go-synth/fluidcore/internal/rvoice"
	"github.com/go-synth/fluidcore/internal/sfont"
	"github.com/go-synth/fluidcore/internal/voicepool"
)

// loadedFont pairs a soundfont arena with the path it came from, so
// SFReload can re-run the loader.
type loadedFont struct {
	font   *sfont.SoundFont
	path   string
	loader sfont.Loader
}

// Synth owns the channels, the voice pool, the event rings, the mixer
// and the soundfont list. All public methods serialize on an internal
// lock when synth.threadsafe-api is set; internal helpers named
// *Locked assume the lock is held, which is how nested calls from the
// facade's own handlers re-enter without a recursive mutex.
type Synth struct {
	mu      sync.Mutex
	locking bool
	log     *log.Logger

	settings   *Settings
	sampleRate float64

	channels  []*channel.Channel
	partition *channel.Partition

	pool     *voicepool.Pool
	events   *ring.EventRing
	finished *ring.FinishedVoiceRing
	mix      *mixer.Mixer

	fonts   []loadedFont // newest first; preset lookup walks in order
	loaders []sfont.Loader
	nextSF  int

	voiceFont map[*rvoice.Voice]int // live voice -> owning sfid, for refcounts

	interp         int
	gain           float64
	minNoteFrames  int
	killFadeFrames int

	reverbOn, chorusOn bool
	reverbParams       ring.ReverbParams
	chorusParams       ring.ChorusParams

	sched    scheduleHeap
	schedSeq uint64

	planar    [][]float32 // render scratch for the Write* conversions
	ditherIdx int

	closed bool
}

// New creates a synth from the given settings; nil means defaults.
func New(settings *Settings) (*Synth, error) {
	if settings == nil {
		settings = NewSettings()
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "fluidcore"})
	if settings.getBool("synth.verbose") {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	rate := settings.getNum("synth.sample-rate")
	nchan := settings.getInt("synth.midi-channels")
	poly := settings.getInt("synth.polyphony")
	groups := settings.getInt("synth.audio-groups")

	weights := voicepool.Weights{
		Age:              settings.getNum("synth.overflow.age"),
		Volume:           settings.getNum("synth.overflow.volume"),
		Percussion:       settings.getNum("synth.overflow.percussion"),
		Released:         settings.getNum("synth.overflow.released"),
		ImportantChannel: settings.getNum("synth.overflow.important"),
	}
	pool := voicepool.New(poly, weights)
	pool.SetImportantChannels(parseChannelList(settings.getStr("synth.overflow.important-channels")))

	events := ring.NewEventRing(settings.getInt("synth.event-queue-size"))
	finished := ring.NewFinishedVoiceRing(poly + poly/4 + 4)

	rev := ring.ReverbParams{
		RoomSize: settings.getNum("synth.reverb.room-size"),
		Damping:  settings.getNum("synth.reverb.damp"),
		Width:    settings.getNum("synth.reverb.width"),
		Level:    settings.getNum("synth.reverb.level"),
	}
	cho := ring.ChorusParams{
		Voices:  settings.getInt("synth.chorus.nr"),
		Level:   settings.getNum("synth.chorus.level"),
		Speed:   settings.getNum("synth.chorus.speed"),
		DepthMs: settings.getNum("synth.chorus.depth"),
	}

	s := &Synth{
		locking:      settings.getBool("synth.threadsafe-api"),
		log:          logger,
		settings:     settings,
		sampleRate:   rate,
		pool:         pool,
		events:       events,
		finished:     finished,
		voiceFont:    make(map[*rvoice.Voice]int),
		interp:       dsp.InterpCubic,
		gain:         settings.getNum("synth.gain"),
		reverbOn:     settings.getBool("synth.reverb.active"),
		chorusOn:     settings.getBool("synth.chorus.active"),
		reverbParams: rev,
		chorusParams: cho,
		loaders:      []sfont.Loader{sfont.NewRIFFLoader()},
		nextSF:       1,
	}
	s.minNoteFrames = settings.getInt("synth.min-note-length") * int(rate) / 1000
	s.killFadeFrames = int(rate * 0.005)

	style := bankStyleFromSetting(settings.getStr("synth.midi-bank-select"))
	for i := 0; i < nchan; i++ {
		c := channel.NewChannel(i)
		c.BankStyle = style
		s.channels = append(s.channels, c)
	}
	s.partition = channel.NewPartition(nchan)

	s.mix = mixer.New(mixer.Config{
		SampleRate: int(rate),
		DryBuses:   groups,
		MaxVoices:  poly + poly/4 + 4,
		Workers:    settings.getInt("synth.cpu-cores"),
		Gain:       s.gain,
		ReverbOn:   s.reverbOn,
		ChorusOn:   s.chorusOn,
		Reverb:     rev,
		Chorus:     cho,
	}, events, finished)

	for i := 0; i < 2*groups; i++ {
		s.planar = append(s.planar, make([]float32, 0))
	}
	return s, nil
}

func bankStyleFromSetting(v string) channel.BankSelectStyle {
	switch v {
	case "gm":
		return channel.BankStyleGM
	case "xg":
		return channel.BankStyleXG
	case "mma":
		return channel.BankStyleMMA
	default:
		return channel.BankStyleGS
	}
}

func parseChannelList(v string) []int {
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Close tears the synth down: stop posting, drain the ring
// deterministically via the mixer, then drop voices, channels and
// soundfonts, in that order.
func (s *Synth) Close() error {
	s.lock()
	defer s.unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.mix.Close()
	for _, v := range s.finished.Drain() {
		s.releaseFontFor(v)
		s.pool.Reclaim(v)
	}
	s.fonts = nil
	s.channels = nil
	return nil
}

func (s *Synth) lock() {
	if s.locking {
		s.mu.Lock()
	}
}

func (s *Synth) unlock() {
	if s.locking {
		s.mu.Unlock()
	}
}

// reclaimFinished drains the finished-voice ring and returns each
// voice's struct (and its soundfont reference) to the pool.
func (s *Synth) reclaimFinished() {
	for _, v := range s.finished.Drain() {
		s.releaseFontFor(v)
		s.pool.Reclaim(v)
	}
	if n := s.mix.DroppedEvents(); n > 0 {
		s.log.Debug("render thread dropped events", "count", n)
	}
}

func (s *Synth) releaseFontFor(v *rvoice.Voice) {
	sfid, ok := s.voiceFont[v]
	if !ok {
		return
	}
	delete(s.voiceFont, v)
	for _, f := range s.fonts {
		if f.font.ID == sfid {
			f.font.Release()
			return
		}
	}
}

// ActiveVoiceCount reports how many voices currently count against the
// polyphony cap (steal fades in flight are excluded).
func (s *Synth) ActiveVoiceCount() int {
	s.lock()
	defer s.unlock()
	s.reclaimFinished()
	return s.pool.AudibleCount()
}

func (s *Synth) validChannel(ch int) bool { return ch >= 0 && ch < len(s.channels) }

func valid7bit(v int) bool { return v >= 0 && v <= 127 }

// findPreset resolves (bank, prog) across the loaded soundfonts,
// newest first.
func (s *Synth) findPreset(bank, prog int) (*sfont.SoundFont, *sfont.Preset) {
	for _, f := range s.fonts {
		if p := f.font.GetPreset(bank, prog); p != nil {
			return f.font, p
		}
	}
	return nil, nil
}

// NoteOn starts a note. Velocity 0 is treated as NoteOff. A note with
// no matching preset or zone succeeds silently with zero voices.
func (s *Synth) NoteOn(ch, key, vel int) error {
	if !s.validChannel(ch) || !valid7bit(key) || !valid7bit(vel) {
		return newError(KindInvalidArgument, "noteon", "channel=%d key=%d vel=%d", ch, key, vel)
	}
	s.lock()
	defer s.unlock()
	if s.closed {
		return newError(KindState, "noteon", "synth is closed")
	}
	return s.noteOnLocked(ch, key, vel)
}

func (s *Synth) noteOnLocked(chnum, key, vel int) error {
	s.reclaimFinished()
	ch := s.channels[chnum]

	sf, preset := s.findPreset(ch.Bank, ch.Program)
	if preset == nil {
		// Still run the channel state machine so the mono note stack
		// and portamento memory stay coherent; the note is silent.
		channel.NoteOn(ch, key, vel, nil, ch.CC[65] >= 64)
		s.log.Debug("no preset", "channel", chnum, "bank", ch.Bank, "prog", ch.Program)
		return nil
	}

	entries := s.pool.OnChannel(chnum, nil)
	sounding := make([]compile.Sounding, len(entries))
	for i, e := range entries {
		sounding[i] = e
	}

	pedalOn := ch.CC[65] >= 64
	res := compile.CompileNoteOn(ch, sf, preset, key, vel, sounding, pedalOn, s.interp, s.sampleRate)
	if res.NoteOff {
		return s.noteOffLocked(chnum, key)
	}
	if res.Suppressed {
		return nil
	}

	evs := make([]ring.Event, 0, len(res.Starts)*2+len(res.LegatoActions)+4)

	for _, la := range res.LegatoActions {
		if la.VoiceIndex >= len(entries) {
			continue
		}
		e := entries[la.VoiceIndex]
		switch la.Action {
		case channel.ActionRetriggerFastRelease:
			evs = append(evs, ring.Event{Method: ring.MethodVoiceOff, Voice: e.Voice, IntParam: s.killFadeFrames})
			e.Released = true
		case channel.ActionRetriggerNormalRelease:
			evs = append(evs, ring.Event{Method: ring.MethodNoteOff, Voice: e.Voice})
			e.Released = true
		case channel.ActionMultiRetrigger:
			evs = append(evs, ring.Event{Method: ring.MethodRetrigger, Voice: e.Voice, IntParam: key, Real: [5]float64{s.hzForKey(ch, key)}})
			e.Key, e.Vel = key, vel
		case channel.ActionRepitchOnly:
			evs = append(evs, ring.Event{Method: ring.MethodRepitch, Voice: e.Voice, Real: [5]float64{s.hzForKey(ch, key)}})
			e.Key = key
		case channel.ActionRepitchAndRefilter:
			r := compile.RefreshVoiceParams(e.Gens, e.Mods, ch, key, e.Vel)
			evs = append(evs, ring.Event{Method: ring.MethodRepitch, Voice: e.Voice, IntParam: 1, Real: [5]float64{s.hzForKey(ch, key), r.FilterFcCents}})
			e.Key = key
		}
	}

	for _, class := range res.ExclusiveKill {
		for _, e := range entries {
			if e.Exclusive == class && !e.Released {
				evs = append(evs, ring.Event{Method: ring.MethodVoiceOff, Voice: e.Voice, IntParam: s.killFadeFrames})
				e.Released = true
			}
		}
	}

	if res.ReleaseSameNote {
		for _, e := range entries {
			if e.Key == key && e.Sustained {
				evs = append(evs, ring.Event{Method: ring.MethodNoteOff, Voice: e.Voice})
				e.Sustained = false
				e.Released = true
			}
		}
	}

	portFrom, portFrames := -1, 0
	if res.Portamento.Valid {
		portFrom = res.Portamento.FromKey
		portFrames = s.portamentoFrames(ch)
	}

	type pendingStart struct {
		entry    *voicepool.Entry
		eventIdx int
	}
	var started []pendingStart

	for i := range res.Starts {
		cv := &res.Starts[i]
		entry, victim := s.pool.Allocate(sf.ID, chnum, key, vel)
		if entry == nil {
			s.log.Warn("voice pool exhausted", "channel", chnum, "key", key)
			continue
		}
		if victim != nil {
			evs = append(evs, ring.Event{Method: ring.MethodForceKillShortRelease, Voice: victim.Voice, IntParam: s.killFadeFrames})
		}
		entry.Zone = cv.Params.Zone
		entry.Exclusive = cv.Params.ExclusiveClass
		entry.AttenuationCB = cv.Params.Attenuation
		entry.Gens, entry.Mods, entry.PitchModCents = cv.Gens, cv.Mods, cv.PitchModCents
		entry.StartFrame = s.mix.FramesRendered()

		params := cv.Params
		params.PortamentoFromKey = portFrom
		params.PortamentoFrames = portFrames

		evs = append(evs, ring.Event{
			Method:   ring.MethodAddVoice,
			Voice:    entry.Voice,
			IntParam: ring.PackNote(chnum, key, vel),
			Start:    params,
			Sample:   cv.Sample,
		})
		started = append(started, pendingStart{entry: entry, eventIdx: len(evs) - 1})
	}

	n := s.events.PushAll(evs)
	if n < len(evs) {
		for _, ps := range started {
			if ps.eventIdx >= n {
				s.pool.Cancel(ps.entry)
			} else {
				s.trackVoiceFont(ps.entry.Voice, sf)
			}
		}
		s.log.Warn("event ring overflow", "posted", n, "wanted", len(evs))
		return newError(KindRingOverflow, "noteon", "event ring full after %d of %d events", n, len(evs))
	}
	for _, ps := range started {
		s.trackVoiceFont(ps.entry.Voice, sf)
	}
	return nil
}

func (s *Synth) trackVoiceFont(v *rvoice.Voice, sf *sfont.SoundFont) {
	s.voiceFont[v] = sf.ID
	sf.Retain()
}

// hzForKey converts a key number plus the channel's tuning table entry
// to the target pitch in Hz.
func (s *Synth) hzForKey(ch *channel.Channel, key int) float64 {
	k := key
	if k < 0 {
		k = 0
	} else if k > 127 {
		k = 127
	}
	cents := float64(ch.Tuning[k])
	return 440.0 * math.Exp2((float64(key)-69.0)/12.0) * math.Exp2(cents/1200.0)
}

// portamentoFrames derives the slide length from CC#5 (portamento
// time); the quadratic taper keeps low controller values usably short.
func (s *Synth) portamentoFrames(ch *channel.Channel) int {
	cc5 := ch.CC[5]
	ms := float64(cc5*cc5) / 64.0
	return int(ms / 1000.0 * s.sampleRate)
}

// NoteOff releases a note, honoring the sustain pedal, the mono note
// stack, and the configured minimum note length.
func (s *Synth) NoteOff(ch, key int) error {
	if !s.validChannel(ch) || !valid7bit(key) {
		return newError(KindInvalidArgument, "noteoff", "channel=%d key=%d", ch, key)
	}
	s.lock()
	defer s.unlock()
	if s.closed {
		return newError(KindState, "noteoff", "synth is closed")
	}
	return s.noteOffLocked(ch, key)
}

func (s *Synth) noteOffLocked(chnum, key int) error {
	s.reclaimFinished()
	ch := s.channels[chnum]
	dec := compile.CompileNoteOff(ch, key)

	entries := s.pool.OnChannel(chnum, nil)
	var evs []ring.Event

	switch {
	case dec.ReleaseAll && ch.Mode.Mono():
		for _, e := range entries {
			evs = s.appendRelease(evs, ch, e)
		}
	case dec.HasSlide:
		// Mono stack still holds notes: slide the sounding voices to
		// the new top of stack instead of releasing them.
		_, topVel := ch.Notes.Top()
		soundingIfaces := make([]channel.SoundingVoice, len(entries))
		for i, e := range entries {
			soundingIfaces[i] = e
		}
		plan := channel.PlanLegato(ch.Legato, soundingIfaces, dec.SlideToKey, topVel)
		for i, action := range plan.VoiceActions {
			e := entries[i]
			switch action {
			case channel.ActionRetriggerFastRelease:
				evs = append(evs, ring.Event{Method: ring.MethodVoiceOff, Voice: e.Voice, IntParam: s.killFadeFrames})
				e.Released = true
			case channel.ActionRetriggerNormalRelease:
				evs = append(evs, ring.Event{Method: ring.MethodNoteOff, Voice: e.Voice})
				e.Released = true
			case channel.ActionMultiRetrigger:
				evs = append(evs, ring.Event{Method: ring.MethodRetrigger, Voice: e.Voice, IntParam: dec.SlideToKey, Real: [5]float64{s.hzForKey(ch, dec.SlideToKey)}})
				e.Key = dec.SlideToKey
			case channel.ActionRepitchOnly:
				evs = append(evs, ring.Event{Method: ring.MethodRepitch, Voice: e.Voice, Real: [5]float64{s.hzForKey(ch, dec.SlideToKey)}})
				e.Key = dec.SlideToKey
			case channel.ActionRepitchAndRefilter:
				r := compile.RefreshVoiceParams(e.Gens, e.Mods, ch, dec.SlideToKey, e.Vel)
				evs = append(evs, ring.Event{Method: ring.MethodRepitch, Voice: e.Voice, IntParam: 1, Real: [5]float64{s.hzForKey(ch, dec.SlideToKey), r.FilterFcCents}})
				e.Key = dec.SlideToKey
			}
		}
	case dec.ReleaseAll:
		// Poly mode: release the voices holding this key.
		for _, e := range entries {
			if e.Key == key && !e.Released {
				evs = s.appendRelease(evs, ch, e)
			}
		}
	}

	if n := s.events.PushAll(evs); n < len(evs) {
		s.log.Warn("event ring overflow on noteoff", "posted", n, "wanted", len(evs))
		return newError(KindRingOverflow, "noteoff", "event ring full")
	}
	return nil
}

// appendRelease posts the right release for one entry: pedal-sustained
// voices are parked instead of released, and releases arriving before
// the minimum note length are deferred render-side.
func (s *Synth) appendRelease(evs []ring.Event, ch *channel.Channel, e *voicepool.Entry) []ring.Event {
	if ch.CC[64] >= 64 {
		e.Sustained = true
		return append(evs, ring.Event{Method: ring.MethodSetSustained, Voice: e.Voice, IntParam: 1})
	}
	delay := 0
	if elapsed := s.mix.FramesRendered() - e.StartFrame; elapsed < uint64(s.minNoteFrames) {
		delay = s.minNoteFrames - int(elapsed)
	}
	e.Released = true
	return append(evs, ring.Event{Method: ring.MethodNoteOff, Voice: e.Voice, IntParam: delay})
}

// CC processes a MIDI control change.
func (s *Synth) CC(ch, num, val int) error {
	if !s.validChannel(ch) || !valid7bit(num) || !valid7bit(val) {
		return newError(KindInvalidArgument, "cc", "channel=%d num=%d val=%d", ch, num, val)
	}
	s.lock()
	defer s.unlock()
	if s.closed {
		return newError(KindState, "cc", "synth is closed")
	}
	return s.ccLocked(ch, num, val)
}

func (s *Synth) ccLocked(chnum, num, val int) error {
	ch := s.channels[chnum]
	prev := ch.CC[num]
	ch.CC[num] = val

	switch num {
	case 0, 32: // bank select MSB/LSB
		ch.Bank = ch.EffectiveBank()
		return nil
	case 2: // breath
		switch channel.BreathCC(ch, val) {
		case channel.BreathRising:
			if ch.SustainedMonoKey >= 0 {
				return s.noteOnLocked(chnum, ch.SustainedMonoKey, breathVel(ch))
			}
		case channel.BreathFalling:
			if ch.SustainedMonoKey >= 0 {
				return s.noteOffLocked(chnum, ch.SustainedMonoKey)
			}
		}
		return nil
	case 5, 65: // portamento time / portamento pedal: read at note-on
		return nil
	case 64: // sustain pedal
		if val < 64 && prev >= 64 {
			return s.releaseSustainedLocked(chnum)
		}
		return nil
	case 84: // portamento control
		ch.PortamentoCtrl = val
		return nil
	case 120: // all sound off
		return s.allSoundOffLocked(chnum)
	case 121: // reset all controllers
		s.resetControllersLocked(chnum)
		return s.refreshChannelVoicesLocked(chnum)
	case 123: // all notes off
		return s.allNotesOffLocked(chnum)
	default:
		return s.refreshChannelVoicesLocked(chnum)
	}
}

func breathVel(ch *channel.Channel) int {
	if ch.BreathVel > 0 {
		return ch.BreathVel
	}
	return 100
}

func (s *Synth) releaseSustainedLocked(chnum int) error {
	ch := s.channels[chnum]
	var evs []ring.Event
	for _, e := range s.pool.OnChannel(chnum, nil) {
		if e.Sustained {
			e.Sustained = false
			// The pedal is up now, so appendRelease takes the plain
			// release path (with min-note-length still honored).
			evs = s.appendRelease(evs, ch, e)
		}
	}
	if n := s.events.PushAll(evs); n < len(evs) {
		return newError(KindRingOverflow, "cc.sustain", "event ring full")
	}
	return nil
}

func (s *Synth) allSoundOffLocked(chnum int) error {
	var evs []ring.Event
	for _, e := range s.pool.OnChannel(chnum, nil) {
		evs = append(evs, ring.Event{Method: ring.MethodVoiceOff, Voice: e.Voice, IntParam: s.killFadeFrames})
		e.Released = true
	}
	s.channels[chnum].AllNotesOff()
	if n := s.events.PushAll(evs); n < len(evs) {
		return newError(KindRingOverflow, "cc.all-sound-off", "event ring full")
	}
	return nil
}

func (s *Synth) allNotesOffLocked(chnum int) error {
	ch := s.channels[chnum]
	var evs []ring.Event
	for _, e := range s.pool.OnChannel(chnum, nil) {
		if !e.Released {
			evs = s.appendRelease(evs, ch, e)
		}
	}
	ch.AllNotesOff()
	if n := s.events.PushAll(evs); n < len(evs) {
		return newError(KindRingOverflow, "cc.all-notes-off", "event ring full")
	}
	return nil
}

func (s *Synth) resetControllersLocked(chnum int) {
	ch := s.channels[chnum]
	for i := range ch.CC {
		ch.CC[i] = 0
	}
	ch.CC[7] = 127
	ch.CC[11] = 127
	ch.CC[10] = 64
	ch.PitchBend = 8192
	ch.Pressure = 0
	ch.PortamentoCtrl = -1
}

// refreshChannelVoicesLocked re-evaluates the modulation graph for
// every sounding voice on the channel and posts the derived parameter
// updates, so SoundFont modulators track the controllers live.
func (s *Synth) refreshChannelVoicesLocked(chnum int) error {
	ch := s.channels[chnum]
	var evs []ring.Event
	for _, e := range s.pool.OnChannel(chnum, nil) {
		if len(e.Mods) == 0 {
			continue
		}
		r := compile.RefreshVoiceParams(e.Gens, e.Mods, ch, e.Key, e.Vel)
		ratio := math.Exp2((r.PitchOffsetCents - e.PitchModCents) / 1200.0)
		if !ch.Muted {
			evs = append(evs, ring.Event{Method: ring.MethodSetAttenuation, Voice: e.Voice, Real: [5]float64{r.Attenuation}})
			e.AttenuationCB = r.Attenuation
		}
		evs = append(evs,
			ring.Event{Method: ring.MethodSetPitchBend, Voice: e.Voice, Real: [5]float64{ratio}},
			ring.Event{Method: ring.MethodSetFilterFc, Voice: e.Voice, Real: [5]float64{r.FilterFcCents}},
			ring.Event{Method: ring.MethodSetFilterQ, Voice: e.Voice, Real: [5]float64{r.FilterQdB}},
		)
	}
	if n := s.events.PushAll(evs); n < len(evs) {
		s.log.Warn("event ring overflow on controller refresh", "channel", chnum)
		return newError(KindRingOverflow, "cc.refresh", "event ring full")
	}
	return nil
}

// PitchBend applies a 14-bit pitch wheel value (0..16383, 8192 center).
func (s *Synth) PitchBend(ch, val int) error {
	if !s.validChannel(ch) || val < 0 || val > 16383 {
		return newError(KindInvalidArgument, "pitch-bend", "channel=%d val=%d", ch, val)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].PitchBend = val
	return s.refreshChannelVoicesLocked(ch)
}

// PitchWheelSens sets the bend range in semitones.
func (s *Synth) PitchWheelSens(ch, semitones int) error {
	if !s.validChannel(ch) || semitones < 0 || semitones > 72 {
		return newError(KindInvalidArgument, "pitch-wheel-sens", "channel=%d semitones=%d", ch, semitones)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].PitchWheelSensCents = semitones * 100
	return s.refreshChannelVoicesLocked(ch)
}

// ChannelPressure applies channel aftertouch.
func (s *Synth) ChannelPressure(ch, val int) error {
	if !s.validChannel(ch) || !valid7bit(val) {
		return newError(KindInvalidArgument, "channel-pressure", "channel=%d val=%d", ch, val)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].Pressure = val
	return s.refreshChannelVoicesLocked(ch)
}

// KeyPressure applies polyphonic aftertouch for one key.
func (s *Synth) KeyPressure(ch, key, val int) error {
	if !s.validChannel(ch) || !valid7bit(key) || !valid7bit(val) {
		return newError(KindInvalidArgument, "key-pressure", "channel=%d key=%d val=%d", ch, key, val)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].KeyPressure[key] = val
	return s.refreshChannelVoicesLocked(ch)
}

// ProgramChange selects a program on the channel's current bank.
func (s *Synth) ProgramChange(ch, prog int) error {
	if !s.validChannel(ch) || !valid7bit(prog) {
		return newError(KindInvalidArgument, "program-change", "channel=%d prog=%d", ch, prog)
	}
	s.lock()
	defer s.unlock()
	c := s.channels[ch]
	c.Program = prog
	c.ResetOnProgramChange()
	if _, p := s.findPreset(c.Bank, c.Program); p != nil {
		_ = sfont.AsPresetHandle(p).Notify(sfont.NotifySelected, ch)
	} else {
		s.log.Info("program change to missing preset", "channel", ch, "bank", c.Bank, "prog", prog)
	}
	return nil
}

// BankSelect sets the channel's bank directly, bypassing the CC0/CC32
// style mapping.
func (s *Synth) BankSelect(ch, bank int) error {
	if !s.validChannel(ch) || bank < 0 || bank > 128*128 {
		return newError(KindInvalidArgument, "bank-select", "channel=%d bank=%d", ch, bank)
	}
	s.lock()
	defer s.unlock()
	s.channels[ch].Bank = bank
	return nil
}

// Sysex parses a system-exclusive message. Recognized messages are the
// GM system on/off and the Roland GS / Yamaha XG mode switches; all
// others are accepted and ignored. The returned slice is the response
// payload (nil for the recognized reset messages).
func (s *Synth) Sysex(data []byte) ([]byte, error) {
	s.lock()
	defer s.unlock()
	msg := data
	if len(msg) > 0 && msg[0] == 0xF0 {
		msg = msg[1:]
	}
	if len(msg) > 0 && msg[len(msg)-1] == 0xF7 {
		msg = msg[:len(msg)-1]
	}
	if len(msg) < 4 {
		return nil, nil
	}
	switch {
	case msg[0] == 0x7E && msg[2] == 0x09: // GM system on/off
		s.setBankStyleLocked(channel.BankStyleGM)
		return nil, s.systemResetLocked()
	case msg[0] == 0x41 && len(msg) >= 8 && msg[3] == 0x12 && msg[4] == 0x40 && msg[5] == 0x00 && msg[6] == 0x7F: // GS reset
		s.setBankStyleLocked(channel.BankStyleGS)
		return nil, s.systemResetLocked()
	case msg[0] == 0x43 && len(msg) >= 7 && msg[2] == 0x4C && msg[5] == 0x7E: // XG system on
		s.setBankStyleLocked(channel.BankStyleXG)
		return nil, s.systemResetLocked()
	}
	return nil, nil
}

func (s *Synth) setBankStyleLocked(style channel.BankSelectStyle) {
	for _, c := range s.channels {
		c.BankStyle = style
	}
}

// SystemReset kills every voice and restores every channel to its
// power-on state. Calling it twice yields the same state as once.
func (s *Synth) SystemReset() error {
	s.lock()
	defer s.unlock()
	return s.systemResetLocked()
}

func (s *Synth) systemResetLocked() error {
	var evs []ring.Event
	for _, e := range s.pool.Entries() {
		if !e.Released {
			evs = append(evs, ring.Event{Method: ring.MethodVoiceOff, Voice: e.Voice, IntParam: s.killFadeFrames})
			e.Released = true
		}
	}
	for i, c := range s.channels {
		style := c.BankStyle
		fresh := channel.NewChannel(i)
		fresh.BankStyle = style
		*c = *fresh
	}
	s.partition = channel.NewPartition(len(s.channels))
	if n := s.events.PushAll(evs); n < len(evs) {
		return newError(KindRingOverflow, "system-reset", "event ring full")
	}
	return nil
}
