// Package voicepool implements the fixed-polyphony voice pool and its
// overflow-score stealing policy. The pool is
// control-thread state: it tracks which voices are audible, on which
// channel and key, so the facade can target ring events at them; the
// voices themselves are mutated only by the render thread once started.
package voicepool

import (
	"github.com/go-synth/fluidcore/internal/rvoice"
	"github.com/go-synth/fluidcore/internal/sfont"
)

// percussionChannel is the GM drum channel, scored up so melodic voices
// are stolen before drum hits.
const percussionChannel = 9

// Weights configures the overflow score terms. Higher score survives;
// the minimum-score voice is stolen. Defaults match the original
// synth.overflow.* settings.
type Weights struct {
	Age              float64 // penalty per unit of age (older scores lower)
	Volume           float64 // penalty scaled by attenuation (quieter scores lower)
	Percussion       float64 // bonus for the percussion channel
	Released         float64 // penalty (negative bonus) once released or sustained
	ImportantChannel float64 // bonus for channels marked important
}

func DefaultWeights() Weights {
	return Weights{Age: 1000, Volume: 500, Percussion: 4000, Released: -2000, ImportantChannel: 5000}
}

// Entry is the control-thread bookkeeping for one audible voice. Its
// fields are snapshots taken at allocation time (plus release/sustain
// flags the facade maintains), so reading them never races with the
// render thread's ownership of the Voice itself.
type Entry struct {
	Voice *rvoice.Voice

	SoundFontID int
	Channel     int
	Key, Vel    int
	Exclusive   int
	Zone        rvoice.ZoneRange

	Released  bool
	Sustained bool // held past its note-off by the sustain pedal

	// AttenuationCB and the compiled generator/modulator state are kept
	// so controller changes can re-evaluate the modulation graph
	// without re-matching zones; the pool itself only reads
	// AttenuationCB for the volume score term.
	AttenuationCB float64
	Gens          sfont.GeneratorSet
	Mods          []sfont.Modulator
	PitchModCents float64

	// StartFrame is the mixer's frame counter at allocation, used to
	// enforce the minimum note length.
	StartFrame uint64

	order uint64
}

// InRangeFor, ExclusiveClassOf, KeyOf and PedalSustained satisfy
// compile.Sounding so entries can be handed straight to the compiler.
func (e *Entry) InRangeFor(key, vel int) bool { return e.Zone.Contains(key, vel) }
func (e *Entry) ExclusiveClassOf() int        { return e.Exclusive }
func (e *Entry) KeyOf() int                   { return e.Key }
func (e *Entry) PedalSustained() bool         { return e.Sustained }

// Pool holds the fixed set of voices. Audible entries are capped at the
// configured polyphony; the free list carries a margin of extra voice
// structs so a stolen voice can keep rendering its anti-click fade
// while its replacement starts.
type Pool struct {
	polyphony int
	weights   Weights
	important map[int]bool

	entries []*Entry
	free    []*rvoice.Voice
	order   uint64
}

// New creates a pool with the given polyphony. The margin of extra
// voice structs (a quarter of the polyphony plus four) exists only
// to carry steal fades; it never raises the audible-voice cap.
func New(polyphony int, w Weights) *Pool {
	if polyphony < 1 {
		polyphony = 1
	}
	margin := polyphony/4 + 4
	p := &Pool{
		polyphony: polyphony,
		weights:   w,
		important: make(map[int]bool),
		entries:   make([]*Entry, 0, polyphony),
		free:      make([]*rvoice.Voice, 0, polyphony+margin),
	}
	for i := 0; i < polyphony+margin; i++ {
		p.free = append(p.free, &rvoice.Voice{})
	}
	return p
}

// SetImportantChannels marks the channels whose voices receive the
// important-channel score bonus.
func (p *Pool) SetImportantChannels(chans []int) {
	p.important = make(map[int]bool, len(chans))
	for _, c := range chans {
		p.important[c] = true
	}
}

// Allocate claims an entry for a new voice. If the pool is at its
// polyphony cap, the lowest-scoring entry is evicted and returned as
// victim so the caller can post a short-release kill for it; the victim
// keeps its Voice until the render thread reports it finished. If even
// the free list is exhausted (every margin voice is still fading), the
// victim's own Voice is reused directly and its fade is cut short.
func (p *Pool) Allocate(sfid, ch, key, vel int) (entry, victim *Entry) {
	if len(p.entries) >= p.polyphony {
		victim = p.evict()
	}

	var v *rvoice.Voice
	if n := len(p.free); n > 0 {
		v = p.free[n-1]
		p.free = p.free[:n-1]
	} else if victim != nil {
		v = victim.Voice
		victim = nil // the fade is cut; no separate kill needed
	} else {
		return nil, nil
	}

	p.order++
	entry = &Entry{
		Voice:       v,
		SoundFontID: sfid,
		Channel:     ch,
		Key:         key,
		Vel:         vel,
		order:       p.order,
	}
	p.entries = append(p.entries, entry)
	return entry, victim
}

// evict removes and returns the minimum-score entry; ties are broken by
// age, older dies.
func (p *Pool) evict() *Entry {
	best := 0
	bestScore := p.score(p.entries[0])
	for i := 1; i < len(p.entries); i++ {
		s := p.score(p.entries[i])
		if s < bestScore || (s == bestScore && p.entries[i].order < p.entries[best].order) {
			best, bestScore = i, s
		}
	}
	victim := p.entries[best]
	p.entries[best] = p.entries[len(p.entries)-1]
	p.entries = p.entries[:len(p.entries)-1]
	return victim
}

// score is the overflow steal score: a weighted sum of the
// age, volume, percussion, released and important-channel terms.
func (p *Pool) score(e *Entry) float64 {
	s := 0.0
	if e.Released || e.Sustained {
		s += p.weights.Released
	}
	if e.Channel == percussionChannel {
		s += p.weights.Percussion
	}
	if p.important[e.Channel] {
		s += p.weights.ImportantChannel
	}
	age := float64(p.order - e.order)
	s -= p.weights.Age * age / float64(p.polyphony)
	s -= p.weights.Volume * e.AttenuationCB / 1440
	return s
}

// Cancel rolls back an Allocate whose start event never made it onto
// the ring: the entry is dropped and its voice returns to the free
// list immediately, since the render thread never saw it.
func (p *Pool) Cancel(e *Entry) {
	for i, cur := range p.entries {
		if cur == e {
			p.entries[i] = p.entries[len(p.entries)-1]
			p.entries = p.entries[:len(p.entries)-1]
			break
		}
	}
	e.Voice.Reset()
	p.free = append(p.free, e.Voice)
}

// Reclaim returns a finished voice's struct to the free list and drops
// its entry if one is still tracked (a stolen voice's entry is already
// gone by the time its fade completes).
func (p *Pool) Reclaim(v *rvoice.Voice) {
	for i, e := range p.entries {
		if e.Voice == v {
			p.entries[i] = p.entries[len(p.entries)-1]
			p.entries = p.entries[:len(p.entries)-1]
			break
		}
	}
	v.Reset()
	p.free = append(p.free, v)
}

// Entries returns the audible entries; the slice is the pool's own and
// must not be retained across Allocate/Reclaim calls.
func (p *Pool) Entries() []*Entry { return p.entries }

// OnChannel appends every audible entry on channel ch to dst and
// returns it.
func (p *Pool) OnChannel(ch int, dst []*Entry) []*Entry {
	for _, e := range p.entries {
		if e.Channel == ch {
			dst = append(dst, e)
		}
	}
	return dst
}

// AudibleCount reports how many entries currently count against the
// polyphony cap.
func (p *Pool) AudibleCount() int { return len(p.entries) }

// Polyphony reports the configured cap.
func (p *Pool) Polyphony() int { return p.polyphony }
