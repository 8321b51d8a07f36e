// Package ring implements the lock-free single-producer/single-consumer
// event handoff between the control thread and the render thread.
// A fixed-size array of event records backs each ring; the producer
// writes a slot and then publishes it with one atomic increment of the
// stored count, and the consumer drains slots in push order and
// decrements the same counter. Posting never blocks and never
// allocates, so it is safe to call from inside the audio callback's
// counterpart on the control side as well as from ordinary API calls.
package ring

import (
	"sync/atomic"

	"github.com/go-synth/fluidcore/internal/rvoice"
	"github.com/go-synth/fluidcore/internal/sfont"
)

// Method is the closed set of operations an Event can carry: a fixed,
// one-event-one-opcode surface the render thread switches on, rather
// than an open interface{} payload that would force an allocation per
// post. The compiler emits one complete rvoice.StartParams per voice,
// so voice startup is a single AddVoice record instead of a run of
// per-field setter events.
type Method int

const (
	MethodAddVoice Method = iota
	MethodNoteOff
	MethodVoiceOff
	MethodForceKillShortRelease
	MethodRetrigger
	MethodRepitch
	MethodSetPortamento
	MethodSetPitchBend
	MethodSetAttenuation
	MethodSetFilterFc
	MethodSetFilterQ
	MethodSetSustained
	MethodMixerSetReverbParams
	MethodMixerSetChorusParams
	MethodMixerSetReverbEnabled
	MethodMixerSetChorusEnabled
	MethodMixerSetGain
	methodCount
)

// Event is one fixed-size record posted on the control-to-render
// ring. Voice is the target for voice-addressed methods and nil for
// mixer-addressed ones. Only the fields relevant to Method are
// meaningful; the rest are zero. Embedding StartParams by value
// (instead of a pointer) keeps AddVoice allocation-free since
// StartParams holds no pointers of its own.
type Event struct {
	Method Method
	Voice  *rvoice.Voice

	IntParam int
	Real     [5]float64

	Start  rvoice.StartParams
	Sample *sfont.Sample // immutable, shared; not an allocation per post

	Reverb ReverbParams
	Chorus ChorusParams
}

// PackNote packs a channel/key/velocity triple into AddVoice's
// IntParam; UnpackNote reverses it on the render side.
func PackNote(ch, key, vel int) int { return ch<<16 | (key&0x7f)<<8 | vel&0x7f }

func UnpackNote(p int) (ch, key, vel int) { return p >> 16, (p >> 8) & 0x7f, p & 0x7f }

// ReverbParams carries the reverb's four knobs whole in one event, so
// the next rendered block reflects the complete new parameter set.
type ReverbParams struct {
	RoomSize, Damping, Width, Level float64
}

// ChorusParams carries the chorus unit's parameter set.
type ChorusParams struct {
	Voices                int
	Level, Speed, DepthMs float64
	ModType               int
}

// EventRing is the control-thread-to-render-thread event queue. The
// producer and consumer each own a private index; the atomic stored
// count is the only shared word, so neither side ever reads the
// other's cursor.
type EventRing struct {
	buf      []Event
	stored   atomic.Int32 // number of slots currently holding unread events
	writeIdx int          // producer-only
	readIdx  int          // consumer-only
}

// NewEventRing allocates a ring holding up to capacity events. The
// allocation happens once at setup time, never on the hot path.
func NewEventRing(capacity int) *EventRing {
	return &EventRing{buf: make([]Event, capacity)}
}

// Push stores ev and then publishes it. The capacity pre-check on the
// stored count is safe with a plain Load because only this producer
// ever increments it; the consumer only decrements, so a stale read
// can only over-count and reject early, never overrun. The payload
// write must happen before the stored.Add publish — incrementing
// first would let a concurrent Drain observe the count and read a
// slot that has not been written yet. Push must only be called from
// the control thread; concurrent producers are not supported
// (single-producer by design).
func (r *EventRing) Push(ev Event) bool {
	if int(r.stored.Load()) >= len(r.buf) {
		return false
	}
	r.buf[r.writeIdx%len(r.buf)] = ev
	r.writeIdx++
	r.stored.Add(1)
	return true
}

// PushAll posts every event in evs, stopping at the first failure and
// reporting how many were actually accepted. Events accepted before a
// failure stay queued and are not withdrawn, so for a compound
// operation (e.g. exclusive-class kills followed by an add-voice) the
// returned count tells the caller which prefix of it was posted. The
// activating add-voice event must always be last in evs;
// callers are expected to order them accordingly.
func (r *EventRing) PushAll(evs []Event) int {
	for i, ev := range evs {
		if !r.Push(ev) {
			return i
		}
	}
	return len(evs)
}

// DrainFunc is called once per pending event, in push order, by
// Drain. It must not block and must not allocate.
type DrainFunc func(Event)

// Drain dispatches every currently-stored event, in FIFO order, and
// must only be called from the render thread. It reads sequentially
// up to the stored count, dispatches, advances the read index, and
// decrements stored once per event.
func (r *EventRing) Drain(fn DrainFunc) int {
	n := int(r.stored.Load())
	for i := 0; i < n; i++ {
		ev := r.buf[r.readIdx%len(r.buf)]
		fn(ev)
		r.readIdx++
		r.stored.Add(-1)
	}
	return n
}

// Len reports how many events are currently queued; intended for
// diagnostics and tests, not for gating Push/Drain correctness.
func (r *EventRing) Len() int { return int(r.stored.Load()) }

// FinishedVoiceRing flows the opposite direction of EventRing: the
// render thread posts voices as they finish, and the control thread
// drains them to reclaim pool entries.
type FinishedVoiceRing struct {
	buf      []*rvoice.Voice
	stored   atomic.Int32
	writeIdx int // producer-only
	readIdx  int // consumer-only
}

func NewFinishedVoiceRing(capacity int) *FinishedVoiceRing {
	return &FinishedVoiceRing{buf: make([]*rvoice.Voice, capacity)}
}

// Push is called from the render thread as a voice finishes. A full
// ring silently drops the report rather than blocking the audio
// callback; the pool only reclaims voices drained from this ring, so a
// voice whose report is dropped is not reclaimed. The facade sizes the
// ring to the mixer's full voice capacity, so every voice that can be
// finished at once has a slot.
func (r *FinishedVoiceRing) Push(v *rvoice.Voice) bool {
	if int(r.stored.Load()) >= len(r.buf) {
		return false
	}
	r.buf[r.writeIdx%len(r.buf)] = v
	r.writeIdx++
	r.stored.Add(1)
	return true
}

// Drain returns every pending finished voice, in order, for the
// control thread to reclaim. Must only be called from the control
// thread.
func (r *FinishedVoiceRing) Drain() []*rvoice.Voice {
	n := int(r.stored.Load())
	if n == 0 {
		return nil
	}
	out := make([]*rvoice.Voice, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[r.readIdx%len(r.buf)]
		r.readIdx++
		r.stored.Add(-1)
	}
	return out
}
