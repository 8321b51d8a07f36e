// Package mixer owns the render-thread side of the synth: it drains
// the event ring, advances every active voice one block at a time,
// sums voice output into dry and effect buses, runs the reverb and
// chorus units over the effect buses, and writes the result into the
// caller's planar output buffers. Everything here runs
// inside the audio driver's callback; after construction no path
// through Render allocates, locks, or blocks.
package mixer

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/go-synth/fluidcore/internal/dsp"
	"github.com/go-synth/fluidcore/internal/effects"
	"github.com/go-synth/fluidcore/internal/ring"
	"github.com/go-synth/fluidcore/internal/rvoice"
)

// BlockSize is the render quantum: events are drained and voice
// parameters sampled once per block.
const BlockSize = 64

// shortKillFrames is the fallback anti-click fade length for voice-off
// and steal kills that don't specify their own.
const shortKillFrames = BlockSize

// Config fixes the mixer's topology at construction time.
type Config struct {
	SampleRate int
	DryBuses   int // stereo dry buses (synth.audio-groups)
	MaxVoices  int // active-list capacity; pool polyphony plus its steal margin
	Workers    int // voice-render fan-out (synth.cpu-cores)

	Gain float64

	ReverbOn bool
	ChorusOn bool
	Reverb   ring.ReverbParams
	Chorus   ring.ChorusParams
}

type stereoBus struct {
	l, r []float32
}

// workerState is the per-worker scratch for the optional fan-out: each
// worker accumulates its stripe of voices into private buses, then the
// barrier join sums the stripes serially.
type workerState struct {
	scratch []rvoice.BusOutput
	dry     []stereoBus
	rev     stereoBus
	cho     stereoBus
}

// Mixer is exclusively owned by the render thread; the control thread
// reaches it only through ring events and the atomic counters below.
type Mixer struct {
	cfg    Config
	events *ring.EventRing
	done   *ring.FinishedVoiceRing

	active   []*rvoice.Voice
	produced []int

	dry []stereoBus
	rev stereoBus
	cho stereoBus

	reverb   *dsp.Reverb
	chorus   *dsp.Chorus
	revChain *effects.Chain
	choChain *effects.Chain
	reverbOn bool
	chorusOn bool
	gain     float64

	workers []workerState

	frames        atomic.Uint64
	activeCount   atomic.Int32
	droppedEvents atomic.Uint64
}

func newBus(n int) stereoBus { return stereoBus{l: make([]float32, n), r: make([]float32, n)} }

// New builds a mixer; all buffers, effect delay lines and worker
// scratch are allocated here, once.
func New(cfg Config, events *ring.EventRing, done *ring.FinishedVoiceRing) *Mixer {
	if cfg.DryBuses < 1 {
		cfg.DryBuses = 1
	}
	if cfg.MaxVoices < 1 {
		cfg.MaxVoices = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	m := &Mixer{
		cfg:      cfg,
		events:   events,
		done:     done,
		active:   make([]*rvoice.Voice, 0, cfg.MaxVoices),
		produced: make([]int, cfg.MaxVoices),
		rev:      newBus(BlockSize),
		cho:      newBus(BlockSize),
		reverbOn: cfg.ReverbOn,
		chorusOn: cfg.ChorusOn,
		gain:     cfg.Gain,
	}
	for i := 0; i < cfg.DryBuses; i++ {
		m.dry = append(m.dry, newBus(BlockSize))
	}

	m.reverb = dsp.NewReverb(cfg.SampleRate, cfg.Reverb.RoomSize, cfg.Reverb.Damping, cfg.Reverb.Width, cfg.Reverb.Level)
	// The chorus allocates its full line capacity up front so later
	// parameter events can retune it without allocating on this thread.
	m.chorus = dsp.NewChorus(cfg.SampleRate, dsp.MaxChorusLines, cfg.Chorus.Level, cfg.Chorus.Speed, cfg.Chorus.DepthMs, chorusWave(cfg.Chorus.ModType))
	m.chorus.SetParams(cfg.Chorus.Voices, cfg.Chorus.Level, cfg.Chorus.Speed, cfg.Chorus.DepthMs, chorusWave(cfg.Chorus.ModType))
	m.revChain = effects.NewChain(m.reverb)
	m.choChain = effects.NewChain(m.chorus)

	for w := 0; w < cfg.Workers; w++ {
		ws := workerState{
			scratch: make([]rvoice.BusOutput, BlockSize),
			rev:     newBus(BlockSize),
			cho:     newBus(BlockSize),
		}
		for i := 0; i < cfg.DryBuses; i++ {
			ws.dry = append(ws.dry, newBus(BlockSize))
		}
		m.workers = append(m.workers, ws)
	}
	return m
}

func chorusWave(t int) dsp.ChorusWaveform {
	if t == 1 {
		return dsp.ChorusTriangle
	}
	return dsp.ChorusSine
}

// Render produces frames samples into out, a planar buffer list laid
// out as L0,R0,L1,R1,... per dry bus. When out carries fewer channel
// pairs than there are dry buses, the extra buses fold into the first
// pair. Must be called from exactly one goroutine (the render role).
func (m *Mixer) Render(out [][]float32, frames int) {
	for done := 0; done < frames; {
		n := frames - done
		if n > BlockSize {
			n = BlockSize
		}
		m.renderBlock(n)
		for b := range m.dry {
			li := (2 * b) % len(out)
			ri := (2*b + 1) % len(out)
			for i := 0; i < n; i++ {
				out[li][done+i] += m.dry[b].l[i] * float32(m.gain)
				out[ri][done+i] += m.dry[b].r[i] * float32(m.gain)
			}
		}
		done += n
		m.frames.Add(uint64(n))
	}
}

func (m *Mixer) renderBlock(n int) {
	// Events drained at block start are all applied before any sample
	// is produced.
	m.events.Drain(m.dispatch)

	for b := range m.dry {
		zero(m.dry[b].l[:n])
		zero(m.dry[b].r[:n])
	}
	zero(m.rev.l[:n])
	zero(m.rev.r[:n])
	zero(m.cho.l[:n])
	zero(m.cho.r[:n])

	if len(m.workers) > 1 && len(m.active) > 1 {
		m.renderVoicesParallel(n)
	} else {
		m.renderVoicesSerial(n)
	}

	m.runEffects(n)
}

func (m *Mixer) renderVoicesSerial(n int) {
	ws := &m.workers[0]
	for i := 0; i < len(m.active); {
		v := m.active[i]
		produced := v.Render(ws.scratch[:n])
		m.accumulate(v, ws.scratch[:produced], m.dry, &m.rev, &m.cho)
		if produced < n || v.Finished() {
			m.removeActive(i)
		} else {
			i++
		}
	}
}

// renderVoicesParallel stripes the active voices across the workers.
// Each worker owns a disjoint voice subset and private accumulation
// buses; the errgroup Wait is the barrier join before the serial sum
// step, so voice rendering parallelizes but the bus mix stays
// deterministic.
func (m *Mixer) renderVoicesParallel(n int) {
	var g errgroup.Group
	nw := len(m.workers)
	for w := 0; w < nw; w++ {
		ws := &m.workers[w]
		stripe := w
		for b := range ws.dry {
			zero(ws.dry[b].l[:n])
			zero(ws.dry[b].r[:n])
		}
		zero(ws.rev.l[:n])
		zero(ws.rev.r[:n])
		zero(ws.cho.l[:n])
		zero(ws.cho.r[:n])
		g.Go(func() error {
			for i := stripe; i < len(m.active); i += nw {
				v := m.active[i]
				produced := v.Render(ws.scratch[:n])
				m.produced[i] = produced
				m.accumulate(v, ws.scratch[:produced], ws.dry, &ws.rev, &ws.cho)
			}
			return nil
		})
	}
	_ = g.Wait()

	for w := range m.workers {
		ws := &m.workers[w]
		for b := range ws.dry {
			addInto(m.dry[b].l[:n], ws.dry[b].l[:n])
			addInto(m.dry[b].r[:n], ws.dry[b].r[:n])
		}
		addInto(m.rev.l[:n], ws.rev.l[:n])
		addInto(m.rev.r[:n], ws.rev.r[:n])
		addInto(m.cho.l[:n], ws.cho.l[:n])
		addInto(m.cho.r[:n], ws.cho.r[:n])
	}

	for i := 0; i < len(m.active); {
		if m.produced[i] < n || m.active[i].Finished() {
			m.produced[i] = m.produced[len(m.active)-1]
			m.removeActive(i)
		} else {
			i++
		}
	}
}

func (m *Mixer) accumulate(v *rvoice.Voice, frames []rvoice.BusOutput, dry []stereoBus, rev, cho *stereoBus) {
	bus := v.DryBus
	if bus < 0 || bus >= len(dry) {
		bus = 0
	}
	d := dry[bus]
	for i := range frames {
		d.l[i] += frames[i].DryL
		d.r[i] += frames[i].DryR
		rev.l[i] += frames[i].ReverbL
		rev.r[i] += frames[i].ReverbR
		cho.l[i] += frames[i].ChorusL
		cho.r[i] += frames[i].ChorusR
	}
}

// removeActive swaps voice i with the tail, shrinks the list, and
// reports the voice finished so the control thread can reclaim it.
func (m *Mixer) removeActive(i int) {
	v := m.active[i]
	m.active[i] = m.active[len(m.active)-1]
	m.active = m.active[:len(m.active)-1]
	m.activeCount.Store(int32(len(m.active)))
	m.done.Push(v)
}

// runEffects runs reverb and chorus over their buses and mixes the wet
// signal back into the first dry bus. The effect units return input
// plus wet, so the input is subtracted back out: the voices' dry
// contribution is already on the dry buses.
func (m *Mixer) runEffects(n int) {
	d := m.dry[0]
	if m.reverbOn {
		for i := 0; i < n; i++ {
			inL, inR := m.rev.l[i], m.rev.r[i]
			wl, wr := m.revChain.Process(inL, inR)
			d.l[i] += wl - inL
			d.r[i] += wr - inR
		}
	}
	if m.chorusOn {
		for i := 0; i < n; i++ {
			inL, inR := m.cho.l[i], m.cho.r[i]
			wl, wr := m.choChain.Process(inL, inR)
			d.l[i] += wl - inL
			d.r[i] += wr - inR
		}
	}
}

// dispatch applies one ring event. Unknown methods and full active
// lists drop the event with a counter rather than disturbing the
// block; the render thread never surfaces errors synchronously.
func (m *Mixer) dispatch(ev ring.Event) {
	switch ev.Method {
	case ring.MethodAddVoice:
		ch, key, vel := ring.UnpackNote(ev.IntParam)
		ev.Voice.Start(ev.Sample, ch, key, vel, ev.Start, float64(m.cfg.SampleRate))
		for _, v := range m.active {
			if v == ev.Voice {
				return // steal fallback reused a still-active voice in place
			}
		}
		if len(m.active) >= cap(m.active) {
			m.droppedEvents.Add(1)
			m.done.Push(ev.Voice)
			return
		}
		m.active = append(m.active, ev.Voice)
		m.activeCount.Store(int32(len(m.active)))
	case ring.MethodNoteOff:
		ev.Voice.ReleaseAfter(ev.IntParam)
	case ring.MethodVoiceOff, ring.MethodForceKillShortRelease:
		frames := ev.IntParam
		if frames <= 0 {
			frames = shortKillFrames
		}
		ev.Voice.ForceKillShortRelease(frames)
	case ring.MethodRetrigger:
		ev.Voice.Retrigger(ev.IntParam, ev.Real[0])
	case ring.MethodRepitch:
		if ev.IntParam != 0 {
			ev.Voice.RepitchWithFilter(ev.Real[0], ev.Real[1])
		} else {
			ev.Voice.Repitch(ev.Real[0])
		}
	case ring.MethodSetPortamento:
		ev.Voice.SetPortamento(ev.IntParam, int(ev.Real[0]))
	case ring.MethodSetPitchBend:
		ev.Voice.SetPitchBend(ev.Real[0])
	case ring.MethodSetAttenuation:
		ev.Voice.SetAttenuation(ev.Real[0])
	case ring.MethodSetFilterFc:
		ev.Voice.SetFilterFcCents(ev.Real[0])
	case ring.MethodSetFilterQ:
		ev.Voice.SetFilterQdB(ev.Real[0])
	case ring.MethodSetSustained:
		ev.Voice.SetSustained(ev.IntParam != 0)
	case ring.MethodMixerSetReverbParams:
		m.reverb.SetParams(m.cfg.SampleRate, ev.Reverb.RoomSize, ev.Reverb.Damping, ev.Reverb.Width, ev.Reverb.Level)
	case ring.MethodMixerSetChorusParams:
		m.chorus.SetParams(ev.Chorus.Voices, ev.Chorus.Level, ev.Chorus.Speed, ev.Chorus.DepthMs, chorusWave(ev.Chorus.ModType))
	case ring.MethodMixerSetReverbEnabled:
		m.reverbOn = ev.IntParam != 0
	case ring.MethodMixerSetChorusEnabled:
		m.chorusOn = ev.IntParam != 0
	case ring.MethodMixerSetGain:
		m.gain = ev.Real[0]
	default:
		m.droppedEvents.Add(1)
	}
}

// FramesRendered is the monotonic sample clock, readable from the
// control thread.
func (m *Mixer) FramesRendered() uint64 { return m.frames.Load() }

// ActiveVoices reports the active-list length; readable cross-thread.
func (m *Mixer) ActiveVoices() int { return int(m.activeCount.Load()) }

// DroppedEvents reports how many ring events were discarded, for the
// control thread's housekeeping logs.
func (m *Mixer) DroppedEvents() uint64 { return m.droppedEvents.Load() }

// Close drains any remaining ring events deterministically so teardown
// never leaves posted events unobserved.
func (m *Mixer) Close() {
	m.events.Drain(func(ring.Event) {})
	for len(m.active) > 0 {
		m.removeActive(0)
	}
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

func addInto(dst, src []float32) {
	for i := range src {
		dst[i] += src[i]
	}
}
