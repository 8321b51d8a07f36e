package channel

// NoteOnDecision is what the channel state machine decided to do with
// an incoming Note-On, for the caller (internal/compile) to execute.
type NoteOnDecision struct {
	// Suppressed is true when breath-sync gating swallowed this event.
	Suppressed bool

	// Staccato is true for a mono Note-On that arrived with an empty
	// note stack (voices should stop any remembered held voice first,
	// then start fresh). False for legato arrivals and for poly mode.
	Staccato bool

	// Legato carries the plan computed by PlanLegato when Mode is mono
	// and the stack was non-empty before this note; nil otherwise.
	Legato *LegatoPlan

	Portamento PortamentoResult
}

// NoteOn runs the channel mode dispatch for key/vel arriving on c,
// against the set of voices currently sounding on this channel (only
// consulted in mono mode). pedalOn is the current portamento-pedal CC
// state.
func NoteOn(c *Channel, key, vel int, sounding []SoundingVoice, pedalOn bool) NoteOnDecision {
	if c.BreathSync && !c.breathGateOpen {
		c.SustainedMonoKey = key
		c.BreathVel = vel
		return NoteOnDecision{Suppressed: true}
	}

	if !c.Mode.Mono() {
		return NoteOnDecision{Portamento: ResolvePortamento(c, false, pedalOn)}
	}

	legato := c.Notes.Push(key, vel)
	c.SustainedMonoKey = key
	port := ResolvePortamento(c, legato, pedalOn)
	c.PortamentoCtrl = -1

	if !legato {
		return NoteOnDecision{Staccato: true, Portamento: port}
	}
	plan := PlanLegato(c.Legato, sounding, key, vel)
	return NoteOnDecision{Legato: &plan, Portamento: port}
}

// NoteOffDecision tells the caller whether the note-off should be
// forwarded to voices as a true release, and if the stack still has
// notes, which key voices should slide to.
type NoteOffDecision struct {
	ReleaseAll bool
	SlideToKey int
	HasSlide   bool
}

// NoteOff runs the channel mode dispatch for a released key.
func NoteOff(c *Channel, key int) NoteOffDecision {
	if !c.Mode.Mono() {
		return NoteOffDecision{ReleaseAll: true}
	}
	found, empty := c.Notes.Remove(key)
	if !found {
		return NoteOffDecision{}
	}
	if empty {
		if c.BreathSync {
			c.breathGateOpen = false
		}
		return NoteOffDecision{ReleaseAll: true}
	}
	top, _ := c.Notes.Top()
	return NoteOffDecision{HasSlide: true, SlideToKey: top}
}

// BreathEdge is the gate transition a breath (CC#2) update produced.
type BreathEdge int

const (
	BreathNone BreathEdge = iota
	BreathRising
	BreathFalling
)

// BreathCC processes a CC#2 (breath) update for a breath-sync channel,
// returning BreathRising when the breath gate opens, BreathFalling when
// it closes, and BreathNone otherwise (or when breath-sync is off).
func BreathCC(c *Channel, value int) BreathEdge {
	if !c.BreathSync {
		return BreathNone
	}
	was := c.breathGateOpen
	c.breathGateOpen = value > 0
	switch {
	case !was && c.breathGateOpen:
		return BreathRising
	case was && !c.breathGateOpen:
		return BreathFalling
	default:
		return BreathNone
	}
}
