package channel

// Group is one basic-channel group: a contiguous span of channels
// sharing one Mode. Groups partition the synth's channel array; setting
// a group clamps or splits any previously overlapping group.
type Group struct {
	Start int
	Span  int
	Mode  Mode
}

func (g Group) contains(ch int) bool {
	return ch >= g.Start && ch < g.Start+g.Span
}

// Partition tracks the basic-channel groups across the synth's
// channels. numChannels bounds every group's span.
type Partition struct {
	numChannels int
	groups      []Group
}

// NewPartition starts with a single OmniOn-Poly group spanning every
// channel, matching General MIDI's power-on default.
func NewPartition(numChannels int) *Partition {
	return &Partition{
		numChannels: numChannels,
		groups:      []Group{{Start: 0, Span: numChannels, Mode: ModeOmniOnPoly}},
	}
}

// Groups returns the current partition, ordered by start channel, with
// adjacent groups of equal mode coalesced into one span.
func (p *Partition) Groups() []Group {
	sorted := make([]Group, len(p.groups))
	copy(sorted, p.groups)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start < sorted[j-1].Start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	var out []Group
	for _, g := range sorted {
		if n := len(out); n > 0 && out[n-1].Mode == g.Mode && out[n-1].Start+out[n-1].Span == g.Start {
			out[n-1].Span += g.Span
			continue
		}
		out = append(out, g)
	}
	return out
}

// ModeOf returns the mode governing channel ch.
func (p *Partition) ModeOf(ch int) Mode {
	for _, g := range p.groups {
		if g.contains(ch) {
			return g.Mode
		}
	}
	return ModeOmniOnPoly
}

// SetGroup installs a new group [start, start+span) with mode, clamping
// span to the available channel count and narrowing or splitting any
// existing group it overlaps. Returns the list of channels whose mode
// just changed, so the caller can emit All-Notes-Off on each before
// applying the new mode.
func (p *Partition) SetGroup(start, span int, mode Mode) []int {
	if start < 0 {
		start = 0
	}
	if start+span > p.numChannels {
		span = p.numChannels - start
	}
	if span <= 0 {
		return nil
	}
	newGroup := Group{Start: start, Span: span, Mode: mode}

	var changed []int
	var next []Group
	for _, g := range p.groups {
		gEnd := g.Start + g.Span
		newEnd := start + span
		if gEnd <= start || g.Start >= newEnd {
			// No overlap; keep as-is.
			next = append(next, g)
			continue
		}
		for ch := g.Start; ch < gEnd; ch++ {
			if ch >= start && ch < newEnd {
				changed = append(changed, ch)
			}
		}
		if g.Start < start {
			next = append(next, Group{Start: g.Start, Span: start - g.Start, Mode: g.Mode})
		}
		if gEnd > newEnd {
			next = append(next, Group{Start: newEnd, Span: gEnd - newEnd, Mode: g.Mode})
		}
	}
	next = append(next, newGroup)
	p.groups = next
	return changed
}
