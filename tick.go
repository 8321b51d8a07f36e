package fluidcore

import "container/heap"

// The tick scheduler lets an external sequencer hand the facade
// (deadline, event) pairs against a monotonic tick source; Tick(now)
// drains everything due and is idempotent across identical now values.
// Ticks are in output frames at the synth's sample rate.

type scheduledEvent struct {
	at  uint64
	seq uint64 // insertion order; stabilizes equal deadlines
	run func(*Synth)
}

type scheduleHeap []scheduledEvent

func (h scheduleHeap) Len() int { return len(h) }
func (h scheduleHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h scheduleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *scheduleHeap) Push(x any)   { *h = append(*h, x.(scheduledEvent)) }
func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}

func (s *Synth) scheduleLocked(at uint64, run func(*Synth)) {
	s.schedSeq++
	heap.Push(&s.sched, scheduledEvent{at: at, seq: s.schedSeq, run: run})
}

// ScheduleNoteOn queues a note-on to fire when Tick reaches at.
func (s *Synth) ScheduleNoteOn(at uint64, ch, key, vel int) {
	s.lock()
	defer s.unlock()
	s.scheduleLocked(at, func(sy *Synth) { _ = sy.noteOnLocked(ch, key, vel) })
}

// ScheduleNoteOff queues a note-off to fire when Tick reaches at.
func (s *Synth) ScheduleNoteOff(at uint64, ch, key int) {
	s.lock()
	defer s.unlock()
	s.scheduleLocked(at, func(sy *Synth) { _ = sy.noteOffLocked(ch, key) })
}

// Tick drains every scheduled event whose deadline is <= now, in
// deadline order. Calling it again with the same now is a no-op, since
// due events are consumed the first time.
func (s *Synth) Tick(now uint64) {
	s.lock()
	defer s.unlock()
	for len(s.sched) > 0 && s.sched[0].at <= now {
		ev := heap.Pop(&s.sched).(scheduledEvent)
		ev.run(s)
	}
}

// CurrentTick reports the mixer's monotonic frame counter, the natural
// tick source for schedulers that follow rendered time.
func (s *Synth) CurrentTick() uint64 {
	return s.mix.FramesRendered()
}
