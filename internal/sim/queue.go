package sim

import "container/heap"

// eventHeap is the container/heap.Interface backing Scheduler. Ordering
// (§5): events sharing a timestamp are delivered in heap order except that
// PeeringSuccess is pulled first among equal-time events.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	iFirst := h[i].Kind == PeeringSuccess
	jFirst := h[j].Kind == PeeringSuccess
	if iFirst != jFirst {
		return iFirst
	}
	return false
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

// Scheduler is the min-heap event queue described in §3/§4.9.
type Scheduler struct {
	heap eventHeap
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.heap)
	return s
}

// Push enqueues ev, preserving heap order.
func (s *Scheduler) Push(ev *Event) {
	heap.Push(&s.heap, ev)
}

// Len reports the number of pending events.
func (s *Scheduler) Len() int { return s.heap.Len() }

// Peek returns the earliest event without removing it, and whether the
// queue is non-empty.
func (s *Scheduler) Peek() (*Event, bool) {
	if s.heap.Len() == 0 {
		return nil, false
	}
	return s.heap[0], true
}

// Drain removes and returns every event currently queued. Used by the
// reconciler (§4.10), which rewrites the whole queue wholesale.
func (s *Scheduler) Drain() []*Event {
	out := make([]*Event, 0, s.heap.Len())
	for s.heap.Len() > 0 {
		out = append(out, heap.Pop(&s.heap).(*Event))
	}
	return out
}

// PopCohort implements process_pending (§4.9): if the queue is empty,
// reports ok=false. Otherwise pops every event whose time equals the
// earliest queued time, in heap order, and returns them alongside that
// timestamp.
func (s *Scheduler) PopCohort() (now int64, cohort []*Event, ok bool) {
	if s.heap.Len() == 0 {
		return -1, nil, false
	}
	now = s.heap[0].Time
	for s.heap.Len() > 0 && s.heap[0].Time == now {
		cohort = append(cohort, heap.Pop(&s.heap).(*Event))
	}
	return now, cohort, true
}
