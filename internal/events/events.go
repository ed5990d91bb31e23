// Package events implements the scheduled-event queue driving `play` and
// `perform` against the runtime clock (spec.md §5): a min-heap keyed on
// nextFireTime, generalized from the teacher's Sequencer.noteOffs
// insertion-sort-and-compact pattern (internal/sequencer/sequencer.go) into
// a real container/heap so reschedule cost stays logarithmic instead of
// linear in the number of pending events.
package events

import "container/heap"

// Kind selects how an Event reschedules itself once fired (spec.md §5).
type Kind int

const (
	// Interval events fire once every `Interval` seconds, forever.
	Interval Kind = iota
	// Repeated events fire every `Interval` seconds up to `Repeats` times.
	Repeated
	// RandomInterval events redraw their next delay uniformly from
	// [Floor, Ceiling], quantized to Step, after every fire.
	RandomInterval
	// Rhythm events advance through a cyclic vector of offsets (SPEC_FULL
	// §D.6's rhythm-pattern supplement to `perform`).
	Rhythm
)

// RandFunc draws a uniform sample in [0, 1); injected so this package has
// no direct dependency on a particular PRNG (the caller wires
// rtctx.Context.Rand().Float64()).
type RandFunc func() float64

// Event is one scheduled callback (spec.md §5's Event type).
type Event struct {
	Kind Kind

	// Callback runs when the event fires, receiving the current clock time
	// and the time it was originally scheduled for (so jitter is visible to
	// the callback if it cares).
	Callback func(now, scheduledTime float64)
	// End runs once, when the event stops rescheduling (repeat limit
	// reached, or a discarded event is drained).
	End func()

	NextFireTime float64
	Interval     float64 // Interval/Repeated
	Floor        float64 // RandomInterval
	Ceiling      float64
	Step         float64
	Repeats      int // 0 = unlimited (Interval); >0 bounds Repeated
	Pattern      []float64 // Rhythm: cyclic offsets added to NextFireTime

	timesFired int
	patternIdx int
	discard    bool
	seq        uint64 // insertion order, for stable FIFO tie-break
}

// Discard cancels e: it stops rescheduling and its End callback (if any)
// runs the next time the queue would have fired it, without requiring a
// heap search-and-remove.
func (e *Event) Discard() { e.discard = true }

// eventHeap implements container/heap.Interface, ordered by NextFireTime
// with insertion order as a stable tie-break (§5: "stable FIFO tie-break").
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].NextFireTime != h[j].NextFireTime {
		return h[i].NextFireTime < h[j].NextFireTime
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue is the event scheduler. Zero value is not usable; construct with
// New.
type Queue struct {
	heap    eventHeap
	rand    RandFunc
	nextSeq uint64
}

// New builds an empty Queue. rand supplies RandomInterval's redraw.
func New(rand RandFunc) *Queue {
	return &Queue{rand: rand}
}

// Schedule adds e to the queue, assigning it a stable insertion sequence
// for tie-breaking.
func (q *Queue) Schedule(e *Event) {
	e.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.heap, e)
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return q.heap.Len() }

// PerformEvents pops and fires every event with NextFireTime <= now
// (spec.md §5), rescheduling each per its Kind, or running its End
// callback and dropping it once exhausted or discarded.
func (q *Queue) PerformEvents(now float64) {
	for q.heap.Len() > 0 && q.heap[0].NextFireTime <= now {
		e := heap.Pop(&q.heap).(*Event)
		if e.discard {
			if e.End != nil {
				e.End()
			}
			continue
		}
		scheduled := e.NextFireTime
		e.Callback(now, scheduled)
		e.timesFired++
		if q.reschedule(e) {
			heap.Push(&q.heap, e)
		} else if e.End != nil {
			e.End()
		}
	}
}

// reschedule advances e.NextFireTime per its Kind and reports whether it
// should remain in the queue.
func (q *Queue) reschedule(e *Event) bool {
	switch e.Kind {
	case Interval:
		e.NextFireTime += e.Interval
		return true
	case Repeated:
		if e.Repeats > 0 && e.timesFired >= e.Repeats {
			return false
		}
		e.NextFireTime += e.Interval
		return true
	case RandomInterval:
		e.NextFireTime += q.drawInterval(e)
		return true
	case Rhythm:
		if len(e.Pattern) == 0 {
			return false
		}
		if e.Repeats > 0 && e.timesFired >= e.Repeats {
			return false
		}
		offset := e.Pattern[e.patternIdx%len(e.Pattern)]
		e.patternIdx++
		e.NextFireTime += offset
		return true
	default:
		return false
	}
}

// drawInterval draws a uniform delay in [Floor, Ceiling], quantized to
// Step (spec.md §5).
func (q *Queue) drawInterval(e *Event) float64 {
	if e.Ceiling <= e.Floor {
		return e.Floor
	}
	raw := e.Floor + q.rand()*(e.Ceiling-e.Floor)
	if e.Step <= 0 {
		return raw
	}
	steps := (raw - e.Floor) / e.Step
	quantSteps := float64(int(steps + 0.5))
	return e.Floor + quantSteps*e.Step
}
