package events

import "testing"

func TestPerformEventsOrdersByFireTime(t *testing.T) {
	q := New(nil)
	var order []string

	q.Schedule(&Event{Kind: Interval, NextFireTime: 2, Interval: 100,
		Callback: func(now, scheduled float64) { order = append(order, "b") }})
	q.Schedule(&Event{Kind: Interval, NextFireTime: 1, Interval: 100,
		Callback: func(now, scheduled float64) { order = append(order, "a") }})

	q.PerformEvents(2)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("fire order = %v, want [a b]", order)
	}
}

func TestPerformEventsStableFIFOTieBreak(t *testing.T) {
	q := New(nil)
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		q.Schedule(&Event{Kind: Interval, NextFireTime: 1, Interval: 100,
			Callback: func(now, scheduled float64) { order = append(order, name) }})
	}

	q.PerformEvents(1)

	want := []string{"first", "second", "third"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("tie-break order = %v, want %v", order, want)
		}
	}
}

func TestIntervalEventReschedulesForever(t *testing.T) {
	q := New(nil)
	fires := 0
	q.Schedule(&Event{
		Kind: Interval, NextFireTime: 1, Interval: 1,
		Callback: func(now, scheduled float64) { fires++ },
	})

	for now := 1.0; now <= 4.0; now++ {
		q.PerformEvents(now)
	}

	if fires != 4 {
		t.Fatalf("fires = %d, want 4", fires)
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1 (interval events never drop)", q.Len())
	}
}

func TestRepeatedEventStopsAfterLimit(t *testing.T) {
	q := New(nil)
	fires := 0
	ended := false
	q.Schedule(&Event{
		Kind: Repeated, NextFireTime: 1, Interval: 1, Repeats: 3,
		Callback: func(now, scheduled float64) { fires++ },
		End:      func() { ended = true },
	})

	for now := 1.0; now <= 5.0; now++ {
		q.PerformEvents(now)
	}

	if fires != 3 {
		t.Fatalf("fires = %d, want 3", fires)
	}
	if !ended {
		t.Fatalf("expected End callback once repeats exhausted")
	}
	if q.Len() != 0 {
		t.Fatalf("queue length = %d, want 0 once repeats exhausted", q.Len())
	}
}

func TestRandomIntervalQuantizesToStep(t *testing.T) {
	draws := []float64{0.5} // midpoint of [0,1) draws => raw = Floor + 0.5*(Ceiling-Floor)
	i := 0
	rand := func() float64 {
		v := draws[i%len(draws)]
		i++
		return v
	}
	q := New(rand)
	var fireTimes []float64
	q.Schedule(&Event{
		Kind: RandomInterval, NextFireTime: 0, Floor: 0, Ceiling: 1, Step: 0.25,
		Callback: func(now, scheduled float64) { fireTimes = append(fireTimes, scheduled) },
	})

	q.PerformEvents(0)
	// raw = 0 + 0.5*(1-0) = 0.5, which is already a multiple of Step=0.25.
	q.PerformEvents(0.5)

	if len(fireTimes) != 2 {
		t.Fatalf("fireTimes = %v, want 2 fires", fireTimes)
	}
}

func TestRandomIntervalFallsBackToFloorWhenCeilingNotAboveFloor(t *testing.T) {
	q := New(func() float64 { return 0.9 })
	fires := 0
	q.Schedule(&Event{
		Kind: RandomInterval, NextFireTime: 0, Floor: 2, Ceiling: 2,
		Callback: func(now, scheduled float64) { fires++ },
	})
	q.PerformEvents(0)
	q.PerformEvents(2)
	if fires != 2 {
		t.Fatalf("fires = %d, want 2", fires)
	}
}

func TestRhythmEventCyclesPattern(t *testing.T) {
	q := New(nil)
	var fireTimes []float64
	q.Schedule(&Event{
		Kind: Rhythm, NextFireTime: 0, Pattern: []float64{1, 0.5},
		Callback: func(now, scheduled float64) { fireTimes = append(fireTimes, scheduled) },
	})

	// Fires at t=0 (offset 1 -> next 1), t=1 (offset 0.5 -> next 1.5),
	// t=1.5 (offset 1 -> next 2.5), cycling the two-entry pattern.
	q.PerformEvents(0)
	q.PerformEvents(1)
	q.PerformEvents(1.5)

	want := []float64{0, 1, 1.5}
	if len(fireTimes) != len(want) {
		t.Fatalf("fireTimes = %v, want %v", fireTimes, want)
	}
	for i, w := range want {
		if fireTimes[i] != w {
			t.Fatalf("fireTimes = %v, want %v", fireTimes, want)
		}
	}
}

func TestRhythmEventStopsOnEmptyPattern(t *testing.T) {
	q := New(nil)
	ended := false
	q.Schedule(&Event{
		Kind: Rhythm, NextFireTime: 0, Pattern: nil,
		Callback: func(now, scheduled float64) {},
		End:      func() { ended = true },
	})
	q.PerformEvents(0)
	if !ended {
		t.Fatalf("expected End callback for a rhythm event with an empty pattern")
	}
	if q.Len() != 0 {
		t.Fatalf("queue length = %d, want 0", q.Len())
	}
}

func TestDiscardRunsEndWithoutFiringCallback(t *testing.T) {
	q := New(nil)
	fired := false
	ended := false
	e := &Event{
		Kind: Interval, NextFireTime: 1, Interval: 1,
		Callback: func(now, scheduled float64) { fired = true },
		End:      func() { ended = true },
	}
	q.Schedule(e)
	e.Discard()

	q.PerformEvents(1)

	if fired {
		t.Fatalf("discarded event's callback should not fire")
	}
	if !ended {
		t.Fatalf("discarded event's End callback should run when drained")
	}
	if q.Len() != 0 {
		t.Fatalf("queue length = %d, want 0 after draining a discarded event", q.Len())
	}
}

func TestPerformEventsLeavesFutureEventsQueued(t *testing.T) {
	q := New(nil)
	fires := 0
	q.Schedule(&Event{Kind: Interval, NextFireTime: 10, Interval: 1,
		Callback: func(now, scheduled float64) { fires++ }})

	q.PerformEvents(1)

	if fires != 0 {
		t.Fatalf("fires = %d, want 0 (event not due yet)", fires)
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
}
