/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"testing"
	"time"

	"meshforge/internal/geom"
)

func newTestProcessor() (*Processor, *WidgetTable) {
	widgets := NewWidgetTable()
	p := NewProcessor(widgets, DefaultPerformance())
	return p, widgets
}

func moveEvent(t time.Time, x, y float32) Event {
	return Event{Type: EventMove, Position: geom.Pt{X: x, Y: y}, Time: t, Pointer: &PointerData{Buttons: ButtonLeft}}
}

func TestDebouncerDualThreshold(t *testing.T) {
	d := NewDebouncer(16*time.Millisecond, 2)
	base := time.Now()

	if !d.Accept(base, geom.Pt{X: 0, Y: 0}) {
		t.Fatalf("first move must be accepted")
	}
	// Too soon, even with large movement.
	if d.Accept(base.Add(5*time.Millisecond), geom.Pt{X: 100, Y: 100}) {
		t.Fatalf("move inside the time threshold must be suppressed")
	}
	// Late enough but too small a movement.
	if d.Accept(base.Add(30*time.Millisecond), geom.Pt{X: 0.5, Y: 0.5}) {
		t.Fatalf("sub-threshold movement must be suppressed")
	}
	// Late enough and far enough.
	if !d.Accept(base.Add(60*time.Millisecond), geom.Pt{X: 10, Y: 0}) {
		t.Fatalf("qualifying move must be accepted")
	}
	d.Reset()
	if !d.Accept(base.Add(61*time.Millisecond), geom.Pt{X: 10, Y: 0}) {
		t.Fatalf("reset must re-prime the debouncer")
	}
}

func TestProcessorSuppressesHighFrequencyMoves(t *testing.T) {
	p, _ := newTestProcessor()
	var seen []Event
	p.Register(EventMove, func(ev Event) { seen = append(seen, ev) })

	base := time.Now()
	accepted := 0
	for i := 0; i < 100; i++ {
		ev := moveEvent(base.Add(time.Duration(i)*time.Millisecond), float32(i)*0.5, 0)
		if p.ProcessEvent(ev) {
			accepted++
		}
	}
	if accepted >= 100 {
		t.Fatalf("expected suppression, accepted all %d moves", accepted)
	}
	st := p.Stats()
	if st.Suppressed == 0 {
		t.Fatalf("expected suppressed moves, stats %+v", st)
	}
}

func TestProcessorFlushesQueuedMovesInOrderBeforeNonMove(t *testing.T) {
	p, _ := newTestProcessor()
	var order []geom.Pt
	p.Register(EventMove, func(ev Event) { order = append(order, ev.Position) })
	released := false
	p.Register(EventRelease, func(ev Event) {
		released = true
		// Every queued move must already be dispatched.
		if len(order) == 0 {
			t.Fatalf("release dispatched before queued moves")
		}
	})

	base := time.Now()
	p.ProcessEvent(moveEvent(base, 0, 0))                    // accepted
	p.ProcessEvent(moveEvent(base.Add(time.Millisecond), 1, 0)) // suppressed
	p.ProcessEvent(moveEvent(base.Add(2*time.Millisecond), 2, 0)) // suppressed

	p.ProcessEvent(Event{Type: EventRelease, Time: base.Add(3 * time.Millisecond)})
	if !released {
		t.Fatalf("release not dispatched")
	}
	want := []geom.Pt{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	if len(order) != len(want) {
		t.Fatalf("moves dispatched = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("flush order wrong: %v, want %v", order, want)
		}
	}
	if st := p.Stats(); st.Flushed != 2 {
		t.Fatalf("expected 2 flushed events, stats %+v", st)
	}
}

func TestProcessorQueueBounded(t *testing.T) {
	p, _ := newTestProcessor()
	base := time.Now()
	p.ProcessEvent(moveEvent(base, 0, 0))
	for i := 0; i < suppressedQueueCap+10; i++ {
		p.ProcessEvent(moveEvent(base.Add(time.Duration(i+1)*time.Microsecond), 0.1, 0))
	}
	if st := p.Stats(); st.Dropped != 10 {
		t.Fatalf("expected 10 dropped events, stats %+v", st)
	}
	if len(p.suppressed) != suppressedQueueCap {
		t.Fatalf("queue length = %d, want %d", len(p.suppressed), suppressedQueueCap)
	}
}

func TestProcessorPressStartsDragAndResetsDebounce(t *testing.T) {
	p, widgets := newTestProcessor()
	h := widgets.Register(WidgetInfo{Name: "panel", Frame: geom.R(0, 0, 100, 100), Dock: true})

	base := time.Now()
	p.ProcessEvent(moveEvent(base, 0, 0))
	p.ProcessEvent(Event{
		Type:     EventPress,
		Position: geom.Pt{X: 5, Y: 5},
		Target:   h,
		Time:     base.Add(time.Millisecond),
		Pointer:  &PointerData{Buttons: ButtonLeft},
	})
	if !p.Dragging(h) {
		t.Fatalf("press on a live widget must start drag tracking")
	}
	// The press reset the debouncer, so an immediate tiny move is accepted.
	if !p.ProcessEvent(moveEvent(base.Add(2*time.Millisecond), 5.1, 5)) {
		t.Fatalf("move right after press must not inherit stale debounce state")
	}

	p.ProcessEvent(Event{Type: EventRelease, Target: h, Time: base.Add(3 * time.Millisecond)})
	if p.Dragging(h) {
		t.Fatalf("release must end drag tracking")
	}
}

func TestProcessorMaintenancePrunesDeadHandles(t *testing.T) {
	p, widgets := newTestProcessor()
	h := widgets.Register(WidgetInfo{Name: "gone", Frame: geom.R(0, 0, 10, 10)})

	base := time.Now()
	p.lastMaint = base
	p.ProcessEvent(Event{Type: EventPress, Target: h, Position: geom.Pt{X: 1, Y: 1}, Time: base})
	widgets.Release(h)

	// Within the maintenance interval nothing is pruned.
	p.ProcessEvent(Event{Type: EventSnapRequest, Time: base.Add(time.Second)})
	if !p.Dragging(h) {
		t.Fatalf("maintenance ran too early")
	}
	p.ProcessEvent(Event{Type: EventSnapRequest, Time: base.Add(6 * time.Second)})
	if p.Dragging(h) {
		t.Fatalf("dead handle should be pruned after the maintenance interval")
	}
}

func TestProcessorNonMoveAlwaysImmediate(t *testing.T) {
	p, _ := newTestProcessor()
	base := time.Now()
	for i, typ := range []EventType{EventPress, EventRelease, EventDoubleClick, EventResize, EventWindowMove, EventLayoutChange, EventSnapRequest} {
		ev := Event{Type: typ, Time: base.Add(time.Duration(i) * time.Microsecond)}
		if typ == EventResize {
			ev.Resize = &ResizeData{OldSize: geom.Size{W: 1, H: 1}, NewSize: geom.Size{W: 2, H: 2}}
		}
		if !p.ProcessEvent(ev) {
			t.Fatalf("%v must process immediately", typ)
		}
	}
}
