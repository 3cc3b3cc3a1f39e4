/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"log/slog"
	"time"

	"meshforge/internal/geom"
	applog "meshforge/internal/log"
)

// EventType enumerates the normalized events the subsystem consumes.
type EventType int

const (
	EventPress EventType = iota
	EventMove
	EventRelease
	EventDoubleClick
	EventResize
	EventWindowMove
	EventLayoutChange
	EventSnapRequest
)

func (t EventType) String() string {
	switch t {
	case EventPress:
		return "press"
	case EventMove:
		return "move"
	case EventRelease:
		return "release"
	case EventDoubleClick:
		return "double_click"
	case EventResize:
		return "resize"
	case EventWindowMove:
		return "window_move"
	case EventLayoutChange:
		return "layout_change"
	case EventSnapRequest:
		return "snap_request"
	default:
		return "unknown"
	}
}

// Mouse button and modifier bitmasks carried by pointer events.
type (
	Buttons   uint8
	Modifiers uint8
)

const (
	ButtonLeft Buttons = 1 << iota
	ButtonRight
	ButtonMiddle
)

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
)

// PointerData is the payload for press/move/release/double-click events.
type PointerData struct {
	Buttons   Buttons
	Modifiers Modifiers
}

// ResizeData is the payload for resize events.
type ResizeData struct {
	OldSize geom.Size
	NewSize geom.Size
}

// Event is a normalized input event. Instead of a free-form metadata bag it
// carries a closed set of typed payloads; exactly the payload matching Type
// is set, the others are nil. Source and Target are non-owning handles and
// must tolerate the widget disappearing.
type Event struct {
	Type     EventType
	Position geom.Pt // unified coordinates
	Source   WidgetHandle
	Target   WidgetHandle
	Time     time.Time

	Pointer *PointerData
	Resize  *ResizeData
}

// Handler consumes dispatched events. Handlers for one type run in
// registration order.
type Handler func(Event)

const (
	suppressedQueueCap   = 50
	maintenanceInterval  = 5 * time.Second
	defaultMoveEpsilonPx = 2.0
)

// Debouncer rate-limits move events by a dual threshold: a minimum interval
// since the last accepted move and a minimum Manhattan movement since the
// last accepted position.
type Debouncer struct {
	timeThreshold time.Duration
	moveThreshold float32

	lastAccept time.Time
	lastPos    geom.Pt
	primed     bool
}

// NewDebouncer builds a debouncer; non-positive arguments select the
// defaults (16ms, 2px).
func NewDebouncer(timeThreshold time.Duration, moveThreshold float32) *Debouncer {
	if timeThreshold <= 0 {
		timeThreshold = 16 * time.Millisecond
	}
	if moveThreshold <= 0 {
		moveThreshold = defaultMoveEpsilonPx
	}
	return &Debouncer{timeThreshold: timeThreshold, moveThreshold: moveThreshold}
}

// Accept reports whether a move at (t, p) passes the thresholds, updating
// internal state when it does.
func (d *Debouncer) Accept(t time.Time, p geom.Pt) bool {
	if !d.primed {
		d.primed = true
		d.lastAccept, d.lastPos = t, p
		return true
	}
	if t.Sub(d.lastAccept) < d.timeThreshold {
		return false
	}
	if geom.ManhattanDist(p, d.lastPos) < d.moveThreshold {
		return false
	}
	d.lastAccept, d.lastPos = t, p
	return true
}

// Reset forgets prior timing so a new interaction starts fresh.
func (d *Debouncer) Reset() { d.primed = false }

// ProcessorStats counts event traffic.
type ProcessorStats struct {
	Accepted   uint64
	Suppressed uint64
	Flushed    uint64
	Dropped    uint64
}

// Processor normalizes raw host events into dispatches on registered
// handlers, debouncing high-frequency moves. Suppressed moves are queued
// (bounded) and flushed, in order, right before the next accepted event.
type Processor struct {
	deb      *Debouncer
	widgets  *WidgetTable
	handlers map[EventType][]Handler

	suppressed []Event
	dragging   map[WidgetHandle]geom.Pt // handle -> press position
	lastMaint  time.Time

	stats ProcessorStats
	now   func() time.Time
	log   *slog.Logger
}

// NewProcessor builds a processor over the window's widget table, taking the
// debounce interval from the performance settings.
func NewProcessor(widgets *WidgetTable, perf PerformanceSettings) *Processor {
	return &Processor{
		deb:      NewDebouncer(time.Duration(perf.UpdateDebounceMs)*time.Millisecond, defaultMoveEpsilonPx),
		widgets:  widgets,
		handlers: make(map[EventType][]Handler),
		dragging: make(map[WidgetHandle]geom.Pt),
		now:      time.Now,
		log:      applog.WithComponent("snap.events"),
	}
}

// Register appends a handler for the event type.
func (p *Processor) Register(t EventType, h Handler) {
	p.handlers[t] = append(p.handlers[t], h)
}

// Dragging reports whether the widget is currently drag-tracked.
func (p *Processor) Dragging(h WidgetHandle) bool {
	_, ok := p.dragging[h]
	return ok
}

// Stats returns traffic counters.
func (p *Processor) Stats() ProcessorStats { return p.stats }

// ProcessEvent feeds one event through debouncing and dispatch. It returns
// true when the event was acted on immediately and false when it was
// suppressed and queued.
func (p *Processor) ProcessEvent(ev Event) bool {
	if ev.Time.IsZero() {
		ev.Time = p.now()
	}
	p.maybeMaintain(ev.Time)

	if ev.Type == EventMove && !p.deb.Accept(ev.Time, ev.Position) {
		if len(p.suppressed) >= suppressedQueueCap {
			p.suppressed = p.suppressed[1:]
			p.stats.Dropped++
		}
		p.suppressed = append(p.suppressed, ev)
		p.stats.Suppressed++
		return false
	}

	// Flush queued moves before the accepted event so handlers observe the
	// original order.
	p.flushSuppressed()

	switch ev.Type {
	case EventPress:
		// A new interaction must not inherit stale debounce timing.
		p.deb.Reset()
		if !ev.Target.IsNil() && p.widgets.Valid(ev.Target) {
			p.dragging[ev.Target] = ev.Position
		}
	case EventRelease:
		delete(p.dragging, ev.Target)
	}

	p.dispatch(ev)
	p.stats.Accepted++
	return true
}

func (p *Processor) flushSuppressed() {
	if len(p.suppressed) == 0 {
		return
	}
	queued := p.suppressed
	p.suppressed = nil
	for _, qe := range queued {
		p.dispatch(qe)
		p.stats.Flushed++
	}
}

func (p *Processor) dispatch(ev Event) {
	for _, h := range p.handlers[ev.Type] {
		h(ev)
	}
}

// maybeMaintain prunes dead widget handles from drag tracking and trims
// runaway counters. It runs at most every 5 seconds, independent of drag
// activity.
func (p *Processor) maybeMaintain(now time.Time) {
	if now.Sub(p.lastMaint) < maintenanceInterval {
		return
	}
	p.lastMaint = now
	for h := range p.dragging {
		if !p.widgets.Valid(h) {
			delete(p.dragging, h)
			p.log.Debug("pruned dead drag target", slog.Int("index", int(h.index)))
		}
	}
	const counterCap = 1 << 30
	if p.stats.Accepted > counterCap || p.stats.Suppressed > counterCap {
		p.stats = ProcessorStats{}
	}
}
