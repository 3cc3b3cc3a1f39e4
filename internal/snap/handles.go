/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import "meshforge/internal/geom"

// WidgetHandle is a non-owning reference to a host widget. Handles are
// generation-indexed: releasing a slot and reusing it bumps the generation,
// so a stale handle never resolves to the wrong widget. The zero value is
// never valid.
type WidgetHandle struct {
	index uint32
	gen   uint32
}

// NilWidget is the invalid handle.
var NilWidget = WidgetHandle{}

// IsNil reports whether the handle is the zero handle.
func (h WidgetHandle) IsNil() bool { return h.gen == 0 }

// WidgetInfo describes a registered widget. Frame is the widget's bounds in
// client-window coordinates; the host keeps it current on layout changes.
type WidgetInfo struct {
	Name  string
	Frame geom.Rect
	Dock  bool // true for dock panels
}

type widgetEntry struct {
	gen  uint32
	live bool
	info WidgetInfo
}

// WidgetTable is the window-owned registry of widgets the snapping subsystem
// may reference. The subsystem never owns widget lifetime; the host registers
// widgets on creation and releases them on destruction.
type WidgetTable struct {
	entries []widgetEntry
	free    []uint32
}

func NewWidgetTable() *WidgetTable { return &WidgetTable{} }

// Register adds a widget and returns its handle.
func (t *WidgetTable) Register(info WidgetInfo) WidgetHandle {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		e := &t.entries[idx]
		e.gen++
		e.live = true
		e.info = info
		return WidgetHandle{index: idx, gen: e.gen}
	}
	t.entries = append(t.entries, widgetEntry{gen: 1, live: true, info: info})
	return WidgetHandle{index: uint32(len(t.entries) - 1), gen: 1}
}

// Release invalidates the handle. Further lookups through it fail.
func (t *WidgetTable) Release(h WidgetHandle) {
	if !t.Valid(h) {
		return
	}
	e := &t.entries[h.index]
	e.live = false
	e.info = WidgetInfo{}
	t.free = append(t.free, h.index)
}

// Valid reports whether the handle still refers to a live widget.
func (t *WidgetTable) Valid(h WidgetHandle) bool {
	if h.IsNil() || int(h.index) >= len(t.entries) {
		return false
	}
	e := t.entries[h.index]
	return e.live && e.gen == h.gen
}

// Info returns the widget description for a live handle.
func (t *WidgetTable) Info(h WidgetHandle) (WidgetInfo, bool) {
	if !t.Valid(h) {
		return WidgetInfo{}, false
	}
	return t.entries[h.index].info, true
}

// SetFrame updates the widget frame (client coordinates) after a layout pass.
func (t *WidgetTable) SetFrame(h WidgetHandle, frame geom.Rect) bool {
	if !t.Valid(h) {
		return false
	}
	t.entries[h.index].info.Frame = frame
	return true
}

// Len returns the number of live widgets.
func (t *WidgetTable) Len() int {
	n := 0
	for _, e := range t.entries {
		if e.live {
			n++
		}
	}
	return n
}
