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

func TestSubsystemSeedsDefaultZones(t *testing.T) {
	s := NewSubsystem(geom.R(0, 0, 1280, 800), nil)
	if got := len(s.Config.Zones()); got != 4 {
		t.Fatalf("expected 4 seeded zones, got %d", got)
	}
	if s.Coords.WindowRect() != geom.R(0, 0, 1280, 800) {
		t.Fatalf("window rect not applied: %+v", s.Coords.WindowRect())
	}
}

// Dragging a dock panel toward the left window edge through the event
// pipeline must produce a snapped position and visible guides.
func TestSubsystemDragSnapsAndShowsGuides(t *testing.T) {
	s := NewSubsystem(geom.R(0, 0, 1280, 800), nil)
	panel := s.Widgets.Register(WidgetInfo{Name: "scene_tree", Frame: geom.R(300, 0, 250, 800), Dock: true})

	base := time.Now()
	s.Processor.ProcessEvent(Event{
		Type:     EventPress,
		Position: geom.Pt{X: 310, Y: 400},
		Target:   panel,
		Time:     base,
		Pointer:  &PointerData{Buttons: ButtonLeft},
	})
	if !s.Processor.Dragging(panel) {
		t.Fatalf("press must start drag tracking")
	}

	s.Processor.ProcessEvent(Event{
		Type:     EventMove,
		Position: geom.Pt{X: 50, Y: 400},
		Target:   panel,
		Time:     base.Add(20 * time.Millisecond),
		Pointer:  &PointerData{Buttons: ButtonLeft},
	})

	st := s.Engine.Stats()
	if st.Calculations == 0 || st.SnapsApplied == 0 {
		t.Fatalf("move during drag should have snapped: %+v", st)
	}
	guides, opacity := s.Renderer.Guides()
	if len(guides) == 0 {
		t.Fatalf("snap should produce guides")
	}
	if opacity < 0 || opacity > 1 {
		t.Fatalf("opacity out of range: %v", opacity)
	}

	s.Processor.ProcessEvent(Event{Type: EventRelease, Target: panel, Time: base.Add(40 * time.Millisecond)})
	if s.Processor.Dragging(panel) {
		t.Fatalf("release must stop drag tracking")
	}
}

func TestSubsystemWindowMoveInvalidatesTransforms(t *testing.T) {
	s := NewSubsystem(geom.R(0, 0, 1000, 600), nil)
	s.Coords.TransformPoint(geom.Pt{X: 1, Y: 1}, Screen, Client, NilWidget)
	s.Processor.ProcessEvent(Event{
		Type:     EventWindowMove,
		Position: geom.Pt{X: 200, Y: 100},
		Time:     time.Now(),
	})
	if s.Coords.WindowRect() != geom.R(200, 100, 1000, 600) {
		t.Fatalf("window move not applied: %+v", s.Coords.WindowRect())
	}
	if st := s.Coords.Stats(); st.Entries != 0 {
		t.Fatalf("window move should clear the transform cache")
	}

	s.Processor.ProcessEvent(Event{
		Type:   EventResize,
		Time:   time.Now(),
		Resize: &ResizeData{OldSize: geom.Size{W: 1000, H: 600}, NewSize: geom.Size{W: 800, H: 500}},
	})
	if s.Coords.WindowRect() != geom.R(200, 100, 800, 500) {
		t.Fatalf("resize not applied: %+v", s.Coords.WindowRect())
	}
}
