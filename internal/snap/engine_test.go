/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"math"
	"testing"

	"meshforge/internal/geom"
)

func newTestEngine(t *testing.T, zones ...Zone) *Engine {
	t.Helper()
	cfg := NewConfig()
	for _, z := range zones {
		if err := cfg.AddZone(z); err != nil {
			t.Fatalf("add zone %s: %v", z.Name, err)
		}
	}
	widgets := NewWidgetTable()
	coords := NewCoords(widgets, CoordConfig{})
	coords.UpdateWindowGeometry(geom.R(0, 0, 1280, 800))
	return NewEngine(coords, cfg)
}

func approx(a, b, tol float32) bool { return math.Abs(float64(a-b)) <= float64(tol) }

// The reference scenario: one left-edge band, cursor 2px outside it. The
// winning candidate is the band's right edge at x=48; magnetism pulls the
// cursor toward it without reaching it.
func TestCalculateSnapLeftEdgeScenario(t *testing.T) {
	e := newTestEngine(t, Zone{
		Name: "left_edge", Area: geom.R(0, 0, 48, 1000),
		Magnetism: 0.8, Threshold: 56, Priority: 1, Enabled: true,
	})

	pos := geom.Pt{X: 50, Y: 500}
	res := e.CalculateSnap(pos, Unified, NilWidget, 0)

	if !res.Applied {
		t.Fatalf("expected snap applied: %+v", res)
	}
	if res.Best == nil || res.Best.Type != SnapEdge {
		t.Fatalf("expected edge candidate, got %+v", res.Best)
	}
	if res.Best.Position != (geom.Pt{X: 48, Y: 500}) {
		t.Fatalf("candidate position = %+v, want (48,500)", res.Best.Position)
	}
	if !approx(res.Best.Distance, 2, 1e-4) {
		t.Fatalf("candidate distance = %v, want 2", res.Best.Distance)
	}

	wantPull := float32(0.8) * (1 - 2.0/56.0)
	if !approx(res.Strength, wantPull, 1e-4) {
		t.Fatalf("strength = %v, want %v", res.Strength, wantPull)
	}
	wantX := 50 + (48-50)*wantPull
	if !approx(res.Position.X, wantX, 1e-3) {
		t.Fatalf("snapped x = %v, want %v", res.Position.X, wantX)
	}
	// Strictly between original and candidate.
	if res.Position.X >= 50 || res.Position.X <= 48 {
		t.Fatalf("snapped x %v not strictly between 48 and 50", res.Position.X)
	}
	if res.Position.Y != 500 {
		t.Fatalf("snapped y moved: %v", res.Position.Y)
	}
}

func TestCalculateSnapNoZones(t *testing.T) {
	e := newTestEngine(t)
	res := e.CalculateSnap(geom.Pt{X: 10, Y: 10}, Unified, NilWidget, 0)
	if res.Applied || res.CandidatesEvaluated != 0 || res.Best != nil {
		t.Fatalf("no zones must mean no snap: %+v", res)
	}
	if res.Position != res.Original {
		t.Fatalf("position should be unchanged: %+v", res)
	}
}

func TestCalculateSnapOutsideThreshold(t *testing.T) {
	e := newTestEngine(t, Zone{
		Name: "z", Area: geom.R(0, 0, 48, 100),
		Magnetism: 0.8, Threshold: 10, Enabled: true,
	})
	res := e.CalculateSnap(geom.Pt{X: 500, Y: 500}, Unified, NilWidget, 0)
	if res.Applied {
		t.Fatalf("snap outside threshold: %+v", res)
	}
}

func TestCalculateSnapHysteresis(t *testing.T) {
	e := newTestEngine(t, Zone{
		Name: "left_edge", Area: geom.R(0, 0, 48, 1000),
		Magnetism: 0.8, Threshold: 56, Priority: 1, Enabled: true,
	})
	// Default hysteresis threshold is 3px.
	first := e.CalculateSnap(geom.Pt{X: 50, Y: 500}, Unified, NilWidget, 0)
	if !first.Applied {
		t.Fatalf("first call should snap")
	}
	second := e.CalculateSnap(geom.Pt{X: first.Position.X + 1, Y: 500}, Unified, NilWidget, 0)
	if second.Applied {
		t.Fatalf("movement under hysteresis must not re-decide")
	}
	if second.Position != first.Position {
		t.Fatalf("hysteresis must return the previous snapped position: %+v vs %+v", second.Position, first.Position)
	}

	e.ResetHysteresis()
	third := e.CalculateSnap(geom.Pt{X: first.Position.X + 1, Y: 500}, Unified, NilWidget, 0)
	if !third.Applied {
		t.Fatalf("after reset the engine should recompute")
	}
}

func TestCalculateSnapPrefersEdgeOverCorner(t *testing.T) {
	e := newTestEngine(t, Zone{
		Name: "z", Area: geom.R(0, 0, 100, 100),
		Magnetism: 1, Threshold: 50, Enabled: true,
	})
	// Near the top-right corner but clearly outside: edge projection and
	// corner candidate are both in range; edge weight must win.
	res := e.CalculateSnap(geom.Pt{X: 110, Y: 20}, Unified, NilWidget, 0)
	if !res.Applied || res.Best == nil {
		t.Fatalf("expected a snap: %+v", res)
	}
	if res.Best.Type != SnapEdge {
		t.Fatalf("edge should outrank corner, got %v", res.Best.Type)
	}
}

func TestCalculateSnapHighestScoreNotClosest(t *testing.T) {
	// A weak zone right next to the cursor and a strong high-priority zone a
	// bit farther: the scored pick must beat pure proximity.
	weak := Zone{Name: "weak", Area: geom.R(95, 0, 10, 10), Magnetism: 0.1, Threshold: 30, Priority: 0, Enabled: true}
	strong := Zone{Name: "strong", Area: geom.R(120, 0, 10, 10), Magnetism: 1, Threshold: 60, Priority: 5, Enabled: true}
	e := newTestEngine(t, weak, strong)

	res := e.CalculateSnap(geom.Pt{X: 108, Y: 5}, Unified, NilWidget, 0)
	if !res.Applied || res.Best == nil {
		t.Fatalf("expected a snap: %+v", res)
	}
	if res.Best.Zone.Name != "strong" {
		t.Fatalf("expected the stronger zone to win, got %q", res.Best.Zone.Name)
	}
}

func TestCalculateSnapMaxCandidatesCap(t *testing.T) {
	e := newTestEngine(t, Zone{
		Name: "z", Area: geom.R(0, 0, 100, 100),
		Magnetism: 0.8, Threshold: 200, Enabled: true,
	})
	res := e.CalculateSnap(geom.Pt{X: 120, Y: 50}, Unified, NilWidget, 1)
	if !res.Applied {
		t.Fatalf("expected snap: %+v", res)
	}
	// With the field capped to 1 the closest candidate (the edge point)
	// is the only survivor.
	if res.Best.Type != SnapEdge {
		t.Fatalf("cap to 1 should leave the closest candidate, got %v", res.Best.Type)
	}
}

func TestCalculateSnapDisabledConfig(t *testing.T) {
	e := newTestEngine(t, validZone("z"))
	e.cfg.Enabled = false
	res := e.CalculateSnap(geom.Pt{X: 50, Y: 500}, Unified, NilWidget, 0)
	if res.Applied {
		t.Fatalf("disabled configuration must not snap")
	}
}

func TestEngineZoneCRUDKeepsIndexInSync(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddZone(validZone("left_edge")); err != nil {
		t.Fatalf("add: %v", err)
	}
	res := e.CalculateSnap(geom.Pt{X: 50, Y: 500}, Unified, NilWidget, 0)
	if !res.Applied {
		t.Fatalf("zone added through engine should be snappable")
	}

	off := false
	if err := e.UpdateZone("left_edge", ZonePatch{Enabled: &off}); err != nil {
		t.Fatalf("update: %v", err)
	}
	e.ResetHysteresis()
	res = e.CalculateSnap(geom.Pt{X: 50, Y: 500}, Unified, NilWidget, 0)
	if res.Applied {
		t.Fatalf("disabled zone must not snap")
	}

	if err := e.RemoveZone("left_edge"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := e.cfg.GetZone("left_edge"); ok {
		t.Fatalf("zone still present after remove")
	}
}

func TestEngineHistoryBoundedAndStats(t *testing.T) {
	e := newTestEngine(t, validZone("left_edge"))
	for i := 0; i < historyCap+20; i++ {
		e.ResetHysteresis()
		e.CalculateSnap(geom.Pt{X: 50, Y: float32(i * 10)}, Unified, NilWidget, 0)
	}
	if n := len(e.History()); n != historyCap {
		t.Fatalf("history length = %d, want %d", n, historyCap)
	}
	st := e.Stats()
	if st.Calculations != uint64(historyCap+20) {
		t.Fatalf("calculations = %d, want %d", st.Calculations, historyCap+20)
	}
	if st.SnapsApplied == 0 {
		t.Fatalf("expected some applied snaps")
	}
}

func TestCalculateSnapWithSpatialIndexDisabled(t *testing.T) {
	e := newTestEngine(t, validZone("left_edge"))
	e.cfg.Performance.SpatialIndexEnabled = false
	res := e.CalculateSnap(geom.Pt{X: 50, Y: 500}, Unified, NilWidget, 0)
	if !res.Applied {
		t.Fatalf("plain scan path should still snap")
	}
}
