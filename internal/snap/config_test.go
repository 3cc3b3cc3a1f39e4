/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"errors"
	"testing"

	"meshforge/internal/geom"
)

func validZone(name string) Zone {
	return Zone{
		Name:      name,
		Area:      geom.R(0, 0, 48, 1000),
		Magnetism: 0.8,
		Threshold: 56,
		Priority:  1,
		Enabled:   true,
	}
}

func TestAddZoneValidation(t *testing.T) {
	cfg := NewConfig()

	z := validZone("a")
	z.Magnetism = 1.5
	if err := cfg.AddZone(z); !errors.Is(err, ErrInvalidZone) {
		t.Fatalf("magnetism 1.5 should fail, got %v", err)
	}

	z = validZone("a")
	z.Threshold = -1
	if err := cfg.AddZone(z); !errors.Is(err, ErrInvalidZone) {
		t.Fatalf("negative threshold should fail, got %v", err)
	}

	z = validZone("a")
	z.Priority = -2
	if err := cfg.AddZone(z); !errors.Is(err, ErrInvalidZone) {
		t.Fatalf("negative priority should fail, got %v", err)
	}

	if err := cfg.AddZone(validZone("a")); err != nil {
		t.Fatalf("valid zone rejected: %v", err)
	}
}

func TestAddDuplicateZoneKeepsExisting(t *testing.T) {
	cfg := NewConfig()
	orig := validZone("left_edge")
	if err := cfg.AddZone(orig); err != nil {
		t.Fatalf("add: %v", err)
	}

	dup := validZone("left_edge")
	dup.Magnetism = 0.2
	if err := cfg.AddZone(dup); !errors.Is(err, ErrZoneExists) {
		t.Fatalf("duplicate should fail with ErrZoneExists, got %v", err)
	}
	got, _ := cfg.GetZone("left_edge")
	if got.Magnetism != 0.8 {
		t.Fatalf("failed add mutated existing zone: %+v", got)
	}
}

func TestUpdateZoneValidatesCopyBeforeCommit(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.AddZone(validZone("z")); err != nil {
		t.Fatalf("add: %v", err)
	}

	bad := float32(2.0)
	newPrio := 5
	err := cfg.UpdateZone("z", ZonePatch{Magnetism: &bad, Priority: &newPrio})
	if !errors.Is(err, ErrInvalidZone) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	got, _ := cfg.GetZone("z")
	if got.Priority != 1 || got.Magnetism != 0.8 {
		t.Fatalf("failed update must not commit any field: %+v", got)
	}

	good := float32(0.5)
	if err := cfg.UpdateZone("z", ZonePatch{Magnetism: &good}); err != nil {
		t.Fatalf("valid update rejected: %v", err)
	}
	got, _ = cfg.GetZone("z")
	if got.Magnetism != 0.5 {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestUpdateUnknownZone(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.UpdateZone("ghost", ZonePatch{}); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
	if err := cfg.RemoveZone("ghost"); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
}

func TestActiveZonesPriorityOrderStable(t *testing.T) {
	cfg := NewConfig()
	mk := func(name string, prio int, enabled bool) Zone {
		z := validZone(name)
		z.Priority = prio
		z.Enabled = enabled
		return z
	}
	for _, z := range []Zone{
		mk("low_a", 1, true),
		mk("high", 9, true),
		mk("off", 9, false),
		mk("low_b", 1, true),
	} {
		if err := cfg.AddZone(z); err != nil {
			t.Fatalf("add %s: %v", z.Name, err)
		}
	}

	active := cfg.ActiveZones()
	names := make([]string, len(active))
	for i, z := range active {
		names[i] = z.Name
	}
	want := []string{"high", "low_a", "low_b"}
	if len(names) != len(want) {
		t.Fatalf("active zones = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("active zones = %v, want %v", names, want)
		}
	}
}

func TestConfigDisabledYieldsNoActiveZones(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.AddZone(validZone("z")); err != nil {
		t.Fatalf("add: %v", err)
	}
	cfg.Enabled = false
	if got := cfg.ActiveZones(); len(got) != 0 {
		t.Fatalf("disabled config should expose no active zones, got %d", len(got))
	}
}

func TestSeedDefaultZones(t *testing.T) {
	cfg := NewConfig()
	window := geom.R(0, 0, 1280, 800)
	cfg.SeedDefaultZones(window)

	for _, name := range []string{"left_edge", "right_edge", "top_edge", "bottom_edge"} {
		z, ok := cfg.GetZone(name)
		if !ok {
			t.Fatalf("missing seeded zone %q", name)
		}
		if z.Magnetism != 0.8 || z.Threshold != 56 || z.Priority != 1 || !z.Enabled {
			t.Fatalf("seeded zone %q has wrong parameters: %+v", name, z)
		}
	}
	left, _ := cfg.GetZone("left_edge")
	if left.Area != geom.R(0, 0, 48, 800) {
		t.Fatalf("left_edge area mismatch: %+v", left.Area)
	}
	right, _ := cfg.GetZone("right_edge")
	if right.Area != geom.R(1280-48, 0, 48, 800) {
		t.Fatalf("right_edge area mismatch: %+v", right.Area)
	}

	// Seeding is a no-op when zones exist.
	cfg.SeedDefaultZones(geom.R(0, 0, 10, 10))
	left2, _ := cfg.GetZone("left_edge")
	if left2.Area != left.Area {
		t.Fatalf("second seed overwrote zones")
	}
}

func TestSnapshotApplyRoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.SeedDefaultZones(geom.R(0, 0, 1000, 600))
	cfg.Visual.GuideStyle = "dotted"
	cfg.Performance.HysteresisThreshold = 7

	doc := cfg.Snapshot()

	restored := NewConfig()
	restored.Apply(doc)
	if len(restored.Zones()) != 4 {
		t.Fatalf("expected 4 zones after apply, got %d", len(restored.Zones()))
	}
	if restored.Visual.GuideStyle != "dotted" {
		t.Fatalf("visual settings lost: %+v", restored.Visual)
	}
	if restored.Performance.HysteresisThreshold != 7 {
		t.Fatalf("performance settings lost: %+v", restored.Performance)
	}
	z, ok := restored.GetZone("top_edge")
	if !ok || z.Area != geom.R(0, 0, 1000, 48) {
		t.Fatalf("top_edge round trip mismatch: %+v", z)
	}
}

func TestApplySkipsInvalidZones(t *testing.T) {
	doc := SettingsDoc{
		Enabled:     true,
		Visual:      DefaultVisual(),
		Performance: DefaultPerformance(),
		SnapZones: map[string]ZoneDoc{
			"good": {Name: "good", Area: AreaDoc{Width: 48, Height: 100}, Magnetism: 0.5, Threshold: 10, Enabled: true},
			"bad":  {Name: "bad", Area: AreaDoc{Width: 48, Height: 100}, Magnetism: 3.0, Threshold: 10, Enabled: true},
		},
	}
	cfg := NewConfig()
	cfg.Apply(doc)
	if _, ok := cfg.GetZone("good"); !ok {
		t.Fatalf("valid zone dropped")
	}
	if _, ok := cfg.GetZone("bad"); ok {
		t.Fatalf("invalid zone must be skipped")
	}
}

func TestApplyFallsBackOnBadSettingsBlocks(t *testing.T) {
	doc := SettingsDoc{
		Enabled:     true,
		Visual:      VisualSettings{GuideStyle: "zigzag"},
		Performance: PerformanceSettings{MaxCalculationsPerFrame: 0},
	}
	cfg := NewConfig()
	cfg.Apply(doc)
	if cfg.Visual != DefaultVisual() {
		t.Fatalf("invalid visual block should fall back to defaults")
	}
	if cfg.Performance != DefaultPerformance() {
		t.Fatalf("invalid performance block should fall back to defaults")
	}
}
