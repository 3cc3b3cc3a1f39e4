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
	"sort"
	"time"

	"meshforge/internal/geom"
	applog "meshforge/internal/log"
)

// SnapType classifies a candidate target.
type SnapType int

const (
	SnapEdge SnapType = iota
	SnapCenter
	SnapCorner
	SnapGrid
	SnapCustom
)

func (t SnapType) String() string {
	switch t {
	case SnapEdge:
		return "edge"
	case SnapCenter:
		return "center"
	case SnapCorner:
		return "corner"
	case SnapGrid:
		return "grid"
	case SnapCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// typeWeight biases scoring toward the most predictable snap targets for
// window docking: edges first, corners last.
func typeWeight(t SnapType) float32 {
	switch t {
	case SnapEdge:
		return 1.0
	case SnapGrid:
		return 0.9
	case SnapCenter:
		return 0.8
	case SnapCustom:
		return 0.7
	case SnapCorner:
		return 0.6
	default:
		return 0.5
	}
}

// Candidate is one possible snap target, produced transiently per calculation.
type Candidate struct {
	Zone       Zone
	Type       SnapType
	Position   geom.Pt
	Distance   float32
	Score      float32
	Confidence float32
}

// Result is the outcome of one snap calculation. It is immutable once
// returned.
type Result struct {
	Position            geom.Pt // snapped position (unified)
	Original            geom.Pt // input position (unified)
	Best                *Candidate
	Applied             bool
	Strength            float32 // pull fraction actually applied, [0,1]
	Duration            time.Duration
	CandidatesEvaluated int
}

// Stats aggregates engine activity for the diagnostics panel.
type Stats struct {
	Calculations  uint64
	SnapsApplied  uint64
	Candidates    uint64
	TotalDuration time.Duration
}

const (
	historyCap           = 100
	defaultMaxCandidates = 10
)

// Engine turns unified positions into snapped positions. It owns the spatial
// index and a bounded result history; zone data lives in the Config. Like
// the coordinate manager it runs exclusively on the UI thread.
type Engine struct {
	coords *Coords
	cfg    *Config
	index  *Index

	lastSnap    geom.Pt
	hasLastSnap bool

	history []Result
	stats   Stats

	now func() time.Time
	log *slog.Logger
}

// NewEngine wires the engine to its coordinate manager and configuration and
// builds the spatial index from the current zones.
func NewEngine(coords *Coords, cfg *Config) *Engine {
	e := &Engine{
		coords: coords,
		cfg:    cfg,
		index:  NewIndex(0),
		now:    time.Now,
		log:    applog.WithComponent("snap.engine"),
	}
	e.RebuildIndex()
	return e
}

// RebuildIndex re-syncs the spatial index with the configuration. Call after
// any zone mutation done directly on the Config.
func (e *Engine) RebuildIndex() {
	e.index.Rebuild(e.cfg.ActiveZones())
}

// AddZone, UpdateZone and RemoveZone mutate the configuration and keep the
// index in sync. They surface the configuration's validation errors.

func (e *Engine) AddZone(z Zone) error {
	if err := e.cfg.AddZone(z); err != nil {
		return err
	}
	e.RebuildIndex()
	return nil
}

func (e *Engine) UpdateZone(name string, p ZonePatch) error {
	if err := e.cfg.UpdateZone(name, p); err != nil {
		return err
	}
	e.RebuildIndex()
	return nil
}

func (e *Engine) RemoveZone(name string) error {
	if err := e.cfg.RemoveZone(name); err != nil {
		return err
	}
	e.RebuildIndex()
	return nil
}

// ResetHysteresis clears the remembered snap position, forcing the next
// calculation to run in full. Call when a new drag begins.
func (e *Engine) ResetHysteresis() {
	e.hasLastSnap = false
}

// History returns the bounded result history, oldest first.
func (e *Engine) History() []Result {
	out := make([]Result, len(e.history))
	copy(out, e.history)
	return out
}

// Stats returns aggregate counters since construction.
func (e *Engine) Stats() Stats { return e.stats }

// CalculateSnap finds the best snap target for a position given in src
// coordinates and returns the snapped position in unified coordinates.
// maxCandidates <= 0 selects the default (10). The call never panics out:
// any internal failure degrades to "no snap" with the original position.
func (e *Engine) CalculateSnap(pos geom.Pt, src System, ctx WidgetHandle, maxCandidates int) (res Result) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("snap calculation panicked", slog.Any("panic", r))
			res = Result{Position: pos, Original: pos, Duration: e.now().Sub(start)}
		}
	}()
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}

	unified := e.coords.TransformPoint(pos, src, Unified, ctx).Point

	// Hysteresis: tiny movements near the previous decision return it
	// unchanged so the snap target does not flicker on sub-pixel noise.
	if e.hasLastSnap && geom.Dist(unified, e.lastSnap) < e.cfg.Performance.HysteresisThreshold {
		return e.finish(Result{
			Position: e.lastSnap,
			Original: unified,
			Applied:  false,
		}, start)
	}

	if !e.cfg.Enabled {
		return e.finish(Result{Position: unified, Original: unified}, start)
	}

	nearby := e.nearbyZones(unified)
	candidates := e.generateCandidates(unified, nearby)

	result := Result{Position: unified, Original: unified, CandidatesEvaluated: len(candidates)}
	if best := pickBest(candidates, maxCandidates); best != nil {
		pull := best.Zone.Magnetism * (1 - best.Distance/best.Zone.Threshold)
		if pull < 0 {
			pull = 0
		}
		if pull > 1 {
			pull = 1
		}
		result.Position = geom.Lerp(unified, best.Position, pull)
		result.Best = best
		result.Applied = true
		result.Strength = pull
	}

	e.lastSnap = result.Position
	e.hasLastSnap = true
	return e.finish(result, start)
}

func (e *Engine) nearbyZones(p geom.Pt) []Zone {
	radius := 2 * e.cfg.MaxThreshold()
	if e.cfg.Performance.SpatialIndexEnabled {
		return e.index.Nearby(p, radius)
	}
	// Index disabled: plain scan over active zones.
	return e.cfg.ActiveZones()
}

// generateCandidates produces up to three candidates per zone (nearest edge
// point, center, nearest corner), discarding any farther than that zone's
// own threshold.
func (e *Engine) generateCandidates(p geom.Pt, zones []Zone) []Candidate {
	var out []Candidate
	for _, z := range zones {
		if !z.Enabled || z.Threshold <= 0 {
			continue
		}
		targets := [...]struct {
			t   SnapType
			pos geom.Pt
		}{
			{SnapEdge, z.Area.NearestEdgePoint(p)},
			{SnapCenter, z.Area.Center()},
			{SnapCorner, z.Area.NearestCorner(p)},
		}
		for _, tgt := range targets {
			d := geom.Dist(p, tgt.pos)
			if d > z.Threshold {
				continue
			}
			score := (z.Threshold - d) * z.Magnetism * (1 + float32(z.Priority)*0.1) * typeWeight(tgt.t)
			if score < 0 {
				score = 0
			}
			out = append(out, Candidate{
				Zone:       z,
				Type:       tgt.t,
				Position:   tgt.pos,
				Distance:   d,
				Score:      score,
				Confidence: 1 - d/z.Threshold,
			})
		}
	}
	return out
}

// pickBest sorts by raw distance, caps the field, then returns the highest
// scoring survivor. The winner is not necessarily the closest candidate.
func pickBest(candidates []Candidate, maxCandidates int) *Candidate {
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	best := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > best.Score {
			best = &candidates[i]
		}
	}
	cp := *best
	return &cp
}

func (e *Engine) finish(r Result, start time.Time) Result {
	r.Duration = e.now().Sub(start)
	e.stats.Calculations++
	e.stats.Candidates += uint64(r.CandidatesEvaluated)
	e.stats.TotalDuration += r.Duration
	if r.Applied {
		e.stats.SnapsApplied++
	}
	if len(e.history) == historyCap {
		copy(e.history, e.history[1:])
		e.history = e.history[:historyCap-1]
	}
	e.history = append(e.history, r)
	return r
}
