/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snap implements docked-window snapping for the workshop's main
// window: coordinate-space transforms with caching, a grid spatial index
// over snap zones, scored candidate selection with magnetism, hysteresis
// against decision flicker, and a debounced event pipeline.
//
// The whole interactive path is single-threaded by design. All calculation
// happens synchronously on the UI thread in response to pointer and layout
// callbacks; caches and history are owned by that thread and never locked.
// Persistence and rendering may run elsewhere, the snap decision never does.
package snap

import (
	"time"

	"meshforge/internal/geom"
)

// Subsystem bundles one window's snapping components, constructed once at
// window creation and passed to collaborators explicitly. There is no
// process-wide instance.
type Subsystem struct {
	Widgets   *WidgetTable
	Coords    *Coords
	Config    *Config
	Engine    *Engine
	Processor *Processor
	Renderer  *Renderer
}

// NewSubsystem wires up the components for a window with the given geometry
// (screen coordinates). When the configuration has no zones, the default
// window-edge zones are seeded first.
func NewSubsystem(windowRect geom.Rect, cfg *Config) *Subsystem {
	if cfg == nil {
		cfg = NewConfig()
	}
	cfg.SeedDefaultZones(windowRect)

	widgets := NewWidgetTable()
	coords := NewCoords(widgets, CoordConfig{
		TTL:      time.Second,
		Capacity: cfg.Performance.CacheSize,
	})
	coords.UpdateWindowGeometry(windowRect)

	engine := NewEngine(coords, cfg)
	proc := NewProcessor(widgets, cfg.Performance)
	rend := NewRenderer(cfg.Visual)

	s := &Subsystem{
		Widgets:   widgets,
		Coords:    coords,
		Config:    cfg,
		Engine:    engine,
		Processor: proc,
		Renderer:  rend,
	}

	// Default wiring: snap on moves of drag-tracked widgets, feed the
	// renderer, keep geometry and hysteresis state fresh.
	proc.Register(EventPress, func(ev Event) { engine.ResetHysteresis() })
	proc.Register(EventMove, func(ev Event) {
		if ev.Target.IsNil() || !proc.Dragging(ev.Target) {
			return
		}
		res := engine.CalculateSnap(ev.Position, Unified, ev.Target, 0)
		rend.Update(res)
	})
	proc.Register(EventRelease, func(ev Event) { rend.Clear() })
	proc.Register(EventWindowMove, func(ev Event) {
		r := coords.WindowRect()
		coords.UpdateWindowGeometry(geom.Rect{X: ev.Position.X, Y: ev.Position.Y, W: r.W, H: r.H})
	})
	proc.Register(EventResize, func(ev Event) {
		if ev.Resize == nil {
			return
		}
		r := coords.WindowRect()
		coords.UpdateWindowGeometry(geom.Rect{X: r.X, Y: r.Y, W: ev.Resize.NewSize.W, H: ev.Resize.NewSize.H})
	})
	proc.Register(EventLayoutChange, func(ev Event) { coords.ClearCache() })

	return s
}
