/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

import (
	"fmt"
	"log/slog"
	"time"

	"meshforge/internal/geom"
	applog "meshforge/internal/log"
)

// System identifies a named coordinate space. Screen is the global reference;
// Unified equals Screen and is the frame all snap calculations run in.
type System int

const (
	Screen System = iota
	Client
	Widget
	Dock
	Unified
)

func (s System) String() string {
	switch s {
	case Screen:
		return "screen"
	case Client:
		return "client"
	case Widget:
		return "widget"
	case Dock:
		return "dock"
	case Unified:
		return "unified"
	default:
		return fmt.Sprintf("system(%d)", int(s))
	}
}

// Confidence levels for transform results; see TransformPoint.
const (
	confIdentity = 1.0
	confWindow   = 0.95
	confWidget   = 0.9
	confFallback = 0.7
	confFailed   = 0.0
)

const (
	defaultCoordTTL = time.Second
	defaultCoordCap = 1000
)

// TransformResult is the outcome of a coordinate transform. Confidence lies
// in [0,1]; 0 means the transform failed and Point echoes the input.
type TransformResult struct {
	Point      geom.Pt
	Source     System
	Target     System
	At         time.Time
	Context    WidgetHandle
	Confidence float32
}

func newTransformResult(p geom.Pt, src, dst System, at time.Time, ctx WidgetHandle, confidence float32) (TransformResult, error) {
	if confidence < 0 || confidence > 1 {
		return TransformResult{}, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}
	return TransformResult{Point: p, Source: src, Target: dst, At: at, Context: ctx, Confidence: confidence}, nil
}

type transformKey struct {
	src, dst System
	x, y     float32
	ctx      WidgetHandle
}

type transformEntry struct {
	res        TransformResult
	expires    time.Time
	lastAccess time.Time
}

// CoordStats reports cache behavior for the diagnostics panel.
type CoordStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// CoordConfig tunes the transform cache.
type CoordConfig struct {
	TTL      time.Duration
	Capacity int
}

// Coords converts points and rects between coordinate spaces and caches the
// results. It is owned by the window's snap subsystem and, like the rest of
// the interactive path, is confined to the UI thread; it carries no lock.
type Coords struct {
	widgets    *WidgetTable
	windowRect geom.Rect // window geometry in screen coordinates
	screenRect geom.Rect

	ttl      time.Duration
	capacity int
	cache    map[transformKey]*transformEntry
	stats    CoordStats

	now func() time.Time
	log *slog.Logger
}

// NewCoords builds a coordinate manager over the window's widget table.
func NewCoords(widgets *WidgetTable, cfg CoordConfig) *Coords {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCoordTTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCoordCap
	}
	return &Coords{
		widgets:  widgets,
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
		cache:    make(map[transformKey]*transformEntry),
		now:      time.Now,
		log:      applog.WithComponent("snap.coords"),
	}
}

// UpdateWindowGeometry records new window bounds (screen coordinates) and
// invalidates every cached transform.
func (c *Coords) UpdateWindowGeometry(r geom.Rect) {
	c.windowRect = r
	c.ClearCache()
}

// UpdateScreenGeometry records new screen bounds and invalidates the cache.
func (c *Coords) UpdateScreenGeometry(r geom.Rect) {
	c.screenRect = r
	c.ClearCache()
}

// WindowRect returns the current window geometry in screen coordinates.
func (c *Coords) WindowRect() geom.Rect { return c.windowRect }

// ClearCache drops all cached transforms.
func (c *Coords) ClearCache() {
	c.cache = make(map[transformKey]*transformEntry)
}

// Stats returns cache counters.
func (c *Coords) Stats() CoordStats {
	s := c.stats
	s.Entries = len(c.cache)
	return s
}

// TransformPoint converts p from src to dst. It never fails: on any internal
// error the original point is returned with confidence 0. Results are cached
// per (source, target, point, context) for the configured TTL.
func (c *Coords) TransformPoint(p geom.Pt, src, dst System, ctx WidgetHandle) TransformResult {
	key := transformKey{src: src, dst: dst, x: p.X, y: p.Y, ctx: ctx}
	now := c.now()
	if e, ok := c.cache[key]; ok {
		if now.Before(e.expires) {
			e.lastAccess = now
			c.stats.Hits++
			return e.res
		}
		delete(c.cache, key)
	}
	c.stats.Misses++

	res := c.compute(p, src, dst, ctx, now)
	c.insert(key, res, now)
	return res
}

// TransformRect converts all four corners and returns the axis-aligned
// bounding box of the results.
func (c *Coords) TransformRect(r geom.Rect, src, dst System, ctx WidgetHandle) geom.Rect {
	corners := r.Corners()
	first := c.TransformPoint(corners[0], src, dst, ctx).Point
	minX, minY, maxX, maxY := first.X, first.Y, first.X, first.Y
	for _, p := range corners[1:] {
		q := c.TransformPoint(p, src, dst, ctx).Point
		if q.X < minX {
			minX = q.X
		}
		if q.Y < minY {
			minY = q.Y
		}
		if q.X > maxX {
			maxX = q.X
		}
		if q.Y > maxY {
			maxY = q.Y
		}
	}
	return geom.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (c *Coords) compute(p geom.Pt, src, dst System, ctx WidgetHandle, now time.Time) TransformResult {
	if src == dst || (canonical(src) == canonical(dst)) {
		res, _ := newTransformResult(p, src, dst, now, ctx, confIdentity)
		return res
	}

	sp, err := c.toScreen(p, src, ctx)
	if err == nil {
		var out geom.Pt
		out, err = c.fromScreen(sp, dst, ctx)
		if err == nil {
			res, _ := newTransformResult(out, src, dst, now, ctx, c.confidence(src, dst, ctx))
			return res
		}
	}
	c.log.Warn("transform failed, returning identity",
		slog.String("src", src.String()), slog.String("dst", dst.String()), slog.Any("err", err))
	res, _ := newTransformResult(p, src, dst, now, ctx, confFailed)
	return res
}

// canonical folds Unified onto Screen; the two are defined to be equal.
func canonical(s System) System {
	if s == Unified {
		return Screen
	}
	return s
}

func (c *Coords) toScreen(p geom.Pt, src System, ctx WidgetHandle) (geom.Pt, error) {
	switch canonical(src) {
	case Screen:
		return p, nil
	case Client:
		return p.Add(c.windowRect.Min()), nil
	case Widget, Dock:
		info, ok := c.widgets.Info(ctx)
		if !ok {
			return p, fmt.Errorf("%s transform requires a live context widget", src)
		}
		return p.Add(info.Frame.Min()).Add(c.windowRect.Min()), nil
	default:
		c.log.Warn("unmapped source system, using identity", slog.String("src", src.String()))
		return p, nil
	}
}

func (c *Coords) fromScreen(p geom.Pt, dst System, ctx WidgetHandle) (geom.Pt, error) {
	switch canonical(dst) {
	case Screen:
		return p, nil
	case Client:
		return p.Sub(c.windowRect.Min()), nil
	case Widget, Dock:
		info, ok := c.widgets.Info(ctx)
		if !ok {
			return p, fmt.Errorf("%s transform requires a live context widget", dst)
		}
		return p.Sub(c.windowRect.Min()).Sub(info.Frame.Min()), nil
	default:
		c.log.Warn("unmapped target system, using identity", slog.String("dst", dst.String()))
		return p, nil
	}
}

func (c *Coords) confidence(src, dst System, ctx WidgetHandle) float32 {
	a, b := canonical(src), canonical(dst)
	if a == b {
		return confIdentity
	}
	touchesWidget := a == Widget || a == Dock || b == Widget || b == Dock
	if touchesWidget {
		if c.widgets.Valid(ctx) {
			return confWidget
		}
		return confFallback
	}
	if a == Screen || a == Client || b == Screen || b == Client {
		return confWindow
	}
	return confFallback
}

func (c *Coords) insert(key transformKey, res TransformResult, now time.Time) {
	// Opportunistic purge of expired entries.
	for k, e := range c.cache {
		if !now.Before(e.expires) {
			delete(c.cache, k)
		}
	}
	if len(c.cache) >= c.capacity {
		// Strict LRU; the linear scan is fine at the target cache sizes.
		var oldestKey transformKey
		var oldest time.Time
		first := true
		for k, e := range c.cache {
			if first || e.lastAccess.Before(oldest) {
				oldestKey, oldest = k, e.lastAccess
				first = false
			}
		}
		if !first {
			delete(c.cache, oldestKey)
			c.stats.Evictions++
		}
	}
	c.cache[key] = &transformEntry{res: res, expires: now.Add(c.ttl), lastAccess: now}
}
