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

func newTestCoords(t *testing.T) (*Coords, *WidgetTable) {
	t.Helper()
	widgets := NewWidgetTable()
	c := NewCoords(widgets, CoordConfig{TTL: time.Second, Capacity: 8})
	c.UpdateWindowGeometry(geom.R(100, 200, 1280, 800))
	c.UpdateScreenGeometry(geom.R(0, 0, 1920, 1080))
	return c, widgets
}

func TestTransformIdentity(t *testing.T) {
	c, _ := newTestCoords(t)
	for _, sys := range []System{Screen, Client, Widget, Dock, Unified} {
		p := geom.Pt{X: 12.5, Y: -3}
		res := c.TransformPoint(p, sys, sys, NilWidget)
		if res.Point != p {
			t.Fatalf("%v identity moved point: %+v", sys, res.Point)
		}
		if res.Confidence != 1 {
			t.Fatalf("%v identity confidence = %v, want 1", sys, res.Confidence)
		}
	}
}

func TestUnifiedEqualsScreen(t *testing.T) {
	c, _ := newTestCoords(t)
	p := geom.Pt{X: 640, Y: 480}
	res := c.TransformPoint(p, Screen, Unified, NilWidget)
	if res.Point != p {
		t.Fatalf("unified should pass through screen points, got %+v", res.Point)
	}
	if res.Confidence != 1 {
		t.Fatalf("screen->unified confidence = %v, want 1", res.Confidence)
	}
}

func TestScreenClientRoundTrip(t *testing.T) {
	c, _ := newTestCoords(t)
	p := geom.Pt{X: 500, Y: 300}

	cl := c.TransformPoint(p, Screen, Client, NilWidget)
	if cl.Point != (geom.Pt{X: 400, Y: 100}) {
		t.Fatalf("screen->client mismatch: %+v", cl.Point)
	}
	if cl.Confidence != 0.95 {
		t.Fatalf("screen->client confidence = %v, want 0.95", cl.Confidence)
	}

	back := c.TransformPoint(cl.Point, Client, Screen, NilWidget)
	if back.Point != p {
		t.Fatalf("round trip lost the point: %+v", back.Point)
	}
}

func TestWidgetTransformWithContext(t *testing.T) {
	c, widgets := newTestCoords(t)
	h := widgets.Register(WidgetInfo{Name: "props_panel", Frame: geom.R(30, 40, 200, 600), Dock: true})

	res := c.TransformPoint(geom.Pt{X: 10, Y: 20}, Widget, Screen, h)
	// widget local + frame origin + window origin
	want := geom.Pt{X: 10 + 30 + 100, Y: 20 + 40 + 200}
	if res.Point != want {
		t.Fatalf("widget->screen = %+v, want %+v", res.Point, want)
	}
	if res.Confidence != 0.9 {
		t.Fatalf("widget transform confidence = %v, want 0.9", res.Confidence)
	}

	back := c.TransformPoint(res.Point, Screen, Widget, h)
	if back.Point != (geom.Pt{X: 10, Y: 20}) {
		t.Fatalf("widget round trip mismatch: %+v", back.Point)
	}
}

func TestWidgetTransformMissingContextDegrades(t *testing.T) {
	c, widgets := newTestCoords(t)
	h := widgets.Register(WidgetInfo{Name: "doomed", Frame: geom.R(0, 0, 10, 10)})
	widgets.Release(h)

	p := geom.Pt{X: 5, Y: 6}
	res := c.TransformPoint(p, Widget, Screen, h)
	if res.Point != p {
		t.Fatalf("failed transform should echo input, got %+v", res.Point)
	}
	if res.Confidence != 0 {
		t.Fatalf("failed transform confidence = %v, want 0", res.Confidence)
	}
}

func TestTransformCacheHitAndGeometryInvalidation(t *testing.T) {
	c, _ := newTestCoords(t)
	p := geom.Pt{X: 1, Y: 2}

	first := c.TransformPoint(p, Screen, Client, NilWidget)
	if got := c.Stats(); got.Hits != 0 || got.Misses != 1 {
		t.Fatalf("expected one miss, got %+v", got)
	}
	second := c.TransformPoint(p, Screen, Client, NilWidget)
	if got := c.Stats(); got.Hits != 1 {
		t.Fatalf("expected a cache hit, got %+v", got)
	}
	if first != second {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}

	c.UpdateWindowGeometry(geom.R(0, 0, 1280, 800))
	if got := c.Stats(); got.Entries != 0 {
		t.Fatalf("geometry update should clear the cache, %d entries left", got.Entries)
	}
	moved := c.TransformPoint(p, Screen, Client, NilWidget)
	if moved.Point != (geom.Pt{X: 1, Y: 2}) {
		t.Fatalf("expected new origin applied, got %+v", moved.Point)
	}
	if got := c.Stats(); got.Misses != 2 {
		t.Fatalf("call after invalidation should miss, got %+v", got)
	}
}

func TestTransformCacheTTLExpiry(t *testing.T) {
	c, _ := newTestCoords(t)
	base := time.Now()
	c.now = func() time.Time { return base }

	p := geom.Pt{X: 7, Y: 7}
	c.TransformPoint(p, Screen, Client, NilWidget)
	base = base.Add(2 * time.Second)
	c.TransformPoint(p, Screen, Client, NilWidget)
	if got := c.Stats(); got.Hits != 0 || got.Misses != 2 {
		t.Fatalf("expired entry should not hit: %+v", got)
	}
}

func TestTransformCacheLRUEviction(t *testing.T) {
	widgets := NewWidgetTable()
	c := NewCoords(widgets, CoordConfig{TTL: time.Minute, Capacity: 2})
	c.UpdateWindowGeometry(geom.R(0, 0, 100, 100))

	base := time.Now()
	c.now = func() time.Time { return base }

	c.TransformPoint(geom.Pt{X: 1, Y: 0}, Screen, Client, NilWidget)
	base = base.Add(time.Millisecond)
	c.TransformPoint(geom.Pt{X: 2, Y: 0}, Screen, Client, NilWidget)
	base = base.Add(time.Millisecond)
	// Touch the first entry so the second becomes least recently used.
	c.TransformPoint(geom.Pt{X: 1, Y: 0}, Screen, Client, NilWidget)
	base = base.Add(time.Millisecond)
	c.TransformPoint(geom.Pt{X: 3, Y: 0}, Screen, Client, NilWidget)

	if got := c.Stats(); got.Evictions != 1 {
		t.Fatalf("expected one eviction, got %+v", got)
	}
	// First entry must still be cached.
	c.TransformPoint(geom.Pt{X: 1, Y: 0}, Screen, Client, NilWidget)
	if got := c.Stats(); got.Hits != 2 {
		t.Fatalf("LRU evicted the wrong entry: %+v", got)
	}
}

func TestTransformRectIsAABBOfCorners(t *testing.T) {
	c, _ := newTestCoords(t)
	r := c.TransformRect(geom.R(0, 0, 10, 20), Client, Screen, NilWidget)
	if r != geom.R(100, 200, 10, 20) {
		t.Fatalf("rect transform mismatch: %+v", r)
	}
}

func TestTransformResultConfidenceBounds(t *testing.T) {
	if _, err := newTransformResult(geom.Pt{}, Screen, Client, time.Now(), NilWidget, 1.5); err == nil {
		t.Fatalf("confidence above 1 must be rejected")
	}
	if _, err := newTransformResult(geom.Pt{}, Screen, Client, time.Now(), NilWidget, -0.1); err == nil {
		t.Fatalf("negative confidence must be rejected")
	}
}
