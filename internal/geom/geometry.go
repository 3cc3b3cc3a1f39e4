/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Basic 2D geometry for window and dock snapping.
// Float values use float32 for compactness and to align with many UI libs.

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float32 }

// Size is a width/height pair.
type Size struct{ W, H float32 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float32
	W, H float32
}

func R(x, y, w, h float32) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt     { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt     { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt  { return Pt{r.X + r.W/2, r.Y + r.H/2} }
func (r Rect) Size() Size  { return Size{r.W, r.H} }
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Overlaps reports whether two rectangles intersect (touching counts).
func (r Rect) Overlaps(o Rect) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float32) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.W, o.X+o.W)
	maxY := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Corners returns the four corners in min, min+w, max, min+h order.
func (r Rect) Corners() [4]Pt {
	return [4]Pt{
		{r.X, r.Y},
		{r.X + r.W, r.Y},
		{r.X + r.W, r.Y + r.H},
		{r.X, r.Y + r.H},
	}
}

// Clamp returns p constrained to lie within r.
func (r Rect) Clamp(p Pt) Pt {
	return Pt{
		X: min(max(p.X, r.X), r.X+r.W),
		Y: min(max(p.Y, r.Y), r.Y+r.H),
	}
}

// NearestEdgePoint returns the point on the rectangle outline closest to p.
// For points inside the rect this is the projection onto the nearest edge,
// not the point itself.
func (r Rect) NearestEdgePoint(p Pt) Pt {
	c := r.Clamp(p)
	if !r.Contains(p) {
		return c
	}
	// Inside: project onto the closest of the four edges.
	dl := p.X - r.X
	dr := r.X + r.W - p.X
	dt := p.Y - r.Y
	db := r.Y + r.H - p.Y
	m := min(min(dl, dr), min(dt, db))
	switch m {
	case dl:
		return Pt{r.X, p.Y}
	case dr:
		return Pt{r.X + r.W, p.Y}
	case dt:
		return Pt{p.X, r.Y}
	default:
		return Pt{p.X, r.Y + r.H}
	}
}

// NearestCorner returns the corner of r closest to p.
func (r Rect) NearestCorner(p Pt) Pt {
	best := Pt{r.X, r.Y}
	bestD := Dist(p, best)
	for _, c := range r.Corners() {
		if d := Dist(p, c); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func (p Pt) Add(o Pt) Pt { return Pt{p.X + o.X, p.Y + o.Y} }
func (p Pt) Sub(o Pt) Pt { return Pt{p.X - o.X, p.Y - o.Y} }

// Dist returns the Euclidean distance between two points.
func Dist(a, b Pt) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return float32(math.Hypot(dx, dy))
}

// ManhattanDist returns |dx|+|dy|, the metric used for movement debouncing.
func ManhattanDist(a, b Pt) float32 {
	return Abs(a.X-b.X) + Abs(a.Y-b.Y)
}

// Lerp interpolates from a toward b by t (t=0 -> a, t=1 -> b).
func Lerp(a, b Pt, t float32) Pt {
	return Pt{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t}
}

func Abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float32, places int) float32 {
	if places < 0 {
		return v
	}
	pow := float32(math.Pow(10, float64(places)))
	return float32(math.Round(float64(v*pow))) / pow
}
