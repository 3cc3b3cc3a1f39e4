/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snap

// Guide primitives for visual snap feedback. The host toolkit paints them;
// this module only computes geometry and animation progress, keeping the
// output deterministic for unit testing.

import (
	"time"

	"meshforge/internal/geom"
)

// GuideKind discriminates guide primitives.
type GuideKind int

const (
	GuideEdge GuideKind = iota
	GuideCrosshair
	GuideCorner
)

func (k GuideKind) String() string {
	switch k {
	case GuideEdge:
		return "edge"
	case GuideCrosshair:
		return "crosshair"
	case GuideCorner:
		return "corner"
	default:
		return "unknown"
	}
}

// Guide is one renderable primitive in unified coordinates. Edge guides and
// crosshair arms use From/To; corner markers use At with a fixed arm length.
// Coordinates are rounded to 3 decimals for deterministic comparisons.
type Guide struct {
	Kind  GuideKind
	From  geom.Pt
	To    geom.Pt
	At    geom.Pt
	Color RGBA
	Width float32
	Style string
}

const cornerMarkSize = 8

// Renderer turns snap results into guide primitives with fade animation.
type Renderer struct {
	visual VisualSettings

	guides    []Guide
	shownAt   time.Time
	clearedAt time.Time
	visible   bool

	now func() time.Time
}

// NewRenderer builds a renderer with the given visual settings.
func NewRenderer(visual VisualSettings) *Renderer {
	return &Renderer{visual: visual, now: time.Now}
}

// SetVisual swaps the visual settings, e.g. after a preferences change.
func (r *Renderer) SetVisual(v VisualSettings) { r.visual = v }

// Update recomputes guides from a snap result. A result without an applied
// snap starts the fade-out of whatever is showing.
func (r *Renderer) Update(res Result) {
	if !r.visual.ShowGuides || !res.Applied || res.Best == nil {
		r.Clear()
		return
	}
	r.guides = r.guidesFor(*res.Best)
	if !r.visible {
		r.shownAt = r.now()
		r.visible = true
	}
}

// Clear begins fading out the current guides.
func (r *Renderer) Clear() {
	if r.visible {
		r.clearedAt = r.now()
		r.visible = false
	}
}

// Guides returns the current primitives and their opacity in [0,1], applying
// fade-in after Update and fade-out after Clear. A zero opacity means there
// is nothing to paint.
func (r *Renderer) Guides() ([]Guide, float32) {
	now := r.now()
	if r.visible {
		return r.guides, r.fadeIn(now)
	}
	op := r.fadeOut(now)
	if op <= 0 {
		return nil, 0
	}
	return r.guides, op
}

func (r *Renderer) fadeIn(now time.Time) float32 {
	d := time.Duration(r.visual.AnimationMs) * time.Millisecond
	if d <= 0 {
		return 1
	}
	t := float32(now.Sub(r.shownAt)) / float32(d)
	if t >= 1 {
		return 1
	}
	if t < 0 {
		return 0
	}
	return t
}

func (r *Renderer) fadeOut(now time.Time) float32 {
	if r.clearedAt.IsZero() {
		return 0
	}
	d := time.Duration(r.visual.FadeMs) * time.Millisecond
	if d <= 0 {
		return 0
	}
	t := 1 - float32(now.Sub(r.clearedAt))/float32(d)
	if t <= 0 {
		return 0
	}
	return t
}

// guidesFor maps a winning candidate to primitives: an edge line spanning
// the zone for edge snaps, a crosshair through the center for center snaps,
// and a corner marker for corner snaps.
func (r *Renderer) guidesFor(best Candidate) []Guide {
	area := best.Zone.Area
	color := r.visual.GuideColor
	width := r.visual.GuideWidth
	style := r.visual.GuideStyle
	mk := func(kind GuideKind, from, to, at geom.Pt) Guide {
		return Guide{
			Kind:  kind,
			From:  roundPt(from),
			To:    roundPt(to),
			At:    roundPt(at),
			Color: color,
			Width: width,
			Style: style,
		}
	}

	switch best.Type {
	case SnapEdge:
		p := best.Position
		// Vertical edge when the snap point sits on a vertical side.
		if p.X == area.X || p.X == area.X+area.W {
			return []Guide{mk(GuideEdge, geom.Pt{X: p.X, Y: area.Y}, geom.Pt{X: p.X, Y: area.Y + area.H}, p)}
		}
		return []Guide{mk(GuideEdge, geom.Pt{X: area.X, Y: p.Y}, geom.Pt{X: area.X + area.W, Y: p.Y}, p)}
	case SnapCenter:
		c := area.Center()
		return []Guide{
			mk(GuideCrosshair, geom.Pt{X: c.X, Y: area.Y}, geom.Pt{X: c.X, Y: area.Y + area.H}, c),
			mk(GuideCrosshair, geom.Pt{X: area.X, Y: c.Y}, geom.Pt{X: area.X + area.W, Y: c.Y}, c),
		}
	case SnapCorner:
		p := best.Position
		return []Guide{mk(GuideCorner, geom.Pt{X: p.X - cornerMarkSize, Y: p.Y}, geom.Pt{X: p.X + cornerMarkSize, Y: p.Y}, p)}
	default:
		p := best.Position
		return []Guide{mk(GuideCorner, p, p, p)}
	}
}

func roundPt(p geom.Pt) geom.Pt {
	return geom.Pt{X: geom.FloatRound(p.X, 3), Y: geom.FloatRound(p.Y, 3)}
}
