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

	"meshforge/internal/geom"
)

const defaultCellSize = 100

// Index is a grid-bucketed spatial index over snap zones, letting the engine
// query only the zones near the cursor instead of scanning all of them. A
// zone lives in every cell its area overlaps.
type Index struct {
	cellSize float32
	cells    map[cellKey][]Zone
}

type cellKey struct{ cx, cy int32 }

// NewIndex builds an empty index. cellSize <= 0 selects the default (100px).
func NewIndex(cellSize float32) *Index {
	if cellSize <= 0 {
		cellSize = defaultCellSize
	}
	return &Index{cellSize: cellSize, cells: make(map[cellKey][]Zone)}
}

func (ix *Index) cellOf(x, y float32) cellKey {
	return cellKey{
		cx: int32(math.Floor(float64(x / ix.cellSize))),
		cy: int32(math.Floor(float64(y / ix.cellSize))),
	}
}

// Add inserts the zone into every grid cell its area overlaps.
func (ix *Index) Add(z Zone) {
	lo := ix.cellOf(z.Area.X, z.Area.Y)
	hi := ix.cellOf(z.Area.X+z.Area.W, z.Area.Y+z.Area.H)
	for cx := lo.cx; cx <= hi.cx; cx++ {
		for cy := lo.cy; cy <= hi.cy; cy++ {
			k := cellKey{cx, cy}
			ix.cells[k] = append(ix.cells[k], z)
		}
	}
}

// Remove deletes the named zone from every cell. The full scan is fine:
// zone counts are tens, not millions.
func (ix *Index) Remove(name string) {
	for k, zones := range ix.cells {
		kept := zones[:0]
		for _, z := range zones {
			if z.Name != name {
				kept = append(kept, z)
			}
		}
		if len(kept) == 0 {
			delete(ix.cells, k)
		} else {
			ix.cells[k] = kept
		}
	}
}

// Clear drops all zones.
func (ix *Index) Clear() {
	ix.cells = make(map[cellKey][]Zone)
}

// Rebuild replaces the index contents with the given zones.
func (ix *Index) Rebuild(zones []Zone) {
	ix.Clear()
	for _, z := range zones {
		ix.Add(z)
	}
}

// Nearby returns zones around p within radius. Candidate cells come from the
// cell-index range; duplicates (a zone spans multiple cells) are removed.
// Acceptance is deliberately loose: a zone passes when the distance from p to
// its center is at most radius plus half its larger dimension. That admits
// some zones an exact AABB-circle test would reject, which is harmless here
// because the engine re-checks per-zone thresholds on every candidate.
func (ix *Index) Nearby(p geom.Pt, radius float32) []Zone {
	if radius < 0 {
		radius = 0
	}
	lo := ix.cellOf(p.X-radius, p.Y-radius)
	hi := ix.cellOf(p.X+radius, p.Y+radius)

	seen := make(map[string]struct{})
	var out []Zone
	for cx := lo.cx; cx <= hi.cx; cx++ {
		for cy := lo.cy; cy <= hi.cy; cy++ {
			for _, z := range ix.cells[cellKey{cx, cy}] {
				if _, dup := seen[z.Name]; dup {
					continue
				}
				half := max(z.Area.W, z.Area.H) / 2
				if geom.Dist(p, z.Area.Center()) <= radius+half {
					seen[z.Name] = struct{}{}
					out = append(out, z)
				}
			}
		}
	}
	return out
}

// Len returns the number of distinct zones currently indexed.
func (ix *Index) Len() int {
	seen := make(map[string]struct{})
	for _, zones := range ix.cells {
		for _, z := range zones {
			seen[z.Name] = struct{}{}
		}
	}
	return len(seen)
}
