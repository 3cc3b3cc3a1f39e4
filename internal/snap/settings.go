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

	"meshforge/internal/geom"
)

// SettingsDoc is the wire form of a snap configuration, matching the JSON
// Schema embedded by internal/storage. Zones are a map keyed by name.
type SettingsDoc struct {
	Enabled     bool                `json:"enabled"`
	Visual      VisualSettings      `json:"visual"`
	Performance PerformanceSettings `json:"performance"`
	SnapZones   map[string]ZoneDoc  `json:"snap_zones"`
}

// ZoneDoc is the wire form of a single zone.
type ZoneDoc struct {
	Name      string  `json:"name"`
	Area      AreaDoc `json:"area"`
	Magnetism float32 `json:"magnetism"`
	Threshold float32 `json:"snap_threshold"`
	Priority  int     `json:"priority"`
	Enabled   bool    `json:"enabled"`
}

// AreaDoc is a rectangle as x/y/width/height.
type AreaDoc struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// Snapshot serializes the configuration into its wire form.
func (c *Config) Snapshot() SettingsDoc {
	doc := SettingsDoc{
		Enabled:     c.Enabled,
		Visual:      c.Visual,
		Performance: c.Performance,
		SnapZones:   make(map[string]ZoneDoc, len(c.zones)),
	}
	for _, z := range c.Zones() {
		doc.SnapZones[z.Name] = ZoneDoc{
			Name:      z.Name,
			Area:      AreaDoc{X: z.Area.X, Y: z.Area.Y, Width: z.Area.W, Height: z.Area.H},
			Magnetism: z.Magnetism,
			Threshold: z.Threshold,
			Priority:  z.Priority,
			Enabled:   z.Enabled,
		}
	}
	return doc
}

// Apply replaces the configuration with the document contents. Loading is
// defensive: a zone that fails validation is skipped with a warning rather
// than aborting the whole load. Invalid visual or performance blocks fall
// back to defaults the same way.
func (c *Config) Apply(doc SettingsDoc) {
	c.Enabled = doc.Enabled
	if err := doc.Visual.Validate(); err != nil {
		c.log.Warn("visual settings invalid, keeping defaults", slog.Any("err", err))
		c.Visual = DefaultVisual()
	} else {
		c.Visual = doc.Visual
	}
	if err := doc.Performance.Validate(); err != nil {
		c.log.Warn("performance settings invalid, keeping defaults", slog.Any("err", err))
		c.Performance = DefaultPerformance()
	} else {
		c.Performance = doc.Performance
	}

	c.zones = make(map[string]*Zone)
	c.order = nil
	// Deterministic load order: zone documents carry their own names, and the
	// JSON map has no order, so sort by name for a stable insertion order.
	names := make([]string, 0, len(doc.SnapZones))
	for name := range doc.SnapZones {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		zd := doc.SnapZones[name]
		z := Zone{
			Name:      zd.Name,
			Area:      geom.R(zd.Area.X, zd.Area.Y, zd.Area.Width, zd.Area.Height),
			Magnetism: zd.Magnetism,
			Threshold: zd.Threshold,
			Priority:  zd.Priority,
			Enabled:   zd.Enabled,
		}
		if z.Name == "" {
			z.Name = name
		}
		if err := c.AddZone(z); err != nil {
			c.log.Warn("skipping invalid zone from settings", slog.String("name", name), slog.Any("err", err))
		}
	}
}
