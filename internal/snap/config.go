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
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"meshforge/internal/geom"
	applog "meshforge/internal/log"
)

// Validation errors surfaced by the configuration CRUD APIs. The interactive
// snap path never returns these; only mutation calls do.
var (
	ErrZoneExists   = errors.New("snap zone already exists")
	ErrZoneNotFound = errors.New("snap zone not found")
	ErrInvalidZone  = errors.New("invalid snap zone")
)

// Zone is a configured rectangular snap region in unified coordinates.
type Zone struct {
	Name      string
	Area      geom.Rect
	Magnetism float32 // pull strength in [0,1]
	Threshold float32 // activation distance in pixels, >= 0
	Priority  int     // higher wins ties, >= 0
	Enabled   bool
}

// Validate checks the zone invariants.
func (z Zone) Validate() error {
	if strings.TrimSpace(z.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidZone)
	}
	if z.Magnetism < 0 || z.Magnetism > 1 {
		return fmt.Errorf("%w %q: magnetism %v outside [0,1]", ErrInvalidZone, z.Name, z.Magnetism)
	}
	if z.Threshold < 0 {
		return fmt.Errorf("%w %q: snap threshold %v is negative", ErrInvalidZone, z.Name, z.Threshold)
	}
	if z.Priority < 0 {
		return fmt.Errorf("%w %q: priority %d is negative", ErrInvalidZone, z.Name, z.Priority)
	}
	return nil
}

// ZonePatch carries optional field updates for UpdateZone. Nil fields are
// left untouched.
type ZonePatch struct {
	Area      *geom.Rect
	Magnetism *float32
	Threshold *float32
	Priority  *int
	Enabled   *bool
}

// RGBA is a guide color as 8-bit channels.
type RGBA struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// VisualSettings controls guide rendering.
type VisualSettings struct {
	ShowGuides       bool    `json:"show_guides"`
	GuideColor       RGBA    `json:"guide_color"`
	GuideWidth       float32 `json:"guide_width"`
	GuideStyle       string  `json:"guide_style"` // solid | dashed | dotted
	HighlightColor   RGBA    `json:"highlight_color"`
	HighlightOpacity float32 `json:"highlight_opacity"` // [0,1]
	AnimationMs      int     `json:"animation_duration_ms"`
	FadeMs           int     `json:"fade_duration_ms"`
}

// PerformanceSettings are the engine tuning knobs.
type PerformanceSettings struct {
	MaxCalculationsPerFrame int     `json:"max_snap_calculations_per_frame"` // >= 1
	SpatialIndexEnabled     bool    `json:"spatial_index_enabled"`
	CacheSize               int     `json:"cache_size"`           // >= 1
	HysteresisThreshold     float32 `json:"hysteresis_threshold"` // >= 0
	UpdateDebounceMs        int     `json:"update_debounce_ms"`   // >= 1
	HardwareAcceleration    bool    `json:"enable_hardware_acceleration"`
	MaxMemoryMB             int     `json:"max_memory_usage_mb"` // >= 1
}

func (v VisualSettings) Validate() error {
	switch v.GuideStyle {
	case "solid", "dashed", "dotted":
	default:
		return fmt.Errorf("guide_style %q not one of solid/dashed/dotted", v.GuideStyle)
	}
	if v.HighlightOpacity < 0 || v.HighlightOpacity > 1 {
		return fmt.Errorf("highlight_opacity %v outside [0,1]", v.HighlightOpacity)
	}
	if v.AnimationMs < 0 || v.FadeMs < 0 {
		return errors.New("animation durations must not be negative")
	}
	return nil
}

func (p PerformanceSettings) Validate() error {
	if p.MaxCalculationsPerFrame < 1 {
		return errors.New("max_snap_calculations_per_frame must be >= 1")
	}
	if p.CacheSize < 1 {
		return errors.New("cache_size must be >= 1")
	}
	if p.HysteresisThreshold < 0 {
		return errors.New("hysteresis_threshold must be >= 0")
	}
	if p.UpdateDebounceMs < 1 {
		return errors.New("update_debounce_ms must be >= 1")
	}
	if p.MaxMemoryMB < 1 {
		return errors.New("max_memory_usage_mb must be >= 1")
	}
	return nil
}

// DefaultVisual returns the stock guide appearance.
func DefaultVisual() VisualSettings {
	return VisualSettings{
		ShowGuides:       true,
		GuideColor:       RGBA{R: 0x2d, G: 0x8c, B: 0xf0, A: 0xff},
		GuideWidth:       2,
		GuideStyle:       "dashed",
		HighlightColor:   RGBA{R: 0x2d, G: 0x8c, B: 0xf0, A: 0x55},
		HighlightOpacity: 0.35,
		AnimationMs:      120,
		FadeMs:           180,
	}
}

// DefaultPerformance returns the stock tuning knobs.
func DefaultPerformance() PerformanceSettings {
	return PerformanceSettings{
		MaxCalculationsPerFrame: 60,
		SpatialIndexEnabled:     true,
		CacheSize:               1000,
		HysteresisThreshold:     3,
		UpdateDebounceMs:        16,
		HardwareAcceleration:    true,
		MaxMemoryMB:             64,
	}
}

// Config owns the snap zone collection plus visual and performance settings.
// Zones are keyed by name; active ordering is priority descending with stable
// insertion-order tie-break.
type Config struct {
	Enabled     bool
	Visual      VisualSettings
	Performance PerformanceSettings

	zones map[string]*Zone
	order []string // insertion order for stable tie-breaks

	log *slog.Logger
}

// NewConfig returns an enabled configuration with default settings and no
// zones. Call SeedDefaultZones to install the stock window-edge zones.
func NewConfig() *Config {
	return &Config{
		Enabled:     true,
		Visual:      DefaultVisual(),
		Performance: DefaultPerformance(),
		zones:       make(map[string]*Zone),
		log:         applog.WithComponent("snap.config"),
	}
}

// AddZone inserts a new zone. It fails if the name is taken or any invariant
// is violated; existing state is untouched on failure.
func (c *Config) AddZone(z Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	if _, ok := c.zones[z.Name]; ok {
		return fmt.Errorf("%w: %q", ErrZoneExists, z.Name)
	}
	zc := z
	c.zones[z.Name] = &zc
	c.order = append(c.order, z.Name)
	c.log.Debug("zone added", slog.String("name", z.Name))
	return nil
}

// UpdateZone applies the patch to the named zone. The patched copy is
// validated before commit, so a failing update leaves the zone unchanged.
func (c *Config) UpdateZone(name string, p ZonePatch) error {
	z, ok := c.zones[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrZoneNotFound, name)
	}
	next := *z
	if p.Area != nil {
		next.Area = *p.Area
	}
	if p.Magnetism != nil {
		next.Magnetism = *p.Magnetism
	}
	if p.Threshold != nil {
		next.Threshold = *p.Threshold
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if p.Enabled != nil {
		next.Enabled = *p.Enabled
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*z = next
	return nil
}

// RemoveZone deletes the named zone.
func (c *Config) RemoveZone(name string) error {
	if _, ok := c.zones[name]; !ok {
		return fmt.Errorf("%w: %q", ErrZoneNotFound, name)
	}
	delete(c.zones, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetZone returns a copy of the named zone.
func (c *Config) GetZone(name string) (Zone, bool) {
	z, ok := c.zones[name]
	if !ok {
		return Zone{}, false
	}
	return *z, true
}

// Zones returns copies of all zones in insertion order.
func (c *Config) Zones() []Zone {
	out := make([]Zone, 0, len(c.order))
	for _, n := range c.order {
		if z, ok := c.zones[n]; ok {
			out = append(out, *z)
		}
	}
	return out
}

// ActiveZones returns enabled zones sorted by priority descending, stable by
// insertion order on ties.
func (c *Config) ActiveZones() []Zone {
	if !c.Enabled {
		return nil
	}
	out := make([]Zone, 0, len(c.order))
	for _, n := range c.order {
		if z, ok := c.zones[n]; ok && z.Enabled {
			out = append(out, *z)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// MaxThreshold returns the largest activation threshold over active zones.
func (c *Config) MaxThreshold() float32 {
	var m float32
	for _, z := range c.ActiveZones() {
		if z.Threshold > m {
			m = z.Threshold
		}
	}
	return m
}

// Default seed parameters for the four window-edge zones.
const (
	defaultEdgeBand      = 48.0
	defaultEdgeMagnetism = 0.8
	defaultEdgeThreshold = 56.0
	defaultEdgePriority  = 1
)

// SeedDefaultZones installs left/right/top/bottom edge bands covering the
// given window rect (unified coordinates). It is a no-op when any zones
// already exist.
func (c *Config) SeedDefaultZones(window geom.Rect) {
	if len(c.zones) > 0 {
		return
	}
	band := float32(defaultEdgeBand)
	seed := []Zone{
		{Name: "left_edge", Area: geom.R(window.X, window.Y, band, window.H)},
		{Name: "right_edge", Area: geom.R(window.X+window.W-band, window.Y, band, window.H)},
		{Name: "top_edge", Area: geom.R(window.X, window.Y, window.W, band)},
		{Name: "bottom_edge", Area: geom.R(window.X, window.Y+window.H-band, window.W, band)},
	}
	for _, z := range seed {
		z.Magnetism = defaultEdgeMagnetism
		z.Threshold = defaultEdgeThreshold
		z.Priority = defaultEdgePriority
		z.Enabled = true
		if err := c.AddZone(z); err != nil {
			c.log.Warn("seed zone rejected", slog.String("name", z.Name), slog.Any("err", err))
		}
	}
	c.log.Info("seeded default edge zones", slog.Int("count", len(seed)))
}
