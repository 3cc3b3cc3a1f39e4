/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"meshforge/internal/snap"
	"meshforge/internal/storage"
)

// DiagramOptions controls PNG zone diagram rendering.
//   - Scale: pixels per unified unit; <= 0 means 1.
//   - Labels: draw zone names inside their rectangles.
//   - Window: the workshop window rect; zero derives the zone bounding box.
type DiagramOptions struct {
	Scale  float64
	Labels bool
	Window snap.AreaDoc
}

// ExportZoneDiagramPNG renders the profile's zones into a PNG under the
// profile's exports folder (or outPath when absolute).
func ExportZoneDiagramPNG(ph *storage.ProfileHandle, outPath string, opt DiagramOptions) error {
	if ph == nil {
		return fmt.Errorf("profile handle is nil")
	}
	doc := ph.Doc
	win := opt.Window
	if win.Width <= 0 || win.Height <= 0 {
		win = boundingArea(doc)
	}
	if win.Width <= 0 || win.Height <= 0 {
		return fmt.Errorf("no zones to render")
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ph.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}

	pixW := int(math.Round(float64(win.Width) * scale))
	pixH := int(math.Round(float64(win.Height) * scale))
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	// Background white
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	border := color.RGBA{60, 60, 60, 255}
	strokeRect(img, 0, 0, pixW-1, pixH-1, border)

	zoneFill := color.RGBA{45, 140, 240, 60}
	zoneLine := color.RGBA{45, 140, 240, 255}
	disabled := color.RGBA{160, 160, 160, 255}

	// Stable paint order so overlapping zones render deterministically.
	names := make([]string, 0, len(doc.SnapZones))
	for name := range doc.SnapZones {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		z := doc.SnapZones[name]
		x0 := int(math.Round(float64(z.Area.X-win.X) * scale))
		y0 := int(math.Round(float64(z.Area.Y-win.Y) * scale))
		x1 := x0 + int(math.Round(float64(z.Area.Width)*scale)) - 1
		y1 := y0 + int(math.Round(float64(z.Area.Height)*scale)) - 1
		x0, y0 = clampPix(x0, pixW), clampPix(y0, pixH)
		x1, y1 = clampPix(x1, pixW), clampPix(y1, pixH)

		line := zoneLine
		if !z.Enabled {
			line = disabled
		} else {
			blendRect(img, x0, y0, x1, y1, zoneFill)
		}
		strokeRect(img, x0, y0, x1, y1, line)

		if opt.Labels {
			drawLabel(img, name, x0+4, y0+14, line)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

// drawLabel renders text with the deterministic basicfont face.
func drawLabel(img *image.RGBA, text string, x, y int, col color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func clampPix(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max-1 {
		return max - 1
	}
	return v
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	// top and bottom
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	// left and right
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

// blendRect alpha-blends a translucent fill over the rectangle.
func blendRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	over := image.NewUniform(col)
	draw.Draw(img, image.Rect(x0, y0, x1+1, y1+1), over, image.Point{}, draw.Over)
}
