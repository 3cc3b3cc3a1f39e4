/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders snap profile documentation: a zone layout report as
// PDF and a zone diagram as PNG. Both read the wire-form settings document,
// so exports work without a live engine.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jung-kurt/gofpdf"

	"meshforge/internal/snap"
	"meshforge/internal/storage"
)

// ReportOptions controls the PDF zone report.
// Units are points (pt); built-in Helvetica keeps text vector without
// embedding.
type ReportOptions struct {
	Title          string
	IncludeDiagram bool
	// Window is the workshop window rect the zones are defined against, used
	// to scale the diagram. Zero means derive the bounding box of all zones.
	Window snap.AreaDoc
}

// ExportZoneReportPDF writes a one-page report of the profile's snap zones:
// a settings summary, a zone table, and optionally a scaled layout diagram.
func ExportZoneReportPDF(ph *storage.ProfileHandle, outPath string, opt ReportOptions) error {
	if ph == nil {
		return fmt.Errorf("profile handle is nil")
	}
	doc := ph.Doc
	title := opt.Title
	if title == "" {
		title = "Snap Zone Report"
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ph.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetAuthor("MeshForge", false)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	margin := 48.0
	y := margin

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Text(margin, y, title)
	y += 28

	pdf.SetFont("Helvetica", "", 10)
	state := "disabled"
	if doc.Enabled {
		state = "enabled"
	}
	pdf.Text(margin, y, fmt.Sprintf("Snapping %s, %d zones, hysteresis %.1f px, debounce %d ms",
		state, len(doc.SnapZones), doc.Performance.HysteresisThreshold, doc.Performance.UpdateDebounceMs))
	y += 24

	// Zone table, sorted by name for a stable report.
	names := make([]string, 0, len(doc.SnapZones))
	for name := range doc.SnapZones {
		names = append(names, name)
	}
	sort.Strings(names)

	colW := []float64{120, 150, 70, 70, 50, 55}
	head := []string{"Zone", "Area (x, y, w, h)", "Magnetism", "Threshold", "Prio", "Enabled"}
	pdf.SetFont("Helvetica", "B", 9)
	x := margin
	for i, h := range head {
		pdf.Text(x, y, h)
		x += colW[i]
	}
	y += 6
	pdf.SetLineWidth(0.5)
	pdf.Line(margin, y, pageW-margin, y)
	y += 14

	pdf.SetFont("Helvetica", "", 9)
	for _, name := range names {
		z := doc.SnapZones[name]
		cells := []string{
			name,
			fmt.Sprintf("%.0f, %.0f, %.0f, %.0f", z.Area.X, z.Area.Y, z.Area.Width, z.Area.Height),
			fmt.Sprintf("%.2f", z.Magnetism),
			fmt.Sprintf("%.1f px", z.Threshold),
			fmt.Sprintf("%d", z.Priority),
			fmt.Sprintf("%t", z.Enabled),
		}
		x = margin
		for i, c := range cells {
			pdf.Text(x, y, c)
			x += colW[i]
		}
		y += 14
	}
	y += 16

	if opt.IncludeDiagram && len(doc.SnapZones) > 0 {
		drawDiagram(pdf, doc, opt.Window, margin, y, pageW-2*margin)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return pdf.Error()
}

// drawDiagram renders the window rect with zone rectangles scaled to fit the
// given width.
func drawDiagram(pdf *gofpdf.Fpdf, doc snap.SettingsDoc, window snap.AreaDoc, x, y, maxW float64) {
	win := window
	if win.Width <= 0 || win.Height <= 0 {
		win = boundingArea(doc)
	}
	if win.Width <= 0 || win.Height <= 0 {
		return
	}
	scale := maxW / float64(win.Width)
	diagH := float64(win.Height) * scale

	pdf.SetDrawColor(60, 60, 60)
	pdf.SetLineWidth(1)
	pdf.Rect(x, y, maxW, diagH, "D")

	pdf.SetDrawColor(45, 140, 240)
	pdf.SetFillColor(45, 140, 240)
	pdf.SetAlpha(0.25, "Normal")
	for _, z := range doc.SnapZones {
		zx := x + float64(z.Area.X-win.X)*scale
		zy := y + float64(z.Area.Y-win.Y)*scale
		pdf.Rect(zx, zy, float64(z.Area.Width)*scale, float64(z.Area.Height)*scale, "FD")
	}
	pdf.SetAlpha(1, "Normal")
}

// boundingArea returns the union of all zone areas.
func boundingArea(doc snap.SettingsDoc) snap.AreaDoc {
	first := true
	var minX, minY, maxX, maxY float32
	for _, z := range doc.SnapZones {
		if first {
			minX, minY = z.Area.X, z.Area.Y
			maxX, maxY = z.Area.X+z.Area.Width, z.Area.Y+z.Area.Height
			first = false
			continue
		}
		if z.Area.X < minX {
			minX = z.Area.X
		}
		if z.Area.Y < minY {
			minY = z.Area.Y
		}
		if z.Area.X+z.Area.Width > maxX {
			maxX = z.Area.X + z.Area.Width
		}
		if z.Area.Y+z.Area.Height > maxY {
			maxY = z.Area.Y + z.Area.Height
		}
	}
	return snap.AreaDoc{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
