/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"meshforge/internal/snap"
	"meshforge/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetReview produces the full PDF report plus a labeled diagram,
	// suitable for sharing a layout for review.
	PresetReview PresetName = "review"
	// PresetDiagram produces only the PNG diagram.
	PresetDiagram PresetName = "diagram"
)

// BatchOptions controls batch export across formats.
//
// Path semantics:
//   - If OutDir is empty or relative, outputs go under <profile>/exports/<preset>/.
//   - The PDF is named zones.pdf, the PNG zones.png, inside OutDir.
type BatchOptions struct {
	Preset  PresetName
	Formats []string     // allowed: pdf, png; empty means preset defaults
	Scale   float64      // diagram pixels per unified unit; <= 0 means 1
	Window  snap.AreaDoc // window rect hint for both exporters
	OutDir  string
}

// BatchExport runs exports according to the given preset.
func BatchExport(ph *storage.ProfileHandle, opt BatchOptions) error {
	if ph == nil {
		return fmt.Errorf("profile handle is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if baseOut == "" {
		baseOut = "export"
	}

	for _, f := range formats {
		switch f {
		case "pdf":
			out := filepath.Join(baseOut, "zones.pdf")
			if err := ExportZoneReportPDF(ph, out, ReportOptions{
				IncludeDiagram: true,
				Window:         opt.Window,
			}); err != nil {
				return fmt.Errorf("pdf export: %w", err)
			}
		case "png":
			out := filepath.Join(baseOut, "zones.png")
			if err := ExportZoneDiagramPNG(ph, out, DiagramOptions{
				Scale:  opt.Scale,
				Labels: opt.Preset != PresetDiagram,
				Window: opt.Window,
			}); err != nil {
				return fmt.Errorf("png export: %w", err)
			}
		default:
			return fmt.Errorf("unknown export format %q", f)
		}
	}
	return nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetDiagram:
		return []string{"png"}
	default: // review and unknown presets get everything
		return []string{"pdf", "png"}
	}
}
