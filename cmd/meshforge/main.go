/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"meshforge/internal/backend"
	"meshforge/internal/config"
	"meshforge/internal/crash"
	"meshforge/internal/export"
	"meshforge/internal/geom"
	applog "meshforge/internal/log"
	"meshforge/internal/snap"
	"meshforge/internal/storage"
	"meshforge/internal/ui"
	"meshforge/internal/version"
)

func usage() {
	fmt.Println("MeshForge — dock panel snapping workbench")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  meshforge version|-v|--version          Show version")
	fmt.Println("  meshforge init <dir>                     Create a snapping profile at <dir> with default edge zones")
	fmt.Println("  meshforge show <dir>                     Open profile at <dir> and print a zone summary")
	fmt.Println("  meshforge export <dir> <file.json>       Export the profile's settings to a JSON file")
	fmt.Println("  meshforge import <dir> <file.json>       Import settings into the profile (creates backup)")
	fmt.Println("  meshforge report <dir>                   Write the zone report (PDF + PNG) under <dir>/exports")
	fmt.Println("  meshforge stats <dir>                    Print recent snapping sessions for the profile")
	fmt.Println("  meshforge presets                        List shared presets from the configured backend")
	fmt.Println("  meshforge config                         Print the application config location and backend settings")
	fmt.Println("  meshforge ui [<dir>]                     Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var ph *storage.ProfileHandle
	defer func() { crash.Recover(ph) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("MeshForge — dock panel snapping workbench")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 3 {
				fmt.Println("init requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("init profile", slog.String("root", abs))
			cfg := snap.NewConfig()
			cfg.SeedDefaultZones(geom.R(0, 0, 1920, 1080))
			h, err := storage.InitProfile(abs, cfg.Snapshot())
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			fmt.Println("Created profile at", abs)
			return
		case "show":
			ph = mustOpen(l, args)
			fmt.Println("Profile:", ph.Root)
			fmt.Println("Enabled:", ph.Doc.Enabled)
			fmt.Printf("Zones: %d\n", len(ph.Doc.SnapZones))
			names := make([]string, 0, len(ph.Doc.SnapZones))
			for name := range ph.Doc.SnapZones {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				z := ph.Doc.SnapZones[name]
				state := "enabled"
				if !z.Enabled {
					state = "disabled"
				}
				fmt.Printf("  %-16s %s  threshold=%v magnetism=%v priority=%d\n",
					z.Name, state, z.Threshold, z.Magnetism, z.Priority)
			}
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <dir> and <file.json>")
				usage()
				os.Exit(2)
			}
			ph = mustOpen(l, args)
			if err := storage.Export(ph.Doc, args[3]); err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Exported settings to", args[3])
			return
		case "import":
			if len(args) < 4 {
				fmt.Println("import requires <dir> and <file.json>")
				usage()
				os.Exit(2)
			}
			ph = mustOpen(l, args)
			doc, err := storage.Import(args[3])
			if err != nil {
				l.Error("import failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph.Doc = doc
			if err := storage.Save(ph); err != nil {
				l.Error("save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Imported settings and created a backup of the previous file (if any).")
			return
		case "report":
			ph = mustOpen(l, args)
			opt := export.BatchOptions{Preset: export.PresetReview}
			if err := export.BatchExport(ph, opt); err != nil {
				l.Error("report failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Wrote zone report under", filepath.Join(ph.Root, "exports", string(export.PresetReview)))
			return
		case "stats":
			ph = mustOpen(l, args)
			db, err := storage.InitOrOpenStats(ph.Root)
			if err != nil {
				l.Error("open stats failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			defer func() { _ = db.Close() }()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			recs, err := storage.RecentSessions(ctx, db, 20)
			if err != nil {
				l.Error("list sessions failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if len(recs) == 0 {
				fmt.Println("No recorded sessions.")
				return
			}
			for _, r := range recs {
				fmt.Printf("%s  calculations=%d snaps=%d candidates=%d cpu=%s\n",
					r.StartedAt.Format(time.RFC3339), r.Calculations, r.SnapsApplied,
					r.Candidates, time.Duration(r.TotalMicros)*time.Microsecond)
			}
			return
		case "presets":
			cfg, token, err := config.Load()
			if err != nil {
				l.Error("load config failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			c := backend.NewClient(cfg.Backend.BaseURL, token)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			list, err := c.ListPresets(ctx)
			if err != nil {
				l.Error("list presets failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if len(list) == 0 {
				fmt.Println("No shared presets.")
				return
			}
			for _, p := range list {
				fmt.Printf("%4d  v%-3d %s\n", p.ID, p.Version, p.Name)
			}
			return
		case "config":
			path, err := config.ConfigPath()
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cfg, _, err := config.Load()
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Config file:", path)
			fmt.Println("Backend URL:", cfg.Backend.BaseURL)
			fmt.Println("Backend timeout:", cfg.Backend.EffectiveTimeout())
			fmt.Println("Telemetry opt-in:", cfg.General.TelemetryOptIn)
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// mustOpen opens the profile named by args[2] or exits with a usage error.
func mustOpen(l *slog.Logger, args []string) *storage.ProfileHandle {
	if len(args) < 3 {
		fmt.Println(args[1], "requires <dir>")
		usage()
		os.Exit(2)
	}
	abs, _ := filepath.Abs(args[2])
	l.Info("open profile", slog.String("root", abs))
	h, err := storage.Open(abs)
	if err != nil {
		l.Error("open failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	return h
}
