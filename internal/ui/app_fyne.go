//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"meshforge/internal/crash"
	"meshforge/internal/export"
	"meshforge/internal/geom"
	applog "meshforge/internal/log"
	"meshforge/internal/snap"
	"meshforge/internal/storage"
	"meshforge/internal/telemetry"
	"meshforge/internal/version"
)

// Run starts the Fyne-based desktop shell: a demo workshop window with
// draggable dock panels wired into the snapping subsystem.
func Run(profileDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	var ph *storage.ProfileHandle
	defer func() { crash.Recover(ph) }()

	fyneApp := app.NewWithID("meshforge")
	w := fyneApp.NewWindow("MeshForge")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	if profileDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		profileDir = filepath.Join(home, "MeshForge", "default")
	}
	windowRect := geom.R(0, 0, float32(winW), float32(winH))

	h, err := storage.Open(profileDir)
	if err != nil {
		l.Info("no profile found, initializing", slog.String("root", profileDir))
		cfg := snap.NewConfig()
		cfg.SeedDefaultZones(windowRect)
		h, err = storage.InitProfile(profileDir, cfg.Snapshot())
		if err != nil {
			return fmt.Errorf("init profile: %w", err)
		}
	}
	ph = h

	cfg := snap.NewConfig()
	cfg.Apply(ph.Doc)
	sub := snap.NewSubsystem(windowRect, cfg)
	started := time.Now()

	status := widget.NewLabel("Ready")
	workshop := newWorkshopCanvas(sub, func(msg string) { status.SetText(msg) })

	// Settings edits are undoable; the previous document is captured before
	// each save so a bad change can be reverted from the Edit menu.
	history := storage.NewSettingsHistory()

	saveSettings := func() {
		if ph == nil {
			return
		}
		if err := history.Push(ph); err != nil {
			l.Warn("settings snapshot failed", slog.Any("err", err))
		}
		ph.Doc = sub.Config.Snapshot()
		if err := storage.Save(ph); err != nil {
			l.Error("save settings failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Settings saved")
	}

	undoSettings := func() {
		ok, err := history.Undo(ph)
		if err != nil {
			l.Error("undo settings failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		if !ok {
			status.SetText("Nothing to undo")
			return
		}
		sub.Config.Apply(ph.Doc)
		sub.Engine.RebuildIndex()
		sub.Renderer.SetVisual(sub.Config.Visual)
		if err := storage.Save(ph); err != nil {
			l.Error("save after undo failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		workshop.Refresh()
		status.SetText("Reverted to previous settings")
	}

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Save Settings", func() {
			l.Info("menu: save settings")
			saveSettings()
		}),
		fyne.NewMenuItem("Export Zone Report…", func() {
			l.Info("menu: export zone report")
			ph.Doc = sub.Config.Snapshot()
			r := sub.Coords.WindowRect()
			opt := export.BatchOptions{
				Preset: export.PresetReview,
				Window: snap.AreaDoc{X: r.X, Y: r.Y, Width: r.W, Height: r.H},
			}
			if err := export.BatchExport(ph, opt); err != nil {
				l.Error("export failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported zone report to " + filepath.Join(ph.Root, "exports"))
		}),
		fyne.NewMenuItem("Quit", func() { fyneApp.Quit() }),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo Settings Change", func() {
			l.Info("menu: undo settings")
			undoSettings()
		}),
	)
	aboutMenu := fyne.NewMenu("About",
		fyne.NewMenuItem("About MeshForge…", func() {
			info := fmt.Sprintf("MeshForge\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nProfile: %s",
				version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), ph.Root)
			dialog.ShowInformation("About MeshForge", info, w)
		}),
	)
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, aboutMenu))

	// Persist preferences and the session record on close.
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		st := sub.Engine.Stats()
		if db, err := storage.InitOrOpenStats(ph.Root); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			if _, rerr := storage.RecordSession(ctx, db, started, time.Now(), st); rerr != nil {
				l.Error("record session failed", slog.Any("err", rerr))
			}
			cancel()
			_ = db.Close()
		}
		telemetry.SnapSession(st)
		w.Close()
	})

	w.SetContent(container.NewBorder(nil, status, nil, nil, workshop))
	w.ShowAndRun()
	return nil
}

// panelItem is one draggable dock panel on the workshop canvas.
type panelItem struct {
	name   string
	frame  geom.Rect
	handle snap.WidgetHandle
}

// workshopCanvas is the interactive demo surface. Panels are plain rectangles;
// dragging one feeds pointer events through the snap processor, which snaps
// the panel toward active zones and drives the guide overlay.
type workshopCanvas struct {
	widget.BaseWidget

	sub      *snap.Subsystem
	panels   []panelItem
	dragging int // index into panels, -1 when idle
	dragOff  geom.Pt
	lastPos  geom.Pt
	onStatus func(string)
}

func newWorkshopCanvas(sub *snap.Subsystem, onStatus func(string)) *workshopCanvas {
	wc := &workshopCanvas{
		sub:      sub,
		dragging: -1,
		onStatus: onStatus,
	}
	demo := []panelItem{
		{name: "Tool Palette", frame: geom.R(200, 160, 180, 240)},
		{name: "Layers", frame: geom.R(460, 200, 200, 260)},
		{name: "Inspector", frame: geom.R(740, 260, 220, 300)},
	}
	for i := range demo {
		demo[i].handle = sub.Widgets.Register(snap.WidgetInfo{
			Name:  demo[i].name,
			Frame: demo[i].frame,
			Dock:  true,
		})
	}
	wc.panels = demo

	// The subsystem's own move handler has already run the snap calculation
	// by the time these fire; here we only apply the outcome to the panel.
	sub.Processor.Register(snap.EventMove, func(ev snap.Event) { wc.applyMove(ev) })
	sub.Processor.Register(snap.EventRelease, func(ev snap.Event) {
		wc.dragging = -1
		if wc.onStatus != nil {
			wc.onStatus("Ready")
		}
		wc.Refresh()
	})

	wc.ExtendBaseWidget(wc)
	return wc
}

// applyMove moves the dragged panel to the snapped position from the latest
// engine result, falling back to the raw pointer position when nothing
// snapped.
func (wc *workshopCanvas) applyMove(ev snap.Event) {
	idx := wc.panelIndex(ev.Target)
	if idx < 0 {
		return
	}
	pos := ev.Position
	hist := wc.sub.Engine.History()
	if n := len(hist); n > 0 {
		last := hist[n-1]
		if last.Applied {
			pos = last.Position
			if wc.onStatus != nil && last.Best != nil {
				wc.onStatus(fmt.Sprintf("Snap: %s (%s)", last.Best.Zone.Name, last.Best.Type))
			}
		} else if wc.onStatus != nil {
			wc.onStatus("Dragging " + wc.panels[idx].name)
		}
	}
	f := wc.panels[idx].frame
	wc.panels[idx].frame = geom.Rect{X: pos.X, Y: pos.Y, W: f.W, H: f.H}
	wc.sub.Widgets.SetFrame(ev.Target, wc.panels[idx].frame)
	wc.Refresh()
}

func (wc *workshopCanvas) panelIndex(h snap.WidgetHandle) int {
	for i := range wc.panels {
		if wc.panels[i].handle == h {
			return i
		}
	}
	return -1
}

// hitTest returns the topmost panel under the point, or -1.
func (wc *workshopCanvas) hitTest(p geom.Pt) int {
	for i := len(wc.panels) - 1; i >= 0; i-- {
		f := wc.panels[i].frame
		if p.X >= f.X && p.X <= f.X+f.W && p.Y >= f.Y && p.Y <= f.Y+f.H {
			return i
		}
	}
	return -1
}

// MouseDown starts a drag when a panel is hit and feeds a press event so the
// processor begins drag-tracking the widget.
func (wc *workshopCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	p := geom.Pt{X: e.Position.X, Y: e.Position.Y}
	idx := wc.hitTest(p)
	if idx < 0 {
		return
	}
	wc.dragging = idx
	f := wc.panels[idx].frame
	wc.dragOff = geom.Pt{X: p.X - f.X, Y: p.Y - f.Y}
	wc.lastPos = geom.Pt{X: f.X, Y: f.Y}
	wc.sub.Processor.ProcessEvent(snap.Event{
		Type:     snap.EventPress,
		Position: wc.lastPos,
		Target:   wc.panels[idx].handle,
		Time:     time.Now(),
		Pointer:  &snap.PointerData{Buttons: snap.ButtonLeft},
	})
}

func (wc *workshopCanvas) MouseUp(e *desktop.MouseEvent) {
	if wc.dragging < 0 {
		return
	}
	wc.sub.Processor.ProcessEvent(snap.Event{
		Type:     snap.EventRelease,
		Position: wc.lastPos,
		Target:   wc.panels[wc.dragging].handle,
		Time:     time.Now(),
		Pointer:  &snap.PointerData{},
	})
}

// Dragged feeds debounced move events carrying the prospective panel origin.
func (wc *workshopCanvas) Dragged(e *fyne.DragEvent) {
	if wc.dragging < 0 {
		return
	}
	wc.lastPos = geom.Pt{
		X: e.Position.X - wc.dragOff.X,
		Y: e.Position.Y - wc.dragOff.Y,
	}
	wc.sub.Processor.ProcessEvent(snap.Event{
		Type:     snap.EventMove,
		Position: wc.lastPos,
		Target:   wc.panels[wc.dragging].handle,
		Time:     time.Now(),
		Pointer:  &snap.PointerData{Buttons: snap.ButtonLeft},
	})
}

func (wc *workshopCanvas) DragEnd() {
	if wc.dragging < 0 {
		return
	}
	wc.sub.Processor.ProcessEvent(snap.Event{
		Type:     snap.EventRelease,
		Position: wc.lastPos,
		Target:   wc.panels[wc.dragging].handle,
		Time:     time.Now(),
		Pointer:  &snap.PointerData{},
	})
}

const guidePoolSize = 12

// CreateRenderer builds the object pool: background, zone overlays, panel
// rectangles with labels, and a fixed pool of guide lines positioned on each
// refresh.
func (wc *workshopCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})

	var zones []*canvas.Rectangle
	for range wc.sub.Config.ActiveZones() {
		z := canvas.NewRectangle(color.RGBA{R: 45, G: 140, B: 240, A: 24})
		z.StrokeColor = color.RGBA{R: 45, G: 140, B: 240, A: 90}
		z.StrokeWidth = 1
		zones = append(zones, z)
	}

	var rects []*canvas.Rectangle
	var labels []*canvas.Text
	for range wc.panels {
		r := canvas.NewRectangle(color.RGBA{R: 58, G: 58, B: 66, A: 255})
		r.StrokeColor = color.RGBA{R: 160, G: 160, B: 170, A: 255}
		r.StrokeWidth = 1
		rects = append(rects, r)
		t := canvas.NewText("", color.RGBA{R: 230, G: 230, B: 235, A: 255})
		t.TextSize = 12
		labels = append(labels, t)
	}

	var guides []*canvas.Line
	for i := 0; i < guidePoolSize; i++ {
		ln := canvas.NewLine(color.Transparent)
		ln.Hide()
		guides = append(guides, ln)
	}

	objs := []fyne.CanvasObject{bg}
	for _, z := range zones {
		objs = append(objs, z)
	}
	for i := range rects {
		objs = append(objs, rects[i], labels[i])
	}
	for _, g := range guides {
		objs = append(objs, g)
	}

	return &workshopRenderer{
		wc:      wc,
		objects: objs,
		bg:      bg,
		zones:   zones,
		rects:   rects,
		labels:  labels,
		guides:  guides,
	}
}

type workshopRenderer struct {
	wc       *workshopCanvas
	objects  []fyne.CanvasObject
	bg       *canvas.Rectangle
	zones    []*canvas.Rectangle
	rects    []*canvas.Rectangle
	labels   []*canvas.Text
	guides   []*canvas.Line
	lastSize fyne.Size
}

func (r *workshopRenderer) MinSize() fyne.Size           { return fyne.NewSize(800, 520) }
func (r *workshopRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *workshopRenderer) Destroy()                     {}
func (r *workshopRenderer) Refresh()                     { r.Layout(r.wc.Size()); canvas.Refresh(r.wc) }

// Layout resizes the background, forwards size changes as resize events so
// coordinate transforms stay current, and positions zones, panels and guides.
func (r *workshopRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	if size != r.lastSize {
		old := r.lastSize
		r.lastSize = size
		r.wc.sub.Processor.ProcessEvent(snap.Event{
			Type: snap.EventResize,
			Time: time.Now(),
			Resize: &snap.ResizeData{
				OldSize: geom.Size{W: old.Width, H: old.Height},
				NewSize: geom.Size{W: size.Width, H: size.Height},
			},
		})
	}

	active := r.wc.sub.Config.ActiveZones()
	for i, z := range r.zones {
		if i >= len(active) {
			z.Hide()
			continue
		}
		a := active[i].Area
		z.Move(fyne.NewPos(a.X, a.Y))
		z.Resize(fyne.NewSize(a.W, a.H))
		z.Show()
	}

	for i := range r.rects {
		f := r.wc.panels[i].frame
		r.rects[i].Move(fyne.NewPos(f.X, f.Y))
		r.rects[i].Resize(fyne.NewSize(f.W, f.H))
		r.labels[i].Text = r.wc.panels[i].name
		r.labels[i].Move(fyne.NewPos(f.X+8, f.Y+6))
	}

	r.layoutGuides()
}

// layoutGuides maps the renderer's guide primitives onto the line pool.
// Corner markers become two short arms; unused lines are hidden.
func (r *workshopRenderer) layoutGuides() {
	gs, opacity := r.wc.sub.Renderer.Guides()
	used := 0
	place := func(from, to geom.Pt, col color.Color, width float32) {
		if used >= len(r.guides) {
			return
		}
		ln := r.guides[used]
		ln.StrokeColor = col
		ln.StrokeWidth = width
		ln.Position1 = fyne.NewPos(from.X, from.Y)
		ln.Position2 = fyne.NewPos(to.X, to.Y)
		ln.Show()
		used++
	}
	for _, g := range gs {
		col := guideColor(g.Color, opacity)
		switch g.Kind {
		case snap.GuideCorner:
			const arm = 8
			place(geom.Pt{X: g.At.X - arm, Y: g.At.Y}, geom.Pt{X: g.At.X + arm, Y: g.At.Y}, col, g.Width)
			place(geom.Pt{X: g.At.X, Y: g.At.Y - arm}, geom.Pt{X: g.At.X, Y: g.At.Y + arm}, col, g.Width)
		default:
			place(g.From, g.To, col, g.Width)
		}
	}
	for i := used; i < len(r.guides); i++ {
		r.guides[i].Hide()
	}
}

// guideColor scales the configured guide color's alpha by the fade opacity.
func guideColor(c snap.RGBA, opacity float32) color.Color {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(float32(c.A) * opacity)}
}
