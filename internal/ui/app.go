// Package ui is the desktop annotation window.
//
// The window is a thin shell over annotation.Session: every button and the
// box-drawing gesture call one session command and redraw.
package ui

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/ironsheep/spine-tools/internal/annotation"
	"github.com/ironsheep/spine-tools/internal/config"
	"github.com/ironsheep/spine-tools/internal/imaging"
)

const appID = "io.ironsheep.spine-annotator"

var (
	errNoFolder      = errors.New("load a folder of images first")
	errNoActiveSpine = errors.New("create or select a spine first")
)

type AnnotatorApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	cfg *config.Config
	log *slog.Logger

	session *annotation.Session
	cache   *imaging.FrameCache
	zoom    float64
	dirty   bool

	// confirm asks a yes/no question and reports the answer to cb.
	confirm func(title, message string, cb func(bool))

	view        *imageView
	spineSelect *widget.Select
	frameLabel  *widget.Label
	statusLabel *widget.Label
}

// CreateApp builds the annotator on the desktop driver.
func CreateApp(cfg *config.Config, logger *slog.Logger) *AnnotatorApp {
	return newAnnotatorApp(app.NewWithID(appID), cfg, logger)
}

func newAnnotatorApp(a fyne.App, cfg *config.Config, logger *slog.Logger) *AnnotatorApp {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := a.NewWindow("Spine Annotator")
	w.Resize(fyne.NewSize(1200, 800))

	ua := &AnnotatorApp{
		fyneApp: a,
		mainWin: w,
		cfg:     cfg,
		log:     logger,
		cache:   imaging.NewFrameCache(cfg.DisplayGamma),
		zoom:    1,
	}
	ua.confirm = func(title, message string, cb func(bool)) {
		dialog.ShowConfirm(title, message, cb, w)
	}
	w.SetContent(ua.build())
	return ua
}

// Run shows the window and blocks until it is closed.
func (a *AnnotatorApp) Run() {
	a.mainWin.SetCloseIntercept(func() {
		a.confirmDiscard("Quit without saving the annotations?", a.mainWin.Close)
	})

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

// confirmDiscard runs then straight away when nothing is unsaved, and
// otherwise only if the user agrees to drop the changes.
func (a *AnnotatorApp) confirmDiscard(question string, then func()) {
	if !a.dirty {
		then()
		return
	}
	a.confirm("Unsaved annotations", question, func(ok bool) {
		if ok {
			then()
		}
	})
}

func (a *AnnotatorApp) build() fyne.CanvasObject {
	a.view = newImageView()
	a.view.OnBoxDrawn = func(r image.Rectangle) {
		a.showError(a.DrawBox(r))
	}

	a.spineSelect = widget.NewSelect(nil, func(name string) {
		a.showError(a.SelectSpine(name))
	})
	a.spineSelect.PlaceHolder = "(no spines)"

	a.frameLabel = widget.NewLabel("No folder loaded")
	a.statusLabel = widget.NewLabel("")

	toolbar := container.NewHBox(
		widget.NewButtonWithIcon("Load Images", theme.FolderOpenIcon(), a.chooseFolder),
		widget.NewButtonWithIcon("Save Data", theme.DocumentSaveIcon(), a.chooseCSV),
		widget.NewButtonWithIcon("Save Annotations", theme.DocumentSaveIcon(), a.chooseAnnotationsSave),
		widget.NewButtonWithIcon("Load Annotations", theme.DocumentIcon(), a.chooseAnnotationsLoad),
		widget.NewSeparator(),
		widget.NewButtonWithIcon("New Spine", theme.ContentAddIcon(), a.askSpineName),
		widget.NewButtonWithIcon("Delete Current Box", theme.DeleteIcon(), func() {
			a.showError(a.DeleteCurrentBox())
		}),
		a.spineSelect,
	)

	nav := container.NewHBox(
		widget.NewButtonWithIcon("Previous", theme.NavigateBackIcon(), func() { a.showError(a.Step(-1)) }),
		widget.NewButtonWithIcon("Next", theme.NavigateNextIcon(), func() { a.showError(a.Step(1)) }),
		widget.NewSeparator(),
		widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { a.showError(a.SetZoom(imaging.ZoomIn(a.zoom))) }),
		widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() { a.showError(a.SetZoom(imaging.ZoomOut(a.zoom))) }),
		widget.NewButtonWithIcon("", theme.ZoomFitIcon(), func() { a.showError(a.SetZoom(1)) }),
		a.frameLabel,
	)

	a.mainWin.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyLeft:
			a.showError(a.Step(-1))
		case fyne.KeyRight:
			a.showError(a.Step(1))
		}
	})

	return container.NewBorder(
		container.NewVBox(toolbar, nav, widget.NewSeparator()),
		a.statusLabel,
		nil, nil,
		container.NewScroll(a.view),
	)
}

func (a *AnnotatorApp) showError(err error) {
	if err == nil {
		return
	}
	a.log.Warn("command failed", "err", err)
	dialog.ShowError(err, a.mainWin)
}

func (a *AnnotatorApp) requireSession() (*annotation.Session, error) {
	if a.session == nil {
		return nil, errNoFolder
	}
	return a.session, nil
}

// LoadFolder replaces the session with the frames of dir. On failure the
// current session is kept.
func (a *AnnotatorApp) LoadFolder(dir string) error {
	s, err := annotation.OpenFolder(a.cfg, dir)
	if err != nil {
		return err
	}
	a.session = s
	a.cache.Clear()
	a.dirty = false
	a.log.Info("folder loaded", "dir", dir, "frames", s.FrameCount())

	a.refreshSpines()
	return a.render()
}

// NewSpine creates a spine and makes it active.
func (a *AnnotatorApp) NewSpine(name string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	if _, err := s.CreateSpine(name); err != nil {
		return err
	}
	a.dirty = true
	a.refreshSpines()
	return a.render()
}

// SelectSpine makes name the spine new boxes are drawn for.
func (a *AnnotatorApp) SelectSpine(name string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	if name == s.ActiveSpine() {
		return nil
	}
	if err := s.SelectSpine(name); err != nil {
		return err
	}
	return a.render()
}

// DrawBox stores r, clipped to the frame, as the active spine's box on the
// current frame.
func (a *AnnotatorApp) DrawBox(r image.Rectangle) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	name := s.ActiveSpine()
	if name == "" {
		return errNoActiveSpine
	}

	frame := s.CurrentFrame()
	box, err := s.ClampBox(frame, annotation.BoxFromRect(r))
	if err != nil {
		return err
	}
	if err := s.SetBox(name, frame, box); err != nil {
		return err
	}
	a.dirty = true
	if m, ok := s.Measure(name, frame); ok {
		a.log.Debug("box set", "spine", name, "frame", frame, "box", box.String(), "length_px", m.LengthPx)
	}
	return a.render()
}

// DeleteCurrentBox removes the active spine's box on the current frame.
func (a *AnnotatorApp) DeleteCurrentBox() error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	name := s.ActiveSpine()
	if name == "" {
		return errNoActiveSpine
	}
	if _, ok := s.Measure(name, s.CurrentFrame()); ok {
		s.DeleteBox(name, s.CurrentFrame())
		a.dirty = true
	}
	return a.render()
}

// Step moves dir frames forward (positive) or back (negative), stopping at
// either end of the sequence.
func (a *AnnotatorApp) Step(dir int) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	moved := false
	if dir > 0 {
		moved = s.NextFrame()
	} else if dir < 0 {
		moved = s.PrevFrame()
	}
	if !moved {
		return nil
	}
	return a.render()
}

// SetZoom changes the display zoom, clamped to the imaging limits.
func (a *AnnotatorApp) SetZoom(factor float64) error {
	a.zoom = imaging.ClampZoom(factor)
	if a.session == nil {
		return nil
	}
	return a.render()
}

// WriteData writes the measurement CSV.
func (a *AnnotatorApp) WriteData(w io.Writer) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	return annotation.WriteCSV(w, s.Measurements())
}

// WriteAnnotations writes the annotation JSON.
func (a *AnnotatorApp) WriteAnnotations(w io.Writer) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	if err := s.WriteAnnotations(w); err != nil {
		return err
	}
	a.dirty = false
	return nil
}

// ReadAnnotations replaces the spines with those in r. Warnings about frame
// names or parameters that differ from the loaded folder are returned with
// a nil error.
func (a *AnnotatorApp) ReadAnnotations(r io.Reader) ([]string, error) {
	s, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	report, err := s.ReadAnnotations(r)
	if err != nil {
		return nil, err
	}
	a.dirty = false
	a.log.Info("annotations loaded", "spines", report.Spines, "boxes", report.Boxes, "warnings", len(report.Warnings))

	a.refreshSpines()
	return report.Warnings, a.render()
}

func (a *AnnotatorApp) render() error {
	s := a.session
	if s == nil || s.FrameCount() == 0 {
		a.view.Clear()
		a.frameLabel.SetText("No folder loaded")
		a.statusLabel.SetText("")
		return nil
	}

	frame, err := s.Frame(s.CurrentFrame())
	if err != nil {
		return err
	}
	img, err := a.cache.Load(frame.Path)
	if err != nil {
		return fmt.Errorf("failed to display %s: %w", frame.Name, err)
	}
	a.prefetch(frame.Index)

	rendered := imaging.RenderOverlay(img, s.Overlays(frame.Index))
	a.view.SetImage(imaging.Zoom(rendered, a.zoom), img.Bounds().Size(), a.zoom)

	a.frameLabel.SetText(fmt.Sprintf("Frame %d/%d: %s  Zoom %.0f%%", frame.Index+1, s.FrameCount(), frame.Name, a.zoom*100))
	a.statusLabel.SetText(a.statusText())
	return nil
}

// prefetch decodes the neighbouring frames in the background.
func (a *AnnotatorApp) prefetch(index int) {
	for _, i := range []int{index - 1, index + 1} {
		f, err := a.session.Frame(i)
		if err != nil {
			continue
		}
		go func(path string) {
			if _, err := a.cache.Load(path); err != nil {
				a.log.Debug("prefetch failed", "path", path, "err", err)
			}
		}(f.Path)
	}
}

func (a *AnnotatorApp) statusText() string {
	s := a.session
	name := s.ActiveSpine()
	if name == "" {
		return "No spine selected. Use New Spine, then drag a box on the image."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Spine %s", name)
	if m, ok := s.Measure(name, s.CurrentFrame()); ok {
		fmt.Fprintf(&b, ": %.1f px, %.2f µm (%s)", m.LengthPx, m.LengthUm, m.Stability)
	} else {
		b.WriteString(": no box on this frame")
	}

	frames, _ := s.AnnotatedFrames(name)
	if len(frames) > 0 {
		labels := make([]string, len(frames))
		for i, f := range frames {
			labels[i] = fmt.Sprint(f + 1)
		}
		fmt.Fprintf(&b, "  |  annotated frames: %s", strings.Join(labels, ", "))
	}
	return b.String()
}

func (a *AnnotatorApp) refreshSpines() {
	if a.session == nil {
		a.spineSelect.Options = nil
		a.spineSelect.ClearSelected()
		return
	}
	a.spineSelect.Options = a.session.Spines()
	// Assigned directly so the change callback does not fire.
	a.spineSelect.Selected = a.session.ActiveSpine()
	a.spineSelect.Refresh()
}

func (a *AnnotatorApp) chooseFolder() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if uri == nil {
			return
		}
		a.openFolder(uri.Path())
	}, a.mainWin)
}

// openFolder loads dir, asking first when the current session has unsaved
// changes.
func (a *AnnotatorApp) openFolder(dir string) {
	a.confirmDiscard("Load a new folder without saving the annotations?", func() {
		a.showError(a.LoadFolder(dir))
	})
}

func (a *AnnotatorApp) askSpineName() {
	if a.session == nil {
		a.showError(errNoFolder)
		return
	}
	entry := widget.NewEntry()
	entry.SetText(a.session.NextSpineName())
	dialog.ShowForm("New Spine", "Create", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", entry)},
		func(ok bool) {
			if ok {
				a.showError(a.NewSpine(entry.Text))
			}
		}, a.mainWin)
}

func (a *AnnotatorApp) chooseCSV() {
	a.saveFile("measurements.csv", ".csv", a.WriteData)
}

func (a *AnnotatorApp) chooseAnnotationsSave() {
	a.saveFile("annotations.json", ".json", a.WriteAnnotations)
}

func (a *AnnotatorApp) saveFile(name, ext string, write func(io.Writer) error) {
	if a.session == nil {
		a.showError(errNoFolder)
		return
	}
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if w == nil {
			return
		}
		werr := write(w)
		if cerr := w.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			a.showError(werr)
			return
		}
		a.log.Info("file saved", "path", w.URI().Path())
	}, a.mainWin)
	d.SetFileName(name)
	d.SetFilter(storage.NewExtensionFileFilter([]string{ext}))
	d.Show()
}

func (a *AnnotatorApp) chooseAnnotationsLoad() {
	if a.session == nil {
		a.showError(errNoFolder)
		return
	}
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()

		warnings, err := a.ReadAnnotations(r)
		if err != nil {
			a.showError(err)
			return
		}
		if len(warnings) > 0 {
			dialog.ShowInformation("Annotations loaded with warnings", strings.Join(warnings, "\n"), a.mainWin)
		}
	}, a.mainWin)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	d.Show()
}
