package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/ironsheep/spine-tools/internal/annotation"
	"github.com/ironsheep/spine-tools/internal/imaging"
	"github.com/ironsheep/spine-tools/internal/motility"
	"github.com/ironsheep/spine-tools/internal/store"
)

var (
	errNoSession     = errors.New("no folder loaded, call session_load_folder first")
	errNoActiveSpine = errors.New("no spine given and no spine is active")
	errNoBox         = errors.New("spine has no box on this frame")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "box_set", "export_csv").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A failed tool leaves the session as it was.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Session
	case "session_load_folder":
		return s.handleLoadFolder(args)
	case "session_status":
		return s.handleStatus(args)

	// Spines and navigation
	case "spine_create":
		return s.handleSpineCreate(args)
	case "spine_select":
		return s.handleSpineSelect(args)
	case "frame_goto":
		return s.handleFrameGoto(args)

	// Boxes
	case "box_set":
		return s.handleBoxSet(args)
	case "box_delete":
		return s.handleBoxDelete(args)
	case "box_suggest":
		return s.handleBoxSuggest(args)
	case "box_crop":
		return s.handleBoxCrop(args)

	// Measurements and files
	case "measurements_list":
		return s.handleMeasurementsList(args)
	case "export_csv":
		return s.handleExportCSV(args)
	case "annotations_save":
		return s.handleAnnotationsSave(args)
	case "annotations_load":
		return s.handleAnnotationsLoad(args)

	// Display
	case "frame_render":
		return s.handleFrameRender(args)

	// Motility
	case "motility_compute":
		return s.handleMotilityCompute(args)
	case "motility_history":
		return s.handleMotilityHistory(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func (s *Server) requireSession() (*annotation.Session, error) {
	if s.session == nil {
		return nil, errNoSession
	}
	return s.session, nil
}

// target resolves an optional spine name and frame index against the active
// spine and the current frame.
func (s *Server) target(spine string, frame *int) (string, int, error) {
	sess, err := s.requireSession()
	if err != nil {
		return "", 0, err
	}
	if spine == "" {
		spine = sess.ActiveSpine()
		if spine == "" {
			return "", 0, errNoActiveSpine
		}
	}
	idx := sess.CurrentFrame()
	if frame != nil {
		idx = *frame
	}
	return spine, idx, nil
}

// frameImage returns the display image of frame.
func (s *Server) frameImage(index int) (imaging.Frame, *image.RGBA, error) {
	sess, err := s.requireSession()
	if err != nil {
		return imaging.Frame{}, nil, err
	}
	f, err := sess.Frame(index)
	if err != nil {
		return imaging.Frame{}, nil, err
	}
	img, err := s.cache.Load(f.Path)
	if err != nil {
		return imaging.Frame{}, nil, err
	}
	return f, img, nil
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Session Handlers ===

type frameInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type loadFolderArgs struct {
	Folder string `json:"folder"`
}

type loadFolderResult struct {
	Folder     string      `json:"folder"`
	FrameCount int         `json:"frame_count"`
	Frames     []frameInfo `json:"frames"`
}

func (s *Server) handleLoadFolder(args json.RawMessage) (interface{}, error) {
	var a loadFolderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := annotation.OpenFolder(s.cfg, a.Folder)
	if err != nil {
		return nil, err
	}

	s.session = sess
	s.folder = a.Folder
	s.cache.Clear()
	s.log.Info("folder loaded", "folder", a.Folder, "frames", sess.FrameCount())

	res := loadFolderResult{Folder: a.Folder, FrameCount: sess.FrameCount()}
	for _, f := range sess.Frames() {
		res.Frames = append(res.Frames, frameInfo{Index: f.Index, Name: f.Name, Width: f.Width, Height: f.Height})
	}
	return res, nil
}

type spineStatus struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Frames []int  `json:"frames"`
}

type statusResult struct {
	Folder       string        `json:"folder"`
	FrameCount   int           `json:"frame_count"`
	CurrentFrame int           `json:"current_frame"`
	FrameName    string        `json:"frame_name"`
	ActiveSpine  string        `json:"active_spine"`
	Spines       []spineStatus `json:"spines"`
}

func (s *Server) handleStatus(json.RawMessage) (interface{}, error) {
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	res := statusResult{
		Folder:       s.folder,
		FrameCount:   sess.FrameCount(),
		CurrentFrame: sess.CurrentFrame(),
		ActiveSpine:  sess.ActiveSpine(),
		Spines:       []spineStatus{},
	}
	if f, err := sess.Frame(sess.CurrentFrame()); err == nil {
		res.FrameName = f.Name
	}
	for _, name := range sess.Spines() {
		sp, _ := sess.Spine(name)
		res.Spines = append(res.Spines, spineStatus{Name: name, Color: sp.Color, Frames: sp.Frames()})
	}
	return res, nil
}

// === Spine and Navigation Handlers ===

type spineArgs struct {
	Name string `json:"name"`
}

type spineResult struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Active bool   `json:"active"`
}

func (s *Server) handleSpineCreate(args json.RawMessage) (interface{}, error) {
	var a spineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if a.Name == "" {
		a.Name = sess.NextSpineName()
	}
	sp, err := sess.CreateSpine(a.Name)
	if err != nil {
		return nil, err
	}
	return spineResult{Name: sp.Name, Color: sp.Color, Active: true}, nil
}

func (s *Server) handleSpineSelect(args json.RawMessage) (interface{}, error) {
	var a spineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := sess.SelectSpine(a.Name); err != nil {
		return nil, err
	}
	sp, _ := sess.Spine(a.Name)
	return spineResult{Name: sp.Name, Color: sp.Color, Active: true}, nil
}

type frameGotoArgs struct {
	Index *int   `json:"index"`
	Step  string `json:"step"`
}

type frameResult struct {
	Index int                   `json:"index"`
	Name  string                `json:"name"`
	Moved bool                  `json:"moved"`
	Boxes []annotation.FrameBox `json:"boxes"`
}

func (s *Server) handleFrameGoto(args json.RawMessage) (interface{}, error) {
	var a frameGotoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}

	before := sess.CurrentFrame()
	switch a.Step {
	case "next":
		sess.NextFrame()
	case "prev":
		sess.PrevFrame()
	case "":
		if a.Index == nil {
			return nil, errors.New("either index or step is required")
		}
		if err := sess.SetCurrentFrame(*a.Index); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid step %q: must be next or prev", a.Step)
	}

	cur := sess.CurrentFrame()
	f, _ := sess.Frame(cur)
	boxes := sess.BoxesOnFrame(cur)
	if boxes == nil {
		boxes = []annotation.FrameBox{}
	}
	return frameResult{Index: cur, Name: f.Name, Moved: cur != before, Boxes: boxes}, nil
}

// === Box Handlers ===

type boxSetArgs struct {
	Spine string `json:"spine"`
	Frame *int   `json:"frame"`
	X1    int    `json:"x1"`
	Y1    int    `json:"y1"`
	X2    int    `json:"x2"`
	Y2    int    `json:"y2"`
	Clamp bool   `json:"clamp"`
}

func (s *Server) handleBoxSet(args json.RawMessage) (interface{}, error) {
	var a boxSetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	spine, frame, err := s.target(a.Spine, a.Frame)
	if err != nil {
		return nil, err
	}
	sess := s.session

	box := annotation.NewBox(a.X1, a.Y1, a.X2, a.Y2)
	if a.Clamp {
		if box, err = sess.ClampBox(frame, box); err != nil {
			return nil, err
		}
	}
	if err := sess.SetBox(spine, frame, box); err != nil {
		return nil, err
	}

	m, _ := sess.Measure(spine, frame)
	s.log.Debug("box set", "spine", spine, "frame", frame, "box", box.String(), "length_px", m.LengthPx)
	return m, nil
}

type boxTargetArgs struct {
	Spine string `json:"spine"`
	Frame *int   `json:"frame"`
}

type boxDeleteResult struct {
	Spine   string `json:"spine"`
	Frame   int    `json:"frame"`
	Deleted bool   `json:"deleted"`
}

func (s *Server) handleBoxDelete(args json.RawMessage) (interface{}, error) {
	var a boxTargetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	spine, frame, err := s.target(a.Spine, a.Frame)
	if err != nil {
		return nil, err
	}

	_, existed := s.session.Measure(spine, frame)
	s.session.DeleteBox(spine, frame)
	return boxDeleteResult{Spine: spine, Frame: frame, Deleted: existed}, nil
}

type boxSuggestArgs struct {
	Frame     *int    `json:"frame"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Tolerance int     `json:"tolerance"`
	Blur      float64 `json:"blur"`
	Pad       *int    `json:"pad"`
}

type boxSuggestResult struct {
	Frame    int                    `json:"frame"`
	Box      annotation.BoundingBox `json:"box"`
	LengthPx float64                `json:"length_px"`
	LengthUm float64                `json:"length_um"`
}

func (s *Server) handleBoxSuggest(args json.RawMessage) (interface{}, error) {
	var a boxSuggestArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if a.Tolerance < 0 || a.Tolerance > 255 {
		return nil, fmt.Errorf("tolerance must be between 1 and 255, got %d", a.Tolerance)
	}
	if a.Blur == 0 {
		a.Blur = 1.0
	}
	pad := 2
	if a.Pad != nil {
		pad = *a.Pad
	}
	frame := sess.CurrentFrame()
	if a.Frame != nil {
		frame = *a.Frame
	}

	_, img, err := s.frameImage(frame)
	if err != nil {
		return nil, err
	}
	r, err := imaging.SuggestBox(img, image.Pt(a.X, a.Y), imaging.SuggestOptions{
		Tolerance: uint8(a.Tolerance),
		Blur:      a.Blur,
		Pad:       pad,
	})
	if err != nil {
		return nil, err
	}

	box := annotation.BoxFromRect(r)
	return boxSuggestResult{
		Frame:    frame,
		Box:      box,
		LengthPx: box.LengthPx(),
		LengthUm: box.LengthUm(s.cfg.PixelToMicron),
	}, nil
}

type boxCropArgs struct {
	Spine string  `json:"spine"`
	Frame *int    `json:"frame"`
	Pad   *int    `json:"pad"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleBoxCrop(args json.RawMessage) (interface{}, error) {
	var a boxCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	pad := 10
	if a.Pad != nil {
		pad = *a.Pad
	}
	spine, frame, err := s.target(a.Spine, a.Frame)
	if err != nil {
		return nil, err
	}
	sp, err := s.session.Spine(spine)
	if err != nil {
		return nil, err
	}
	box, ok := sp.Box(frame)
	if !ok {
		return nil, fmt.Errorf("%w: %s on frame %d", errNoBox, spine, frame)
	}

	_, img, err := s.frameImage(frame)
	if err != nil {
		return nil, err
	}
	return imaging.CropBox(img, box.Rect(), pad, a.Scale)
}

// === Measurement and File Handlers ===

type measurementsArgs struct {
	Spine string `json:"spine"`
}

type measurementsResult struct {
	PixelToMicron      float64                  `json:"pixel_to_micron"`
	StabilityThreshold float64                  `json:"stability_threshold"`
	Count              int                      `json:"count"`
	Measurements       []annotation.Measurement `json:"measurements"`
}

func (s *Server) handleMeasurementsList(args json.RawMessage) (interface{}, error) {
	var a measurementsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if a.Spine != "" {
		if _, err := sess.Spine(a.Spine); err != nil {
			return nil, err
		}
	}

	res := measurementsResult{
		PixelToMicron:      s.cfg.PixelToMicron,
		StabilityThreshold: s.cfg.StabilityThreshold,
		Measurements:       []annotation.Measurement{},
	}
	for _, m := range sess.Measurements() {
		if a.Spine == "" || m.SpineName == a.Spine {
			res.Measurements = append(res.Measurements, m)
		}
	}
	res.Count = len(res.Measurements)
	return res, nil
}

type pathArgs struct {
	Path string `json:"path"`
}

func (a pathArgs) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

type fileResult struct {
	Path   string `json:"path"`
	Rows   int    `json:"rows,omitempty"`
	Spines int    `json:"spines,omitempty"`
}

func (s *Server) handleExportCSV(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := sess.ExportCSV(a.Path); err != nil {
		return nil, err
	}
	rows := len(sess.Measurements())
	s.log.Info("measurements exported", "path", a.Path, "rows", rows)
	return fileResult{Path: a.Path, Rows: rows}, nil
}

func (s *Server) handleAnnotationsSave(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if err := sess.ExportAnnotations(a.Path); err != nil {
		return nil, err
	}
	s.log.Info("annotations saved", "path", a.Path, "spines", len(sess.Spines()))
	return fileResult{Path: a.Path, Spines: len(sess.Spines())}, nil
}

func (s *Server) handleAnnotationsLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	report, err := sess.ImportAnnotations(a.Path)
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		s.log.Warn("annotation import", "path", a.Path, "warning", w)
	}
	return report, nil
}

// === Display Handlers ===

type frameRenderArgs struct {
	Frame *int    `json:"frame"`
	Zoom  float64 `json:"zoom"`
}

type frameRenderResult struct {
	Frame       int     `json:"frame"`
	Name        string  `json:"name"`
	Zoom        float64 `json:"zoom"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
}

func (s *Server) handleFrameRender(args json.RawMessage) (interface{}, error) {
	var a frameRenderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if a.Zoom == 0 {
		a.Zoom = 1.0
	}
	index := sess.CurrentFrame()
	if a.Frame != nil {
		index = *a.Frame
	}

	f, img, err := s.frameImage(index)
	if err != nil {
		return nil, err
	}
	zoom := imaging.ClampZoom(a.Zoom)
	out := imaging.Zoom(imaging.RenderOverlay(img, sess.Overlays(index)), zoom)
	encoded, err := imaging.EncodePNG(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return frameRenderResult{
		Frame:       index,
		Name:        f.Name,
		Zoom:        zoom,
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// === Motility Handlers ===

type motilityArgs struct {
	Paths         []string `json:"paths"`
	Delta         *int     `json:"delta"`
	Method        string   `json:"method"`
	Period        float64  `json:"period"`
	FrameInterval float64  `json:"frame_interval"`
	Output        string   `json:"output"`
	Chart         string   `json:"chart"`
	HTML          string   `json:"html"`
	History       string   `json:"history"`
}

type motilityResult struct {
	*motility.Report
	Method motility.Method `json:"method"`
	Output string          `json:"output,omitempty"`
	Chart  string          `json:"chart,omitempty"`
	HTML   string          `json:"html,omitempty"`
	RunID  string          `json:"run_id,omitempty"`
}

func (s *Server) handleMotilityCompute(args json.RawMessage) (interface{}, error) {
	var a motilityArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths is required")
	}
	method, err := motility.ParseMethod(a.Method)
	if err != nil {
		return nil, err
	}

	opts := motility.Options{
		Delta:  1,
		Method: method,
		Read:   motility.ReadOptions{FrameInterval: a.FrameInterval, Period: a.Period},
	}
	if a.Delta != nil {
		opts.Delta = *a.Delta
	}
	report, err := motility.Analyze(a.Paths, opts)
	if err != nil {
		return nil, err
	}
	res := motilityResult{Report: report, Method: method, Output: a.Output, Chart: a.Chart, HTML: a.HTML}

	if a.Output != "" {
		if err := annotation.WriteFileAtomic(a.Output, func(w io.Writer) error {
			return motility.WriteResults(w, report.Results)
		}); err != nil {
			return nil, err
		}
	}
	if a.Chart != "" {
		if err := motility.PlotSummary(a.Chart, report.Summaries, method.AxisLabel()); err != nil {
			return nil, err
		}
	}
	if a.HTML != "" {
		if err := annotation.WriteFileAtomic(a.HTML, func(w io.Writer) error {
			return motility.RenderHTML(w, report.Results, report.Summaries, method.AxisLabel())
		}); err != nil {
			return nil, err
		}
	}
	if a.History != "" {
		db, err := store.Open(a.History)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		run, err := db.RecordRun(report, opts)
		if err != nil {
			return nil, err
		}
		res.RunID = run.RunID
		s.log.Info("motility run recorded", "db", a.History, "run_id", run.RunID)
	}
	return res, nil
}

type historyArgs struct {
	History string `json:"history"`
	RunID   string `json:"run_id"`
}

type historyResult struct {
	Runs    []*store.Run      `json:"runs,omitempty"`
	Run     *store.Run        `json:"run,omitempty"`
	Results []motility.Result `json:"results,omitempty"`
}

func (s *Server) handleMotilityHistory(args json.RawMessage) (interface{}, error) {
	var a historyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.History == "" {
		return nil, errors.New("history is required")
	}
	if _, err := os.Stat(a.History); err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	db, err := store.Open(a.History)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if a.RunID == "" {
		runs, err := db.Runs()
		if err != nil {
			return nil, err
		}
		return historyResult{Runs: runs}, nil
	}

	run, err := db.Run(a.RunID)
	if err != nil {
		return nil, err
	}
	results, err := db.Results(a.RunID)
	if err != nil {
		return nil, err
	}
	return historyResult{Run: run, Results: results}, nil
}
