package annotation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/spine-tools/internal/imaging"
)

// annotationDoc is the file layout written by ExportAnnotations.
//
// The measurement parameters are stored next to the boxes so a file stays
// interpretable even if the defaults change later.
type annotationDoc struct {
	PixelToMicron      float64           `json:"pixel_to_micron"`
	StabilityThreshold float64           `json:"stability_threshold"`
	Frames             []string          `json:"frames"`
	SpineColors        map[string]string `json:"spine_colors"`
	Spines             spineTable        `json:"spines"`
}

// annotationInput is the layout accepted by ImportAnnotations. It also reads
// files that use "spine_annotations" and "image_paths" instead of "spines"
// and "frames".
type annotationInput struct {
	PixelToMicron      *float64          `json:"pixel_to_micron"`
	StabilityThreshold *float64          `json:"stability_threshold"`
	Frames             []string          `json:"frames"`
	SpineColors        map[string]string `json:"spine_colors"`
	Spines             *spineTable       `json:"spines"`

	LegacySpines *spineTable `json:"spine_annotations"`
	LegacyPaths  []string    `json:"image_paths"`
}

type spineEntry struct {
	name  string
	boxes map[int]BoundingBox
}

// spineTable is an ordered spine name → frame index → box mapping. It
// serializes as a JSON object whose key order is the spine creation order.
type spineTable []spineEntry

func (t spineTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")

		frames := make([]int, 0, len(e.boxes))
		for f := range e.boxes {
			frames = append(frames, f)
		}
		sort.Ints(frames)
		for j, f := range frames {
			if j > 0 {
				buf.WriteByte(',')
			}
			box, err := json.Marshal(e.boxes[f])
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&buf, "%q:", strconv.Itoa(f))
			buf.Write(box)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *spineTable) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: spines must be an object", ErrSchemaMismatch)
	}

	seen := make(map[string]bool)
	var out spineTable
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		if seen[name] {
			return fmt.Errorf("%w: %q appears twice", ErrDuplicateName, name)
		}
		seen[name] = true

		var raw map[string]BoundingBox
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("spine %q: %w", name, err)
		}
		boxes := make(map[int]BoundingBox, len(raw))
		for k, b := range raw {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return fmt.Errorf("%w: spine %q has non-numeric frame key %q", ErrSchemaMismatch, name, k)
			}
			boxes[idx] = b
		}
		out = append(out, spineEntry{name: name, boxes: boxes})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*t = out
	return nil
}

// ImportReport summarizes a successful import. Warnings lists references
// that were imported but do not match the loaded folder exactly.
type ImportReport struct {
	Spines   int      `json:"spines"`
	Boxes    int      `json:"boxes"`
	Warnings []string `json:"warnings,omitempty"`
}

// WriteAnnotations encodes every spine, its boxes and the measurement
// parameters as indented JSON.
func (s *Session) WriteAnnotations(w io.Writer) error {
	doc := annotationDoc{
		PixelToMicron:      s.cfg.PixelToMicron,
		StabilityThreshold: s.cfg.StabilityThreshold,
		Frames:             make([]string, len(s.frames)),
		SpineColors:        make(map[string]string, len(s.order)),
		Spines:             make(spineTable, 0, len(s.order)),
	}
	for i, f := range s.frames {
		doc.Frames[i] = f.Name
	}
	for _, name := range s.order {
		sp := s.spines[name]
		doc.SpineColors[name] = sp.Color
		doc.Spines = append(doc.Spines, spineEntry{name: name, boxes: sp.boxes})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode annotations: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ExportAnnotations writes the annotations to path, replacing the file.
func (s *Session) ExportAnnotations(path string) error {
	return WriteFileAtomic(path, s.WriteAnnotations)
}

// ImportAnnotations replaces the session's spines with those in the file at
// path. See ReadAnnotations.
func (s *Session) ImportAnnotations(path string) (*ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotations: %w", err)
	}
	defer f.Close()
	return s.ReadAnnotations(f)
}

// ReadAnnotations replaces the session's spines with those decoded from r.
//
// The import is all or nothing: the file is parsed and every reference is
// checked against the loaded frames before anything is replaced. Frame
// indices past the end of the sequence fail with ErrSchemaMismatch and
// boxes that do not fit their frame fail with ErrInvalidBox. Frame name or
// parameter differences are not fatal and are listed in the report.
func (s *Session) ReadAnnotations(r io.Reader) (*ImportReport, error) {
	var in annotationInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		if errors.Is(err, ErrSchemaMismatch) || errors.Is(err, ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("malformed annotations: %w", err)
	}

	table := in.Spines
	if table == nil {
		table = in.LegacySpines
	}
	if table == nil {
		return nil, fmt.Errorf("%w: no spines object", ErrSchemaMismatch)
	}

	fileFrames := in.Frames
	if fileFrames == nil {
		for _, p := range in.LegacyPaths {
			fileFrames = append(fileFrames, filepath.Base(p))
		}
	}

	report := &ImportReport{}
	var problems []string
	var boxErr error
	spines := make(map[string]*Spine, len(*table))
	order := make([]string, 0, len(*table))
	renamed := make(map[int]bool)

	for i, e := range *table {
		name := strings.TrimSpace(e.name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("spine #%d has an empty name", i+1))
			continue
		}
		if _, dup := spines[name]; dup {
			return nil, fmt.Errorf("%w: %q appears twice", ErrDuplicateName, name)
		}

		color := imaging.SpineColorHex(i)
		if c, ok := in.SpineColors[e.name]; ok {
			if _, err := imaging.ParseHexColor(c); err == nil {
				color = c
			}
		}
		sp := newSpine(name, color)

		for _, frame := range sortedFrames(e.boxes) {
			box := e.boxes[frame].Normalize()
			if frame < 0 || frame >= len(s.frames) {
				problems = append(problems, fmt.Sprintf("spine %q references frame %d", name, frame))
				continue
			}
			if err := box.validate(s.frames[frame]); err != nil {
				if boxErr == nil {
					boxErr = fmt.Errorf("spine %q frame %d: %w", name, frame, err)
				}
				continue
			}
			if frame < len(fileFrames) && fileFrames[frame] != s.frames[frame].Name && !renamed[frame] {
				renamed[frame] = true
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"frame %d was annotated as %s but %s is loaded", frame, fileFrames[frame], s.frames[frame].Name))
			}
			sp.boxes[frame] = box
			report.Boxes++
		}

		spines[name] = sp
		order = append(order, name)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s; %d frames loaded", ErrSchemaMismatch, strings.Join(problems, "; "), len(s.frames))
	}
	if boxErr != nil {
		return nil, boxErr
	}

	if fileFrames != nil && len(fileFrames) != len(s.frames) {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"annotation file lists %d frames, folder has %d", len(fileFrames), len(s.frames)))
	}
	if in.PixelToMicron != nil && !sameParam(*in.PixelToMicron, s.cfg.PixelToMicron) {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"pixel_to_micron %g in file differs from %g in use", *in.PixelToMicron, s.cfg.PixelToMicron))
	}
	if in.StabilityThreshold != nil && !sameParam(*in.StabilityThreshold, s.cfg.StabilityThreshold) {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"stability_threshold %g in file differs from %g in use", *in.StabilityThreshold, s.cfg.StabilityThreshold))
	}

	s.spines = spines
	s.order = order
	if _, ok := spines[s.active]; !ok {
		s.active = ""
		if len(order) > 0 {
			s.active = order[0]
		}
	}
	report.Spines = len(order)
	return report, nil
}

func sortedFrames(boxes map[int]BoundingBox) []int {
	idx := make([]int, 0, len(boxes))
	for i := range boxes {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func sameParam(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
