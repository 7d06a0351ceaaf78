package annotation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Stability classifies a spine on one frame by its box length.
type Stability string

const (
	Stable   Stability = "stable"
	Unstable Stability = "unstable"
)

// Classify returns Stable when lengthPx is strictly below threshold.
// A length equal to the threshold is Unstable.
func Classify(lengthPx, threshold float64) Stability {
	if lengthPx < threshold {
		return Stable
	}
	return Unstable
}

// Measurement is one exported row: a spine's length on one frame.
type Measurement struct {
	SpineName  string    `json:"spine_name"`
	FrameIndex int       `json:"frame_index"`
	FrameLabel string    `json:"frame_label"`
	LengthPx   float64   `json:"length_px"`
	LengthUm   float64   `json:"length_um"`
	Stability  Stability `json:"stability"`
}

// CSVHeader is the column layout written by WriteCSV.
var CSVHeader = []string{"spine_name", "frame_label", "length_px", "length_um", "stability"}

func (s *Session) measure(name string, frame int, box BoundingBox) Measurement {
	px := box.LengthPx()
	label := strconv.Itoa(frame)
	if frame >= 0 && frame < len(s.frames) {
		label = s.frames[frame].Name
	}
	return Measurement{
		SpineName:  name,
		FrameIndex: frame,
		FrameLabel: label,
		LengthPx:   px,
		LengthUm:   px * s.cfg.PixelToMicron,
		Stability:  Classify(px, s.cfg.StabilityThreshold),
	}
}

// Measure computes the measurement for one spine on one frame. It reports
// false when the spine has no box there.
func (s *Session) Measure(name string, frame int) (Measurement, bool) {
	sp, ok := s.spines[name]
	if !ok {
		return Measurement{}, false
	}
	box, ok := sp.boxes[frame]
	if !ok {
		return Measurement{}, false
	}
	return s.measure(name, frame, box), true
}

// Measurements returns one row per (spine, frame) pair that has a box,
// ordered by spine creation and then by frame index.
func (s *Session) Measurements() []Measurement {
	var out []Measurement
	for _, name := range s.order {
		sp := s.spines[name]
		for _, frame := range sp.Frames() {
			out = append(out, s.measure(name, frame, sp.boxes[frame]))
		}
	}
	return out
}

// WriteCSV writes a header and one row per measurement.
func WriteCSV(w io.Writer, rows []Measurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, m := range rows {
		rec := []string{
			m.SpineName,
			m.FrameLabel,
			strconv.FormatFloat(m.LengthPx, 'f', -1, 64),
			strconv.FormatFloat(m.LengthUm, 'f', -1, 64),
			string(m.Stability),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the session's measurements to path, replacing the file.
func (s *Session) ExportCSV(path string) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, s.Measurements())
	})
}

// WriteFileAtomic writes through a temp file in the target directory and
// renames it into place, so a failed write never truncates an existing file.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
