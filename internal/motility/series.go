package motility

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when a CSV has no usable spine or length column.
var ErrMissingColumn = errors.New("missing column")

// Header names accepted for each column, in order of preference. Matching is
// case-insensitive and ignores surrounding whitespace.
var (
	spineColumns  = []string{"spine_name", "spine", "name"}
	timeColumns   = []string{"time (min)", "time", "time_point", "time_min", "minutes"}
	lengthColumns = []string{"length_microns", "length_um", "length_px", "length_pixels", "length"}
	frameColumns  = []string{"frame_label", "frame", "frame_index"}
)

// Point is one length sample.
type Point struct {
	Time   float64
	Length float64
}

// Series is the length time series of one spine, sorted by time.
type Series struct {
	Source string
	Spine  string
	Points []Point
	// Step is the time between consecutive frames of the source file. Zero
	// means unknown.
	Step float64
}

// Times returns the sample times.
func (s Series) Times() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

// Lengths returns the sample lengths.
func (s Series) Lengths() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Length
	}
	return out
}

// ReadOptions controls how a length CSV is turned into series.
type ReadOptions struct {
	// Source names the file the rows came from.
	Source string
	// FrameInterval is the time between frames, used when the CSV has no
	// time column. Zero means 1.
	FrameInterval float64
	// Period drops samples later than this time. Zero keeps everything.
	Period float64
}

type columns struct {
	spine, time, length, frame int
}

func findColumn(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

// ReadSeries parses a length CSV into one series per spine, in order of
// first appearance.
//
// Times come from a time column when there is one. Otherwise each row is
// placed by its frame: the distinct frame labels of the file are ranked in
// sort order, and a row's time is its frame's rank times FrameInterval. With
// neither column, rows are numbered per spine in file order. This lets the
// annotator's measurement export be read directly.
func ReadSeries(r io.Reader, opts ReadOptions) ([]Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := columns{
		spine:  findColumn(header, spineColumns),
		time:   findColumn(header, timeColumns),
		length: findColumn(header, lengthColumns),
		frame:  findColumn(header, frameColumns),
	}
	if cols.spine < 0 {
		return nil, fmt.Errorf("%w: no spine column in %v", ErrMissingColumn, header)
	}
	if cols.length < 0 {
		return nil, fmt.Errorf("%w: no length column in %v", ErrMissingColumn, header)
	}

	interval := opts.FrameInterval
	if interval <= 0 {
		interval = 1
	}

	type row struct {
		spine  string
		frame  string
		time   float64
		length float64
	}
	var rows []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rows: %w", err)
		}
		line, _ := cr.FieldPos(0)

		rw := row{spine: strings.TrimSpace(rec[cols.spine])}
		if rw.spine == "" {
			continue
		}
		rw.length, err = strconv.ParseFloat(strings.TrimSpace(rec[cols.length]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid length %q", line, rec[cols.length])
		}
		if cols.time >= 0 {
			rw.time, err = strconv.ParseFloat(strings.TrimSpace(rec[cols.time]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid time %q", line, rec[cols.time])
			}
		}
		if cols.frame >= 0 {
			rw.frame = strings.TrimSpace(rec[cols.frame])
		}
		rows = append(rows, rw)
	}

	if cols.time < 0 {
		if cols.frame >= 0 {
			labels := make([]string, len(rows))
			for i := range rows {
				labels[i] = rows[i].frame
			}
			rank := frameRanks(labels)
			for i := range rows {
				rows[i].time = float64(rank[rows[i].frame]) * interval
			}
		} else {
			seen := make(map[string]int)
			for i := range rows {
				rows[i].time = float64(seen[rows[i].spine]) * interval
				seen[rows[i].spine]++
			}
		}
	}

	step := interval
	if cols.time >= 0 {
		step = fileSpacing(len(rows), func(i int) (string, float64) { return rows[i].spine, rows[i].time })
	}

	var out []Series
	index := make(map[string]int)
	for _, rw := range rows {
		if opts.Period > 0 && rw.time > opts.Period {
			continue
		}
		i, ok := index[rw.spine]
		if !ok {
			i = len(out)
			index[rw.spine] = i
			out = append(out, Series{Source: opts.Source, Spine: rw.spine, Step: step})
		}
		out[i].Points = append(out[i].Points, Point{Time: rw.time, Length: rw.length})
	}
	for i := range out {
		pts := out[i].Points
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Time < pts[b].Time })
	}
	return out, nil
}

// fileSpacing is the smallest positive time difference between two samples
// of the same spine, taken over the whole file.
func fileSpacing(n int, at func(i int) (string, float64)) float64 {
	bySpine := make(map[string][]float64)
	for i := 0; i < n; i++ {
		spine, t := at(i)
		bySpine[spine] = append(bySpine[spine], t)
	}
	var step float64
	for _, times := range bySpine {
		sort.Float64s(times)
		if d := minSpacing(times); d > 0 && (step == 0 || d < step) {
			step = d
		}
	}
	return step
}

// frameRanks orders the distinct frame labels. Labels that parse as numbers
// sort numerically, everything else by name.
func frameRanks(labels []string) map[string]int {
	var distinct []string
	seen := make(map[string]bool)
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			distinct = append(distinct, l)
		}
	}
	sort.SliceStable(distinct, func(i, j int) bool {
		a, errA := strconv.ParseFloat(distinct[i], 64)
		b, errB := strconv.ParseFloat(distinct[j], 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return distinct[i] < distinct[j]
	})

	rank := make(map[string]int, len(distinct))
	for i, l := range distinct {
		rank[l] = i
	}
	return rank
}

// ReadFile reads the series in the CSV at path, naming them after the file.
func ReadFile(path string, opts ReadOptions) ([]Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if opts.Source == "" {
		opts.Source = filepath.Base(path)
	}
	series, err := ReadSeries(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

// CollectFiles expands the given paths into a sorted list of CSV files.
// Directories contribute every *.csv file directly inside them.
func CollectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
