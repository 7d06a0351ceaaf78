package motility

import (
	"errors"
	"fmt"
)

// Options configures Analyze.
type Options struct {
	Delta  int
	Method Method
	Read   ReadOptions
}

// Report is the outcome of Analyze.
type Report struct {
	Files     []string  `json:"files"`
	Results   []Result  `json:"results"`
	Summaries []Summary `json:"summaries"`
	// Skipped describes each spine that had too few samples.
	Skipped []string `json:"skipped,omitempty"`
}

// Analyze reads every CSV named by paths (folders are expanded), computes
// the motility of each spine and summarizes each file.
//
// A file that cannot be read fails the whole run. Spines with too few
// samples are listed in Report.Skipped.
func Analyze(paths []string, opts Options) (*Report, error) {
	if opts.Method == "" {
		opts.Method = Lagged
	}
	if opts.Method == Lagged && opts.Delta < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLag, opts.Delta)
	}

	files, err := CollectFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no CSV files found", ErrInsufficientData)
	}

	var series []Series
	for _, f := range files {
		read := opts.Read
		read.Source = ""
		s, err := ReadFile(f, read)
		if err != nil {
			return nil, err
		}
		series = append(series, s...)
	}

	results, err := Compute(series, opts.Delta, opts.Method)
	report := &Report{Files: files, Results: results, Summaries: Summarize(results)}
	if err != nil {
		var joined interface{ Unwrap() []error }
		if !errors.As(err, &joined) {
			return nil, err
		}
		for _, e := range joined.Unwrap() {
			if !errors.Is(e, ErrInsufficientData) {
				return nil, err
			}
			report.Skipped = append(report.Skipped, e.Error())
		}
	}
	return report, nil
}
