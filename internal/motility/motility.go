// Package motility computes spine motility from per-spine length time series.
//
// Two statistics are offered. The lagged statistic is the mean signed change
// in length over a fixed lag of δ frame steps, positive for net growth. The
// absolute rate is the total absolute length change divided by the observed
// duration, in length units per time unit.
package motility

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInsufficientData is returned when a series has too few points for
	// the requested statistic.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidLag is returned for a lag below one step.
	ErrInvalidLag = errors.New("invalid lag")
	// ErrUnknownMethod is returned by ParseMethod.
	ErrUnknownMethod = errors.New("unknown motility method")
)

// Method selects the statistic Compute reports.
type Method string

const (
	// Lagged is the mean of length[t+δ] - length[t].
	Lagged Method = "lagged"
	// Absolute is Σ|length[t+1] - length[t]| / (t_last - t_first).
	Absolute Method = "absolute"
)

// AxisLabel describes the unit of the method's result for charts.
func (m Method) AxisLabel() string {
	if m == Absolute {
		return "motility (length / time)"
	}
	return "motility (length change / step)"
}

// ParseMethod maps a user supplied name onto a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lagged", "lag", "mean":
		return Lagged, nil
	case "absolute", "abs", "rate":
		return Absolute, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Motility returns the mean of lengths[t+delta] - lengths[t] over every t
// for which both samples exist. The lag is counted in samples, not time.
//
// For lengths [10, 12, 11, 15] and delta 1 the deltas are [2, -1, 4] and the
// result is 5/3.
func Motility(lengths []float64, delta int) (float64, error) {
	if delta < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLag, delta)
	}
	if len(lengths) < delta+1 {
		return 0, fmt.Errorf("%w: %d points for lag %d", ErrInsufficientData, len(lengths), delta)
	}

	terms := len(lengths) - delta
	var sum float64
	for t := 0; t < terms; t++ {
		sum += lengths[t+delta] - lengths[t]
	}
	return sum / float64(terms), nil
}

// LaggedMotility is Motility for a series that may have missing frames. It
// averages lengths[j] - lengths[i] over every pair whose times are exactly
// delta steps apart, so a gap in the series never pairs samples that lie
// further apart than the lag. step is the time between consecutive frames;
// zero or less takes the smallest spacing found in times.
//
// On an evenly spaced series the result equals Motility(lengths, delta).
func LaggedMotility(times, lengths []float64, delta int, step float64) (float64, error) {
	if delta < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLag, delta)
	}
	if len(times) != len(lengths) {
		return 0, fmt.Errorf("%d times for %d lengths", len(times), len(lengths))
	}
	if step <= 0 {
		step = minSpacing(times)
	}
	if len(lengths) < delta+1 || step <= 0 {
		return 0, fmt.Errorf("%w: %d points for lag %d", ErrInsufficientData, len(lengths), delta)
	}

	lag := float64(delta) * step
	tol := step * 1e-6
	var (
		sum   float64
		terms int
	)
	for i := range times {
		for j := i + 1; j < len(times); j++ {
			d := times[j] - times[i]
			if d > lag+tol {
				break
			}
			if math.Abs(d-lag) <= tol {
				sum += lengths[j] - lengths[i]
				terms++
			}
		}
	}
	if terms == 0 {
		return 0, fmt.Errorf("%w: no samples %d steps apart", ErrInsufficientData, delta)
	}
	return sum / float64(terms), nil
}

// minSpacing returns the smallest positive gap between consecutive times, or
// zero when there is none.
func minSpacing(times []float64) float64 {
	var gap float64
	for i := 1; i < len(times); i++ {
		if d := times[i] - times[i-1]; d > 0 && (gap == 0 || d < gap) {
			gap = d
		}
	}
	return gap
}

// AbsoluteRate returns the summed absolute change between consecutive
// samples divided by the time between the first and last sample. times must
// be ascending and the same length as lengths.
func AbsoluteRate(times, lengths []float64) (float64, error) {
	if len(times) != len(lengths) {
		return 0, fmt.Errorf("%d times for %d lengths", len(times), len(lengths))
	}
	if len(lengths) < 2 {
		return 0, fmt.Errorf("%w: %d points", ErrInsufficientData, len(lengths))
	}
	duration := times[len(times)-1] - times[0]
	if duration <= 0 {
		return 0, fmt.Errorf("%w: series spans no time", ErrInsufficientData)
	}

	var sum float64
	for i := 1; i < len(lengths); i++ {
		sum += math.Abs(lengths[i] - lengths[i-1])
	}
	return sum / duration, nil
}

// Result is the motility of one spine from one source file.
type Result struct {
	Source   string  `json:"source_file"`
	Spine    string  `json:"spine_name"`
	Points   int     `json:"points"`
	Motility float64 `json:"motility"`
}

// Compute applies method to every series. delta is only used by Lagged,
// where it counts frame steps of the series rather than rows, so missing
// frames are not bridged.
//
// Spines that cannot be computed are left out of the results; the returned
// error joins one ErrInsufficientData per skipped spine, so callers can
// report them and still use the rest.
func Compute(series []Series, delta int, method Method) ([]Result, error) {
	if method == Lagged && delta < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLag, delta)
	}

	results := make([]Result, 0, len(series))
	var skipped []error
	for _, s := range series {
		var (
			v   float64
			err error
		)
		switch method {
		case Lagged:
			v, err = LaggedMotility(s.Times(), s.Lengths(), delta, s.Step)
		case Absolute:
			v, err = AbsoluteRate(s.Times(), s.Lengths())
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
		}
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: spine %q: %w", s.Source, s.Spine, err))
			continue
		}
		results = append(results, Result{
			Source:   s.Source,
			Spine:    s.Spine,
			Points:   len(s.Points),
			Motility: v,
		})
	}
	return results, errors.Join(skipped...)
}
