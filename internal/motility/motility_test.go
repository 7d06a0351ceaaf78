package motility

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMotility(t *testing.T) {
	tests := []struct {
		name    string
		lengths []float64
		delta   int
		want    float64
		wantErr error
	}{
		{"growth and shrink", []float64{10, 12, 11, 15}, 1, 5.0 / 3, nil},
		{"lag two", []float64{10, 12, 11, 15}, 2, (1.0 + 3.0) / 2, nil},
		{"single term", []float64{10, 12, 11, 15}, 3, 5, nil},
		{"net shrinkage", []float64{8, 6, 4}, 1, -2, nil},
		{"constant", []float64{3, 3, 3, 3}, 1, 0, nil},
		{"too few points", []float64{10, 12}, 2, 0, ErrInsufficientData},
		{"empty", nil, 1, 0, ErrInsufficientData},
		{"zero lag", []float64{1, 2, 3}, 0, 0, ErrInvalidLag},
		{"negative lag", []float64{1, 2, 3}, -1, 0, ErrInvalidLag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Motility(tt.lengths, tt.delta)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMotility_ReportedExample(t *testing.T) {
	got, err := Motility([]float64{10, 12, 11, 15}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.667, got, 1e-3)
}

func TestLaggedMotility(t *testing.T) {
	tests := []struct {
		name    string
		times   []float64
		lengths []float64
		delta   int
		step    float64
		want    float64
		wantErr error
	}{
		{"evenly spaced", []float64{0, 5, 10, 15}, []float64{10, 12, 11, 15}, 1, 5, 5.0 / 3, nil},
		{"evenly spaced lag two", []float64{0, 5, 10, 15}, []float64{10, 12, 11, 15}, 2, 5, 2, nil},
		{"step from times", []float64{0, 5, 10, 15}, []float64{10, 12, 11, 15}, 1, 0, 5.0 / 3, nil},
		{"missing frame", []float64{0, 5, 15}, []float64{10, 12, 20}, 1, 5, 2, nil},
		{"missing frame lag two", []float64{0, 5, 15}, []float64{10, 12, 20}, 2, 5, 8, nil},
		{"missing frame lag three", []float64{0, 5, 15}, []float64{10, 12, 20}, 3, 5, 10, nil},
		{"no pair at lag", []float64{0, 10}, []float64{1, 2}, 1, 5, 0, ErrInsufficientData},
		{"single point", []float64{0}, []float64{1}, 1, 5, 0, ErrInsufficientData},
		{"zero lag", []float64{0, 5}, []float64{1, 2}, 0, 5, 0, ErrInvalidLag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LaggedMotility(tt.times, tt.lengths, tt.delta, tt.step)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestLaggedMotility_MatchesMotilityWhenEven(t *testing.T) {
	lengths := []float64{3, 4.5, 4, 6, 5.5, 7}
	times := []float64{0, 2, 4, 6, 8, 10}
	for delta := 1; delta < len(lengths); delta++ {
		want, err := Motility(lengths, delta)
		require.NoError(t, err)
		got, err := LaggedMotility(times, lengths, delta, 2)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9, "delta %d", delta)
	}
}

func TestAbsoluteRate(t *testing.T) {
	got, err := AbsoluteRate([]float64{0, 5, 10, 15}, []float64{10, 12, 11, 15})
	require.NoError(t, err)
	assert.InDelta(t, (2.0+1+4)/15, got, 1e-9)

	_, err = AbsoluteRate([]float64{0}, []float64{1})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = AbsoluteRate([]float64{5, 5}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = AbsoluteRate([]float64{0, 1}, []float64{1})
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{
		"":         Lagged,
		"lagged":   Lagged,
		" Lag ":    Lagged,
		"absolute": Absolute,
		"ABS":      Absolute,
		"rate":     Absolute,
	} {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMethod("median")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestCompute(t *testing.T) {
	series := []Series{
		{Source: "a.csv", Spine: "s1", Points: []Point{{0, 10}, {5, 12}, {10, 11}, {15, 15}}},
		{Source: "a.csv", Spine: "short", Points: []Point{{0, 10}}},
		{Source: "a.csv", Spine: "s2", Points: []Point{{0, 4}, {5, 2}}},
	}

	results, err := Compute(series, 1, Lagged)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Contains(t, err.Error(), `"short"`)

	require.Len(t, results, 2)
	assert.Equal(t, "s1", results[0].Spine)
	assert.Equal(t, 4, results[0].Points)
	assert.InDelta(t, 5.0/3, results[0].Motility, 1e-9)
	assert.Equal(t, "s2", results[1].Spine)
	assert.InDelta(t, -2, results[1].Motility, 1e-9)

	gapped := []Series{{Source: "b.csv", Spine: "a", Points: []Point{{0, 10}, {5, 12}, {15, 20}}, Step: 5}}
	results, err = Compute(gapped, 1, Lagged)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 2, results[0].Motility, 1e-9, "samples across the missing frame are not paired")

	results, err = Compute(series[:1], 1, Absolute)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 7.0/15, results[0].Motility, 1e-9)
}

func TestCompute_BadArguments(t *testing.T) {
	_, err := Compute(nil, 0, Lagged)
	assert.ErrorIs(t, err, ErrInvalidLag)

	_, err = Compute([]Series{{Spine: "s"}}, 1, Method("median"))
	assert.ErrorIs(t, err, ErrUnknownMethod)

	results, err := Compute(nil, 1, Lagged)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestMethod_AxisLabel(t *testing.T) {
	assert.Contains(t, Lagged.AxisLabel(), "step")
	assert.Contains(t, Absolute.AxisLabel(), "time")
}
