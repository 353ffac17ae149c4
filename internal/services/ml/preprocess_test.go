package ml

import (
	"math"
	"testing"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/services/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var defaultColumns = []string{"Open", "High", "Low", "Volume", "year", "month", "day"}

// priceFrame builds a deterministic frame over defaultColumns.
func priceFrame(t *testing.T, n int) *features.Frame {
	t.Helper()
	f := features.NewFrame(n)
	cols := make([][]float64, len(defaultColumns))
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		base := 100 + 10*math.Sin(float64(i)/7)
		cols[0][i] = base
		cols[1][i] = base + 1 + float64(i%3)
		cols[2][i] = base - 1 - float64(i%5)/2
		cols[3][i] = 1e6 + float64((i*7919)%1000)*100
		cols[4][i] = float64(2000 + i/12)
		cols[5][i] = float64(1 + i%12)
		cols[6][i] = float64(1 + (i*3)%28)
	}
	for j, name := range defaultColumns {
		require.NoError(t, f.AddNumeric(name, cols[j]))
	}
	return f
}

func TestPreprocessor_ColumnOrderRoundTrip(t *testing.T) {
	f := priceFrame(t, 40)
	p, X, err := FitPreprocessor(f)
	require.NoError(t, err)

	assert.Equal(t, defaultColumns, p.Columns())
	assert.Equal(t, PreprocessorVersion, p.Version)
	assert.Equal(t, MaxComponents, p.NComponents)
	r, c := X.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, 5, c)
	assert.Equal(t, []string{"pc1", "pc2", "pc3", "pc4", "pc5"}, p.OutputColumns())

	// the returned slice is a copy
	cols := p.Columns()
	cols[0] = "changed"
	assert.Equal(t, "Open", p.Columns()[0])
}

func TestPreprocessor_TransformMatchesFit(t *testing.T) {
	f := priceFrame(t, 30)
	p, X, err := FitPreprocessor(f)
	require.NoError(t, err)

	again, err := p.Transform(f)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, again, 1e-12))

	// projected training data is centered
	for j := 0; j < p.NComponents; j++ {
		col := mat.Col(nil, j, X)
		s := 0.0
		for _, v := range col {
			s += v
		}
		assert.InDelta(t, 0, s/float64(len(col)), 1e-9)
	}
}

func TestPreprocessor_RejectsReorderedColumns(t *testing.T) {
	p, _, err := FitPreprocessor(priceFrame(t, 20))
	require.NoError(t, err)

	g := features.NewFrame(1)
	for _, name := range []string{"High", "Open", "Low", "Volume", "year", "month", "day"} {
		require.NoError(t, g.AddNumeric(name, []float64{1}))
	}
	_, err = p.Transform(g)
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

func TestPreprocessor_MedianImputeAndConstantColumn(t *testing.T) {
	f := features.NewFrame(4)
	require.NoError(t, f.AddNumeric("a", []float64{1, math.NaN(), 3, 5}))
	require.NoError(t, f.AddNumeric("b", []float64{7, 7, 7, 7}))

	p, _, err := FitPreprocessor(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 7}, p.Medians)
	assert.Equal(t, 1.0, p.Scales[1], "zero std falls back to 1")
	assert.Equal(t, 3.0, p.Means[0])
	assert.Equal(t, 2, p.NComponents)
}

func TestPreprocessor_PCAClampedToRows(t *testing.T) {
	p, X, err := FitPreprocessor(priceFrame(t, 3))
	require.NoError(t, err)
	assert.LessOrEqual(t, p.NComponents, 3)
	_, c := X.Dims()
	assert.Equal(t, p.NComponents, c)
}

func TestPreprocessor_Categorical(t *testing.T) {
	f := features.NewFrame(5)
	require.NoError(t, f.AddNumeric("Open", []float64{1, 2, 3, 4, 5}))
	require.NoError(t, f.AddCategorical("Sector", []string{"tech", "", "energy", "tech", "energy"}))

	p, X, err := FitPreprocessor(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"energy", "tech"}, p.Categories[0])
	assert.Equal(t, "energy", p.Modes[0], "ties go to the smallest value")
	assert.Equal(t, []string{"pc1", "Sector=energy", "Sector=tech"}, p.OutputColumns())

	// the missing cell was imputed with the mode
	assert.Equal(t, 1.0, X.At(1, 1))
	assert.Equal(t, 0.0, X.At(1, 2))

	row := features.NewFrame(1)
	require.NoError(t, row.AddNumeric("Open", []float64{3}))
	require.NoError(t, row.AddCategorical("Sector", []string{"retail"}))
	out, err := p.Transform(row)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.At(0, 1))
	assert.Equal(t, 0.0, out.At(0, 2))
}

func TestFitPreprocessor_Empty(t *testing.T) {
	_, _, err := FitPreprocessor(features.NewFrame(0))
	assert.ErrorIs(t, err, models.ErrNotEnoughRows)
}

func TestPreprocessor_UnversionedResolvesByName(t *testing.T) {
	f := priceFrame(t, 25)
	p, X, err := FitPreprocessor(f)
	require.NoError(t, err)

	legacy := *p
	legacy.Version = 0
	legacy.InputColumns = nil

	// reversed order plus a column the preprocessor never saw
	g := features.NewFrame(25)
	for j := len(defaultColumns) - 1; j >= 0; j-- {
		c, _ := f.Column(defaultColumns[j])
		require.NoError(t, g.AddNumeric(c.Name, c.Num))
	}
	require.NoError(t, g.AddNumeric("dayofweek", make([]float64, 25)))

	got, err := legacy.Transform(g)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, got, 1e-12))

	short := features.NewFrame(1)
	require.NoError(t, short.AddNumeric("Open", []float64{1}))
	_, err = legacy.Transform(short)
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}
