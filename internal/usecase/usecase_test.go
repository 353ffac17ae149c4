package usecase

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/repository"
	"PriceLens/internal/services/features"
	"PriceLens/internal/services/ml"
	"PriceLens/pkg/cache"
	"PriceLens/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	raw     *models.RawPrices
	fetches atomic.Int32
}

func (s *memSource) Name() string { return "mem" }

func (s *memSource) Fingerprint(context.Context) (string, error) {
	return fmt.Sprintf("mem|%d", len(s.raw.Rows)), nil
}

func (s *memSource) Fetch(context.Context) (*models.RawPrices, error) {
	s.fetches.Add(1)
	return s.raw, nil
}

var defaultFeatures = []string{"Open", "High", "Low", "Volume", "year", "month", "day"}

// synthetic builds n trading days where Close tracks Open.
func synthetic(n int, constantClose bool) *models.RawPrices {
	raw := &models.RawPrices{Header: []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}}
	d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		open := 100 + float64(i%17)*1.5 + float64(i)*0.25
		closeV := open + float64(i%5) - 2
		if constantClose {
			closeV = 150
		}
		raw.Rows = append(raw.Rows, []string{
			d.AddDate(0, 0, i).Format("2006-01-02"),
			fmt.Sprintf("%.2f", open),
			fmt.Sprintf("%.2f", open+2),
			fmt.Sprintf("%.2f", open-2),
			fmt.Sprintf("%.2f", closeV),
			fmt.Sprintf("%.2f", closeV-1),
			fmt.Sprintf("%d,000", 1000+i*10),
		})
	}
	return raw
}

func smallForest() ml.ForestParams {
	p := ml.DefaultForestParams()
	p.Trees = 8
	p.Workers = 2
	return p
}

func newTrainer(t *testing.T, src *memSource, dir string) (*Trainer, *repository.FileArtifactStore) {
	t.Helper()
	loader := NewPriceLoader(src, nil, time.Minute, metrics.Nop{}, nil)
	store := repository.NewFileArtifactStore(dir)
	tr := NewTrainer(loader, store, repository.NopPublisher{}, metrics.Nop{}, TrainerConfig{
		Features:  defaultFeatures,
		Target:    models.ColClose,
		TestRatio: 0.2,
		Seed:      42,
		Forest:    smallForest(),
	}, nil)
	return tr, store
}

func TestPriceLoader_MissingFile(t *testing.T) {
	src := repository.NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"))
	loader := NewPriceLoader(src, nil, time.Minute, metrics.Nop{}, nil)
	table, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrDataNotFound)
	assert.Nil(t, table)
}

func TestPriceLoader_VolumeImputation(t *testing.T) {
	src := &memSource{raw: &models.RawPrices{
		Header: []string{"Date", "Close", "Volume"},
		Rows: [][]string{
			{"2024-01-01", "1", "1,234"},
			{"2024-01-02", "2", "n/a"},
			{"2024-01-03", "3", "5,678"},
		},
	}}
	table, err := NewPriceLoader(src, nil, time.Minute, metrics.Nop{}, nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, []float64{1234, 3456, 5678}, []float64{table.Records[0].Volume, table.Records[1].Volume, table.Records[2].Volume})
	assert.Equal(t, 1, table.ImputedVolumes)
	assert.Equal(t, "mem|3", table.Fingerprint)
}

func TestPriceLoader_CacheHit(t *testing.T) {
	src := &memSource{raw: synthetic(5, false)}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	loader := NewPriceLoader(src, mc, time.Minute, metrics.Nop{}, nil)
	ctx := context.Background()

	first, err := loader.Load(ctx)
	require.NoError(t, err)
	second, err := loader.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.fetches.Load())
	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Records[0].Open, second.Records[0].Open)
}

func TestTrainer_PersistsArtifacts(t *testing.T) {
	dir := t.TempDir()
	tr, store := newTrainer(t, &memSource{raw: synthetic(60, false)}, dir)
	ctx := context.Background()

	rep, err := tr.Train(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, rep.Rows)
	assert.Equal(t, 12, rep.TestRows)
	assert.Equal(t, 48, rep.TrainRows)
	assert.Equal(t, defaultFeatures, rep.Features)
	require.Len(t, rep.Scores, 2)
	assert.NotEmpty(t, rep.RunID)

	for _, name := range []string{"LinearRegression.gob", "RandomForest.gob", "preprocessor.gob", "training_report.json"} {
		ok, err := store.Exists(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	hdr, err := store.Header(ctx, models.PreprocessorFile)
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, hdr.RunID)
	assert.Equal(t, defaultFeatures, hdr.Features)
}

func TestTrainer_IdenticalCloseDoesNotRaise(t *testing.T) {
	tr, _ := newTrainer(t, &memSource{raw: synthetic(30, true)}, t.TempDir())
	rep, err := tr.Train(context.Background())
	require.NoError(t, err)
	for _, s := range rep.Scores {
		assert.InDelta(t, 0, s.MSE, 1e-9, s.Model)
		assert.False(t, s.R2Defined, s.Model)
		assert.Equal(t, 0.0, s.R2)
	}
}

func TestTrainer_MissingTarget(t *testing.T) {
	raw := &models.RawPrices{
		Header: []string{"Date", "Open", "High", "Low", "Volume"},
		Rows:   [][]string{{"2024-01-01", "1", "2", "0.5", "10"}, {"2024-01-02", "1", "2", "0.5", "10"}},
	}
	tr, _ := newTrainer(t, &memSource{raw: raw}, t.TempDir())
	_, err := tr.Train(context.Background())
	assert.ErrorIs(t, err, models.ErrTargetMissing)
}

func TestTrainer_DropsMissingTarget(t *testing.T) {
	raw := synthetic(20, false)
	raw.Rows[3][4] = ""
	raw.Rows[7][4] = "nan"
	tr, _ := newTrainer(t, &memSource{raw: raw}, t.TempDir())
	rep, err := tr.Train(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.DroppedRows)
	assert.Equal(t, 18, rep.Rows)
}

func input(kind models.ModelKind) models.PredictInput {
	return models.PredictInput{Model: kind, Open: 110, High: 112, Low: 108, Volume: 1_200_000, Year: 2023, Month: 2, Day: 14}
}

func TestPredictor_MatchesDirectModelCall(t *testing.T) {
	dir := t.TempDir()
	tr, store := newTrainer(t, &memSource{raw: synthetic(60, false)}, dir)
	ctx := context.Background()
	rep, err := tr.Train(ctx)
	require.NoError(t, err)

	p := NewPredictor(store, NewReconciler(features.Spec{Features: defaultFeatures}, nil),
		repository.NopPublisher{}, metrics.Nop{}, models.ColClose, nil)

	for _, kind := range models.ModelKinds {
		res, err := p.Predict(ctx, input(kind))
		require.NoError(t, err)
		assert.Equal(t, rep.RunID, res.RunID)
		assert.Empty(t, res.Defaulted)
		assert.False(t, res.UsedConfig)

		var prep ml.Preprocessor
		_, err = store.Load(ctx, models.PreprocessorFile, &prep)
		require.NoError(t, err)
		model, err := ml.NewRegressor(kind, ml.ForestParams{})
		require.NoError(t, err)
		_, err = store.Load(ctx, kind.ArtifactFile(), model)
		require.NoError(t, err)

		in := input(kind)
		f := features.NewFrame(1)
		require.NoError(t, f.AddNumeric("Open", []float64{in.Open}))
		require.NoError(t, f.AddNumeric("High", []float64{in.High}))
		require.NoError(t, f.AddNumeric("Low", []float64{in.Low}))
		require.NoError(t, f.AddNumeric("Volume", []float64{in.Volume}))
		require.NoError(t, f.AddNumeric("year", []float64{float64(in.Year)}))
		require.NoError(t, f.AddNumeric("month", []float64{float64(in.Month)}))
		require.NoError(t, f.AddNumeric("day", []float64{float64(in.Day)}))
		x, err := prep.Transform(f)
		require.NoError(t, err)
		want, err := model.Predict(x)
		require.NoError(t, err)

		assert.Equal(t, want[0], res.Value, kind)
		assert.Equal(t, FormatCurrency(want[0]), res.Formatted)
	}
}

func TestPredictor_MissingRandomForest(t *testing.T) {
	dir := t.TempDir()
	tr, store := newTrainer(t, &memSource{raw: synthetic(30, false)}, dir)
	ctx := context.Background()
	tr.kinds = []models.ModelKind{models.ModelLinearRegression}
	_, err := tr.Train(ctx)
	require.NoError(t, err)

	var created atomic.Int32
	p := NewPredictor(store, NewReconciler(features.Spec{Features: defaultFeatures}, nil),
		repository.NopPublisher{}, metrics.Nop{}, models.ColClose, nil,
		WithModelFactory(func(kind models.ModelKind) (ml.Regressor, error) {
			created.Add(1)
			return ml.NewRegressor(kind, ml.ForestParams{})
		}))

	res, err := p.Predict(ctx, input(models.ModelRandomForest))
	assert.ErrorIs(t, err, models.ErrModelNotFound)
	assert.Nil(t, res)
	assert.Equal(t, int32(0), created.Load(), "no model may be loaded or invoked")

	_, err = p.Predict(ctx, input(models.ModelLinearRegression))
	require.NoError(t, err)
	assert.Equal(t, int32(1), created.Load())

	infos, err := p.Models(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].Available)
	assert.False(t, infos[1].Available)
}

func TestPredictor_RunMismatch(t *testing.T) {
	dir := t.TempDir()
	tr, store := newTrainer(t, &memSource{raw: synthetic(30, false)}, dir)
	ctx := context.Background()
	_, err := tr.Train(ctx)
	require.NoError(t, err)

	var lr ml.LinearRegression
	hdr, err := store.Load(ctx, "LinearRegression.gob", &lr)
	require.NoError(t, err)
	hdr.RunID = "other-run"
	require.NoError(t, store.Save(ctx, "LinearRegression.gob", hdr, &lr))

	p := NewPredictor(store, NewReconciler(features.Spec{Features: defaultFeatures}, nil),
		repository.NopPublisher{}, metrics.Nop{}, models.ColClose, nil)
	_, err = p.Predict(ctx, input(models.ModelLinearRegression))
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

func TestPredictor_UnversionedPreprocessorUsesConfiguredSchema(t *testing.T) {
	dir := t.TempDir()
	tr, store := newTrainer(t, &memSource{raw: synthetic(60, false)}, dir)
	ctx := context.Background()
	_, err := tr.Train(ctx)
	require.NoError(t, err)

	current := NewPredictor(store, NewReconciler(features.Spec{Features: defaultFeatures}, nil),
		repository.NopPublisher{}, metrics.Nop{}, models.ColClose, nil)
	want, err := current.Predict(ctx, input(models.ModelLinearRegression))
	require.NoError(t, err)

	// rewrite the preprocessor the way older releases stored it
	var prep ml.Preprocessor
	hdr, err := store.Load(ctx, models.PreprocessorFile, &prep)
	require.NoError(t, err)
	hdr.Features = nil
	prep.Version = 0
	prep.InputColumns = nil
	require.NoError(t, store.Save(ctx, models.PreprocessorFile, hdr, &prep))

	configured := []string{"day", "month", "year", "Volume", "Low", "High", "Open"}
	p := NewPredictor(store, NewReconciler(features.Spec{Features: configured}, nil),
		repository.NopPublisher{}, metrics.Nop{}, models.ColClose, nil)
	res, err := p.Predict(ctx, input(models.ModelLinearRegression))
	require.NoError(t, err)
	assert.True(t, res.UsedConfig)
	assert.Empty(t, res.Defaulted)
	assert.InDelta(t, want.Value, res.Value, 1e-9)

	// a fitted column missing from the configured list is still supplied
	p = NewPredictor(store, NewReconciler(features.Spec{Features: []string{"Open"}}, nil),
		repository.NopPublisher{}, metrics.Nop{}, models.ColClose, nil)
	res, err = p.Predict(ctx, input(models.ModelRandomForest))
	require.NoError(t, err)
	assert.True(t, res.UsedConfig)
	assert.Len(t, res.Row, len(defaultFeatures))
}

func TestPredictor_InvalidDateStillPredicts(t *testing.T) {
	dir := t.TempDir()
	loader := NewPriceLoader(&memSource{raw: synthetic(60, false)}, nil, time.Minute, metrics.Nop{}, nil)
	store := repository.NewFileArtifactStore(dir)
	withWeekday := append(append([]string(nil), defaultFeatures...), "dayofweek")
	tr := NewTrainer(loader, store, repository.NopPublisher{}, metrics.Nop{}, TrainerConfig{
		Features:  withWeekday,
		Target:    models.ColClose,
		TestRatio: 0.2,
		Seed:      42,
		Forest:    smallForest(),
	}, nil)
	ctx := context.Background()
	_, err := tr.Train(ctx)
	require.NoError(t, err)

	p := NewPredictor(store, NewReconciler(features.Spec{Features: withWeekday}, nil),
		repository.NopPublisher{}, metrics.Nop{}, models.ColClose, nil)
	for _, kind := range models.ModelKinds {
		in := input(kind)
		in.Month, in.Day = 2, 30
		res, err := p.Predict(ctx, in)
		require.NoError(t, err, kind)
		assert.False(t, math.IsNaN(res.Value))
		assert.Contains(t, res.Formatted, "$")

		last := res.Row[len(res.Row)-1]
		assert.Equal(t, "dayofweek", last.Column)
		assert.Equal(t, 0.0, last.Number)
		assert.False(t, last.Defaulted)
	}
}

func TestInputValues_InvalidDateGivesWeekdayZero(t *testing.T) {
	v := InputValues(models.PredictInput{Year: 2023, Month: 2, Day: 30})
	assert.Equal(t, 0.0, v["dayofweek"])

	// 2024-01-03 is a Wednesday.
	v = InputValues(models.PredictInput{Year: 2024, Month: 1, Day: 3})
	assert.Equal(t, 2.0, v["dayofweek"])
}

func TestReconciler_FallbackAndMatching(t *testing.T) {
	r := NewReconciler(features.Spec{Features: []string{"open", "dayofweek", "Sector"}, Categorical: []string{"Sector"}}, nil)

	cols, used := r.ExpectedColumns(models.ArtifactHeader{}, nil)
	assert.True(t, used)
	assert.Equal(t, []string{"open", "dayofweek", "Sector"}, cols)

	cols, used = r.ExpectedColumns(models.ArtifactHeader{Version: 1, Features: []string{"Open"}}, nil)
	assert.False(t, used)
	assert.Equal(t, []string{"Open"}, cols)

	in := models.PredictInput{Open: 5, Year: 2023, Month: 2, Day: 30}
	frame, row, err := r.Row(in, []string{"open", "dayofweek", "Sector", "Mystery"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "dayofweek", "Sector", "Mystery"}, frame.Columns())

	assert.Equal(t, 5.0, row[0].Number)
	assert.False(t, row[0].Defaulted)
	assert.Equal(t, 0.0, row[1].Number)
	assert.False(t, row[1].Defaulted)
	assert.True(t, row[2].IsText)
	assert.True(t, row[2].Defaulted)
	assert.True(t, row[3].Defaulted)
	assert.Equal(t, 0.0, row[3].Number)

	in.Extra = map[string]string{"sector": "tech"}
	_, row, err = r.Row(in, []string{"Sector"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "tech", row[0].Text)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$123.46", FormatCurrency(123.456))
	assert.Equal(t, "$0.00", FormatCurrency(0))
	assert.Equal(t, "-$1.50", FormatCurrency(-1.5))
}

func TestExplorer(t *testing.T) {
	src := &memSource{raw: synthetic(10, false)}
	e := NewExplorer(NewPriceLoader(src, nil, time.Minute, metrics.Nop{}, nil))
	ctx := context.Background()

	pts, err := e.Prices(ctx, PriceFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, 2023, pts[2].Date.Year())
	assert.True(t, pts[0].Date.Before(pts[2].Date))

	from := time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC)
	pts, err = e.Prices(ctx, PriceFilter{From: from})
	require.NoError(t, err)
	assert.Len(t, pts, 8)

	_, err = e.Prices(ctx, PriceFilter{From: from, To: from.AddDate(0, 0, -1)})
	assert.Error(t, err)

	summary, err := e.Summary(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, summary)
	assert.Equal(t, "Open", summary[0].Column)
	assert.Equal(t, 10, summary[0].Count)
	assert.LessOrEqual(t, summary[0].Min, summary[0].P25)
	assert.LessOrEqual(t, summary[0].P75, summary[0].Max)

	corr, err := e.Correlation(ctx)
	require.NoError(t, err)
	n := len(corr.Columns)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.False(t, math.IsNaN(corr.Values[i][j]))
			assert.Equal(t, corr.Values[i][j], corr.Values[j][i])
		}
	}
	iOpen := 0
	iHigh := 1
	assert.InDelta(t, 1.0, corr.Values[iOpen][iHigh], 1e-9)

	ov, err := e.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, ov.Rows)
	assert.True(t, ov.First.Before(ov.Last))
}

func TestDescribeQuantiles(t *testing.T) {
	s := describe("x", []float64{4, 1, math.NaN(), 3, 2})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 1.75, s.P25)
	assert.Equal(t, 2.5, s.P50)
	assert.Equal(t, 3.25, s.P75)
	assert.InDelta(t, 1.2909944, s.Std, 1e-6)
}
