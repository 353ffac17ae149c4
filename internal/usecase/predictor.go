package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceLens/internal/domain/models"
	drepo "PriceLens/internal/domain/repository"
	"PriceLens/internal/services/ml"
	applogger "PriceLens/pkg/logger"

	"github.com/shopspring/decimal"
)

// ModelFactory returns an empty regressor to decode a persisted model into.
type ModelFactory func(kind models.ModelKind) (ml.Regressor, error)

// Predictor loads artifacts per request and runs one reconciled row
// through the preprocessor and the selected model.
type Predictor struct {
	store      drepo.ArtifactStore
	reconciler *Reconciler
	pub        drepo.EventPublisher
	metrics    drepo.Metrics
	target     string
	newModel   ModelFactory
	l          *applogger.Logger
}

type PredictorOption func(*Predictor)

// WithModelFactory overrides how model decode targets are created.
func WithModelFactory(f ModelFactory) PredictorOption {
	return func(p *Predictor) { p.newModel = f }
}

func NewPredictor(
	store drepo.ArtifactStore,
	reconciler *Reconciler,
	pub drepo.EventPublisher,
	metrics drepo.Metrics,
	target string,
	l *applogger.Logger,
	opts ...PredictorOption,
) *Predictor {
	if l == nil {
		l = applogger.Nop()
	}
	p := &Predictor{
		store:      store,
		reconciler: reconciler,
		pub:        pub,
		metrics:    metrics,
		target:     target,
		l:          l,
		newModel: func(kind models.ModelKind) (ml.Regressor, error) {
			return ml.NewRegressor(kind, ml.ForestParams{})
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict returns a point prediction of the target. A missing model or
// preprocessor file is ErrModelNotFound and no prediction is attempted.
func (p *Predictor) Predict(ctx context.Context, in models.PredictInput) (*models.PredictionResult, error) {
	start := time.Now()
	kind, err := models.ParseModelKind(string(in.Model))
	if err != nil {
		return nil, err
	}
	res, err := p.predict(ctx, kind, in)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, models.ErrModelNotFound) {
			outcome = "not_found"
		}
		p.metrics.RecordError("predict")
	}
	p.metrics.RecordPrediction(string(kind), outcome, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	ev := &models.PredictionEvent{
		Model:     kind,
		RunID:     res.RunID,
		Target:    res.Target,
		Value:     res.Value,
		Inputs:    InputValues(in),
		Timestamp: time.Now().UTC(),
	}
	if err := p.pub.PublishPrediction(ctx, ev); err != nil {
		p.l.Warn("publish prediction event failed", applogger.String("model", string(kind)), applogger.Error(err))
	}
	return res, nil
}

func (p *Predictor) predict(ctx context.Context, kind models.ModelKind, in models.PredictInput) (*models.PredictionResult, error) {
	for _, name := range []string{kind.ArtifactFile(), models.PreprocessorFile} {
		ok, err := p.store.Exists(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", name, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s (run the train command first)", models.ErrModelNotFound, name)
		}
	}

	var prep ml.Preprocessor
	prepHdr, err := p.store.Load(ctx, models.PreprocessorFile, &prep)
	if err != nil {
		return nil, fmt.Errorf("load preprocessor: %w", err)
	}
	model, err := p.newModel(kind)
	if err != nil {
		return nil, err
	}
	modelHdr, err := p.store.Load(ctx, kind.ArtifactFile(), model)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	if modelHdr.RunID != prepHdr.RunID {
		return nil, fmt.Errorf("%w: %s run %q does not match preprocessor run %q",
			models.ErrSchemaMismatch, kind, modelHdr.RunID, prepHdr.RunID)
	}

	expected, usedConfig := p.reconciler.ExpectedColumns(prepHdr, &prep)
	frame, row, err := p.reconciler.Row(in, expected, &prep)
	if err != nil {
		return nil, err
	}
	x, err := prep.Transform(frame)
	if err != nil {
		return nil, fmt.Errorf("transform input: %w", err)
	}
	out, err := model.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", kind, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("predict %s: expected 1 value, got %d", kind, len(out))
	}

	target := prepHdr.Target
	if target == "" {
		target = p.target
	}
	res := &models.PredictionResult{
		Model:      kind,
		RunID:      modelHdr.RunID,
		Target:     target,
		Value:      out[0],
		Formatted:  FormatCurrency(out[0]),
		Row:        row,
		UsedConfig: usedConfig,
	}
	for _, c := range row {
		if c.Defaulted {
			res.Defaulted = append(res.Defaulted, c.Column)
		}
	}
	return res, nil
}

// FormatCurrency renders v as dollars with two decimals.
func FormatCurrency(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Models lists every model kind with its artifact metadata.
func (p *Predictor) Models(ctx context.Context) ([]models.ModelInfo, error) {
	out := make([]models.ModelInfo, 0, len(models.ModelKinds))
	for _, kind := range models.ModelKinds {
		info := models.ModelInfo{Model: kind, File: kind.ArtifactFile()}
		ok, err := p.store.Exists(ctx, info.File)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", info.File, err)
		}
		if ok {
			hdr, err := p.store.Header(ctx, info.File)
			if err != nil {
				p.l.Warn("unreadable model artifact", applogger.String("file", info.File), applogger.Error(err))
			} else {
				info.Available = true
				info.RunID = hdr.RunID
				info.CreatedAt = hdr.CreatedAt
				info.Features = hdr.Features
				info.SizeBytes, _ = p.store.Size(ctx, info.File)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// LastReport returns the report of the most recent training run.
func (p *Predictor) LastReport(ctx context.Context) (*models.TrainingReport, error) {
	var rep models.TrainingReport
	if err := p.store.LoadJSON(ctx, models.TrainingReportFile, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}
