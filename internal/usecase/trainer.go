package usecase

import (
	"context"
	"fmt"
	"time"

	"PriceLens/internal/domain/models"
	drepo "PriceLens/internal/domain/repository"
	"PriceLens/internal/services/features"
	"PriceLens/internal/services/ml"
	applogger "PriceLens/pkg/logger"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// TrainerConfig is the training half of the shared config.
type TrainerConfig struct {
	Features    []string
	Categorical []string
	Target      string
	TestRatio   float64
	Seed        int64
	Forest      ml.ForestParams
}

// Trainer fits the preprocessor and every model kind on one split and
// persists them under a shared run id.
type Trainer struct {
	loader  *PriceLoader
	store   drepo.ArtifactStore
	pub     drepo.EventPublisher
	metrics drepo.Metrics
	cfg     TrainerConfig
	l       *applogger.Logger
	kinds   []models.ModelKind
	now     func() time.Time
}

func NewTrainer(
	loader *PriceLoader,
	store drepo.ArtifactStore,
	pub drepo.EventPublisher,
	metrics drepo.Metrics,
	cfg TrainerConfig,
	l *applogger.Logger,
) *Trainer {
	if l == nil {
		l = applogger.Nop()
	}
	return &Trainer{
		loader:  loader,
		store:   store,
		pub:     pub,
		metrics: metrics,
		cfg:     cfg,
		l:       l,
		kinds:   models.ModelKinds,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (t *Trainer) Train(ctx context.Context) (*models.TrainingReport, error) {
	start := time.Now()
	table, err := t.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	y, err := features.Target(table, t.cfg.Target)
	if err != nil {
		t.metrics.RecordError("train")
		return nil, err
	}
	spec := features.Spec{Features: t.cfg.Features, Categorical: t.cfg.Categorical}
	frame, err := features.BuildFrame(table, spec)
	if err != nil {
		t.metrics.RecordError("train")
		return nil, fmt.Errorf("build features: %w", err)
	}

	for name, n := range frame.CountMissing() {
		if n > 0 {
			t.l.Debug("feature has missing values",
				applogger.String("feature", name),
				applogger.Int("missing", n),
			)
		}
	}

	keep := features.DropMissingTarget(y)
	dropped := len(y) - len(keep)
	if dropped > 0 {
		t.l.Info("dropped rows with missing target",
			applogger.String("target", t.cfg.Target),
			applogger.Int("dropped", dropped),
		)
	}
	frame = frame.Take(keep)
	y = takeFloats(y, keep)

	trainIdx, testIdx, err := ml.TrainTestSplit(len(y), t.cfg.TestRatio, t.cfg.Seed)
	if err != nil {
		return nil, err
	}
	prep, xTrain, err := ml.FitPreprocessor(frame.Take(trainIdx))
	if err != nil {
		return nil, fmt.Errorf("fit preprocessor: %w", err)
	}
	xTest, err := prep.Transform(frame.Take(testIdx))
	if err != nil {
		return nil, fmt.Errorf("transform test split: %w", err)
	}
	yTrain, yTest := takeFloats(y, trainIdx), takeFloats(y, testIdx)

	runID := uuid.NewString()
	created := t.now()
	header := func(kind string) models.ArtifactHeader {
		return models.ArtifactHeader{
			Format:    models.ArtifactFormat,
			Version:   models.ArtifactVersion,
			Kind:      kind,
			RunID:     runID,
			CreatedAt: created,
			Features:  prep.Columns(),
			Target:    t.cfg.Target,
		}
	}

	report := &models.TrainingReport{
		RunID:         runID,
		CreatedAt:     created,
		Source:        table.Source,
		Target:        t.cfg.Target,
		Features:      prep.Columns(),
		Categorical:   append([]string(nil), prep.CategoricalColumns...),
		Rows:          len(y),
		DroppedRows:   dropped,
		TrainRows:     len(trainIdx),
		TestRows:      len(testIdx),
		Components:    prep.NComponents,
		OutputColumns: prep.OutputColumns(),
	}

	for _, kind := range t.kinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score, model, err := t.fitOne(kind, xTrain, yTrain, xTest, yTest)
		if err != nil {
			t.metrics.RecordError("train")
			return nil, err
		}
		if err := t.store.Save(ctx, kind.ArtifactFile(), header(string(kind)), model); err != nil {
			return nil, fmt.Errorf("save %s: %w", kind, err)
		}
		report.Scores = append(report.Scores, score)
		t.metrics.RecordModelScore(string(kind), score.MSE, score.R2)
	}

	if err := t.store.Save(ctx, models.PreprocessorFile, header(models.ArtifactKindPreprocessor), prep); err != nil {
		return nil, fmt.Errorf("save preprocessor: %w", err)
	}

	report.DurationSeconds = time.Since(start).Seconds()
	if err := t.store.SaveJSON(ctx, models.TrainingReportFile, report); err != nil {
		return nil, fmt.Errorf("save training report: %w", err)
	}
	t.metrics.RecordTrainingDuration(report.DurationSeconds)

	if err := t.pub.PublishTraining(ctx, report); err != nil {
		t.l.Warn("publish training event failed", applogger.String("run_id", runID), applogger.Error(err))
	}

	t.l.Info("training finished",
		applogger.String("run_id", runID),
		applogger.Int("rows", report.Rows),
		applogger.Int("train_rows", report.TrainRows),
		applogger.Int("test_rows", report.TestRows),
		applogger.Int("pca_components", report.Components),
		applogger.Any("scores", report.Scores),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return report, nil
}

func (t *Trainer) fitOne(kind models.ModelKind, xTrain *mat.Dense, yTrain []float64, xTest *mat.Dense, yTest []float64) (models.ModelScore, ml.Regressor, error) {
	model, err := ml.NewRegressor(kind, t.cfg.Forest)
	if err != nil {
		return models.ModelScore{}, nil, err
	}
	start := time.Now()
	if err := model.Fit(xTrain, yTrain); err != nil {
		return models.ModelScore{}, nil, fmt.Errorf("fit %s: %w", kind, err)
	}
	fitSeconds := time.Since(start).Seconds()

	pred, err := model.Predict(xTest)
	if err != nil {
		return models.ModelScore{}, nil, fmt.Errorf("evaluate %s: %w", kind, err)
	}
	r2, defined := ml.R2(yTest, pred)
	score := models.ModelScore{
		Model:      kind,
		MSE:        ml.MSE(yTest, pred),
		RMSE:       ml.RMSE(yTest, pred),
		MAE:        ml.MAE(yTest, pred),
		R2:         r2,
		R2Defined:  defined,
		FitSeconds: fitSeconds,
	}
	t.l.Info("model evaluated",
		applogger.String("model", string(kind)),
		applogger.Float64("mse", score.MSE),
		applogger.Float64("r2", score.R2),
		applogger.Bool("r2_defined", defined),
	)
	return score, model, nil
}

func takeFloats(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
