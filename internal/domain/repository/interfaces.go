package repository

import (
	"context"
	"io"

	"PriceLens/internal/domain/models"
)

// PriceSource yields raw price rows. Fingerprint changes whenever the
// underlying data changes and is used as the cache key.
type PriceSource interface {
	Name() string
	Fingerprint(ctx context.Context) (string, error)
	Fetch(ctx context.Context) (*models.RawPrices, error)
}

// PriceSink stores cleaned price records (ClickHouse ingest).
type PriceSink interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, records []models.PriceRecord) error
	Health(ctx context.Context) error
}

// ArtifactStore persists fitted models and preprocessors with a header.
type ArtifactStore interface {
	Save(ctx context.Context, name string, hdr models.ArtifactHeader, payload interface{}) error
	// Load decodes the artifact into payload, which must be a pointer.
	Load(ctx context.Context, name string, payload interface{}) (models.ArtifactHeader, error)
	// Header reads only the header.
	Header(ctx context.Context, name string) (models.ArtifactHeader, error)
	Exists(ctx context.Context, name string) (bool, error)
	Size(ctx context.Context, name string) (int64, error)
	SaveJSON(ctx context.Context, name string, v interface{}) error
	LoadJSON(ctx context.Context, name string, v interface{}) error
}

// EventPublisher emits prediction and training events.
type EventPublisher interface {
	PublishPrediction(ctx context.Context, ev *models.PredictionEvent) error
	PublishTraining(ctx context.Context, report *models.TrainingReport) error
	io.Closer
}

type Metrics interface {
	RecordPrediction(model, result string, seconds float64)
	RecordModelScore(model string, mse, r2 float64)
	RecordTrainingDuration(seconds float64)
	RecordPriceRows(n int)
	RecordCacheLookup(hit bool)
	RecordError(kind string)
}
