package usecase

import (
	"context"
	"fmt"
	"time"

	drepo "PriceLens/internal/domain/repository"
	applogger "PriceLens/pkg/logger"
)

// Ingester copies the cleaned CSV table into the price sink.
type Ingester struct {
	loader *PriceLoader
	sink   drepo.PriceSink
	l      *applogger.Logger
}

func NewIngester(loader *PriceLoader, sink drepo.PriceSink, l *applogger.Logger) *Ingester {
	if l == nil {
		l = applogger.Nop()
	}
	return &Ingester{loader: loader, sink: sink, l: l}
}

// Ingest returns the number of rows written. Re-running it is safe: the
// sink deduplicates on (symbol, date).
func (i *Ingester) Ingest(ctx context.Context) (int, error) {
	start := time.Now()
	if err := i.sink.Init(ctx); err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	table, err := i.loader.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	if err := i.sink.StoreBatch(ctx, table.Records); err != nil {
		return 0, fmt.Errorf("ingest: %w", err)
	}
	i.l.Info("ingest finished",
		applogger.String("source", table.Source),
		applogger.Int("rows", table.Len()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return table.Len(), nil
}
