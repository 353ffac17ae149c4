package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceLens/internal/domain/models"
	drepo "PriceLens/internal/domain/repository"
	"PriceLens/internal/services/features"
	"PriceLens/pkg/cache"
	applogger "PriceLens/pkg/logger"
)

// PriceLoader reads and cleans the price table, caching it by the source
// fingerprint so an unchanged file is parsed once.
type PriceLoader struct {
	source  drepo.PriceSource
	cache   cache.Service
	ttl     time.Duration
	metrics drepo.Metrics
	l       *applogger.Logger
}

func NewPriceLoader(
	source drepo.PriceSource,
	c cache.Service,
	ttl time.Duration,
	metrics drepo.Metrics,
	l *applogger.Logger,
) *PriceLoader {
	if l == nil {
		l = applogger.Nop()
	}
	return &PriceLoader{source: source, cache: c, ttl: ttl, metrics: metrics, l: l}
}

// SourceName identifies the configured source in reports.
func (p *PriceLoader) SourceName() string { return p.source.Name() }

// Load returns the cleaned price table. A missing source surfaces as
// ErrDataNotFound and nothing partial is returned.
func (p *PriceLoader) Load(ctx context.Context) (*models.PriceTable, error) {
	fp, err := p.source.Fingerprint(ctx)
	if err != nil {
		p.metrics.RecordError("load")
		return nil, fmt.Errorf("load prices: %w", err)
	}
	key := cache.GenerateKeyWithParams("prices", p.source.Name(), cache.HashKey(fp))

	if p.cache != nil {
		cached, err := cache.GetTyped[models.PriceTable](ctx, p.cache, key)
		switch {
		case err == nil:
			p.metrics.RecordCacheLookup(true)
			return &cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			p.metrics.RecordCacheLookup(false)
		default:
			p.l.Warn("price cache read failed", applogger.String("key", key), applogger.Error(err))
			p.metrics.RecordCacheLookup(false)
		}
	}

	start := time.Now()
	raw, err := p.source.Fetch(ctx)
	if err != nil {
		p.metrics.RecordError("load")
		return nil, fmt.Errorf("load prices: %w", err)
	}
	table, stats, err := features.BuildTable(raw, p.source.Name())
	if err != nil {
		p.metrics.RecordError("load")
		return nil, fmt.Errorf("build price table: %w", err)
	}
	table.Fingerprint = fp

	if table.HasColumn(models.ColVolume) && !stats.VolumeParsed && table.Len() > 0 {
		p.l.Warn("no volume value could be parsed, imputed 0", applogger.String("source", p.source.Name()))
	}
	p.l.Info("price table loaded",
		applogger.String("source", p.source.Name()),
		applogger.Int("rows", table.Len()),
		applogger.Int("skipped_rows", stats.SkippedRows),
		applogger.Int("imputed_volumes", stats.ImputedVolumes),
		applogger.Float64("volume_median", stats.VolumeMedian),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	p.metrics.RecordPriceRows(table.Len())

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, table, p.ttl); err != nil {
			p.l.Warn("price cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return table, nil
}
