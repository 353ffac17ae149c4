package di

import (
	"context"
	"fmt"
	"time"

	"PriceLens/internal/domain/repository"
	"PriceLens/internal/handler/api"
	"PriceLens/internal/handler/web"
	internalrepo "PriceLens/internal/repository"
	"PriceLens/internal/service/ratelimit"
	"PriceLens/internal/services/features"
	"PriceLens/internal/services/ml"
	"PriceLens/internal/usecase"
	"PriceLens/pkg/cache"
	pkgch "PriceLens/pkg/clickhouse"
	"PriceLens/pkg/config"
	xhttp "PriceLens/pkg/http"
	pkgkafka "PriceLens/pkg/kafka"
	applogger "PriceLens/pkg/logger"
	"PriceLens/pkg/metrics"
	"PriceLens/pkg/server"
)

func noop() {}

// ProvideLogger creates the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		Component: "pricelens",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer returns nil when Kafka is disabled. When enabled it
// also ships the error-log digest to the logs topic.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, noop, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	l.AttachDigest(&applogger.DigestConfig{
		Interval:  cfg.Kafka.LogFlushInterval,
		Threshold: cfg.Kafka.LogFlushCount,
		Topic:     cfg.Kafka.LogsTopic,
		Publisher: producer,
	})
	cleanup := func() {
		l.DetachDigest()
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideEventPublisher publishes to Kafka when a producer exists.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.PredictionsTopic, cfg.Kafka.TrainingTopic)
}

// ProvideClickHouseClient connects and creates the prices table.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

func priceTable(cfg *config.Config) string {
	return cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
}

// ProvidePriceSource picks the configured source. The ClickHouse client is
// only opened for the clickhouse source.
func ProvidePriceSource(cfg *config.Config, l *applogger.Logger) (repository.PriceSource, func(), error) {
	if cfg.Data.Source != "clickhouse" {
		return internalrepo.NewCSVSource(cfg.Data.Path), noop, nil
	}
	client, cleanup, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return internalrepo.NewClickHousePriceStore(client.DB(), priceTable(cfg), cfg.Data.Symbol, l), cleanup, nil
}

// ProvidePriceSink is the ingest target.
func ProvidePriceSink(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.PriceSink {
	return internalrepo.NewClickHousePriceStore(client.DB(), priceTable(cfg), cfg.Data.Symbol, l)
}

// ProvideCache is an in-memory cache, layered over Redis when enabled. A
// Redis that cannot be reached degrades to memory only.
func ProvideCache(cfg *config.Config, l *applogger.Logger) cache.Service {
	mem := cache.NewMemoryCache(
		cache.WithMemoryMaxSize(8),
		cache.WithMemoryDefaultTTL(cfg.Data.CacheTTL),
	)
	if !cfg.Redis.Enabled {
		return mem
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		l.Warn("redis unavailable, using memory cache only", applogger.Error(err))
		return mem
	}
	return cache.NewLayeredCache(mem, rc)
}

// ProvideNoCache is used by the one-shot commands.
func ProvideNoCache() cache.Service { return nil }

func ProvidePriceLoader(
	src repository.PriceSource,
	c cache.Service,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.PriceLoader {
	return usecase.NewPriceLoader(src, c, cfg.Data.CacheTTL, m, l)
}

// ProvideIngestLoader always reads the CSV file, whatever data.source says.
func ProvideIngestLoader(m repository.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.PriceLoader {
	return usecase.NewPriceLoader(internalrepo.NewCSVSource(cfg.Data.Path), nil, 0, m, l)
}

func ProvideArtifactStore(cfg *config.Config) repository.ArtifactStore {
	return internalrepo.NewFileArtifactStore(cfg.Models.Dir)
}

func forestParams(cfg *config.Config) ml.ForestParams {
	p := ml.DefaultForestParams()
	f := cfg.Models.Forest
	p.Trees = f.Trees
	p.MaxDepth = f.MaxDepth
	p.MinSamplesSplit = f.MinSamplesSplit
	p.MinSamplesLeaf = f.MinSamplesLeaf
	p.MaxFeatures = f.MaxFeatures
	p.Workers = f.Workers
	p.Seed = cfg.Models.Seed
	return p
}

func ProvideTrainer(
	loader *usecase.PriceLoader,
	store repository.ArtifactStore,
	pub repository.EventPublisher,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Trainer {
	return usecase.NewTrainer(loader, store, pub, m, usecase.TrainerConfig{
		Features:    cfg.Schema.Features,
		Categorical: cfg.Schema.Categorical,
		Target:      cfg.Schema.Target,
		TestRatio:   cfg.Models.TestRatio,
		Seed:        cfg.Models.Seed,
		Forest:      forestParams(cfg),
	}, l)
}

func ProvideIngester(loader *usecase.PriceLoader, sink repository.PriceSink, l *applogger.Logger) *usecase.Ingester {
	return usecase.NewIngester(loader, sink, l)
}

func ProvideReconciler(cfg *config.Config, l *applogger.Logger) *usecase.Reconciler {
	return usecase.NewReconciler(features.Spec{Features: cfg.Schema.Features, Categorical: cfg.Schema.Categorical}, l)
}

func ProvidePredictor(
	store repository.ArtifactStore,
	rec *usecase.Reconciler,
	pub repository.EventPublisher,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(store, rec, pub, m, cfg.Schema.Target, l)
}

func ProvideExplorer(loader *usecase.PriceLoader) *usecase.Explorer {
	return usecase.NewExplorer(loader)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.PredictLimit.Burst, cfg.Server.PredictLimit.PerSecond)
}

func ProvideDashboardHandler(
	explorer *usecase.Explorer,
	predictor *usecase.Predictor,
	limiter *ratelimit.Limiter,
	cfg *config.Config,
	l *applogger.Logger,
) *api.DashboardHandler {
	return api.NewDashboardHandler(explorer, predictor, limiter, cfg.Schema.Target, l)
}

// ProvideApp creates the dashboard application. The cache is closed after
// the HTTP server stops.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	h *api.DashboardHandler,
	c cache.Service,
	pub repository.EventPublisher,
) (*server.App, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	app := server.New(cfg, l, h, xhttp.WithRenderer(renderer))
	app.OnShutdown("events", pub)
	app.OnShutdown("cache", c)
	return app, nil
}
