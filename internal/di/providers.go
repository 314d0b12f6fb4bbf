package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"RatePull/internal/domain/repository"
	"RatePull/internal/handler/api"
	mid "RatePull/internal/middleware"
	internalrepo "RatePull/internal/repository"
	"RatePull/internal/service/crawler"
	"RatePull/internal/services/analytics"
	"RatePull/internal/services/normalize"
	"RatePull/internal/usecase"
	pkgcache "RatePull/pkg/cache"
	"RatePull/pkg/config"
	xhttp "RatePull/pkg/http"
	pkgkafka "RatePull/pkg/kafka"
	applogger "RatePull/pkg/logger"
	"RatePull/pkg/metrics"
	pkgpg "RatePull/pkg/postgres"
	"RatePull/pkg/server"

	"github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideLocation resolves the bucketing timezone.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	return cfg.Location()
}

// ProvidePostgresClient creates a Postgres client.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	client, err := pkgpg.NewClient(
		pkgpg.WithHost(cfg.Postgres.Host),
		pkgpg.WithPort(cfg.Postgres.Port),
		pkgpg.WithDatabase(cfg.Postgres.Database),
		pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
		pkgpg.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
		pkgpg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpg.WithConnectTimeout(cfg.Postgres.ConnectTimeout),
		pkgpg.WithStatementTimeout(cfg.Postgres.StatementTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvideSnapshotStore creates the Postgres snapshot store and ensures
// its schema exists.
func ProvideSnapshotStore(pg *pkgpg.Client, l *applogger.Logger) (repository.SnapshotStore, error) {
	store := internalrepo.NewPGSnapshotStore(pg)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("snapshot schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer when the backend needs one.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
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
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideObservationPublisher creates the Kafka publisher repository.
func ProvideObservationPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ObservationPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
// Only the kafka backend runs one.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideNormalizer creates the observation normalizer.
func ProvideNormalizer(loc *time.Location) *normalize.Normalizer {
	return normalize.New(loc)
}

// ProvideIngestor creates the ingest use case.
func ProvideIngestor(
	norm *normalize.Normalizer,
	store repository.SnapshotStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Ingestor {
	return usecase.NewIngestor(norm, store, m, l)
}

// ProvideObservationProcessor creates the backend router.
func ProvideObservationProcessor(
	ingestor *usecase.Ingestor,
	pub repository.ObservationPublisher,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ObservationProcessor {
	return usecase.NewObservationProcessor(ingestor, pub, m, cfg.Backend.Type)
}

// ProvideKafkaObservationsHandler registers the handler for the observations topic.
func ProvideKafkaObservationsHandler(
	ingestor *usecase.Ingestor,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.Topic, ingestor, m)
}

// ProvideCrawler builds the rate-table crawler from configured sources.
func ProvideCrawler(cfg *config.Config, l *applogger.Logger) repository.Producer {
	sources := make([]crawler.Source, 0, len(cfg.Crawler.Sources))
	for _, s := range cfg.Crawler.Sources {
		sources = append(sources, crawler.Source{Bank: s.Bank, URL: s.URL, Table: s.Table})
	}

	opts := []crawler.Option{}
	if cfg.Crawler.UserAgent != "" {
		opts = append(opts, crawler.WithUserAgent(cfg.Crawler.UserAgent))
	}
	if cfg.Crawler.Concurrency > 0 {
		opts = append(opts, crawler.WithConcurrency(cfg.Crawler.Concurrency))
	}
	if cfg.Crawler.Timeout > 0 {
		opts = append(opts, crawler.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Crawler.Timeout))))
	}
	return crawler.New(sources, l, opts...)
}

// ProvideScheduler creates the hourly acquisition scheduler.
func ProvideScheduler(
	producer repository.Producer,
	proc *usecase.ObservationProcessor,
	m repository.Metrics,
	l *applogger.Logger,
	loc *time.Location,
	cfg *config.Config,
) *usecase.Scheduler {
	// Buffer between acquisition and the backend
	pipe := mid.NewIngestBuffer(proc, m, mid.WithBufferSize(64))

	opts := []usecase.SchedulerOption{usecase.WithBuffer(pipe)}
	if cfg.Scheduler.Interval > 0 {
		opts = append(opts, usecase.WithInterval(cfg.Scheduler.Interval))
	}
	if cfg.Scheduler.RunTimeout > 0 {
		opts = append(opts, usecase.WithRunTimeout(cfg.Scheduler.RunTimeout))
	}
	return usecase.NewScheduler(producer, proc, m, l, loc, opts...)
}

// ProvideAnalyticsEngine creates the analytics engine over the store.
func ProvideAnalyticsEngine(store repository.SnapshotStore, loc *time.Location) *analytics.Engine {
	return analytics.New(store, loc)
}

// ProvideCacheService builds the read-side cache: layered over Redis when
// enabled, plain in-memory otherwise.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, port := splitHostPort(cfg.Cache.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideRateQueries creates the cached read-side use case.
func ProvideRateQueries(
	engine *analytics.Engine,
	cache pkgcache.Service,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.RateQueries {
	return usecase.NewRateQueries(engine, cache, usecase.CacheTTLs{
		Latest:  cfg.Cache.TTL.Latest,
		History: cfg.Cache.TTL.History,
		Daily:   cfg.Cache.TTL.Daily,
	}, l)
}

// ProvideRatesHandler creates the Echo HTTP handler.
func ProvideRatesHandler(
	l *applogger.Logger,
	queries *usecase.RateQueries,
	proc *usecase.ObservationProcessor,
	sched *usecase.Scheduler,
) *api.RatesEchoHandler {
	return api.NewRatesEchoHandler(l, queries, proc, sched)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	sched *usecase.Scheduler,
	proc *usecase.ObservationProcessor,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	pgClient *pkgpg.Client,
	handler *api.RatesEchoHandler,
	m repository.Metrics,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(consumerHooks(m))
	}
	app := server.New(cfg, sched, proc, consumer, kh, pgClient)
	app.SetHTTPHandler(handler)
	return app
}

// consumerHooks builds the lifecycle hook chain for the Kafka consumer:
// trace id propagation from message headers plus handle-latency recording.
func consumerHooks(m repository.Metrics) pkgkafka.ConsumerHook {
	tracing := pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			if id := pkgkafka.ExtractTraceID(km); id != "" {
				ctx = pkgkafka.WithTraceID(ctx, id)
			}
			return ctx, km, data, nil
		},
	}
	timing := pkgkafka.HookFuncs{
		After: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			if start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				m.RecordLatency("consume", time.Since(start).Seconds())
			}
			if err != nil {
				m.RecordError("consume")
			}
		},
	}
	return pkgkafka.NewHookChain(tracing, timing)
}

func splitHostPort(addr string) (string, int) {
	if addr == "" {
		return "localhost", 6379
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		port = 6379
	}
	return host, port
}
