package di

import (
	"context"
	"fmt"
	"time"

	"MandiCast/internal/domain/repository"
	domsvc "MandiCast/internal/domain/service"
	"MandiCast/internal/handler/advice"
	"MandiCast/internal/handler/ops"
	internalrepo "MandiCast/internal/repository"
	"MandiCast/internal/services/bundle"
	"MandiCast/internal/services/explainer"
	"MandiCast/internal/services/overseer"
	"MandiCast/internal/services/predictor"
	"MandiCast/internal/usecase"
	"MandiCast/pkg/cache"
	pkgch "MandiCast/pkg/clickhouse"
	"MandiCast/pkg/config"
	pkgkafka "MandiCast/pkg/kafka"
	applogger "MandiCast/pkg/logger"
	"MandiCast/pkg/metrics"
	"MandiCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	// memory-only error aggregation for /ops/logs; replaced with a
	// Kafka-backed collector when a log topic is configured
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
	})
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the
// idempotent schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePriceHistory creates the price history reader, wrapped in the
// Redis cache when caching is enabled.
func ProvidePriceHistory(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.PriceHistory, error) {
	base := internalrepo.NewCHPriceHistory(chClient)
	base.SetLogger(l)
	if !cfg.Cache.Enabled {
		return base, nil
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Host),
		cache.WithRedisPort(cfg.Cache.Port),
		cache.WithRedisPassword(cfg.Cache.Password),
		cache.WithRedisDB(cfg.Cache.DB),
		cache.WithRedisPrefix("mandicast"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	layered := cache.NewLayeredCache(redisCache)
	cached := internalrepo.NewCachedPriceHistory(base, layered, cfg.Cache.TTL)
	cached.SetLogger(l)
	return cached, nil
}

// ProvideAuditLog creates the append-only audit store.
func ProvideAuditLog(chClient *pkgch.Client) repository.AuditLog {
	return internalrepo.NewCHAuditLog(chClient)
}

// ProvideTracking creates the forecast tracking store.
func ProvideTracking(chClient *pkgch.Client, l *applogger.Logger) repository.ForecastTracking {
	t := internalrepo.NewCHTracking(chClient)
	t.SetLogger(l)
	return t
}

// ProvideAuditPublisher creates the Kafka audit mirror, or nil when
// Kafka is disabled. The overseer tolerates a nil publisher.
func ProvideAuditPublisher(cfg *config.Config) (repository.AuditPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaAuditPublisher(producer, cfg.Kafka.AuditTopic), nil
}

// ProvideKafkaConsumer creates the actuals consumer, or nil when Kafka
// is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
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

// ProvideActualsHandler registers the handler for the actuals topic.
func ProvideActualsHandler(tracking repository.ForecastTracking, m repository.Metrics, cfg *config.Config) *usecase.KafkaActualsHandler {
	return usecase.NewKafkaActualsHandler(cfg.Kafka.ActualsTopic, tracking, m)
}

// ProvideRegistry creates the model bundle registry.
func ProvideRegistry(cfg *config.Config, l *applogger.Logger) *bundle.Registry {
	return bundle.NewRegistry(cfg.Models.Dir, l)
}

// ProvideEngine creates the forecasting engine.
func ProvideEngine(registry *bundle.Registry, m repository.Metrics, l *applogger.Logger) *predictor.Engine {
	return predictor.NewEngine(registry, m, l)
}

// ProvideForecaster exposes the engine as the domain forecaster.
func ProvideForecaster(e *predictor.Engine) domsvc.Forecaster {
	return e
}

// ProvideOverseer creates the recommendation overseer.
func ProvideOverseer(
	cfg *config.Config,
	history repository.PriceHistory,
	tracking repository.ForecastTracking,
	audit repository.AuditLog,
	publisher repository.AuditPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) domsvc.Overseer {
	return overseer.New(cfg.Overseer, history, tracking, audit, publisher, m, l)
}

// ProvideExplainer creates the prose explainer client, or nil when no
// text service is configured.
func ProvideExplainer(cfg *config.Config, l *applogger.Logger) domsvc.Explainer {
	if cfg.Explainer.URL == "" {
		return nil
	}
	return explainer.NewClient(cfg.Explainer.URL, cfg.Explainer.Timeout, l)
}

// ProvideAdvisor creates the advice pipeline use case.
func ProvideAdvisor(
	forecaster domsvc.Forecaster,
	ov domsvc.Overseer,
	ex domsvc.Explainer,
	tracking repository.ForecastTracking,
	l *applogger.Logger,
) *usecase.Advisor {
	return usecase.NewAdvisor(forecaster, ov, ex, tracking, l)
}

// ProvideAdviceHandler creates the farmer-facing HTTP handler.
func ProvideAdviceHandler(l *applogger.Logger, advisor *usecase.Advisor) *advice.Handler {
	return advice.NewHandler(l, advisor)
}

// ProvideOpsHandler creates the operational HTTP handler.
func ProvideOpsHandler(l *applogger.Logger, registry *bundle.Registry, history repository.PriceHistory) *ops.Handler {
	return ops.NewHandler(l, registry, history)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	registry *bundle.Registry,
	advisor *usecase.Advisor,
	adviceHandler *advice.Handler,
	opsHandler *ops.Handler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaActualsHandler,
	chClient *pkgch.Client,
	publisher repository.AuditPublisher,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if kp, ok := publisher.(*internalrepo.KafkaAuditPublisher); ok && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      kp,
		})
	}
	return server.New(cfg, l, registry, advisor, adviceHandler, opsHandler, consumer, kh, chClient, publisher)
}
