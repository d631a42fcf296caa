package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/domain/repository"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/handler/api"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/handler/ws"
	mid "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/middleware"
	icache "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/service/cache"
	internalrepo "github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/repository"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/internal/usecase"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/cache"
	pkgch "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/clickhouse"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/config"
	xhttp "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/http"
	pkgkafka "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/kafka"
	applogger "github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/logger"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/metrics"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/queue"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/server"

	"github.com/redis/go-redis/v9"
	segkafka "github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
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
	return client, nil
}

// ProvideSignalStore creates the ClickHouse signal store and runs its schema.
func ProvideSignalStore(chClient *pkgch.Client, l *applogger.Logger) (repository.SignalStore, error) {
	store := internalrepo.NewCHSignalStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("signal store schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideResultPublisher creates the Kafka publisher for scored signals.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideCache builds the configured cache backend, or nil when disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	newRedis := func() (*cache.RedisCache, error) {
		host, port := splitAddr(cfg.Cache.Redis.Addr)
		return cache.NewRedisCache(
			cache.WithRedisHost(host),
			cache.WithRedisPort(port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
	}

	switch cfg.Cache.Backend {
	case "redis":
		return newRedis()
	case "layered":
		rc, err := newRedis()
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(rc), nil
	default:
		return cache.NewMemoryCache(), nil
	}
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideRetryQueue creates the Redis-backed delivery retry queue, or nil
// when no Redis address is configured.
func ProvideRetryQueue(cfg *config.Config, l *applogger.Logger) *queue.RedisQueue {
	if cfg.Cache.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    2,
		RetryLimit: 5,
		RetryDelay: 5 * time.Second,
	}, client, queue.ModeProducerConsumer)
}

// ProvideResultRouter routes scored results to the configured backend.
func ProvideResultRouter(
	pub repository.ResultPublisher,
	store repository.SignalStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ResultRouter {
	return usecase.NewResultRouter(pub, store, m, cfg.Backend.Type)
}

// ProvideTickProcessor creates the per-symbol scoring pipeline.
func ProvideTickProcessor(
	cfg *config.Config,
	router *usecase.ResultRouter,
	m repository.Metrics,
	c cache.Service,
	l *applogger.Logger,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(usecase.TickProcessorConfig{
		TapeWindow:    cfg.Engine.TapeWindow,
		PriceHistory:  cfg.Engine.PriceHistory,
		LatencyBudget: cfg.Engine.LatencyBudget,
		PriorDecay:    cfg.Engine.PriorDecay,
		Weights:       cfg.Engine.InitialWeights,
		CacheTTL:      cfg.Cache.TTL,
	}, router, m, c, l)
}

// ProvidePipeline wraps the processor with validation, throttling and buffering.
func ProvidePipeline(proc *usecase.TickProcessor, m repository.Metrics) *mid.RealtimePipeline {
	return mid.NewRealtimePipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
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

// ProvideKafkaTicksHandler consumes raw market prints.
func ProvideKafkaTicksHandler(pipe *mid.RealtimePipeline, m repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.TicksTopic, pipe, m)
}

// ProvideOutcomeUseCase records realized outcomes into the tracker and store.
func ProvideOutcomeUseCase(
	proc *usecase.TickProcessor,
	store repository.SignalStore,
	m repository.Metrics,
) *usecase.OutcomeUseCase {
	return usecase.NewOutcomeUseCase(proc, store, m)
}

// ProvideKafkaOutcomesHandler consumes realized signal outcomes.
func ProvideKafkaOutcomesHandler(outcomes *usecase.OutcomeUseCase, m repository.Metrics, cfg *config.Config) *usecase.KafkaOutcomesHandler {
	return usecase.NewKafkaOutcomesHandler(cfg.Kafka.OutcomesTopic, outcomes, m)
}

// ProvideSignalAggregator serves API reads.
func ProvideSignalAggregator(proc *usecase.TickProcessor, store repository.SignalStore) *usecase.SignalAggregator {
	return usecase.NewSignalAggregator(proc, store)
}

// ProvideSnapshotUseCase consolidates the per-symbol view.
func ProvideSnapshotUseCase(agg *usecase.SignalAggregator) *usecase.SnapshotUseCase {
	return usecase.NewSnapshotUseCase(agg)
}

// ProvideHistoryUseCase reads stored signals.
func ProvideHistoryUseCase(store repository.SignalStore) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(store)
}

// ProvideHub creates the websocket fan-out hub.
func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

// ProvideHTTPHandler assembles the REST and websocket route surface.
// The signals handler gets a response byte cache: Redis when an address
// is configured so replicas share it, in-process TTL otherwise.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	agg *usecase.SignalAggregator,
	snapshot *usecase.SnapshotUseCase,
	history *usecase.HistoryUseCase,
	outcomes *usecase.OutcomeUseCase,
	hub *ws.Hub,
) xhttp.Handler {
	signals := api.NewSignalsEchoHandler(l, agg, snapshot, history, outcomes)
	if cfg.Cache.Redis.Addr != "" {
		signals.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}))
	} else {
		signals.SetCache(icache.NewTTLCache())
	}
	return xhttp.Handlers{signals, hub}
}

// ProvideApp creates the application server.
// logPublisher lets the log collector flush aggregated entries through
// the shared Kafka producer.
type logPublisher struct {
	p *pkgkafka.Producer
}

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// consumeHook times every consumed message and counts handler failures.
// The trace id from the producer, when present, rides along in the context
// for handlers that log it.
func consumeHook(m repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km segkafka.Message, data []byte) (context.Context, segkafka.Message, []byte, error) {
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
			return pkgkafka.WithStartTime(ctx, time.Now()), km, data, nil
		},
		After: func(ctx context.Context, _ string, _ segkafka.Message, _ []byte, _ error) {
			if start, ok := pkgkafka.StartTime(ctx); ok {
				m.RecordLatency("kafka_consume", time.Since(start).Seconds())
			}
		},
		Err: func(_ context.Context, _ string, _ segkafka.Message, _ []byte, _ error) {
			m.RecordError("kafka_consume")
		},
	}
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
	producer *pkgkafka.Producer,
	pipe *mid.RealtimePipeline,
	consumer *pkgkafka.Consumer,
	ticks *usecase.KafkaTicksHandler,
	outcomes *usecase.KafkaOutcomesHandler,
	router *usecase.ResultRouter,
	retryQueue *queue.RedisQueue,
	hub *ws.Hub,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(consumeHook(m))
		consumer.RegisterHandler(ticks)
		consumer.RegisterHandler(outcomes)
	}
	if cfg.Kafka.LogsTopic != "" && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      logPublisher{p: producer},
		})
	}
	router.SetBroadcaster(hub)
	if retryQueue != nil {
		retryQueue.RegisterJob(usecase.NewRouteRetryJob(router))
		router.SetRetryQueue(retryQueue)
	}
	return server.New(cfg, l, pipe, consumer, router, retryQueue, hub, chClient, httpHandler)
}
