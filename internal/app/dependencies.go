package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vladislavdragonenkov/orderworker/internal/cache"
	"github.com/vladislavdragonenkov/orderworker/internal/domain"
	"github.com/vladislavdragonenkov/orderworker/internal/enrichment"
	"github.com/vladislavdragonenkov/orderworker/internal/ledger"
	"github.com/vladislavdragonenkov/orderworker/internal/lock"
	"github.com/vladislavdragonenkov/orderworker/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderworker/internal/metrics"
	"github.com/vladislavdragonenkov/orderworker/internal/pipeline"
	"github.com/vladislavdragonenkov/orderworker/internal/refclient"
	"github.com/vladislavdragonenkov/orderworker/internal/store"
	"github.com/vladislavdragonenkov/orderworker/internal/validator"
)

// Dependencies holds every external-resource handle and fully-wired
// component the worker needs to run. It owns the Redis and Mongo
// connections and is responsible for closing them on shutdown.
type Dependencies struct {
	RedisClient *redis.Client
	MongoClient *mongo.Client

	Cache  domain.Cache
	Lock   domain.Lock
	Store  domain.OrderStore
	Ledger domain.FailureLedger

	Enricher  domain.Enricher
	Validator domain.Validator
	Pipeline  domain.Pipeline

	ProductBreaker  *refclient.CircuitBreaker
	CustomerBreaker *refclient.CircuitBreaker

	Consumer *kafka.Consumer

	Logger *log.Entry
}

// NewDependencies connects to Redis and Mongo and wires the nine components
// into the Order Pipeline and its Kafka consumer. pipelineMetrics is
// optional; a nil value leaves every component's metrics recording disabled.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry, pipelineMetrics *metrics.PipelineMetrics) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.CacheHost, cfg.CachePort),
		Password: cfg.CachePassword,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping cache: %w", err)
	}

	mongoClient, mongoDB, err := store.Connect(ctx, cfg.StoreURI, cfg.StoreDatabase)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("connect store: %w", err)
	}

	orderCache := cache.NewRedisCache(redisClient)
	orderLock := lock.NewRedisLock(redisClient)
	orderStore := store.NewMongoStore(mongoDB)
	failureLedger := ledger.NewRedisLedger(redisClient, ledger.Config{
		MaxRetries: cfg.MaxRetries,
		TTL:        cfg.failureTTL(),
	})

	refclientCfg := refclient.Config{
		RequestTimeout:             cfg.httpClientTimeout(),
		CircuitBreakerWindow:       cfg.CircuitBreakerWindow,
		CircuitBreakerThresholdPct: float64(cfg.CircuitBreakerThresholdPercent),
		CircuitBreakerCooldown:     cfg.circuitBreakerCooldown(),
	}
	productClient := refclient.NewProductClient(cfg.ProductAPIURL, refclientCfg)
	customerClient := refclient.NewCustomerClient(cfg.CustomerAPIURL, refclientCfg)

	enrichmentStage := enrichment.New(orderCache, productClient, customerClient, enrichment.Config{
		ProductTTL:       cfg.cacheTTLProduct(),
		CustomerTTL:      cfg.cacheTTLCustomer(),
		ProductFanoutMax: enrichment.DefaultConfig().ProductFanoutMax,
		Retry:            refclient.DefaultRetryConfig(),
	})

	orderValidator := validator.New()

	orderPipeline := pipeline.New(orderLock, orderStore, enrichmentStage, orderValidator, failureLedger, pipeline.Config{
		LockTTL:              cfg.lockTTL(),
		EnrichmentDeadline:   pipeline.DefaultConfig().EnrichmentDeadline,
		LeaseExtendThreshold: pipeline.DefaultConfig().LeaseExtendThreshold,
	})

	brokers := strings.Split(cfg.BusBootstrapServers, ",")
	consumer, err := kafka.NewConsumer(brokers, cfg.ConsumerGroup, cfg.Topic, orderPipeline, failureLedger, kafka.Config{
		Concurrency: cfg.ConsumerConcurrency,
	})
	if err != nil {
		_ = redisClient.Close()
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	if pipelineMetrics != nil {
		productClient.SetMetrics(pipelineMetrics)
		customerClient.SetMetrics(pipelineMetrics)
		enrichmentStage.SetMetrics(pipelineMetrics)
		orderPipeline.SetMetrics(pipelineMetrics)
		consumer.SetMetrics(pipelineMetrics)
	}

	return &Dependencies{
		RedisClient:     redisClient,
		MongoClient:     mongoClient,
		Cache:           orderCache,
		Lock:            orderLock,
		Store:           orderStore,
		Ledger:          failureLedger,
		Enricher:        enrichmentStage,
		Validator:       orderValidator,
		Pipeline:        orderPipeline,
		ProductBreaker:  productClient.Breaker(),
		CustomerBreaker: customerClient.Breaker(),
		Consumer:        consumer,
		Logger:          logger,
	}, nil
}

// Close releases every external connection. Errors are logged, not
// returned, following a best-effort shutdown convention.
func (d *Dependencies) Close(ctx context.Context) {
	if d.Consumer != nil {
		if err := d.Consumer.Stop(); err != nil {
			d.Logger.WithError(err).Warn("failed to stop kafka consumer")
		}
	}
	if d.MongoClient != nil {
		if err := d.MongoClient.Disconnect(ctx); err != nil {
			d.Logger.WithError(err).Warn("failed to disconnect store")
		}
	}
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close cache client")
		}
	}
}
