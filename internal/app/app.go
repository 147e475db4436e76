package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/orderworker/internal/health"
	"github.com/vladislavdragonenkov/orderworker/internal/metrics"
	"github.com/vladislavdragonenkov/orderworker/internal/version"
)

// Run wires the Order Pipeline and its Kafka consumer over Config, starts
// the metrics/health HTTP server, and blocks until ctx is cancelled. Errors
// from the running consumer are logged by it and do not end Run.
func Run(ctx context.Context, cfg Config) error {
	log.SetLevel(parseLogLevel(cfg.LogLevel))
	logger := log.WithField("component", "app")

	pipelineMetrics := metrics.NewPipelineMetrics()

	deps, err := NewDependencies(ctx, cfg, logger, pipelineMetrics)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("cache", healthcheck.NewSimpleChecker("cache", func() error {
		return deps.RedisClient.Ping(ctx).Err()
	}))
	healthHandler.RegisterChecker("store", healthcheck.NewSimpleChecker("store", func() error {
		return deps.MongoClient.Ping(ctx, nil)
	}))
	healthHandler.RegisterAdvisoryChecker("product_api", healthcheck.NewBreakerChecker(deps.ProductBreaker))
	healthHandler.RegisterAdvisoryChecker("customer_api", healthcheck.NewBreakerChecker(deps.CustomerBreaker))

	httpSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	if err := deps.Consumer.Start(ctx); err != nil {
		shutdownHTTP(httpSrv, logger)
		return err
	}

	logger.WithFields(log.Fields{
		"topic":          cfg.Topic,
		"consumer_group": cfg.ConsumerGroup,
		"metrics_addr":   cfg.MetricsAddr,
	}).Info("order worker started")

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping order worker")
	shutdownHTTP(httpSrv, logger)

	return ctx.Err()
}

func parseLogLevel(level string) log.Level {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}

// startMetricsServer serves Prometheus metrics plus liveness/readiness
// probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP gracefully stops the metrics/health HTTP server.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
