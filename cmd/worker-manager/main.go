// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"iluma-intelligence/internal/common/aws"
	"iluma-intelligence/internal/common/camunda"
	"iluma-intelligence/internal/common/config"
	"iluma-intelligence/internal/common/database"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/common/metrics"
	"iluma-intelligence/internal/common/observability"
	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/intelligence/cache"
	"iluma-intelligence/internal/repository"
	"iluma-intelligence/pkg/registry"

	bsr "iluma-intelligence/internal/workers/intelligence/build-stats-report"
	cb "iluma-intelligence/internal/workers/intelligence/cluster-businesses"
	mb "iluma-intelligence/internal/workers/intelligence/match-businesses"
	notify "iluma-intelligence/internal/workers/intelligence/notify-opportunities"
	sb "iluma-intelligence/internal/workers/intelligence/score-business"
)

const httpAddr = ":8080"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.Observability.JaegerEndpoint); err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.NewClient(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, retryLogger(zapLog, "Zeebe client initialization"))
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres open failed", zap.Error(err))
	}
	defer pg.Close()
	if err := camunda.RetryWithBackoff(ctx, camunda.DefaultRetryConfig, pg.Ping, retryLogger(zapLog, "PostgreSQL connection")); err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")
	if cfg.Database.Postgres.Migrate {
		if err := pg.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres schema failed", zap.Error(err))
		}
	}

	// --- Init Redis when a cache needs it ---
	var rdb *database.CacheRedis
	if needsRedis(cfg) {
		rdb, err = database.NewCacheRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis client failed", zap.Error(err))
		}
		defer rdb.Close()
		if err := camunda.RetryWithBackoff(ctx, camunda.DefaultRetryConfig, rdb.Ping, retryLogger(zapLog, "Redis connection")); err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
	}

	// --- Intelligence engine ---
	engineCfg, err := cfg.Intelligence.EngineConfig()
	if err != nil {
		zapLog.Fatal("invalid intelligence configuration", zap.Error(err))
	}
	opts := []intelligence.Option{
		intelligence.WithLogger(log),
		intelligence.WithRecorder(metrics.NewEngineRecorder(prometheus.DefaultRegisterer)),
		intelligence.WithTracer(obs.Tracer()),
	}
	if c := resultCache(cfg, rdb); c != nil {
		opts = append(opts, intelligence.WithCache(c))
	}
	engine, err := intelligence.NewEngine(engineCfg, opts...)
	if err != nil {
		zapLog.Fatal("engine construction failed", zap.Error(err))
	}

	// --- Repositories ---
	var snapshots repository.SnapshotStore = repository.NewPostgresSnapshotStore(pg.DB)
	if cfg.Sources.SnapshotCacheSeconds > 0 {
		ttl := time.Duration(cfg.Sources.SnapshotCacheSeconds) * time.Second
		snapshots = repository.NewCachedSnapshotStore(snapshots, rdb.Client, ttl, log)
	}

	source, err := profileSource(ctx, cfg, pg, log, zapLog)
	if err != nil {
		zapLog.Fatal("profile source failed", zap.Error(err))
	}
	loader := repository.NewPopulationLoader(source, snapshots, engine).WithObserver(obs, cfg.Sources.Profiles)

	catalog, err := registry.Default()
	if err != nil {
		zapLog.Fatal("activity catalog failed", zap.Error(err))
	}

	// --- Register Workers ---
	workers := camunda.NewWorkers(zeebe.GetClient(), obs, zapLog).WithValidator(catalog)

	if wcfg := config.GetWorkerConfig(cfg, sb.TaskType); wcfg.Enabled {
		c := sb.LoadConfig()
		c.Timeout = config.GetDuration(wcfg.Timeout)
		handler := sb.NewHandler(c, engine, snapshots, log)
		workers.Start(sb.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, mb.TaskType); wcfg.Enabled {
		c := mb.LoadConfig()
		c.Timeout = config.GetDuration(wcfg.Timeout)
		handler := mb.NewHandler(c, engine, loader, log)
		workers.Start(mb.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, cb.TaskType); wcfg.Enabled {
		c := cb.LoadConfig()
		c.Timeout = config.GetDuration(wcfg.Timeout)
		handler := cb.NewHandler(c, engine, loader, log)
		workers.Start(cb.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, bsr.TaskType); wcfg.Enabled {
		c := bsr.LoadConfig()
		c.Timeout = config.GetDuration(wcfg.Timeout)
		handler := bsr.NewHandler(c, engine, loader, log)
		workers.Start(bsr.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, notify.TaskType); wcfg.Enabled {
		c := notify.LoadConfig()
		c.Timeout = config.GetDuration(wcfg.Timeout)
		c.Enabled = cfg.Notifications.Enabled
		c.TopicARN = cfg.Notifications.TopicARN
		c.FromEmail = cfg.Notifications.FromEmail
		c.Recipients = cfg.Notifications.Recipients

		var sesClient aws.SESService
		var snsClient aws.SNSService
		if c.Enabled {
			if c.FromEmail != "" {
				s, err := aws.NewSESClient(ctx, cfg.Notifications.AWSRegion)
				if err != nil {
					zapLog.Fatal("SES client failed", zap.Error(err))
				}
				sesClient = s
			}
			if c.TopicARN != "" {
				s, err := aws.NewSNSClient(ctx, cfg.Notifications.AWSRegion)
				if err != nil {
					zapLog.Fatal("SNS client failed", zap.Error(err))
				}
				snsClient = s
			}
		}
		handler := notify.NewHandler(c, engine, loader, sesClient, snsClient, log)
		workers.Start(notify.TaskType, wcfg, handler.Handle)
	}
	zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.TaskTypes()))

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              httpAddr,
		Handler:           newMux(zeebe, pg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", httpAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func retryLogger(log *zap.Logger, operationName string) func(int, error, time.Duration) {
	return func(attempt int, err error, next time.Duration) {
		log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("nextRetryIn", next),
		)
	}
}

func needsRedis(cfg *config.Config) bool {
	cacheOnRedis := cfg.Intelligence.Cache.Enabled && cfg.Intelligence.Cache.Backend == config.CacheBackendRedis
	return cacheOnRedis || cfg.Sources.SnapshotCacheSeconds > 0
}

func resultCache(cfg *config.Config, rdb *database.CacheRedis) cache.Cache {
	cc := cfg.Intelligence.Cache
	if !cc.Enabled {
		return nil
	}
	if cc.Backend == config.CacheBackendRedis {
		return cache.NewRedisCache(rdb.Client, cache.WithTTL(cc.TTL()), cache.WithPrefix(rdb.Namespace("intelligence")))
	}
	return cache.NewShardedCache(cc.Shards, cc.TTL())
}

func profileSource(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, log logger.Logger, zapLog *zap.Logger) (repository.ProfileSource, error) {
	switch cfg.Sources.Profiles {
	case config.SourceElasticsearch:
		es, err := database.NewProfileIndex(cfg.Database.Elasticsearch, cfg.Sources.Index)
		if err != nil {
			return nil, err
		}
		if err := camunda.RetryWithBackoff(ctx, camunda.DefaultRetryConfig, es.CheckIndex, retryLogger(zapLog, "Elasticsearch profile index")); err != nil {
			return nil, err
		}
		zapLog.Info("Elasticsearch profile index available", zap.String("index", es.Index))
		return repository.NewElasticsearchProfileSource(es.Client, es.Index), nil
	case config.SourceFile:
		return repository.NewFileProfileSource(cfg.Sources.File, log), nil
	default:
		return repository.NewPostgresProfileSource(pg.DB), nil
	}
}

func newMux(zeebe *camunda.Client, pg *database.PostgresClient) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		checks := map[string]string{"zeebe": "ok", "postgres": "ok"}
		status, code := "ready", http.StatusOK
		if err := zeebe.HealthCheck(ctx); err != nil {
			checks["zeebe"] = err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		if err := pg.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		writeStatus(w, code, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	_ = json.NewEncoder(w).Encode(body)
}
