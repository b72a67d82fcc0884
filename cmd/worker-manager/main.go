// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	awsclient "match-workers/internal/common/aws"
	"match-workers/internal/common/camunda"
	"match-workers/internal/common/config"
	"match-workers/internal/common/database"
	"match-workers/internal/common/logger"
	"match-workers/internal/common/observability"
	"match-workers/internal/discovery"
	"match-workers/internal/matching"
	"match-workers/internal/notify"
	"match-workers/internal/service"
	"match-workers/internal/store"

	em "match-workers/internal/workers/match/expire-matches"
	rd "match-workers/internal/workers/match/request-disclosure"
	ra "match-workers/internal/workers/match/rescore-assignment"
	sm "match-workers/internal/workers/match/score-match"
	tl "match-workers/internal/workers/match/transition-lifecycle"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs, err := observability.New(cfg.Observability.ServiceName,
		observability.WithSampleRatio(cfg.Observability.TraceSampleRatio))
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Zeebe ---
	var zb *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zb, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	repo := store.NewCachedRepository(
		store.NewPostgresRepository(pg.DB),
		rdb.Client,
		cfg.Matching.CacheTTL(),
		log,
	)

	serviceOpts := []service.Option{service.WithTracer(obs.Tracer())}

	// --- Discovery index (optional) ---
	if cfg.Discovery.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		index := discovery.NewIndex(es, cfg.Discovery.Index, log)
		if err := index.EnsureMapping(ctx); err != nil {
			zapLog.Fatal("discovery index mapping failed", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, service.WithIndexer(index))
		zapLog.Info("Discovery index ready", zap.String("index", index.Name()))
	}

	// --- Strong-match notifications (optional) ---
	if cfg.Notifications.Enabled {
		snsClient, err := awsclient.NewSNSClient(ctx, cfg.Notifications)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		notifier := notify.NewStrongMatchNotifier(snsClient, cfg.Notifications.StrongMatchTopicARN, log)
		serviceOpts = append(serviceOpts, service.WithNotifier(notifier))
		zapLog.Info("Strong-match notifications enabled")
	}

	engine := matching.NewEngine(matching.ConfigFrom(cfg.Matching), time.Now)

	svc := service.New(repo, engine, service.Options{
		TransitionRetries: cfg.Matching.TransitionRetries,
		BatchConcurrency:  cfg.Matching.BatchConcurrency,
		ExpireBatchSize:   cfg.Matching.ExpireBatchSize,
	}, log, serviceOpts...)

	// --- Workers ---
	var jobWorkers []worker.JobWorker
	register := func(taskType string, build func() (camunda.JobHandler, error)) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		h, err := build()
		if err != nil {
			zapLog.Fatal("failed to create handler", zap.String("taskType", taskType), zap.Error(err))
		}
		jw := camunda.Register(zb.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType),
			camunda.Instrument(taskType, obs, h), log)
		jobWorkers = append(jobWorkers, jw)
	}

	register(sm.TaskType, func() (camunda.JobHandler, error) {
		return sm.NewHandler(sm.ConfigFrom(cfg), svc, log)
	})
	register(tl.TaskType, func() (camunda.JobHandler, error) {
		return tl.NewHandler(tl.ConfigFrom(cfg), svc, log)
	})
	register(rd.TaskType, func() (camunda.JobHandler, error) {
		return rd.NewHandler(rd.ConfigFrom(cfg), svc, log)
	})
	register(em.TaskType, func() (camunda.JobHandler, error) {
		return em.NewHandler(em.ConfigFrom(cfg), svc, log)
	})
	register(ra.TaskType, func() (camunda.JobHandler, error) {
		return ra.NewHandler(ra.ConfigFrom(cfg), svc, log)
	})
	zapLog.Info("Match workers registered", zap.Int("count", len(jobWorkers)))

	// --- Health & Metrics Server ---
	server := &http.Server{Addr: cfg.App.HTTPAddress, Handler: healthMux(zb.GetClient(), pg, rdb)}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	for _, jw := range jobWorkers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}
	if err := zb.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// healthMux serves liveness, readiness and prometheus metrics. Readiness fails while
// any backing store is unreachable.
func healthMux(zb zbc.Client, pg *database.PostgresClient, rdb *database.RedisClient) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		probe := func(name string, fn func(context.Context) error) {
			if err := fn(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				return
			}
			checks[name] = "ok"
		}
		probe("postgres", pg.Ping)
		probe("redis", rdb.Ping)
		probe("zeebe", func(ctx context.Context) error {
			_, err := zb.NewTopologyCommand().Send(ctx)
			return err
		})

		writeStatus(w, status, map[string]interface{}{
			"status": map[bool]string{true: "ready", false: "not_ready"}[status == http.StatusOK],
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	return mux
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
