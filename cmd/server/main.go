package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"userdir/internal/platform/config"
	"userdir/internal/platform/httpserver"
	"userdir/internal/platform/logger"
	platformmetrics "userdir/internal/platform/metrics"
	"userdir/internal/platform/postgres"
	platformredis "userdir/internal/platform/redis"
	"userdir/internal/records/events"
	"userdir/internal/records/handler"
	recordmetrics "userdir/internal/records/metrics"
	"userdir/internal/records/service"
	"userdir/internal/records/store"
	"userdir/pkg/platform/circuit"
	"userdir/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

type pinger interface {
	Ping(ctx context.Context) error
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := platformmetrics.New(registry)
	recMetrics := recordmetrics.New(registry)

	var (
		backend store.Backend
		opts    = []service.Option{service.WithLogger(log), service.WithMetrics(recMetrics)}
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		if err := store.Migrate(ctx, pool); err != nil {
			return err
		}
		backend = store.NewPostgres(pool)
		opts = append(opts, service.WithTx(newRecordsPostgresTx(pool, cfg.Records.TxTimeout)))
		log.Info("using postgres record store")
	} else {
		backend = store.NewInMemoryStore()
		opts = append(opts, service.WithTx(service.NewLockTx(cfg.Records.TxTimeout)))
		log.Info("using in-memory record store")
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		backend = store.NewRedisCache(backend, redisClient.Client, cfg.Records.CacheTTL, recMetrics)
		log.Info("record cache enabled", "ttl", cfg.Records.CacheTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = publisher.EnsureTopic(ensureCtx, 3, 1)
		cancel()
		if err != nil {
			log.Warn("could not ensure events topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		breaker := circuit.New("kafka",
			circuit.WithFailureThreshold(cfg.Kafka.BreakerThreshold),
			circuit.WithCooldown(cfg.Kafka.BreakerCooldown),
		)
		opts = append(opts, service.WithEventPublisher(events.NewGuardedPublisher(publisher, breaker, log)))
		log.Info("record events enabled", "topic", cfg.Kafka.Topic)
	}

	svc, err := service.New(backend, cfg.Records.MinimumAge, opts...)
	if err != nil {
		return err
	}

	api := newRouter(svc, httpMetrics, log)
	servers := []*http.Server{httpserver.New(cfg.Server.Addr, api)}
	if cfg.Server.OpsAddr == "" {
		mountOps(api, backend, registry)
	} else {
		ops := chi.NewRouter()
		mountOps(ops, backend, registry)
		servers = append(servers, httpserver.New(cfg.Server.OpsAddr, ops))
		log.Info("serving metrics and health separately", "addr", cfg.Server.OpsAddr)
	}
	log.Info("starting userdir", "addr", cfg.Server.Addr, "minimum_age", cfg.Records.MinimumAge)

	return serveAll(ctx, servers, cfg.Server.ShutdownTimeout)
}

// serveAll runs every server until ctx ends or one of them fails. A failure
// shuts the others down and is returned.
func serveAll(ctx context.Context, servers []*http.Server, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			if err := httpserver.Serve(gctx, srv, shutdownTimeout); err != nil {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRouter(svc handler.Service, httpMetrics *platformmetrics.Metrics, log *slog.Logger) chi.Router {
	router := chi.NewRouter()
	handler.New(svc, log, httpMetrics).Register(router)
	return router
}

func mountOps(r chi.Router, health pinger, registry *prometheus.Registry) {
	r.Handle("/metrics", platformmetrics.Handler(registry))
	r.Get("/healthz", healthHandler(health))
}

func healthHandler(p pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
