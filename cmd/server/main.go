package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	adminsvc "ringside/internal/admin/service"
	jwttoken "ringside/internal/jwt_token"
	matchsvc "ringside/internal/matchmaking/service"
	"ringside/internal/platform/config"
	"ringside/internal/platform/httpserver"
	"ringside/internal/platform/kafka/producer"
	"ringside/internal/platform/logger"
	"ringside/internal/platform/metrics"
	"ringside/internal/platform/redis"
	rlmetrics "ringside/internal/ratelimit/metrics"
	ratelimit "ringside/internal/ratelimit/middleware"
	"ringside/internal/ratelimit/models"
	"ringside/internal/ratelimit/store/bucket"
	"ringside/internal/scheduler"
	"ringside/internal/settings"
	httptransport "ringside/internal/transport/http"
	audit "ringside/pkg/platform/audit"
	"ringside/pkg/platform/audit/worker"
)

// main wires dependencies and runs the HTTP server, the expiry scheduler, and
// the audit relay until a signal arrives. Business logic lives in internal
// service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)
	auditMetrics := audit.NewMetrics(registry)

	stores, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	auditWriter := audit.NewWriter(stores.audit,
		audit.WithLogger(log),
		audit.WithMetrics(auditMetrics),
	)
	gate := settings.NewGate(stores.settings, log)

	matchmaking := matchsvc.New(stores.matchmaking, stores.roster, gate, auditWriter,
		matchsvc.WithLogger(log),
		matchsvc.WithMetrics(appMetrics),
	)
	admin, err := adminsvc.New(stores.identities, stores.settings, auditWriter,
		adminsvc.WithLogger(log),
	)
	if err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var buckets ratelimit.BucketStore
	schedOpts := []scheduler.Option{scheduler.WithLogger(log)}
	handlerOpts := []httptransport.Option{httptransport.WithLogger(log)}
	for name, check := range stores.health {
		handlerOpts = append(handlerOpts, httptransport.WithHealthCheck(name, check))
	}
	if redisClient != nil {
		defer redisClient.Close()
		schedOpts = append(schedOpts, scheduler.WithLocker(scheduler.NewRedisLocker(redisClient.Client, scheduler.DefaultLeaseKey)))
		handlerOpts = append(handlerOpts, httptransport.WithHealthCheck("redis", redisClient.Health))
		buckets = bucket.NewRedisBucketStore(redisClient.Client)
	} else {
		log.WarnContext(ctx, "no redis configured; every replica runs the expiry sweep")
	}

	var relay *worker.Worker
	if stores.outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		pub, err := producer.New(producer.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		}, log)
		if err != nil {
			return err
		}
		defer pub.Close()

		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = pub.EnsureTopic(topicCtx, 3, 1)
		cancel()
		if err != nil {
			log.WarnContext(ctx, "audit topic bootstrap failed; relying on broker auto-create", "error", err)
		}
		handlerOpts = append(handlerOpts, httptransport.WithHealthCheck("kafka", pub.Ping))
		relay = worker.NewWorker(stores.outbox, pub,
			worker.WithLogger(log),
			worker.WithMetrics(auditMetrics),
			worker.WithInterval(cfg.Kafka.RelayInterval),
			worker.WithBatchSize(cfg.Kafka.RelayBatch),
		)
	} else {
		log.InfoContext(ctx, "audit relay disabled")
	}

	limiter := ratelimit.New(buckets,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(rlmetrics.New(registry)),
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithLimit(models.ClassRedeem, models.Limit{RequestsPerWindow: cfg.RateLimit.Redeem, Window: cfg.RateLimit.Window}),
		ratelimit.WithLimit(models.ClassWrite, models.Limit{RequestsPerWindow: cfg.RateLimit.Write, Window: cfg.RateLimit.Window}),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
	handler := httptransport.NewHandler(matchmaking, admin, handlerOpts...)
	router := httptransport.NewRouter(handler, httptransport.RouterDeps{
		Verifier:  jwttoken.NewIdentityVerifier(jwtService),
		Gatherer:  registry,
		Metrics:   appMetrics,
		Logger:    log,
		RateLimit: limiter,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})
	g.Go(func() error {
		return scheduler.New(matchmaking, cfg.SweepInterval, schedOpts...).Run(gctx)
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	log.InfoContext(ctx, "ringside started", "env", cfg.Env, "addr", cfg.Addr)
	return g.Wait()
}
