package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"idcard/internal/audit"
	"idcard/internal/collaborators/applicationapi"
	"idcard/internal/collaborators/authapi"
	"idcard/internal/collaborators/summarypdf"
	"idcard/internal/platform/config"
	"idcard/internal/platform/httpserver"
	"idcard/internal/platform/kafka"
	"idcard/internal/platform/logger"
	"idcard/internal/platform/metrics"
	"idcard/internal/platform/postgres"
	"idcard/internal/platform/redis"
	httptransport "idcard/internal/transport/http"
	"idcard/internal/wizard/engine"
	"idcard/internal/wizard/files"
	"idcard/internal/wizard/handler"
	wizardmetrics "idcard/internal/wizard/metrics"
	"idcard/internal/wizard/service"
	"idcard/internal/wizard/store"
	"idcard/internal/wizard/submission"
	"idcard/internal/wizard/verification"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	policy, err := files.PolicyByName(cfg.Wizard.FilePolicy)
	if err != nil {
		return err
	}
	topology, err := engine.ParseTopology(cfg.Wizard.Topology)
	if err != nil {
		return err
	}

	checks := map[string]httptransport.HealthCheck{}

	var kv store.KV = store.NewInMemory()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		kv = store.NewRedis(redisClient.Client, store.WithTTL(cfg.Redis.KeyTTL))
		checks["redis"] = redisClient.Health
		log.Info("session store: redis")
	} else {
		log.Warn("REDIS_URL not set, sessions are kept in process memory")
	}

	sinks, cleanup, err := auditSinks(ctx, cfg, log, checks)
	defer cleanup()
	if err != nil {
		return err
	}
	publisher := audit.NewPublisher(sinks, audit.WithLogger(log))

	tokens, err := verification.NewTokenService(cfg.Token.SigningKey, cfg.Token.Issuer, cfg.Token.Audience, cfg.Token.TTL)
	if err != nil {
		return err
	}
	authClient := authapi.New(cfg.AuthAPI.BaseURL, cfg.AuthAPI.Timeout)
	gate, err := verification.NewGate(authClient, tokens, cfg.Institution.Domain, verification.WithLogger(log))
	if err != nil {
		return err
	}
	assembler, err := submission.New(summarypdf.New(cfg.Institution.Name), cfg.Institution.Code)
	if err != nil {
		return err
	}

	svc, err := service.New(kv, authClient,
		engine.Deps{
			Gate:         gate,
			Assembler:    assembler,
			Applications: applicationapi.New(cfg.ApplicationAPI.BaseURL, cfg.ApplicationAPI.Timeout, nil),
			NoticeTTL:    cfg.Wizard.NoticeTTL,
		},
		topology, policy,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(wizardmetrics.New()),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:  log,
		Metrics: metrics.New(),
		Checks:  checks,
	}, handler.New(svc, log, handler.WithMaxUploadBytes(cfg.Wizard.MaxUploadBytes)))
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting idcard wizard", "addr", cfg.Addr, "policy", policy.Name, "topology", topology)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return publisher.Run(gctx)
	})
	g.Go(func() error {
		return svc.RunJanitor(gctx, cfg.Wizard.JanitorInterval, cfg.Wizard.SessionIdleTTL)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// auditSinks opens every configured audit destination. cleanup releases them
// and is safe to call on error.
func auditSinks(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httptransport.HealthCheck) ([]audit.Sink, func(), error) {
	var sinks []audit.Sink
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, cleanup, err
	}
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
		pg := audit.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, cleanup, err
		}
		sinks = append(sinks, pg)
		checks["postgres"] = db.PingContext
	}

	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafka.NewClient(ctx, kafka.Config{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.Topic,
			Partitions:        cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		})
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, client.Close)
		sinks = append(sinks, audit.NewKafkaSink(client, cfg.Kafka.Topic))
		checks["kafka"] = client.Ping
	}

	if len(sinks) == 0 {
		log.Warn("no audit store configured, audit events go to the log")
		sinks = append(sinks, audit.NewLogSink(log))
	}
	return sinks, cleanup, nil
}
