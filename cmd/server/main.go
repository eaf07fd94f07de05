package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	httpapi "auditkit/internal/http"
	"auditkit/internal/inventory"
	"auditkit/internal/platform/config"
	"auditkit/internal/platform/httpserver"
	"auditkit/internal/platform/logger"
	"auditkit/internal/platform/metrics"
	"auditkit/pkg/entityaudit/intercept"
	"auditkit/pkg/entityaudit/registry"
	"auditkit/pkg/platform/audit/consumer"
)

// main wires dependencies and keeps the process lifecycle small. Audit
// metadata is validated before anything starts serving.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	if err := inventory.RegisterModels(registry.Default); err != nil {
		return err
	}
	if err := registry.Validate(cfg.Scope); err != nil {
		var cerr *registry.ConfigurationError
		if errors.As(err, &cerr) {
			log.Error("audit metadata invalid", "type", registry.TypeName(cerr.Type), "reason", cerr.Reason)
		}
		return err
	}
	log.Info("audit metadata validated", "scope", cfg.Scope, "types", len(registry.Default.Validated()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.DefaultRegisterer
	sinks, err := openSinks(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	policies := intercept.NewPolicies()
	if err := inventory.RegisterPolicies(policies); err != nil {
		return err
	}
	ic := intercept.New(sinks.publisher,
		intercept.WithLogger(log),
		intercept.WithMetrics(intercept.NewMetrics(reg)),
		intercept.WithPolicies(policies),
	)

	m := metrics.New(reg)
	svc := inventory.NewService(ic, log, m)
	router := httpapi.NewRouter(httpapi.Config{
		Events:  sinks.store,
		Metrics: m,
		Health:  sinks.Health,
	}, inventory.NewHandler(svc, log))
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting auditkit", "addr", cfg.Addr)
		return httpserver.Serve(gctx, srv, cfg.ShutdownTimeout)
	})
	if cfg.Kafka.Group != "" && len(cfg.Kafka.Brokers) > 0 {
		client, err := consumer.NewClient(cfg.Kafka.Brokers, cfg.Kafka.Group, []string{cfg.Kafka.Topic})
		if err != nil {
			return err
		}
		defer client.Close()
		topics := consumer.NewRouter(log, nil).
			Register(cfg.Kafka.Topic, consumer.NewStoreHandler(sinks.store, log))
		g.Go(func() error {
			log.Info("materializing audit events", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.Group)
			err := consumer.New(client, topics, consumer.WithLogger(log)).Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
