package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/communitybridge/pkg/observability"
)

func main() {
	configPath := flag.String("config", os.Getenv("CB_CONFIG"), "Path to the YAML configuration file (environment only when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := observability.NewLogger(cfg.Observability.Level(), os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := observability.InitTracing(ctx, cfg.Observability.OTel(), log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise tracing")
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	d := newDaemon(*configPath, metrics, log)
	if err := d.start(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Failed to start bridge")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      d.api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, d.health)
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	serve := func(name string, srv *http.Server) {
		defer observability.RecoverPanic(log, name)
		log.WithField("addr", srv.Addr).Infof("Starting %s", name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatalf("%s failed", name)
		}
	}
	go serve("API server", apiServer)
	go serve("health server", healthServer)

	if *configPath != "" {
		go func() {
			defer observability.RecoverPanic(log, "config watcher")
			if err := d.watch(ctx); err != nil {
				log.WithError(err).Error("Configuration watcher stopped")
			}
		}()
	}

	// Shutdown runs in reverse registration order.
	shutdown := observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout)
	if tp != nil {
		shutdown.Register("tracing", tp.Shutdown)
	}
	shutdown.Register("bridge", d.stop)
	shutdown.Register("health server", healthServer.Shutdown)
	shutdown.Register("API server", apiServer.Shutdown)
	shutdown.Register("config watcher", func(context.Context) error {
		cancel()
		return nil
	})

	log.Info("CommunityBridge is running")
	if err := shutdown.WaitForSignal(); err != nil {
		log.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}
