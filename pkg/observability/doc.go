// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry tracing for the bridge.
//
// # Structured Logging
//
// Components take a *logrus.Logger. The daemon builds one from configuration:
//
//	log := observability.NewLogger(observability.ParseLogLevel("info"), os.Stdout)
//	log.WithField("identifier", name).Error("Failed to resolve user id")
//
// Request-scoped entries carry the request and trace ids:
//
//	observability.FromContext(ctx).Warn("Secondary group lookup failed")
//
// # Prometheus Metrics
//
// Metrics implements the observer interfaces of the storage, identity, linker
// and bridge packages:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	store := storage.NewStore(db, storage.Postgres, storage.WithObserver(metrics))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	tp, err := observability.InitTracing(ctx, cfg, log)
//	if tp != nil {
//		defer tp.Shutdown(ctx)
//	}
package observability
