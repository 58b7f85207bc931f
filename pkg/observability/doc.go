// Package observability provides structured logging, Prometheus metrics, health
// probes, graceful shutdown and OpenTelemetry tracing.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("credential_id", id).Warn("Hawk authentication failed")
//
// Request-scoped loggers carry the request id and authenticated credential:
//
//	observability.FromContext(r.Context()).Info("served activity stream page")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordAuth(observability.AuthResultReplay)
//
// # Health Checks
//
// Readiness fails when the database or the nonce store is unreachable, since
// authentication fails closed without replay detection.
//
//	checker := observability.NewHealthChecker(db, nonceStore, version)
//	observability.RegisterHealthRoutes(serveMux, checker)
package observability
