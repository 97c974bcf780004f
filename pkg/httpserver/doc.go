// Package httpserver wraps net/http's Server with graceful shutdown,
// signal handling, startup/stop hooks, and probe handlers.
//
//	srv := httpserver.NewFromConfig(cfg,
//	    httpserver.WithLogger(log),
//	    httpserver.WithStartHook(func(l *slog.Logger) {
//	        l.Info("listening", slog.String("addr", cfg.Addr))
//	    }),
//	)
//	if err := srv.Run(ctx, router); err != nil { ... }
//
// Run blocks until the context is cancelled, SIGINT/SIGTERM arrives, or
// the listener fails; shutdown drains in-flight requests within the
// configured timeout. HealthCheckHandler serves liveness and readiness
// probes from the same helper.
package httpserver
