// Package logger builds configured slog.Logger instances with
// environment-aware defaults and context-driven attribute injection.
//
// Production and staging environments log JSON at info level for log
// aggregation; everything else logs human-readable text at debug level.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "billingcore"),
//	    logger.WithContextExtractors(requestIDExtractor),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers (logger.Error, logger.AccountID, logger.Provider)
// keep log keys consistent across packages.
package logger
