// Package logger builds the slog loggers used across the session kit.
//
// Loggers write JSON (or text) to stdout, optionally forward warnings and
// errors to Sentry, and enrich every record with request-scoped attributes
// through [ContextExtractor] functions:
//
//	var cfg logger.Config
//	_ = config.Env(&cfg) // LOG_LEVEL, LOG_FORMAT, SENTRY_DSN, SENTRY_ENVIRONMENT
//
//	log := logger.NewWithConfig(cfg, os.Stdout,
//		logger.StringExtractor("request_id", middleware.GetReqID),
//		logger.SessionExtractor(),
//		logger.UserIDExtractor(),
//	)
//
// [SessionExtractor] logs only a prefix of the session ID so log access does
// not grant session access. Without a DSN, Sentry is skipped and only stdout
// is used. [NewNope] returns a logger that discards everything.
package logger
