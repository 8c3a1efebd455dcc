// Package logger provides structured logging utilities built on log/slog.
//
// New builds a *slog.Logger from functional options:
//
//	log := logger.New(
//		logger.WithDevelopment("wsrelay"),
//		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
//	)
//
//	// Production: JSON, info level
//	log := logger.New(logger.WithProduction("wsrelay"))
//
// Attribute helpers keep key names consistent across components and drop
// themselves when given nil or empty input:
//
//	log.Error("subscriber write failed",
//		logger.Component("relay.session"),
//		logger.SessionID(id),
//		logger.Error(err),
//	)
//
// Tests capture output with WithOutput:
//
//	var buf bytes.Buffer
//	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(&buf))
package logger
