// Package logging provides structured logging for the choreo daemon.
//
// It wraps log/slog so every component logs with the same handler, level
// and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	robotLog := logger.Component("robot")
//	robotLog.Info("routine loaded", "routine_id", id)
//
// Components receive the logger through small Logger interfaces of their
// own, so *Logger satisfies them without an adapter.
package logging
