// Package logging provides structured logging for the greenhouse controller.
//
// This package wraps Go's standard log/slog package so that every component
// logs with the same format and default fields.
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
//	logger.Component("mqtt").Info("connected", "broker", url)
//
// Never log broker passwords or API tokens.
package logging
