// Package logging provides structured logging on top of log/slog.
//
// Every record carries service=webstone and the build version. The format
// (json or text), level and output stream come from the logging section of
// the config:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("server listening", "port", 4321)
//
// Passphrases, hashes and broker credentials must never be logged.
package logging
