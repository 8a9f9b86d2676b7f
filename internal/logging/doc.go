// Package logging provides structured logging for the log manager and
// the storage engine, backed by zerolog.
//
// # Overview
//
// The logging package provides a structured logging interface with support for:
//
//   - Multiple log levels (debug, info, warn, error)
//   - Text (console) and JSON output formats
//   - Field-based contextual logging
//
// # Creating a Logger
//
// Create a logger with configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/ariesdb/log.jsonl",
//	})
//
// Or use defaults:
//
//	logger := logging.NewDefault() // Info level, text format, stdout
//
// For testing, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Log Levels
//
// Four log levels are supported:
//
//	logger.Debug("detailed debugging info", "key", "value")
//	logger.Info("informational message", "key", "value")
//	logger.Warn("warning message", "key", "value")
//	logger.Error("error message", "key", "value")
//
// Parse level from string:
//
//	level := logging.ParseLevel("debug") // Returns LevelDebug
//
// # Structured Logging
//
// Add key-value pairs to log entries:
//
//	logger.Info("checkpoint complete",
//	    "begin_ckpt", beginLSN,
//	    "tx_count", len(txTable),
//	    "duration_ms", 2,
//	)
//
// Output (JSON format):
//
//	{
//	    "time": "2026-02-18T10:30:00Z",
//	    "level": "info",
//	    "message": "checkpoint complete",
//	    "begin_ckpt": 1024,
//	    "tx_count": 3,
//	    "duration_ms": 2
//	}
//
// # Contextual Fields
//
// Create loggers with persistent fields:
//
//	txLogger := logger.WithFields(
//	    "tx", int64(txid),
//	    "page", uint64(pageID),
//	)
//
//	// All subsequent logs include these fields
//	txLogger.Info("write accepted")
//	txLogger.Info("commit forced")
//
// # Output Formats
//
// Text format (human-readable console writer):
//
//	2026-02-18T10:30:00Z INF commit forced tx=7 page=3
//
// JSON format (machine-parseable):
//
//	{"time":"2026-02-18T10:30:00Z","level":"info","message":"commit forced","tx":7,"page":3}
//
// # Output Destinations
//
// Configure output destination:
//
//	logging.Config{Output: "stdout"}                  // Standard output
//	logging.Config{Output: "stderr"}                  // Standard error
//	logging.Config{Output: "/var/log/ariesdb/log.jsonl"} // File path
package logging
