// Package config loads, validates, and hot-reloads the configuration
// for the log manager and storage engine.
//
// Configuration is YAML, with ${VAR} and ${VAR:-default} references
// expanded against the process environment before parsing:
//
//	storage:
//	  dataDir: ${ARIESDB_DATA_DIR:-/var/lib/ariesdb}
//	  pageSize: 4096
//	logging:
//	  level: ${ARIESDB_LOG_LEVEL:-info}
//	recovery:
//	  checkpointInterval: 5m
//	  recoverOnStartup: true
//
// ParseConfig starts from DefaultConfig, so a file only needs to set
// the fields it wants to override. ValidateConfig rejects values that
// would leave the storage engine or log manager unable to start, such
// as a non-power-of-two page size or an unparseable log level.
//
// Manager wraps a loaded Config with Reload and fsnotify-backed
// WatchForChanges, so callers can pick up edits to the config file
// without restarting the process. Reload notifies registered
// OnUpdateFunc callbacks with both the old and new Config so a caller
// can decide whether a change (say, to Logging.Level) can be applied
// live or requires a restart.
package config
