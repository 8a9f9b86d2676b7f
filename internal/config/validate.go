package config

import (
	"fmt"
	"path/filepath"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of
// validation errors. An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error
	errs = append(errs, validateStorageConfig(&config.Storage)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)
	errs = append(errs, validateRecoveryConfig(&config.Recovery)...)
	return errs
}

func validateStorageConfig(c *StorageConfig) []error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, ValidationError{Field: "storage.dataDir", Message: "must not be empty"})
	} else if !filepath.IsAbs(c.DataDir) {
		errs = append(errs, ValidationError{Field: "storage.dataDir", Message: "must be an absolute path"})
	}

	if c.PageSize <= 0 || c.PageSize&(c.PageSize-1) != 0 {
		errs = append(errs, ValidationError{Field: "storage.pageSize", Message: "must be a positive power of two"})
	}

	if c.BufferPoolSize <= 0 {
		errs = append(errs, ValidationError{Field: "storage.bufferPoolSize", Message: "must be positive"})
	}

	return errs
}

func validateLogConfig(c *LogConfig) []error {
	var errs []error

	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "logging.level", Message: "must be one of debug, info, warn, error"})
	}

	switch c.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "logging.format", Message: "must be one of text, json"})
	}

	return errs
}

func validateRecoveryConfig(c *RecoveryConfig) []error {
	var errs []error
	if c.CheckpointInterval < 0 {
		errs = append(errs, ValidationError{Field: "recovery.checkpointInterval", Message: "must not be negative"})
	}
	return errs
}
