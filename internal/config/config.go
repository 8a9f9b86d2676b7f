// Package config provides configuration parsing, validation, and
// hot-reload for the log manager and storage engine.
package config

import "time"

// Config holds the complete process configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LogConfig      `yaml:"logging"`
	Recovery RecoveryConfig `yaml:"recovery"`
}

// StorageConfig configures the storage engine a LogManager is bound to.
type StorageConfig struct {
	DataDir        string `yaml:"dataDir"`
	LogFile        string `yaml:"logFile"`
	PageSize       int    `yaml:"pageSize"`
	BufferPoolSize int    `yaml:"bufferPoolSize"`
}

// LogConfig configures the internal/logging logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// RecoveryConfig configures checkpointing and recovery behavior.
type RecoveryConfig struct {
	CheckpointInterval time.Duration `yaml:"checkpointInterval"`
	// RecoverOnStartup runs LogManager.Recover once against the
	// persisted log before the process accepts new transactions.
	RecoverOnStartup bool `yaml:"recoverOnStartup"`
}
