package config

import "time"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir:        "/var/lib/ariesdb",
			LogFile:        "wal.log",
			PageSize:       4096,
			BufferPoolSize: 10000,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Recovery: RecoveryConfig{
			CheckpointInterval: 5 * time.Minute,
			RecoverOnStartup:   true,
		},
	}
}
