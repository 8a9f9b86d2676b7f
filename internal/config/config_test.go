package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if errs := ValidateConfig(DefaultConfig()); len(errs) != 0 {
		t.Fatalf("DefaultConfig() invalid: %v", errs)
	}
}

func TestParseConfigOverridesOnlyGivenFields(t *testing.T) {
	data := []byte(`
storage:
  dataDir: /data/ariesdb
  pageSize: 8192
logging:
  level: debug
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Storage.DataDir != "/data/ariesdb" {
		t.Errorf("DataDir = %q, want /data/ariesdb", cfg.Storage.DataDir)
	}
	if cfg.Storage.PageSize != 8192 {
		t.Errorf("PageSize = %d, want 8192", cfg.Storage.PageSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched fields keep their defaults.
	if cfg.Storage.BufferPoolSize != 10000 {
		t.Errorf("BufferPoolSize = %d, want default 10000", cfg.Storage.BufferPoolSize)
	}
	if cfg.Recovery.CheckpointInterval != 5*time.Minute {
		t.Errorf("CheckpointInterval = %v, want default 5m", cfg.Recovery.CheckpointInterval)
	}
}

func TestParseConfigSubstitutesEnvVars(t *testing.T) {
	t.Setenv("ARIESDB_TEST_DIR", "/tmp/ariesdb-test")
	data := []byte(`
storage:
  dataDir: ${ARIESDB_TEST_DIR}
logging:
  level: ${ARIESDB_TEST_LEVEL:-warn}
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Storage.DataDir != "/tmp/ariesdb-test" {
		t.Errorf("DataDir = %q, want /tmp/ariesdb-test", cfg.Storage.DataDir)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn (from default)", cfg.Logging.Level)
	}
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	data := []byte(`
storage:
  pageSize: 3000
logging:
  level: verbose
`)
	if _, err := ParseConfig(data); err == nil {
		t.Fatal("ParseConfig: expected error for invalid page size and level")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != ErrFileNotFound {
		t.Fatalf("LoadConfig: got %v, want ErrFileNotFound", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(*Config) {}, false},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, true},
		{"relative data dir", func(c *Config) { c.Storage.DataDir = "relative/path" }, true},
		{"non power of two page size", func(c *Config) { c.Storage.PageSize = 5000 }, true},
		{"zero buffer pool", func(c *Config) { c.Storage.BufferPoolSize = 0 }, true},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"negative checkpoint interval", func(c *Config) { c.Recovery.CheckpointInterval = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := ValidateConfig(cfg)
			if tt.wantErr && len(errs) == 0 {
				t.Fatal("expected validation error, got none")
			}
			if !tt.wantErr && len(errs) != 0 {
				t.Fatalf("unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestManagerReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if mgr.Get().Logging.Level != "info" {
		t.Fatalf("Level = %q, want info", mgr.Get().Logging.Level)
	}

	var gotOld, gotNew *Config
	mgr.OnUpdate(func(old, new *Config) {
		gotOld, gotNew = old, new
	})

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if mgr.Get().Logging.Level != "debug" {
		t.Fatalf("Level after reload = %q, want debug", mgr.Get().Logging.Level)
	}
	if gotOld == nil || gotOld.Logging.Level != "info" {
		t.Fatalf("OnUpdate old = %+v, want Level=info", gotOld)
	}
	if gotNew == nil || gotNew.Logging.Level != "debug" {
		t.Fatalf("OnUpdate new = %+v, want Level=debug", gotNew)
	}
}

func TestManagerReloadWithoutPath(t *testing.T) {
	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Reload(); err != ErrFileNotFound {
		t.Fatalf("Reload: got %v, want ErrFileNotFound", err)
	}
}
