package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Parser errors.
var (
	ErrFileNotFound = errors.New("config: configuration file not found")
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// LoadConfig loads configuration from a file path. It reads the file,
// substitutes environment variables, parses YAML over a copy of
// DefaultConfig, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML bytes. Fields absent from
// data keep their DefaultConfig value, since yaml.Unmarshal only
// overwrites fields it finds a key for.
func ParseConfig(data []byte) (*Config, error) {
	data = substituteEnvVars(data)

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if errs := ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("config: invalid: %w", errs[0])
	}
	return cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} with the
// corresponding environment variable, or the default if VAR is unset.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		name := string(groups[1])
		def := string(groups[3])
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		return []byte(def)
	})
}
