package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from YAML, expanding ${VAR} references
// from the environment before parsing.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return cfg, nil
}
