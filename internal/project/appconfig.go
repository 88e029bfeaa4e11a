package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppConfigName is the Databricks app manifest at the project root.
const AppConfigName = "app.yaml"

// EnvVar is one environment entry in the app manifest. Either Value or
// ValueFrom (a secret/resource reference resolved at deploy time) is set.
type EnvVar struct {
	Name      string `yaml:"name"`
	Value     string `yaml:"value,omitempty"`
	ValueFrom string `yaml:"valueFrom,omitempty"`
}

// AppConfig mirrors the app.yaml manifest consumed by the app platform.
type AppConfig struct {
	// Command is the server entrypoint, argv-style.
	Command []string `yaml:"command"`

	Env []EnvVar `yaml:"env,omitempty"`
}

// LoadAppConfig reads and parses app.yaml from the project root.
func LoadAppConfig(root string) (*AppConfig, error) {
	path := filepath.Join(root, AppConfigName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", AppConfigName, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", AppConfigName, err)
	}
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("%s has no command", AppConfigName)
	}
	return &cfg, nil
}
