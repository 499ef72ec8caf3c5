// Package runtimeconfig holds the agent's own operational tuning --
// sampler/collector/uploader cadences, the metrics listen address -- kept
// distinct from the agentconfig stores (api_base, device identity) the
// spec treats as durable runtime state.
package runtimeconfig

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the agent's operational tuning, loaded from a YAML file the
// operator may hand-edit. Every field has a conformant default; the spec
// itself fixes the sampler/collector/uploader cadences, so overriding them
// is an operational escape hatch, not part of normal operation.
type Config struct {
	SampleInterval    time.Duration `yaml:"sample_interval"`
	CollectInterval   time.Duration `yaml:"collect_interval"`
	UploadInterval    time.Duration `yaml:"upload_interval"`
	MetricsListenAddr string        `yaml:"metrics_listen_addr"`
	DeviceName        string        `yaml:"device_name"`
}

// Default returns the spec-conformant cadences: 5s sampling, 15m
// collection, 60s upload.
func Default() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		SampleInterval:    5 * time.Second,
		CollectInterval:   15 * time.Minute,
		UploadInterval:    60 * time.Second,
		MetricsListenAddr: "",
		DeviceName:        hostname,
	}
}

// Load reads path, falling back to Default() if it does not exist.
// Fields present in the file overlay the defaults; a partially specified
// file keeps conformant defaults for everything it omits.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the XDG-style config file path for the runtime
// config, alongside (not inside) the per-user data directory the
// persisted stores live under.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "runtime.yaml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "nuscape-agent", "runtime.yaml")
}
