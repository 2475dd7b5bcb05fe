// Package config loads the harness configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "10s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	AdbPath     string   `yaml:"adb_path"`
	Serial      string   `yaml:"serial"`
	Filters     []string `yaml:"filters"`
	WaitTimeout Duration `yaml:"wait_timeout"`
	ListenAddr  string   `yaml:"listen_addr"`
}

// Default returns the built-in configuration: match everything, wait
// ten seconds, listen on port 22123.
func Default() *Config {
	return &Config{
		Filters:     []string{"*:v"},
		WaitTimeout: Duration(10 * time.Second),
		ListenAddr:  ":22123",
	}
}

// Load reads the config file at path and applies defaults for unset
// fields. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if len(cfg.Filters) == 0 {
		cfg.Filters = []string{"*:v"}
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = Duration(10 * time.Second)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":22123"
	}
	return cfg, nil
}
