package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DefaultTimezone     string `yaml:"default_timezone"`
	TickIntervalSeconds int    `yaml:"tick_interval_seconds"`
	LegacyTimezonesFile string `yaml:"legacy_timezones_file"`
}

func defaults() *Config {
	return &Config{
		DefaultTimezone:     "America/New_York",
		TickIntervalSeconds: 1,
		LegacyTimezonesFile: "data/timezones.json",
	}
}

// LoadConfig reads config/application.yaml. A missing file yields the
// defaults; a present-but-unreadable file is an error.
func LoadConfig() (*Config, error) {
	config := defaults()

	file, err := os.Open("config/application.yaml")
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if config.TickIntervalSeconds <= 0 {
		config.TickIntervalSeconds = 1
	}
	return config, nil
}
