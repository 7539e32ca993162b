package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration, loaded from an optional YAML file
// with environment variable overrides for deploy-time settings.
type Config struct {
	Database struct {
		// Path is the sqlite database file location
		Path string `yaml:"path"`
	} `yaml:"database"`

	Charts struct {
		// BaseURL is the charts/profile backend endpoint
		BaseURL string `yaml:"base_url"`

		// Country is the default chart country code
		Country string `yaml:"country"`

		// SyncOnStart fetches the top charts when the app launches
		SyncOnStart bool `yaml:"sync_on_start"`
	} `yaml:"charts"`

	Audio struct {
		// Engine selects the decode backend: "beep" or "mock"
		Engine string `yaml:"engine"`
	} `yaml:"audio"`

	Log struct {
		// Level is DEBUG, INFO, WARN or ERROR
		Level string `yaml:"level"`

		// Format is "text" or "json"
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	var cfg Config
	cfg.Database.Path = "auralis.db"
	cfg.Charts.BaseURL = "https://api.auralis.example.com"
	cfg.Charts.Country = "us"
	cfg.Audio.Engine = "beep"
	cfg.Log.Format = "text"
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults. A missing file is
// not an error; the defaults apply. AURALIS_DB_PATH and AURALIS_CHARTS_URL
// environment variables override the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if dbPath := os.Getenv("AURALIS_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if chartsURL := os.Getenv("AURALIS_CHARTS_URL"); chartsURL != "" {
		cfg.Charts.BaseURL = chartsURL
	}

	return cfg, nil
}
