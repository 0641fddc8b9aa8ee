package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model. It captures the server
// endpoint, local storage, and transport tuning.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	// Base URL of the StringShare API, e.g. https://api.stringshare.app
	Endpoint string `yaml:"endpoint"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type TransportConfig struct {
	// Request timeout in seconds
	TimeoutSeconds int `yaml:"timeoutSeconds"`
	// Outgoing request rate limit
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// Retry policy for 429/5xx responses
	MaxAttempts   int `yaml:"maxAttempts"`
	BaseBackoffMS int `yaml:"baseBackoffMs"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Server:  ServerConfig{Endpoint: "http://localhost:8000"},
		Storage: StorageConfig{DBPath: "./stringshare.db"},
		Transport: TransportConfig{
			TimeoutSeconds: 15,
			RPS:            4,
			Burst:          10,
			MaxAttempts:    5,
			BaseBackoffMS:  500,
		},
		Metrics: MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("STRINGSHARE_ENDPOINT"); v != "" && c.Server.Endpoint == "" {
		c.Server.Endpoint = v
	}
	if v := os.Getenv("STRINGSHARE_DB_PATH"); v != "" && c.Storage.DBPath == "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" && c.Metrics.Addr == "" {
		c.Metrics.Addr = v
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
