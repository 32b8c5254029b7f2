// Package config loads the memserver YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profiles select the set of built-in tools and resources
const (
	ProfileFull    = "full"
	ProfileExample = "example"
)

// Transport types
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Store     StoreConfig     `yaml:"store"`
}

// ServerConfig identifies the server towards clients.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Profile string `yaml:"profile"`
}

// TransportConfig selects how requests reach the dispatcher.
type TransportConfig struct {
	Type           string        `yaml:"type"`
	Listen         string        `yaml:"listen"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Exporter    string            `yaml:"exporter"`
	Endpoint    string            `yaml:"endpoint"`
	Headers     map[string]string `yaml:"headers"`
	Insecure    bool              `yaml:"insecure"`
	SampleRate  float64           `yaml:"sample_rate"`
	Environment string            `yaml:"environment"`
}

// StoreConfig seeds the in-memory store. A nil Seed keeps the profile's own seed.
type StoreConfig struct {
	Seed map[string]interface{} `yaml:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Name:    "tsMCP",
			Version: "1.0.0",
			Profile: ProfileFull,
		},
		Transport: TransportConfig{
			Type:           TransportStdio,
			Listen:         "127.0.0.1:8080",
			RequestTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "mcp_memory",
		},
		Tracing: TracingConfig{
			Exporter:    "noop",
			SampleRate:  1.0,
			Environment: "development",
		},
	}
}

// Load reads configuration from path on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every unsupported value in the configuration.
func (c Config) Validate() error {
	var errs []error

	switch c.Server.Profile {
	case ProfileFull, ProfileExample:
	default:
		errs = append(errs, fmt.Errorf("server.profile: unsupported profile %q", c.Server.Profile))
	}
	if c.Server.Name == "" {
		errs = append(errs, errors.New("server.name: must not be empty"))
	}

	switch c.Transport.Type {
	case TransportStdio:
	case TransportHTTP:
		if c.Transport.Listen == "" {
			errs = append(errs, errors.New("transport.listen: required for http transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("transport.type: unsupported transport %q", c.Transport.Type))
	}
	if c.Transport.RequestTimeout < 0 {
		errs = append(errs, errors.New("transport.request_timeout: must not be negative"))
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported format %q", c.Logging.Format))
	}

	switch c.Tracing.Exporter {
	case "", "noop", "otlp-grpc", "otlp-http":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter: unsupported exporter %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate: %v is outside [0, 1]", c.Tracing.SampleRate))
	}

	return errors.Join(errs...)
}
