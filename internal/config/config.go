package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

// GenerationConfig configures the external text-generation service.
type GenerationConfig struct {
	BaseURL   string `yaml:"base_url" env:"VAGLEDAREN_GENERATION_BASE_URL"`
	APIKey    string `yaml:"api_key" env:"VAGLEDAREN_GENERATION_API_KEY"`
	Model     string `yaml:"model" env:"VAGLEDAREN_GENERATION_MODEL"`
	Timeout   string `yaml:"timeout"`
	Simulated bool   `yaml:"simulated" env:"VAGLEDAREN_GENERATION_SIMULATED"`
}

// RegistryConfig configures the external school-unit registry.
type RegistryConfig struct {
	BaseURL          string `yaml:"base_url" env:"VAGLEDAREN_REGISTRY_BASE_URL"`
	Timeout          string `yaml:"timeout"`
	FetchConcurrency int    `yaml:"fetch_concurrency" env:"VAGLEDAREN_REGISTRY_FETCH_CONCURRENCY"`
}

// CatalogConfig configures the in-memory school/program catalog cache.
type CatalogConfig struct {
	SchoolTTL  string `yaml:"school_ttl"`
	ProgramTTL string `yaml:"program_ttl"`
	MaxResults int    `yaml:"max_results"`
}

// GuidanceConfig configures the routing and prompt-building layer.
type GuidanceConfig struct {
	Language      string `yaml:"language" env:"VAGLEDAREN_GUIDANCE_LANGUAGE"`
	HistoryWindow int    `yaml:"history_window"`
	SearchLimit   int    `yaml:"search_limit"`
}

// ResilienceConfig configures the retry wrapper around generation calls.
type ResilienceConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
}

// SanitizeConfig configures inbound message sanitization.
type SanitizeConfig struct {
	MaxMessageLength int `yaml:"max_message_length"`
}

type Config struct {
	Log struct {
		Level string `yaml:"level" env:"VAGLEDAREN_LOG_LEVEL"`
	} `yaml:"log"`
	Server struct {
		ListenPort string `yaml:"listen_port" env:"VAGLEDAREN_SERVER_PORT"`
		Auth       struct {
			Enabled  bool   `yaml:"enabled" env:"VAGLEDAREN_AUTH_ENABLED"`
			Username string `yaml:"username" env:"VAGLEDAREN_AUTH_USERNAME"`
			Password string `yaml:"password" env:"VAGLEDAREN_AUTH_PASSWORD"`
		} `yaml:"auth"`
	} `yaml:"server"`
	Generation GenerationConfig `yaml:"generation"`
	Registry   RegistryConfig   `yaml:"registry"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Guidance   GuidanceConfig   `yaml:"guidance"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Sanitize   SanitizeConfig   `yaml:"sanitize"`
	Database   struct {
		Path string `yaml:"path" env:"VAGLEDAREN_DATABASE_PATH"`
	} `yaml:"database"`
}

// Load loads configuration from the specified file path.
// It first loads the embedded default configuration, then merges the user
// config on top, then overrides values with environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfig, &cfg); err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			slog.Warn("config file not found, using defaults", "path", path)
		} else {
			expandedData := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expandedData, &cfg); err != nil {
				return nil, err
			}
			slog.Info("loaded user config", "path", path)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDefault loads the embedded default configuration.
func LoadDefault() (*Config, error) {
	return Load("")
}

// DefaultConfigBytes returns the raw embedded default configuration.
func DefaultConfigBytes() []byte {
	return defaultConfig
}

func parseDuration(field, value string, errs *[]error) {
	if value == "" {
		return
	}
	if _, err := time.ParseDuration(value); err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration format %q: %w", field, value, err))
	}
}

// Validate checks configuration for required fields and valid ranges.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []error

	if !c.Generation.Simulated {
		if c.Generation.APIKey == "" {
			errs = append(errs, errors.New("generation.api_key is required unless generation.simulated is true"))
		}
		if c.Generation.BaseURL == "" {
			errs = append(errs, errors.New("generation.base_url is required unless generation.simulated is true"))
		}
		if c.Generation.Model == "" {
			errs = append(errs, errors.New("generation.model is required unless generation.simulated is true"))
		}
	}
	if c.Registry.BaseURL == "" {
		errs = append(errs, errors.New("registry.base_url is required"))
	}
	if c.Registry.FetchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("registry.fetch_concurrency must be positive, got %d", c.Registry.FetchConcurrency))
	}
	if c.Catalog.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("catalog.max_results must be positive, got %d", c.Catalog.MaxResults))
	}
	if c.Guidance.HistoryWindow <= 0 {
		errs = append(errs, fmt.Errorf("guidance.history_window must be positive, got %d", c.Guidance.HistoryWindow))
	}
	if c.Guidance.SearchLimit <= 0 {
		errs = append(errs, fmt.Errorf("guidance.search_limit must be positive, got %d", c.Guidance.SearchLimit))
	}
	if c.Resilience.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("resilience.max_attempts must be positive, got %d", c.Resilience.MaxAttempts))
	}
	if c.Sanitize.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("sanitize.max_message_length must be positive, got %d", c.Sanitize.MaxMessageLength))
	}
	if c.Server.Auth.Enabled && c.Server.Auth.Username == "" {
		errs = append(errs, errors.New("server.auth.username is required when server.auth.enabled is true"))
	}

	parseDuration("generation.timeout", c.Generation.Timeout, &errs)
	parseDuration("registry.timeout", c.Registry.Timeout, &errs)
	parseDuration("catalog.school_ttl", c.Catalog.SchoolTTL, &errs)
	parseDuration("catalog.program_ttl", c.Catalog.ProgramTTL, &errs)
	parseDuration("resilience.base_delay", c.Resilience.BaseDelay, &errs)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// GetDuration parses a duration field, falling back to def when the field is
// empty or invalid. Validate reports invalid values; this keeps accessors
// total.
func GetDuration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
