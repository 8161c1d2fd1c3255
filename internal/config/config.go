package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Capacities struct {
	Compact    int `yaml:"compact"`
	Large      int `yaml:"large"`
	TwoWheeler int `yaml:"two_wheeler"`
}

type Config struct {
	Port              string     `yaml:"port"`
	Environment       string     `yaml:"environment"`
	OTelServiceName   string     `yaml:"otel_service_name"`
	OTelEndpoint      string     `yaml:"otel_endpoint"`
	Capacities        Capacities `yaml:"capacities"`
	ReleaseAccounting string     `yaml:"release_accounting"`
}

func Load() *Config {
	return &Config{
		Port:            envOr("APP_PORT", "8080"),
		Environment:     envOr("ENVIRONMENT", "development"),
		OTelServiceName: envOr("OTEL_SERVICE_NAME", "parking-allocator"),
		OTelEndpoint:    envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		Capacities: Capacities{
			Compact:    envOrInt("CAPACITY_COMPACT", 7),
			Large:      envOrInt("CAPACITY_LARGE", 3),
			TwoWheeler: envOrInt("CAPACITY_TWO_WHEELER", 10),
		},
		ReleaseAccounting: envOr("RELEASE_ACCOUNTING", "charged"),
	}
}

// LoadFile overlays the YAML file at path on top of base. Keys missing from
// the file keep their base values.
func LoadFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Capacities.Compact < 0 || c.Capacities.Large < 0 || c.Capacities.TwoWheeler < 0 {
		return fmt.Errorf("capacities must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.ReleaseAccounting)) {
	case "charged", "nominal":
	default:
		return fmt.Errorf("invalid RELEASE_ACCOUNTING %q: want charged or nominal", c.ReleaseAccounting)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
