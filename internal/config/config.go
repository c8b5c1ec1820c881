// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file
// when present), loads them into structured Go types on top of a set of
// defaults, and validates them so the gateway fails fast on bad config.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values and upstream addresses.
//   - Provide sane defaults, including the two upstream base addresses.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads a `.env` file into the process env, if present.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the GATEWAY_ prefix. The prefix is stripped,
	the rest is lowercased, and a double underscore marks one level of
	nesting:

	  GATEWAY_UPSTREAM__BICYCLE_URL    -> upstream.bicycle_url
	  GATEWAY_OBSERVABILITY__LOGGING__LEVEL -> observability.logging.level
*/

// EnvPrefix is the prefix every gateway environment variable carries.
const EnvPrefix = "GATEWAY_"

// ServiceName is the fixed service name reported in logs and APM.
const ServiceName = "bicycle-gateway"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Upstream      UpstreamConfig       `koanf:"upstream" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	RateLimit     RateLimitConfig      `koanf:"rate_limit"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are whole seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// UpstreamConfig holds the base addresses of the two resource services the
// gateway aggregates, and the bounds applied to every fetch against them.
//
// Timeout covers the whole exchange (connect, headers, body). A fetch that
// runs past it is an unclassified upstream failure.
type UpstreamConfig struct {
	BicycleURL   string        `koanf:"bicycle_url" validate:"required,url"`
	BrandURL     string        `koanf:"brand_url" validate:"required,url"`
	Timeout      time.Duration `koanf:"timeout" validate:"required,min=1ms"`
	MaxBodyBytes int64         `koanf:"max_body_bytes" validate:"required,min=1"`
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// RateLimitConfig controls the Redis-backed fixed-window limiter applied to
// the gateway route. Requests is the budget per client IP per Window.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"min=1"`
	Window   time.Duration `koanf:"window" validate:"min=1s"`
}

// DefaultConfig returns the configuration used when no environment
// overrides are present. The upstream ports match the resource services'
// own defaults (bicycle on 4000, brand on 5000).
func DefaultConfig() *Config {
	return &Config{
		Primary: Primary{
			Env: "development",
		},
		Server: ServerConfig{
			Port:               "3000",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
		},
		Upstream: UpstreamConfig{
			BicycleURL:   "http://localhost:4000",
			BrandURL:     "http://localhost:5000",
			Timeout:      5 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		RateLimit: RateLimitConfig{
			Enabled:  false,
			Requests: 100,
			Window:   time.Minute,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// envKey maps a raw env var name into a koanf key path.
//
//	GATEWAY_SERVER__READ_TIMEOUT -> server.read_timeout
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// listKeys are the config keys whose env value is a comma-separated list.
var listKeys = map[string]bool{
	"server.cors_allowed_origins": true,
}

// envValue maps an env var onto its koanf key and splits list values.
//
//	GATEWAY_SERVER__CORS_ALLOWED_ORIGINS="http://a.com, http://b.com"
//	  -> server.cors_allowed_origins = [http://a.com http://b.com]
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}

	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return key, items
}

// LoadConfig loads configuration from environment variables on top of
// DefaultConfig, validates it, applies observability defaults, and returns
// the resulting config.
//
// Behavior summary:
//   - Loads env vars with prefix GATEWAY_
//   - Unmarshals them over the defaults
//   - Validates struct tags (go-playground/validator)
//   - Sets default observability if missing, then forces service name and
//     environment
//   - Validates observability config as well
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	// Defaults first; koanf only overwrites the fields present in the env.
	mainConfig := DefaultConfig()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment always follow the primary config so that
	// logs and traces are labelled consistently.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
