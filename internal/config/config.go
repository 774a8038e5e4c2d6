// Package config loads the service configuration.
//
// Sources are layered, lowest precedence first:
//   - built-in defaults
//   - an optional YAML file (QVALIDATOR_CONFIG_FILE or --config)
//   - environment variables prefixed with QVALIDATOR_ (a `.env` file is autoloaded)
//   - command line flags that were explicitly set
//
// Nested keys use a double underscore in environment variables:
// QVALIDATOR_SERVER__PORT -> server.port -> Config.Server.Port.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Loads `.env` into the process environment before anything reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// EnvPrefix is the prefix of every environment variable read by Load.
	EnvPrefix = "QVALIDATOR_"

	// ConfigFileEnv names the variable holding an optional YAML config path.
	ConfigFileEnv = EnvPrefix + "CONFIG_FILE"

	// ServiceName tags logs, traces and metrics.
	ServiceName = "questionnaire-validator"
)

// Config is the root configuration object.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Validator     ValidatorConfig      `koanf:"validator" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server. Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit is the number of requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
// Lifetimes are in seconds.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"min=0"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"min=0"`
}

// RedisConfig contains Redis connection details. Address is "host:port".
type RedisConfig struct {
	Address  string `koanf:"address" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"min=0"`
}

// AuthConfig holds the Clerk secret key. When empty, the API is unauthenticated.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key"`
}

// Enabled reports whether requests to the API must be authenticated.
func (a AuthConfig) Enabled() bool {
	return a.SecretKey != ""
}

// IntegrationConfig holds third-party service credentials.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	EmailFrom    string `koanf:"email_from" validate:"omitempty,email"`
}

// ValidatorConfig tunes questionnaire validation.
type ValidatorConfig struct {
	// MaxBodyBytes caps the size of a submitted questionnaire.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"required,min=1"`

	// CacheTTL is how long reports are cached by document hash. Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"min=0"`

	// QueueConcurrency is the number of asynchronous validations run in parallel.
	QueueConcurrency int `koanf:"queue_concurrency" validate:"required,min=1"`

	// MaxReportErrors caps the errors listed in notification emails.
	MaxReportErrors int `koanf:"max_report_errors" validate:"required,min=1"`
}

// defaults are loaded before any other source.
var defaults = map[string]any{
	"primary.env": "local",

	"server.port":                 "8080",
	"server.read_timeout":         30,
	"server.write_timeout":        30,
	"server.idle_timeout":         60,
	"server.cors_allowed_origins": []string{"*"},
	"server.rate_limit":           20,

	"database.port":               5432,
	"database.ssl_mode":           "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  300,
	"database.conn_max_idle_time": 60,

	"redis.address": "localhost:6379",

	"integration.email_from": "validator@resend.dev",

	"validator.max_body_bytes":    5 << 20,
	"validator.cache_ttl":         "1h",
	"validator.queue_concurrency": 5,
	"validator.max_report_errors": 50,
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"env":  "primary.env",
	"port": "server.port",
}

// envKey turns QVALIDATOR_SERVER__READ_TIMEOUT into server.read_timeout.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Load reads the configuration from every source, validates it and fills
// in observability defaults. cfgFile overrides QVALIDATOR_CONFIG_FILE;
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("could not load config defaults: %w", err)
	}

	if cfgFile == "" {
		cfgFile = os.Getenv(ConfigFileEnv)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	if flags != nil {
		err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("could not load flags: %w", err)
		}
	}

	// Unmarshal only overwrites the observability keys that were set.
	cfg := &Config{Observability: DefaultObservabilityConfig()}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.Observability.ServiceName = ServiceName
	cfg.Observability.Environment = cfg.Primary.Env

	if err := cfg.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return cfg, nil
}

// IsLocal reports whether the service runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}
