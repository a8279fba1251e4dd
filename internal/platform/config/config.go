// Package config loads service configuration: built-in defaults, then an
// optional YAML file named by HCM_CONFIG_FILE, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the optional YAML overlay.
const EnvConfigFile = "HCM_CONFIG_FILE"

// Config is the full service configuration.
type Config struct {
	Server     Server      `yaml:"server"`
	Database   Database    `yaml:"database"`
	Redis      RedisConfig `yaml:"redis"`
	Kafka      Kafka       `yaml:"kafka"`
	Individual Individual  `yaml:"individual"`
	Household  Household   `yaml:"household"`
	Tracing    Tracing     `yaml:"tracing"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	JWTAudience     string        `yaml:"jwt_audience"`
	RequireAuth     bool          `yaml:"require_auth"`
	AdminToken      string        `yaml:"admin_token"`
}

// Database selects the member and household datastore. An empty URL keeps
// everything in memory.
type Database struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
	AutoMigrate  bool          `yaml:"auto_migrate"`
}

// RedisConfig configures the individual lookup cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// Kafka configures publishing of persisted members. No brokers disables it.
type Kafka struct {
	Brokers           []string `yaml:"brokers"`
	CreateTopic       string   `yaml:"create_topic"`
	UpdateTopic       string   `yaml:"update_topic"`
	DeleteTopic       string   `yaml:"delete_topic"`
	EnsureTopics      bool     `yaml:"ensure_topics"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

// Individual configures the Individual service search.
type Individual struct {
	Host             string        `yaml:"host"`
	SearchPath       string        `yaml:"search_path"`
	Timeout          time.Duration `yaml:"timeout"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// Household configures the household member pipeline.
type Household struct {
	SearchLimit                 int  `yaml:"search_limit"`
	NetworkErrorsAsEntityErrors bool `yaml:"network_errors_as_entity_errors"`
	Parallelism                 int  `yaml:"parallelism"`
}

// Tracing configures OpenTelemetry.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Defaults returns the development configuration.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			LogLevel:        "info",
			LogFormat:       "json",
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  30 * time.Second,
			JWTSigningKey:   "dev-secret-key-change-in-production",
			JWTIssuer:       "hcm",
			JWTAudience:     "hcm",
		},
		Database: Database{
			MaxOpenConns: 20,
			TxTimeout:    5 * time.Second,
			AutoMigrate:  true,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			CacheTTL:     5 * time.Minute,
		},
		Kafka: Kafka{
			CreateTopic:       "save-household-member-topic",
			UpdateTopic:       "update-household-member-topic",
			DeleteTopic:       "delete-household-member-topic",
			EnsureTopics:      true,
			Partitions:        1,
			ReplicationFactor: 1,
		},
		Individual: Individual{
			Host:             "http://localhost:8081",
			SearchPath:       "/individual/v1/_search",
			Timeout:          5 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Household: Household{
			SearchLimit: 100,
			Parallelism: 4,
		},
		Tracing: Tracing{
			ServiceName: "hcm",
			SampleRatio: 1,
		},
	}
}

// Load builds the configuration from defaults, the optional file named by
// HCM_CONFIG_FILE and the environment, then validates it.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv(EnvConfigFile); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decodeInto(f, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromReader overlays YAML from r on the defaults and validates the result.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Defaults()
	if err := decodeInto(r, &cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from defaults and the environment only.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, Validate(cfg)
}

func decodeInto(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("HCM_ADDR", &cfg.Server.Addr)
	str("HCM_LOG_LEVEL", &cfg.Server.LogLevel)
	str("HCM_LOG_FORMAT", &cfg.Server.LogFormat)
	duration("HCM_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	duration("HCM_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	str("JWT_SIGNING_KEY", &cfg.Server.JWTSigningKey)
	str("JWT_ISSUER", &cfg.Server.JWTIssuer)
	str("JWT_AUDIENCE", &cfg.Server.JWTAudience)
	boolean("HCM_REQUIRE_AUTH", &cfg.Server.RequireAuth)
	str("HCM_ADMIN_TOKEN", &cfg.Server.AdminToken)

	str("DATABASE_URL", &cfg.Database.URL)
	integer("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	duration("DATABASE_TX_TIMEOUT", &cfg.Database.TxTimeout)
	boolean("DATABASE_AUTO_MIGRATE", &cfg.Database.AutoMigrate)

	str("REDIS_URL", &cfg.Redis.URL)
	duration("REDIS_CACHE_TTL", &cfg.Redis.CacheTTL)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	str("KAFKA_CREATE_TOPIC", &cfg.Kafka.CreateTopic)
	str("KAFKA_UPDATE_TOPIC", &cfg.Kafka.UpdateTopic)
	str("KAFKA_DELETE_TOPIC", &cfg.Kafka.DeleteTopic)
	boolean("KAFKA_ENSURE_TOPICS", &cfg.Kafka.EnsureTopics)

	str("INDIVIDUAL_HOST", &cfg.Individual.Host)
	str("INDIVIDUAL_SEARCH_PATH", &cfg.Individual.SearchPath)
	duration("INDIVIDUAL_TIMEOUT", &cfg.Individual.Timeout)

	integer("HOUSEHOLD_SEARCH_LIMIT", &cfg.Household.SearchLimit)
	boolean("HOUSEHOLD_NETWORK_ERRORS_AS_ENTITY_ERRORS", &cfg.Household.NetworkErrorsAsEntityErrors)
	integer("HOUSEHOLD_PARALLELISM", &cfg.Household.Parallelism)

	boolean("OTEL_ENABLED", &cfg.Tracing.Enabled)
	str("OTEL_SERVICE_NAME", &cfg.Tracing.ServiceName)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg Config) error {
	var errs []error

	if cfg.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	switch cfg.Server.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: json, text", cfg.Server.LogFormat))
	}
	if cfg.Server.RequireAuth && cfg.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("server.jwt_signing_key is required when server.require_auth is set"))
	}

	if cfg.Individual.Host == "" {
		errs = append(errs, errors.New("individual.host is required"))
	}
	if !strings.HasPrefix(cfg.Individual.SearchPath, "/") {
		errs = append(errs, fmt.Errorf("individual.search_path %q must start with /", cfg.Individual.SearchPath))
	}
	if cfg.Individual.Timeout <= 0 {
		errs = append(errs, errors.New("individual.timeout must be positive"))
	}

	if cfg.Household.SearchLimit <= 0 {
		errs = append(errs, fmt.Errorf("household.search_limit %d must be positive", cfg.Household.SearchLimit))
	}
	if cfg.Household.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("household.parallelism %d must not be negative", cfg.Household.Parallelism))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		for name, topic := range map[string]string{
			"kafka.create_topic": cfg.Kafka.CreateTopic,
			"kafka.update_topic": cfg.Kafka.UpdateTopic,
			"kafka.delete_topic": cfg.Kafka.DeleteTopic,
		} {
			if topic == "" {
				errs = append(errs, fmt.Errorf("%s is required when kafka.brokers is set", name))
			}
		}
	}
	if cfg.Redis.URL != "" && cfg.Redis.CacheTTL <= 0 {
		errs = append(errs, errors.New("redis.cache_ttl must be positive when redis.url is set"))
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio %.2f is out of range [0, 1]", cfg.Tracing.SampleRatio))
	}

	return errors.Join(errs...)
}
