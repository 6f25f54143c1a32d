package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"museion/pkg/domain"
)

// Config carries everything main needs to assemble the service. Values come
// from defaults, then an optional YAML file, then MUSEION_* environment
// variables; later sources win.
type Config struct {
	Addr            string        `yaml:"addr"            split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"  split_words:"true"`

	// PostgresDSN selects the durable store; empty runs fully in memory.
	PostgresDSN string `yaml:"postgresDsn" envconfig:"POSTGRES_DSN"`

	// RedisURL enables the Redis-backed ranking read path; empty keeps
	// ranking on the primary store.
	RedisURL          string        `yaml:"redisUrl"          envconfig:"REDIS_URL"`
	RedisPoolSize     int           `yaml:"redisPoolSize"     split_words:"true"`
	RedisMinIdleConns int           `yaml:"redisMinIdleConns" split_words:"true"`
	RedisDialTimeout  time.Duration `yaml:"redisDialTimeout"  split_words:"true"`
	RedisReadTimeout  time.Duration `yaml:"redisReadTimeout"  split_words:"true"`
	RedisWriteTimeout time.Duration `yaml:"redisWriteTimeout" split_words:"true"`

	// KafkaBrokers enables the outbox relay; empty disables event export.
	KafkaBrokers []string `yaml:"kafkaBrokers" split_words:"true"`
	KafkaTopic   string   `yaml:"kafkaTopic"   split_words:"true"`

	// ArchiveDir enables the BadgerDB event archive; empty disables it.
	ArchiveDir string `yaml:"archiveDir" split_words:"true"`

	JWTSigningKey   string `yaml:"jwtSigningKey"   envconfig:"JWT_SIGNING_KEY"`
	AdminAddress    string `yaml:"adminAddress"    split_words:"true"`
	TreasuryAddress string `yaml:"treasuryAddress" split_words:"true"`

	TracingEnabled      bool   `yaml:"tracingEnabled"      split_words:"true"`
	TracingOTLPEndpoint string `yaml:"tracingOtlpEndpoint" envconfig:"TRACING_OTLP_ENDPOINT"`
	TracingStdout       bool   `yaml:"tracingStdout"       split_words:"true"`

	LogLevel string `yaml:"logLevel" split_words:"true"`
}

func defaults() *Config {
	return &Config{
		Addr:            ":8080",
		ShutdownTimeout: 30 * time.Second,
		RequestTimeout:  30 * time.Second,

		RedisPoolSize:     10,
		RedisMinIdleConns: 2,
		RedisDialTimeout:  5 * time.Second,
		RedisReadTimeout:  3 * time.Second,
		RedisWriteTimeout: 3 * time.Second,

		KafkaTopic: "museion.events",

		// Development fallback, must be overridden in production.
		JWTSigningKey:   "dev-secret-key-change-in-production",
		AdminAddress:    "admin:platform",
		TreasuryAddress: "treasury:platform",

		LogLevel: "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then MUSEION_* environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("museion", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.JWTSigningKey == "" {
		return fmt.Errorf("jwt signing key cannot be empty")
	}
	if _, err := domain.ParseAddress(c.AdminAddress); err != nil {
		return fmt.Errorf("admin address: %w", err)
	}
	if _, err := domain.ParseAddress(c.TreasuryAddress); err != nil {
		return fmt.Errorf("treasury address: %w", err)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("kafka topic cannot be empty when brokers are set")
	}
	return nil
}

// Admin returns the validated platform admin address.
func (c *Config) Admin() domain.Address {
	return domain.Address(c.AdminAddress)
}

// Treasury returns the validated platform treasury address.
func (c *Config) Treasury() domain.Address {
	return domain.Address(c.TreasuryAddress)
}
