// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment ("development", "production"). Selects the log encoder.
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// ServiceName is attached to logs, traces, and metrics.
	ServiceName string `mapstructure:"SERVICE_NAME"`

	// MongoURI is the document store connection string.
	MongoURI string `mapstructure:"MONGO_URI"`
	// MongoDatabase is the database holding users, devices, leads, properties, and candles.
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	// DatabaseURL is the Postgres DSN for the audit log; empty disables auditing.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis address used for lead locks; empty falls back to process-local locks.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is optional.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// LeadLockTTL bounds how long a lead creation lock is held (e.g. "5s").
	LeadLockTTL string `mapstructure:"LEAD_LOCK_TTL"`

	// JWTAccessPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file for access tokens.
	JWTAccessPrivateKey string `mapstructure:"JWT_ACCESS_PRIVATE_KEY"`
	// JWTAccessPublicKey is the PEM-encoded public key or path to file for access tokens.
	JWTAccessPublicKey string `mapstructure:"JWT_ACCESS_PUBLIC_KEY"`
	// JWTRefreshPrivateKey signs refresh tokens. Falls back to the access key when empty.
	JWTRefreshPrivateKey string `mapstructure:"JWT_REFRESH_PRIVATE_KEY"`
	// JWTRefreshPublicKey verifies refresh tokens. Falls back to the access key when empty.
	JWTRefreshPublicKey string `mapstructure:"JWT_REFRESH_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "30m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// CloudFrontDomain is the CDN base URL for listing logos (e.g. https://dxxxx.cloudfront.net).
	CloudFrontDomain string `mapstructure:"CLOUDFRONT_DOMAIN"`
	// CloudFrontKeyID is the CloudFront public key id.
	CloudFrontKeyID string `mapstructure:"CLOUDFRONT_KEY_ID"`
	// CloudFrontPrivateKey is the PEM-encoded RSA key or path used to sign logo URLs. Empty serves raw keys.
	CloudFrontPrivateKey string `mapstructure:"CLOUDFRONT_PRIVATE_KEY"`
	// SignedURLTTL is how long a signed logo URL stays valid.
	SignedURLTTL string `mapstructure:"SIGNED_URL_TTL"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// NotificationKafkaTopic is the Kafka topic consumed by the push-notification sender.
	NotificationKafkaTopic string `mapstructure:"NOTIFICATION_KAFKA_TOPIC"`
	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// AuthRatePerMinute limits public auth requests per client IP.
	AuthRatePerMinute int `mapstructure:"AUTH_RATE_PER_MINUTE"`
	// CORSAllowedOrigins is a comma-separated origin list.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVICE_NAME", "prospect-api")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "prospect")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("LEAD_LOCK_TTL", "5s")
	v.SetDefault("JWT_ACCESS_PRIVATE_KEY", "")
	v.SetDefault("JWT_ACCESS_PUBLIC_KEY", "")
	v.SetDefault("JWT_REFRESH_PRIVATE_KEY", "")
	v.SetDefault("JWT_REFRESH_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "prospect-auth")
	v.SetDefault("JWT_AUDIENCE", "prospect-api")
	v.SetDefault("JWT_ACCESS_TTL", "30m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CLOUDFRONT_DOMAIN", "")
	v.SetDefault("CLOUDFRONT_KEY_ID", "")
	v.SetDefault("CLOUDFRONT_PRIVATE_KEY", "")
	v.SetDefault("SIGNED_URL_TTL", "1h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "prospect-telemetry")
	v.SetDefault("NOTIFICATION_KAFKA_TOPIC", "prospect-notifications")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("AUTH_RATE_PER_MINUTE", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "prospect-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.MongoDatabase == "" {
		return nil, errors.New("config: MONGO_DATABASE must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.AuthRatePerMinute < 0 {
		return nil, errors.New("config: AUTH_RATE_PER_MINUTE must not be negative")
	}
	if (cfg.CloudFrontPrivateKey == "") != (cfg.CloudFrontKeyID == "") {
		return nil, errors.New("config: CLOUDFRONT_KEY_ID and CLOUDFRONT_PRIVATE_KEY must be set together")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 30*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 168*time.Hour)
}

// LockTTL parses LeadLockTTL. Returns 5s if unset or invalid.
func (c *Config) LockTTL() time.Duration {
	return parseDuration(c.LeadLockTTL, 5*time.Second)
}

// URLTTL parses SignedURLTTL. Returns 1h if unset or invalid.
func (c *Config) URLTTL() time.Duration {
	return parseDuration(c.SignedURLTTL, time.Hour)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the Kafka producers.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// CORSOrigins returns the allowed CORS origins.
func (c *Config) CORSOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
