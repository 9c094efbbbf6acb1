package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DefaultEscalationMessage is sent back when a question is handed to staff.
const DefaultEscalationMessage = "この質問については職員が確認して回答いたします。しばらくお待ちください。"

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port              string        `env:"PORT" envDefault:"8081"`
	Env               string        `env:"APP_ENV" envDefault:"development"`
	Timeout           time.Duration `env:"SERVER_TIMEOUT" envDefault:"30s"`
	BaseURL           string        `env:"BASE_URL"`
	OpenAPISchemaPath string        `env:"OPENAPI_SCHEMA_PATH"`
}

// DatabaseConfig configures the relational store
type DatabaseConfig struct {
	// Driver selects the store: postgres, or memory for a process-local one.
	Driver   string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host     string        `env:"DB_HOST" envDefault:"localhost"`
	Port     string        `env:"DB_PORT" envDefault:"5432"`
	User     string        `env:"DB_USER" envDefault:"postgres"`
	Password string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string        `env:"DB_NAME" envDefault:"faqdesk"`
	SSLMode  string        `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxConns int           `env:"DB_MAX_CONNS" envDefault:"20"`
	Timeout  time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
	Retries  int           `env:"DB_CONNECT_RETRIES" envDefault:"5"`
	Migrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, int(d.Timeout.Seconds()),
	)
}

// JWTConfig configures token issuing
type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	Expiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
}

// SecurityConfig configures request limits
type SecurityConfig struct {
	RateLimit      float64  `env:"RATE_LIMIT" envDefault:"5"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"10"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.1"`
	MaxBodySize    int64    `env:"MAX_BODY_SIZE" envDefault:"10485760"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// CacheConfig configures the response cache
type CacheConfig struct {
	Enabled bool `env:"CACHE_ENABLED" envDefault:"true"`
	// Backend is memory or redis.
	Backend     string        `env:"CACHE_BACKEND" envDefault:"memory"`
	TTL         time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	MaxSize     int           `env:"CACHE_MAX_SIZE" envDefault:"1000"`
	PurgeWindow time.Duration `env:"CACHE_PURGE_WINDOW" envDefault:"10m"`
}

// RedisConfig configures the redis connection
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"faqdesk"`
}

// VaultConfig configures secret lookup
type VaultConfig struct {
	Enabled bool          `env:"VAULT_ENABLED" envDefault:"false"`
	Addr    string        `env:"VAULT_ADDR" envDefault:"http://127.0.0.1:8200"`
	Token   string        `env:"VAULT_TOKEN"`
	Mount   string        `env:"VAULT_MOUNT" envDefault:"secret"`
	Path    string        `env:"VAULT_SECRET_PATH" envDefault:"faqdesk"`
	TTL     time.Duration `env:"VAULT_CACHE_TTL" envDefault:"5m"`
}

// EscalationConfig configures the hand-off to staff
type EscalationConfig struct {
	Message        string        `env:"ESCALATION_MESSAGE"`
	StaleAfter     time.Duration `env:"ESCALATION_STALE_AFTER" envDefault:"24h"`
	DigestSchedule string        `env:"ESCALATION_DIGEST_SCHEDULE" envDefault:"@hourly"`
}

// ObservabilityConfig configures tracing and metrics
type ObservabilityConfig struct {
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"faqdesk"`
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

// GRPCConfig configures the gRPC health endpoint
type GRPCConfig struct {
	Enabled bool   `env:"GRPC_HEALTH_ENABLED" envDefault:"false"`
	Port    string `env:"GRPC_HEALTH_PORT" envDefault:"9091"`
}

// AdminConfig seeds the first administrator account on startup
type AdminConfig struct {
	LoginID  string `env:"ADMIN_LOGIN_ID"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME" envDefault:"Administrator"`
}

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	Security      SecurityConfig
	Logging       LoggingConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Vault         VaultConfig
	Escalation    EscalationConfig
	Observability ObservabilityConfig
	GRPC          GRPCConfig
	Admin         AdminConfig
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// EscalationMessage returns the acknowledgement sent for escalated questions.
func (c *Config) EscalationMessage() string {
	if c.Escalation.Message == "" {
		return DefaultEscalationMessage
	}
	return c.Escalation.Message
}

var (
	instance *Config
	once     sync.Once
)

// Load parses configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:" + cfg.Server.Port
	}
	return cfg, nil
}

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		instance = cfg
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}
