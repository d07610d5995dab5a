package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `env:",prefix=SERVER_"`
	Database    DatabaseConfig    `env:",prefix=DB_"`
	App         AppConfig         `env:",prefix=APP_"`
	Email       EmailConfig       `env:",prefix=EMAIL_"`
	Scheduler   SchedulerConfig   `env:",prefix=SCHEDULER_"`
	Queue       QueueConfig       `env:",prefix=QUEUE_"`
	Sentry      SentryConfig      `env:",prefix=SENTRY_"`
	Tracing     TracingConfig     `env:",prefix=OTEL_"`
	Unsubscribe UnsubscribeConfig `env:",prefix=UNSUBSCRIBE_"`
}

type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
	MetricsPort  string `env:"METRICS_PORT,default=9090"`
}

// DatabaseConfig selects the store. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver      string `env:"DRIVER,default=postgres"`
	Host        string `env:"HOST,default=localhost"`
	Port        string `env:"PORT,default=5432"`
	User        string `env:"USER,default=postgres"`
	Password    string `env:"PASSWORD,default=postgres"`
	Name        string `env:"NAME,default=leadgen"`
	SSLMode     string `env:"SSL_MODE,default=disable"`
	SQLitePath  string `env:"SQLITE_PATH,default=leadgen.db"`
	MaxConns    int    `env:"MAX_CONNS,default=25"`
	MinConns    int    `env:"MIN_CONNS,default=5"`
	AutoMigrate bool   `env:"AUTO_SCHEMA,default=false"`
}

type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=text"`
	BaseURL     string `env:"BASE_URL,default=http://localhost:8080"`
}

type EmailConfig struct {
	SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
	SendGridHost   string        `env:"SENDGRID_HOST,default=https://api.sendgrid.com"`
	DefaultFrom    string        `env:"DEFAULT_FROM,default=noreply@localleadau.com"`
	Timeout        time.Duration `env:"TIMEOUT,default=15s"`
	RatePerSecond  float64       `env:"RATE_PER_SECOND,default=10"`
	Burst          int           `env:"BURST,default=10"`
}

type SchedulerConfig struct {
	Enabled              bool          `env:"ENABLED,default=true"`
	Interval             time.Duration `env:"INTERVAL,default=1m"`
	DispatchTimeout      time.Duration `env:"DISPATCH_TIMEOUT,default=30s"`
	RecipientConcurrency int           `env:"RECIPIENT_CONCURRENCY,default=4"`
}

// QueueConfig points the dispatch event publisher at RabbitMQ. Empty URL keeps events in process.
type QueueConfig struct {
	URL       string `env:"URL"`
	EventName string `env:"EVENTS,default=campaign_events"`
}

type SentryConfig struct {
	DSN string `env:"DSN"`
}

type TracingConfig struct {
	Endpoint    string `env:"EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME,default=leadgen-backend"`
}

type UnsubscribeConfig struct {
	SigningKey string `env:"SIGNING_KEY"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith loads configuration from the given lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}
	if c.Scheduler.DispatchTimeout <= 0 {
		return fmt.Errorf("SCHEDULER_DISPATCH_TIMEOUT must be positive")
	}
	if c.Scheduler.RecipientConcurrency < 1 {
		c.Scheduler.RecipientConcurrency = 1
	}
	return nil
}

// GetDatabaseURL returns the data source name for the configured driver
func (c *DatabaseConfig) GetDatabaseURL() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *ServerConfig) GetMetricsAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.MetricsPort)
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
