// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

// Database holds MySQL connection settings.
type Database struct {
	User         string `envconfig:"DB_USER" required:"true"`
	Pass         string `envconfig:"DB_PASS"`
	Host         string `envconfig:"DB_HOST" default:"localhost"`
	Port         string `envconfig:"DB_PORT" default:"3306"`
	Name         string `envconfig:"DB_NAME" required:"true"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	Migrate      bool   `envconfig:"DB_MIGRATE" default:"true"`
}

// Auth holds token and password hashing settings.
type Auth struct {
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	AccessTTLMin int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"60"`
	BcryptCost   int    `envconfig:"BCRYPT_COST" default:"10"`
}

// Log selects the zap level and output sink.  An empty sink writes to
// stderr.
type Log struct {
	Level zapcore.Level `envconfig:"LOG_LEVEL" default:"info"`
	Sink  string        `envconfig:"LOG_SINK"`
}

// Rabbit configures the notification queue.  An empty URL disables the
// broker and notifications are delivered in-process.
type Rabbit struct {
	URL   string `envconfig:"RABBITMQ_URL"`
	Queue string `envconfig:"RABBITMQ_NOTIFY_QUEUE" default:"booking.notifications"`
}

// Mail configures SendGrid.  Without an API key e-mails are only logged.
type Mail struct {
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	FromEmail      string `envconfig:"SENDGRID_FROM_EMAIL" default:"no-reply@campus.local"`
	FromName       string `envconfig:"SENDGRID_FROM_NAME" default:"Campus Booking"`
	Workers        int    `envconfig:"MAIL_WORKERS" default:"4"`
}

// Upload configures reservation document storage on local disk.
type Upload struct {
	Dir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"`
}

// Jobs configures the background scheduler.
type Jobs struct {
	Enabled          bool   `envconfig:"JOBS_ENABLED" default:"true"`
	InscriptionsSpec string `envconfig:"JOBS_INSCRIPTIONS_SPEC" default:"@every 5m"`
}

// Config holds all runtime configuration values.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	Port     string `envconfig:"APP_PORT" default:"8080"`
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	Database  Database
	Auth      Auth
	Log       Log
	Rabbit    Rabbit
	Mail      Mail
	Upload    Upload
	Jobs      Jobs
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig

	location *time.Location
}

// Location is the wall-clock zone used for display-ID dates and recurring
// block windows.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Option mutates the config before the environment is applied.
type Option func(*Config)

// WithLocation overrides APP_TIMEZONE.
func WithLocation(loc *time.Location) Option {
	return func(c *Config) { c.location = loc }
}

var (
	once sync.Once
	cfg  *Config
)

// Load reads the configuration once per process.  Missing required
// variables halt the program.
func Load(ops ...Option) *Config {
	once.Do(func() {
		c, err := Parse(ops...)
		if err != nil {
			log.Fatal("config: ", err)
		}
		cfg = c
	})
	return cfg
}

// Parse reads the configuration from the environment without caching.
func Parse(ops ...Option) (*Config, error) {
	var c Config
	for _, op := range ops {
		op(&c)
	}
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if c.location == nil {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
		}
		c.location = loc
	}
	c.RateLimit.normalize()
	return &c, nil
}
