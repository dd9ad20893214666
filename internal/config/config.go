package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Broadcast fan-out scopes for approved broadcast leads.
const (
	BroadcastScopeChapter = "chapter"
	BroadcastScopeScope   = "scope"
	BroadcastScopeAll     = "all"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port           int    `env:"PORT" envDefault:"8080"`
		AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:""`
		PublicBaseURL  string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
		JWTSecret      string `env:"JWT_SECRET"`
	}

	Database struct {
		Host     string `env:"DB_HOST" envDefault:"localhost"`
		Port     string `env:"DB_PORT" envDefault:"5432"`
		User     string `env:"DB_USER" envDefault:"postgres"`
		Password string `env:"DB_PASSWORD" envDefault:""`
		Name     string `env:"DB_NAME" envDefault:"hscode"`
		SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	}

	Redis struct {
		Addr         string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password     string `env:"REDIS_PASSWORD" envDefault:""`
		DB           int    `env:"REDIS_DB" envDefault:"0"`
		GroupEvents  string `env:"GROUP_EVENTS_STREAM" envDefault:"hscode:group-events"`
		ConsumerName string `env:"GROUP_EVENTS_CONSUMER" envDefault:"realtime-1"`
	}

	S3 struct {
		Endpoint  string `env:"S3_ENDPOINT"`
		Region    string `env:"S3_REGION"`
		Bucket    string `env:"S3_BUCKET"`
		AccessKey string `env:"S3_ACCESS_KEY"`
		SecretKey string `env:"S3_SECRET_KEY"`
		UseSSL    bool   `env:"S3_USE_SSL" envDefault:"false"`
	}

	Realtime struct {
		PingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
		PongTimeout  time.Duration `env:"WS_PONG_TIMEOUT" envDefault:"90s"`
		SendBuffer   int           `env:"WS_SEND_BUFFER" envDefault:"256"`
		SendTimeout  time.Duration `env:"WS_SEND_TIMEOUT" envDefault:"10s"`
	}

	Leads struct {
		BroadcastScope   string `env:"BROADCAST_SCOPE" envDefault:"chapter"`
		MaxDocuments     int    `env:"MAX_LEAD_DOCUMENTS" envDefault:"5"`
		MaxDocumentBytes int64  `env:"MAX_DOCUMENT_BYTES" envDefault:"10485760"`
	}

	MaxMessageLength int `env:"MAX_MESSAGE_LENGTH" envDefault:"4000"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	c.Leads.BroadcastScope = strings.ToLower(strings.TrimSpace(c.Leads.BroadcastScope))
	if c.Leads.BroadcastScope == "" {
		c.Leads.BroadcastScope = BroadcastScopeChapter
	}
	switch c.Leads.BroadcastScope {
	case BroadcastScopeChapter, BroadcastScopeScope, BroadcastScopeAll:
	default:
		return fmt.Errorf("invalid BROADCAST_SCOPE %q", c.Leads.BroadcastScope)
	}
	if c.Realtime.PingInterval <= 0 || c.Realtime.PongTimeout <= c.Realtime.PingInterval {
		return errors.New("WS_PONG_TIMEOUT must be greater than WS_PING_INTERVAL")
	}
	if c.Realtime.SendBuffer < 1 {
		return errors.New("WS_SEND_BUFFER must be positive")
	}
	if c.Realtime.SendTimeout <= 0 {
		return errors.New("WS_SEND_TIMEOUT must be positive")
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.Port,
		c.Database.SSLMode,
	)
}

// S3Configured reports whether object storage settings are complete.
func (c *Config) S3Configured() bool {
	return c.S3.Endpoint != "" && c.S3.Bucket != "" && c.S3.AccessKey != "" && c.S3.SecretKey != ""
}
