package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the adventure server configuration, loaded from environment
// variables (a .env file is read by main before this runs).
type Config struct {
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// PostgreSQL (save files and hall of fame).
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNECTIONS" default:"10"`

	// AI backend. AIClientType selects the transport ("openai" covers any
	// OpenAI-compatible endpoint, "ollama" talks to a local instance).
	AIClientType string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL    string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel      string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"90s"`

	// Initial credential pool, comma separated. More keys can be added at
	// runtime through the keys API.
	AIAPIKeys []string `envconfig:"AI_API_KEYS"`

	// RabbitMQ for game event notifications. Optional: when empty, events
	// are written to the log instead of a queue.
	RabbitMQURL     string `envconfig:"RABBITMQ_URL"`
	GameEventsQueue string `envconfig:"GAME_EVENTS_QUEUE" default:"game_events"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.AIClientType = strings.ToLower(cfg.AIClientType)
	if cfg.AIClientType != "openai" && cfg.AIClientType != "ollama" {
		return nil, fmt.Errorf("unknown AI client type %q", cfg.AIClientType)
	}
	return &cfg, nil
}
