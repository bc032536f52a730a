package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	SessionBackendDynamoDB = "dynamodb"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"

	DedupBackendMemory   = "memory"
	DedupBackendRedis    = "redis"
	DedupBackendDynamoDB = "dynamodb"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	SlackBotToken      string `env:"SLACK_BOT_TOKEN,required,notEmpty"`
	SlackSigningSecret string `env:"SLACK_SIGNING_SECRET"`

	AWSRegion          string `env:"AWS_REGION"`
	KnowledgeBaseID    string `env:"KB_ID,required,notEmpty"`
	ModelID            string `env:"MODEL_ID,required,notEmpty"`
	PromptTemplatePath string `env:"PROMPT_TEMPLATE_PATH"`
	FallbackMessage    string `env:"FALLBACK_MESSAGE" envDefault:"Sorry, I couldn't process that right now. Please try again in a moment."`

	SessionBackend   string        `env:"SESSION_BACKEND" envDefault:"dynamodb"`
	SessionTableName string        `env:"SESSION_TABLE_NAME,required,notEmpty"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	DatabaseURL      string        `env:"DATABASE_URL"`

	DedupBackend   string        `env:"DEDUP_BACKEND" envDefault:"memory"`
	DedupTableName string        `env:"DEDUP_TABLE_NAME"`
	DedupTTL       time.Duration `env:"DEDUP_TTL" envDefault:"10m"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"0"`
	ProcessAsync       bool          `env:"PROCESS_ASYNC" envDefault:"false"`
	KnowledgeTimeout   time.Duration `env:"KNOWLEDGE_TIMEOUT" envDefault:"60s"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza combinaciones de backends que no pueden funcionar.
func (c *Config) Validate() error {
	var errs []error

	switch c.SessionBackend {
	case SessionBackendDynamoDB:
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("SESSION_BACKEND=redis requires REDIS_ADDR"))
		}
	case SessionBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("SESSION_BACKEND=postgres requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}

	switch c.DedupBackend {
	case DedupBackendMemory:
	case DedupBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("DEDUP_BACKEND=redis requires REDIS_ADDR"))
		}
	case DedupBackendDynamoDB:
		if c.DedupTableName == "" {
			errs = append(errs, errors.New("DEDUP_BACKEND=dynamodb requires DEDUP_TABLE_NAME"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DEDUP_BACKEND %q", c.DedupBackend))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.DedupTTL <= 0 {
		errs = append(errs, errors.New("DEDUP_TTL must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}

	return errors.Join(errs...)
}

// UsesRedis indica si algún componente necesita un cliente Redis.
func (c *Config) UsesRedis() bool {
	return c.SessionBackend == SessionBackendRedis || c.DedupBackend == DedupBackendRedis || c.RedisAddr != ""
}
