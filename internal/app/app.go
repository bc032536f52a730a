// Package app construye los clientes externos compartidos por los binarios.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"kb-relay/internal/config"
	"kb-relay/internal/db"
	"kb-relay/internal/knowledge"
	"kb-relay/internal/repository"
	"kb-relay/internal/service"
)

// Clients agrupa los clientes de infraestructura creados al arrancar.
type Clients struct {
	AWS      aws.Config
	DynamoDB *dynamodb.Client
	Bedrock  *bedrockagentruntime.Client
	Redis    *redis.Client

	closers []func()
}

// NewClients inicializa AWS y, si está configurado, Redis. Falla si un backend requerido no responde.
func NewClients(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Clients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	c := &Clients{
		AWS:      awsCfg,
		DynamoDB: dynamodb.NewFromConfig(awsCfg),
		Bedrock:  bedrockagentruntime.NewFromConfig(awsCfg),
	}

	if cfg.UsesRedis() {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		c.closers = append(c.closers, func() { _ = c.Redis.Close() })

		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.Redis.Ping(ctxPing).Err(); err != nil {
			if cfg.SessionBackend == config.SessionBackendRedis || cfg.DedupBackend == config.DedupBackendRedis {
				c.Close()
				return nil, fmt.Errorf("redis ping: %w", err)
			}
			logger.Warn("redis ping failed, redis features disabled", zap.Error(err))
			_ = c.Redis.Close()
			c.Redis = nil
			c.closers = nil
		}
	}

	return c, nil
}

// Close libera las conexiones abiertas.
func (c *Clients) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// NewSessionRepository elige el backend de sesiones configurado.
func (c *Clients) NewSessionRepository(ctx context.Context, cfg *config.Config) (repository.SessionRepository, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		return repository.NewRedisSessionRepository(c.Redis, cfg.SessionTableName, cfg.SessionTTL), nil
	case config.SessionBackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		if err := db.Ping(ctx, pool); err != nil {
			return nil, fmt.Errorf("db ping: %w", err)
		}
		repo := repository.NewPgSessionRepository(pool, cfg.SessionTableName)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure session schema: %w", err)
		}
		return repo, nil
	default:
		return repository.NewDynamoSessionRepository(c.DynamoDB, cfg.SessionTableName, cfg.SessionTTL), nil
	}
}

// NewDeduplicator elige el almacén de event ids configurado.
func (c *Clients) NewDeduplicator(cfg *config.Config) service.EventDeduplicator {
	switch cfg.DedupBackend {
	case config.DedupBackendRedis:
		return service.NewRedisEventDeduplicator(c.Redis, cfg.DedupTTL)
	case config.DedupBackendDynamoDB:
		return service.NewDynamoEventDeduplicator(c.DynamoDB, cfg.DedupTableName, cfg.DedupTTL)
	default:
		return service.NewMemoryEventDeduplicator(cfg.DedupTTL)
	}
}

// NewRateLimiter devuelve nil si el límite está desactivado; con Redis el bucket se comparte entre instancias.
func (c *Clients) NewRateLimiter(cfg *config.Config) service.UserRateLimiter {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	if c.Redis != nil {
		return service.NewRedisUserRateLimiter(c.Redis, time.Minute, cfg.RateLimitPerMinute)
	}
	return service.NewMemoryUserRateLimiter(time.Minute, cfg.RateLimitPerMinute)
}

// NewKnowledgeClient crea el cliente de Bedrock con la plantilla de prompt configurada.
func (c *Clients) NewKnowledgeClient(cfg *config.Config, logger *zap.Logger) (*knowledge.BedrockClient, error) {
	tpl, err := knowledge.LoadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}
	return knowledge.NewBedrockClient(c.Bedrock, cfg.KnowledgeBaseID, cfg.ModelID, tpl, logger), nil
}
