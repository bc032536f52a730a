package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"kb-relay/internal/domain"
)

type redisHashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisSessionRepository guarda cada sesión como un hash con expiración.
type RedisSessionRepository struct {
	client redisHashClient
	prefix string
	ttl    time.Duration
}

func NewRedisSessionRepository(client *redis.Client, table string, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: table + ":",
		ttl:    ttl,
	}
}

func (r *RedisSessionRepository) Get(ctx context.Context, userID string) (domain.ConversationSession, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+userID).Result()
	if err != nil {
		return domain.ConversationSession{}, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return domain.ConversationSession{}, ErrSessionNotFound
	}

	createdAt, err := strconv.ParseInt(fields["timestamp"], 10, 64)
	if err != nil {
		return domain.ConversationSession{}, fmt.Errorf("parse session timestamp: %w", err)
	}
	return domain.ConversationSession{
		UserID:    userID,
		SessionID: fields["sessionId"],
		CreatedAt: createdAt,
	}, nil
}

// Put escribe el hash y su expiración en un único MULTI/EXEC.
func (r *RedisSessionRepository) Put(ctx context.Context, session domain.ConversationSession) error {
	key := r.prefix + session.UserID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"sessionId", session.SessionID,
			"timestamp", session.CreatedAt,
		)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, physicalTTL(r.ttl))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis session write: %w", err)
	}
	return nil
}
