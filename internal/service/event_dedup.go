package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
)

// DefaultDedupTTL cubre la ventana de reintentos de Slack.
const DefaultDedupTTL = 10 * time.Minute

// EventDeduplicator registra event ids de forma atómica.
// MarkSeen devuelve true solo para la primera entrega de un id dentro del ttl.
type EventDeduplicator interface {
	MarkSeen(ctx context.Context, eventID string) (bool, error)
}

type memoryEventDeduplicator struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryEventDeduplicator(ttl time.Duration) EventDeduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &memoryEventDeduplicator{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (d *memoryEventDeduplicator) MarkSeen(_ context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return true, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweepLocked(now)
	if exp, ok := d.seen[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	d.seen[eventID] = now.Add(d.ttl)
	return true, nil
}

// sweepLocked elimina ids vencidos como mucho una vez por ttl.
func (d *memoryEventDeduplicator) sweepLocked(now time.Time) {
	if now.Sub(d.lastSweep) < d.ttl {
		return
	}
	for id, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, id)
		}
	}
	d.lastSweep = now
}

type redisSetNXClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type redisEventDeduplicator struct {
	client redisSetNXClient
	ttl    time.Duration
	prefix string
}

func NewRedisEventDeduplicator(client *redis.Client, ttl time.Duration) EventDeduplicator {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &redisEventDeduplicator{
		client: client,
		ttl:    ttl,
		prefix: "dedup:",
	}
}

func (d *redisEventDeduplicator) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return true, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return d.client.SetNX(ctx, d.prefix+eventID, 1, d.ttl).Result()
}

type dynamoConditionalPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoEventDeduplicator struct {
	client dynamoConditionalPutter
	table  string
	ttl    time.Duration
	now    func() time.Time
}

func NewDynamoEventDeduplicator(client dynamoConditionalPutter, table string, ttl time.Duration) EventDeduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &dynamoEventDeduplicator{
		client: client,
		table:  table,
		ttl:    ttl,
		now:    time.Now,
	}
}

// MarkSeen inserta con attribute_not_exists; un registro vencido (expiresAt pasado) se reemplaza.
func (d *dynamoEventDeduplicator) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return true, nil
	}
	now := d.now().Unix()
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item: map[string]types.AttributeValue{
			"eventId":   &types.AttributeValueMemberS{Value: eventID},
			"expiresAt": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now+int64(d.ttl/time.Second))},
		},
		ConditionExpression: aws.String("attribute_not_exists(eventId) OR expiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("dynamodb conditional put: %w", err)
	}
	return true, nil
}
