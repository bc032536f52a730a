package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"kb-relay/internal/domain"
)

// DynamoItemAPI es el subconjunto del cliente de DynamoDB que usan los repositorios.
type DynamoItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoSessionRepository guarda sesiones en una tabla con hash key userId.
type DynamoSessionRepository struct {
	client DynamoItemAPI
	table  string
	ttl    time.Duration
}

func NewDynamoSessionRepository(client DynamoItemAPI, table string, ttl time.Duration) *DynamoSessionRepository {
	return &DynamoSessionRepository{client: client, table: table, ttl: ttl}
}

func (r *DynamoSessionRepository) Get(ctx context.Context, userID string) (domain.ConversationSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return domain.ConversationSession{}, fmt.Errorf("dynamodb get item: %w", err)
	}
	if len(out.Item) == 0 {
		return domain.ConversationSession{}, ErrSessionNotFound
	}

	var session domain.ConversationSession
	if err := attributevalue.UnmarshalMap(out.Item, &session); err != nil {
		return domain.ConversationSession{}, fmt.Errorf("unmarshal session item: %w", err)
	}
	return session, nil
}

func (r *DynamoSessionRepository) Put(ctx context.Context, session domain.ConversationSession) error {
	if r.ttl > 0 {
		session.ExpiresAt = session.CreatedAt + int64(physicalTTL(r.ttl)/time.Second)
	}
	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("marshal session item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put item: %w", err)
	}
	return nil
}
