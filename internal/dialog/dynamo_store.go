package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// dynamoItem wraps the JSON-encoded record; the record itself stays one
// opaque attribute so the table schema never chases the record shape.
type dynamoItem struct {
	SessionID string `dynamodbav:"sessionId"`
	Record    []byte `dynamodbav:"record"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	ExpiresAt int64  `dynamodbav:"expiresAt,omitempty"`
}

// DynamoStore persists records to DynamoDB, one item per session.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
}

// NewDynamoStore creates a DynamoDB-backed store. A zero ttl keeps
// records forever.
func NewDynamoStore(client dynamoAPI, tableName string, ttl time.Duration) *DynamoStore {
	if client == nil {
		panic("dialog: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("dialog: table name cannot be empty")
	}
	return &DynamoStore{client: client, tableName: tableName, ttl: ttl}
}

func (s *DynamoStore) Create(ctx context.Context, record *Record) error {
	record.ID = newSessionID()
	record.CreatedAt = time.Now().UTC()
	return s.Commit(ctx, record)
}

func (s *DynamoStore) Get(ctx context.Context, id string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            map[string]types.AttributeValue{"sessionId": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dialog: load record %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dialog: unmarshal item %s: %w", id, err)
	}
	var record Record
	if err := json.Unmarshal(item.Record, &record); err != nil {
		return nil, fmt.Errorf("dialog: decode record %s: %w", id, err)
	}
	return &record, nil
}

func (s *DynamoStore) Commit(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("dialog: encode record %s: %w", record.ID, err)
	}
	item := dynamoItem{
		SessionID: record.ID,
		Record:    data,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if s.ttl > 0 {
		item.ExpiresAt = time.Now().Add(s.ttl).Unix()
	}
	encoded, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("dialog: marshal item %s: %w", record.ID, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      encoded,
	}); err != nil {
		return fmt.Errorf("dialog: persist record %s: %w", record.ID, err)
	}
	return nil
}
