package dialog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	record := sampleRecord()
	record.ID = ""
	require.NoError(t, store.Create(ctx, record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())

	loaded, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, loaded.ID)
	require.Len(t, loaded.Turns, 4)
	assert.Equal(t, record.Turns[3].System.BaseResponse, loaded.Turns[3].System.BaseResponse)

	loaded.AppendUserTurn(UserInput{Text: strptr("another question about vaccines")})
	require.NoError(t, store.Commit(ctx, loaded))

	reloaded, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Turns, 5)

	_, err = store.Get(ctx, "missing-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	record := sampleRecord()
	record.ID = ""
	require.NoError(t, store.Create(ctx, record))

	first, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	first.AppendUserTurn(UserInput{Text: strptr("mutating a loaded copy")})

	second, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, second.Turns, 4)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	testStoreRoundTrip(t, NewRedisStore(client, 0))
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, time.Hour)
	record := sampleRecord()
	record.ID = ""
	require.NoError(t, store.Create(context.Background(), record))

	assert.Equal(t, time.Hour, mr.TTL(recordKey(record.ID)))
}

// fakeDynamo keeps items in memory, keyed by session id.
type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	key := in.Item["sessionId"].(*types.AttributeValueMemberS).Value
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	key := in.Key["sessionId"].(*types.AttributeValueMemberS).Value
	item, ok := f.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func TestDynamoStore(t *testing.T) {
	testStoreRoundTrip(t, NewDynamoStore(newFakeDynamo(), "dialog-records", 0))
}

func TestDynamoStoreTTLAttribute(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "dialog-records", time.Hour)

	record := sampleRecord()
	record.ID = ""
	require.NoError(t, store.Create(context.Background(), record))

	item := fake.items[record.ID]
	require.Contains(t, item, "expiresAt")
}

func TestNewDynamoStorePanics(t *testing.T) {
	assert.Panics(t, func() { NewDynamoStore(nil, "table", 0) })
	assert.Panics(t, func() { NewDynamoStore(newFakeDynamo(), "", 0) })
}
