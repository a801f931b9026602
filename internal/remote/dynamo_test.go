package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items per table and pages Scan results two at a time.
type fakeDynamo struct {
	mu          sync.Mutex
	tables      map[string][]map[string]types.AttributeValue
	batchSizes  []int
	unprocessed int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: make(map[string][]map[string]types.AttributeValue)}
}

func idOf(item map[string]types.AttributeValue) string {
	if s, ok := item["id"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) put(table string, item map[string]types.AttributeValue) {
	items := f.tables[table]
	for i, existing := range items {
		if idOf(existing) == idOf(item) {
			items[i] = item
			return
		}
	}
	f.tables[table] = append(items, item)
}

func (f *fakeDynamo) remove(table, id string) {
	items := f.tables[table]
	for i, existing := range items {
		if idOf(existing) == id {
			f.tables[table] = append(items[:i], items[i+1:]...)
			return
		}
	}
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.tables[*in.TableName]
	start := 0
	if in.ExclusiveStartKey != nil {
		last := idOf(in.ExclusiveStartKey)
		for i, it := range items {
			if idOf(it) == last {
				start = i + 1
			}
		}
	}
	end := min(start+2, len(items))
	out := &dynamodb.ScanOutput{Items: append([]map[string]types.AttributeValue(nil), items[start:end]...)}
	if end < len(items) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"id": items[end-1]["id"]}
	}
	return out, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := idOf(in.Key)
	for _, it := range f.tables[*in.TableName] {
		if idOf(it) == want {
			return &dynamodb.GetItemOutput{Item: it}, nil
		}
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &dynamodb.BatchWriteItemOutput{}
	for table, reqs := range in.RequestItems {
		if len(reqs) > dynamoBatchSize {
			return nil, fmt.Errorf("batch of %d exceeds limit", len(reqs))
		}
		f.batchSizes = append(f.batchSizes, len(reqs))

		// Hand the last request back once to exercise the retry path.
		if f.unprocessed > 0 && len(reqs) > 1 {
			f.unprocessed--
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[len(reqs)-1:]}
			reqs = reqs[:len(reqs)-1]
		}
		for _, r := range reqs {
			switch {
			case r.PutRequest != nil:
				f.put(table, r.PutRequest.Item)
			case r.DeleteRequest != nil:
				f.remove(table, idOf(r.DeleteRequest.Key))
			}
		}
	}
	return out, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remove(*in.TableName, idOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStore_UpsertChunksAndOrders(t *testing.T) {
	fake := newFakeDynamo()
	fake.unprocessed = 1
	s := newDynamoStoreWithClient(fake, "ep_")
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var rows []Row
	for i := 0; i < 30; i++ {
		rows = append(rows, Row{
			ID:        fmt.Sprintf("r%02d", i),
			Data:      json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
			CreatedAt: base.Add(time.Duration(30-i) * time.Minute),
		})
	}
	require.NoError(t, s.Upsert(ctx, "budgets", rows))
	assert.Equal(t, []int{25, 1, 5}, fake.batchSizes)
	assert.Len(t, fake.tables["ep_budgets"], 30)

	got, err := s.SelectAll(ctx, "budgets")
	require.NoError(t, err)
	require.Len(t, got, 30)
	assert.Equal(t, "r29", got[0].ID, "oldest created_at first")
	assert.Equal(t, "r00", got[29].ID)
	assert.JSONEq(t, `{"n":29}`, string(got[0].Data))
}

func TestDynamoStore_SelectOneAndDeletes(t *testing.T) {
	fake := newFakeDynamo()
	s := newDynamoStoreWithClient(fake, "")
	ctx := context.Background()

	_, err := s.SelectOne(ctx, "config", "main")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Upsert(ctx, "config", []Row{{ID: "main", Data: json.RawMessage(`{"currency":"ARS"}`), CreatedAt: time.Now()}}))
	row, err := s.SelectOne(ctx, "config", "main")
	require.NoError(t, err)
	assert.JSONEq(t, `{"currency":"ARS"}`, string(row.Data))

	require.NoError(t, s.Upsert(ctx, "obras", []Row{
		{ID: "a", Data: json.RawMessage(`{}`), CreatedAt: time.Now()},
		{ID: "b", Data: json.RawMessage(`{}`), CreatedAt: time.Now()},
		{ID: "c", Data: json.RawMessage(`{}`), CreatedAt: time.Now()},
	}))
	require.NoError(t, s.DeleteOne(ctx, "obras", "a"))
	assert.Len(t, fake.tables["obras"], 2)

	require.NoError(t, s.DeleteAll(ctx, "obras"))
	assert.Empty(t, fake.tables["obras"])
}

func TestDynamoRowEncoding(t *testing.T) {
	av, err := attributevalue.MarshalMap(dynamoRow{ID: "x", Data: `{"a":1}`, CreatedAt: "2024-01-01T00:00:00.000000000Z"})
	require.NoError(t, err)
	assert.Contains(t, av, "created_at")

	var back dynamoRow
	require.NoError(t, attributevalue.UnmarshalMap(av, &back))
	row, err := back.toRow()
	require.NoError(t, err)
	assert.Equal(t, 2024, row.CreatedAt.Year())

	_, err = dynamoRow{ID: "empty"}.toRow()
	assert.Error(t, err)
}
