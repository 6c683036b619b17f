package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentiserve/internal/models"
)

// fakeDynamo keeps items in memory and can hold back a number of writes
// as unprocessed on the first BatchWriteItem call.
type fakeDynamo struct {
	mu            sync.Mutex
	items         map[string]map[string]types.AttributeValue
	batchCalls    []int
	holdBack      int
	queryPageSize int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(item map[string]types.AttributeValue) string {
	return stringAttr(item[pkAttr]) + "|" + stringAttr(item[skAttr])
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, reqs := range in.RequestItems {
		f.batchCalls = append(f.batchCalls, len(reqs))
		for _, req := range reqs {
			if f.holdBack > 0 {
				f.holdBack--
				out.UnprocessedItems[table] = append(out.UnprocessedItems[table], req)
				continue
			}
			f.items[itemKey(req.PutRequest.Item)] = req.PutRequest.Item
		}
	}
	if len(out.UnprocessedItems) == 0 {
		out.UnprocessedItems = nil
	}
	return out, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk := stringAttr(in.ExpressionAttributeValues[":pk"])
	prefix := stringAttr(in.ExpressionAttributeValues[":prefix"])

	var matched []map[string]types.AttributeValue
	for _, item := range f.items {
		if stringAttr(item[pkAttr]) == pk && strings.HasPrefix(stringAttr(item[skAttr]), prefix) {
			matched = append(matched, item)
		}
	}
	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		a, b := stringAttr(matched[i][skAttr]), stringAttr(matched[j][skAttr])
		if forward {
			return a < b
		}
		return a > b
	})

	start := 0
	if in.ExclusiveStartKey != nil {
		startSK := stringAttr(in.ExclusiveStartKey[skAttr])
		for i, item := range matched {
			if stringAttr(item[skAttr]) == startSK {
				start = i + 1
			}
		}
	}

	size := len(matched) - start
	if f.queryPageSize > 0 && size > f.queryPageSize {
		size = f.queryPageSize
	}
	page := matched[start : start+size]

	out := &dynamodb.QueryOutput{Items: page}
	if start+size < len(matched) && len(page) > 0 {
		out.LastEvaluatedKey = page[len(page)-1]
	}
	return out, nil
}

func rowEntries(batchID string, n int) []Entry {
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, Entry{
			PK:    BatchPK(batchID),
			SK:    RowSK(i),
			Value: models.BatchRowResult{BatchID: batchID, Row: i, Status: models.RowStatusSuccess},
		})
	}
	return entries
}

func TestDynamoPutBatchChunks(t *testing.T) {
	fake := newFakeDynamo()
	table := NewDynamoTable(fake, "sentiment-analysis")

	require.NoError(t, table.PutBatch(context.Background(), rowEntries("b1", 60)))

	assert.Equal(t, []int{25, 25, 10}, fake.batchCalls)
	assert.Len(t, fake.items, 60)
}

func TestDynamoPutBatchRetriesUnprocessed(t *testing.T) {
	fake := newFakeDynamo()
	fake.holdBack = 5
	table := NewDynamoTable(fake, "sentiment-analysis")
	table.backoff = 0

	require.NoError(t, table.PutBatch(context.Background(), rowEntries("b1", 10)))

	assert.Equal(t, []int{10, 5}, fake.batchCalls)
	assert.Len(t, fake.items, 10)
}

func TestDynamoPutBatchGivesUp(t *testing.T) {
	fake := newFakeDynamo()
	fake.holdBack = 1000
	table := NewDynamoTable(fake, "sentiment-analysis")
	table.backoff = 0

	err := table.PutBatch(context.Background(), rowEntries("b1", 3))
	require.Error(t, err)
	// first attempt plus maxBatchRetries retries
	assert.Len(t, fake.batchCalls, 1+maxBatchRetries)
}

func TestDynamoGetAndQuery(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	fake.queryPageSize = 2
	store := NewResultStore(NewDynamoTable(fake, "sentiment-analysis"))

	job := models.BatchJob{BatchID: "b1", UserID: "u1", TotalRows: 5, SuccessCount: 5, Status: models.BatchStatusCompleted}
	rows := make([]models.BatchRowResult, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, models.BatchRowResult{BatchID: "b1", Row: i, UserID: "u1", Status: models.RowStatusSuccess})
	}
	status, err := store.SaveBatch(ctx, job, rows)
	require.NoError(t, err)
	assert.Equal(t, WriteStatusSaved, status)

	item, found, err := store.GetItem(ctx, BatchPK("b1"), SummarySK)
	require.NoError(t, err)
	require.True(t, found)
	pk, sk := item.Keys()
	assert.Equal(t, BatchPK("b1"), pk)
	assert.Equal(t, SummarySK, sk)
	var got models.BatchJob
	require.NoError(t, item.Decode(&got))
	assert.Equal(t, job, got)

	// paginates past the fake's page size
	items, err := store.Query(ctx, BatchPK("b1"), RowPrefix, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, items, 5)

	items, err = store.Query(ctx, BatchPK("b1"), RowPrefix, QueryOptions{Limit: 3, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, items, 3)
	_, sk = items[0].Keys()
	assert.Equal(t, RowSK(4), sk)

	_, found, err = store.GetItem(ctx, BatchPK("missing"), SummarySK)
	require.NoError(t, err)
	assert.False(t, found)
}
