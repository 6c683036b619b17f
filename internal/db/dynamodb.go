package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkAttr = "PK"
	skAttr = "SK"

	maxBatchWriteSize = 25
	maxBatchRetries   = 3
	initialBackoff    = 500 * time.Millisecond
)

type DynamoAPI interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoTable is a single DynamoDB table keyed by string attributes PK and SK.
type DynamoTable struct {
	client  DynamoAPI
	name    string
	backoff time.Duration
}

func NewDynamoTable(client DynamoAPI, name string) *DynamoTable {
	return &DynamoTable{client: client, name: name, backoff: initialBackoff}
}

func (t *DynamoTable) Put(ctx context.Context, e Entry) error {
	item, err := toDynamoDBItem(e)
	if err != nil {
		return err
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to put %s/%s: %w", e.PK, e.SK, err)
	}
	return nil
}

func (t *DynamoTable) PutBatch(ctx context.Context, entries []Entry) error {
	for i := 0; i < len(entries); i += maxBatchWriteSize {
		select {
		case <-ctx.Done():
			slog.Warn("[DynamoDB] context canceled")
			return ctx.Err()
		default:
		}

		end := min(i+maxBatchWriteSize, len(entries))

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, e := range entries[i:end] {
			item, err := toDynamoDBItem(e)
			if err != nil {
				return err
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				t.name: writeRequests,
			},
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to batch write items: %w", err)
		}

		// Retry writing unprocessed items
		retryCount := 0
		backoff := t.backoff
		for len(out.UnprocessedItems) > 0 && retryCount < maxBatchRetries {
			time.Sleep(backoff)
			backoff *= 2
			slog.Warn("[DynamoDB] Retrying unprocessed items...",
				slog.Int("retry_attempt", retryCount+1),
				slog.Int("remaining_items", len(out.UnprocessedItems[t.name])))

			out, err = t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: out.UnprocessedItems,
			})
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to retry batch write: %w", err)
			}
			retryCount++
		}

		if remaining := len(out.UnprocessedItems[t.name]); remaining > 0 {
			slog.Error("[DynamoDB] Some items were not written even after retries",
				slog.Int("remaining_items", remaining))
			return fmt.Errorf("[DynamoDB] %d items left unprocessed", remaining)
		}
	}
	return nil
}

func (t *DynamoTable) Get(ctx context.Context, pk, sk string) (Item, bool, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key: map[string]types.AttributeValue{
			pkAttr: &types.AttributeValueMemberS{Value: pk},
			skAttr: &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("[DynamoDB] Failed to get %s/%s: %w", pk, sk, err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	return dynamoItem(out.Item), true, nil
}

func (t *DynamoTable) Query(ctx context.Context, pk, skPrefix string, opts QueryOptions) ([]Item, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.name),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		ScanIndexForward: aws.Bool(!opts.NewestFirst),
	}
	if skPrefix != "" {
		input.KeyConditionExpression = aws.String("PK = :pk AND begins_with(SK, :prefix)")
		input.ExpressionAttributeValues[":prefix"] = &types.AttributeValueMemberS{Value: skPrefix}
	}
	if opts.Limit > 0 {
		input.Limit = aws.Int32(int32(opts.Limit))
	}

	var items []Item
	paginator := dynamodb.NewQueryPaginator(t.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Query on %s failed: %w", pk, err)
		}
		for _, raw := range out.Items {
			items = append(items, dynamoItem(raw))
			if opts.Limit > 0 && len(items) == opts.Limit {
				return items, nil
			}
		}
	}

	slog.Debug("[DynamoDB] Query complete",
		slog.String("pk", pk),
		slog.String("prefix", skPrefix),
		slog.Int("count", len(items)))
	return items, nil
}

type dynamoItem map[string]types.AttributeValue

func (d dynamoItem) Keys() (string, string) {
	return stringAttr(d[pkAttr]), stringAttr(d[skAttr])
}

func (d dynamoItem) Decode(out any) error {
	return attributevalue.UnmarshalMap(d, out)
}

func stringAttr(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func toDynamoDBItem(e Entry) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(e.Value)
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to marshal %s/%s: %w", e.PK, e.SK, err)
	}
	item[pkAttr] = &types.AttributeValueMemberS{Value: e.PK}
	item[skAttr] = &types.AttributeValueMemberS{Value: e.SK}
	return item, nil
}
