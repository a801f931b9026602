package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoBatchSize is the BatchWriteItem request limit.
const dynamoBatchSize = 25

// maxUnprocessedRetries bounds resubmission of throttled batch items.
const maxUnprocessedRetries = 5

// DynamoConfig configures the DynamoDB backend.
//
// Tables are named TablePrefix + collection and must have a string
// partition key "id". Endpoint points the client at DynamoDB Local.
type DynamoConfig struct {
	Region          string
	Endpoint        string
	TablePrefix     string
	AccessKeyID     string
	SecretAccessKey string
}

// dynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type dynamoAPI interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type dynamoRow struct {
	ID        string `dynamodbav:"id"`
	Data      string `dynamodbav:"data"`
	CreatedAt string `dynamodbav:"created_at"`
}

// DynamoStore stores rows in DynamoDB, one table per collection.
type DynamoStore struct {
	client dynamoAPI
	prefix string
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore builds a client from cfg and the default AWS credential
// chain. Static credentials are used when both keys are set, or with
// placeholder values when only an endpoint is given (DynamoDB Local ignores
// them but the SDK requires some).
func NewDynamoStore(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	case cfg.Endpoint != "":
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &DynamoStore{client: client, prefix: cfg.TablePrefix}, nil
}

func newDynamoStoreWithClient(client dynamoAPI, prefix string) *DynamoStore {
	return &DynamoStore{client: client, prefix: prefix}
}

func (s *DynamoStore) Configured() bool { return true }

func (s *DynamoStore) Close() error { return nil }

func (s *DynamoStore) tableName(table string) (*string, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return aws.String(s.prefix + table), nil
}

func (s *DynamoStore) SelectAll(ctx context.Context, table string) ([]Row, error) {
	name, err := s.tableName(table)
	if err != nil {
		return nil, err
	}

	var items []dynamoRow
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         name,
			ExclusiveStartKey: startKey,
			ConsistentRead:    aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}

		var page []dynamoRow
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to decode %s items: %w", table, err)
		}
		items = append(items, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	rows := make([]Row, 0, len(items))
	for _, it := range items {
		row, err := it.toRow()
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", table, it.ID, err)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows, nil
}

func (s *DynamoStore) SelectOne(ctx context.Context, table, id string) (Row, error) {
	name, err := s.tableName(table)
	if err != nil {
		return Row{}, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: name,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Row{}, fmt.Errorf("failed to get %s/%s: %w", table, id, err)
	}
	if len(out.Item) == 0 {
		return Row{}, fmt.Errorf("%s/%s: %w", table, id, ErrNotFound)
	}

	var it dynamoRow
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return Row{}, fmt.Errorf("failed to decode %s/%s: %w", table, id, err)
	}
	return it.toRow()
}

func (s *DynamoStore) Upsert(ctx context.Context, table string, rows []Row) error {
	name, err := s.tableName(table)
	if err != nil {
		return err
	}

	requests := make([]types.WriteRequest, 0, len(rows))
	for _, row := range rows {
		av, err := attributevalue.MarshalMap(dynamoRow{
			ID:        row.ID,
			Data:      string(row.Data),
			CreatedAt: row.CreatedAt.UTC().Format(timeLayout),
		})
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", table, row.ID, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	return s.batchWrite(ctx, *name, requests)
}

func (s *DynamoStore) DeleteAll(ctx context.Context, table string) error {
	name, err := s.tableName(table)
	if err != nil {
		return err
	}

	var requests []types.WriteRequest
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            name,
			ExclusiveStartKey:    startKey,
			ProjectionExpression: aws.String("#id"),
			ExpressionAttributeNames: map[string]string{
				"#id": "id",
			},
		})
		if err != nil {
			return fmt.Errorf("failed to scan %s ids: %w", table, err)
		}
		for _, item := range out.Items {
			id, ok := item["id"].(*types.AttributeValueMemberS)
			if !ok || id.Value == "" {
				continue
			}
			requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{"id": id},
			}})
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return s.batchWrite(ctx, *name, requests)
}

func (s *DynamoStore) DeleteOne(ctx context.Context, table, id string) error {
	name, err := s.tableName(table)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: name,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, id, err)
	}
	return nil
}

// batchWrite submits requests in chunks, resubmitting unprocessed items.
func (s *DynamoStore) batchWrite(ctx context.Context, table string, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += dynamoBatchSize {
		end := min(start+dynamoBatchSize, len(requests))
		pending := map[string][]types.WriteRequest{table: requests[start:end]}

		for attempt := 0; len(pending[table]) > 0; attempt++ {
			if attempt > maxUnprocessedRetries {
				return fmt.Errorf("batch write to %s: %d items left unprocessed", table, len(pending[table]))
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(attempt*50) * time.Millisecond):
				}
			}

			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("batch write to %s: %w", table, err)
			}
			pending = out.UnprocessedItems
			if pending == nil {
				break
			}
		}
	}
	return nil
}

func (it dynamoRow) toRow() (Row, error) {
	row := Row{ID: it.ID, Data: []byte(it.Data)}
	if it.CreatedAt != "" {
		t, err := parseTimeString(it.CreatedAt)
		if err != nil {
			return Row{}, err
		}
		row.CreatedAt = t
	}
	if len(row.Data) == 0 {
		return Row{}, errors.New("row has no data")
	}
	return row, nil
}
