// Package dynamo is a store.KeyValueStore backed by two DynamoDB tables
// whose key schema is a string partition key "PK" and string sort key "SK".
package dynamo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/fishing-catch-etl/internal/store"
)

// maxBatchWrite is the BatchWriteItem request limit.
const maxBatchWrite = 25

// API is the subset of the DynamoDB client the store uses.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Tables maps logical tables to DynamoDB table names.
type Tables map[store.Table]string

// Store reads and writes items through the DynamoDB API.
type Store struct {
	api        API
	tables     Tables
	pageSize   int32
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// New wraps an existing client.
func New(api API, tables Tables, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Store{
		api:        api,
		tables:     tables,
		pageSize:   int32(pageSize),
		maxRetries: 5,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
// A non-empty endpoint overrides the service URL, for DynamoDB Local.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *Store) tableName(t store.Table) (string, error) {
	name, ok := s.tables[t]
	if !ok || name == "" {
		return "", fmt.Errorf("no dynamodb table configured for %q", t)
	}
	return name, nil
}

// CheckReadiness describes every configured table.
func (s *Store) CheckReadiness(ctx context.Context) error {
	for _, name := range s.tables {
		if _, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}); err != nil {
			return fmt.Errorf("describe table %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) PutItem(ctx context.Context, table store.Table, item store.Item) error {
	name, err := s.tableName(table)
	if err != nil {
		return err
	}
	av, err := marshalItem(item)
	if err != nil {
		return err
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(name), Item: av}); err != nil {
		return fmt.Errorf("put item %s/%s: %w", item.PK, item.SK, err)
	}
	return nil
}

// BatchPutItems writes in chunks of 25. Items the service reports as
// unprocessed are resubmitted with exponential backoff. Duplicate key pairs
// within one call collapse to the last occurrence, since a single batch
// request may not contain the same key twice.
func (s *Store) BatchPutItems(ctx context.Context, table store.Table, items []store.Item) error {
	name, err := s.tableName(table)
	if err != nil {
		return err
	}

	reqs, err := writeRequests(dedupe(items))
	if err != nil {
		return err
	}
	for start := 0; start < len(reqs); start += maxBatchWrite {
		end := min(start+maxBatchWrite, len(reqs))
		if err := s.batchWrite(ctx, name, reqs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) batchWrite(ctx context.Context, table string, reqs []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{table: reqs}
	op := func() error {
		out, err := s.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("batch write %s: %w", table, err))
		}
		if len(out.UnprocessedItems[table]) > 0 {
			pending = out.UnprocessedItems
			return fmt.Errorf("batch write %s: %d items unprocessed", table, len(out.UnprocessedItems[table]))
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)
	return backoff.Retry(op, b)
}

func (s *Store) GetItem(ctx context.Context, table store.Table, pk, sk string) (store.Item, bool, error) {
	name, err := s.tableName(table)
	if err != nil {
		return store.Item{}, false, err
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(name),
		Key: map[string]types.AttributeValue{
			store.AttrPK: &types.AttributeValueMemberS{Value: pk},
			store.AttrSK: &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return store.Item{}, false, fmt.Errorf("get item %s/%s: %w", pk, sk, err)
	}
	if len(out.Item) == 0 {
		return store.Item{}, false, nil
	}
	it, err := unmarshalItem(out.Item)
	if err != nil {
		return store.Item{}, false, err
	}
	return it, true, nil
}

// Query issues one DynamoDB Query. The continuation token is the
// LastEvaluatedKey, JSON encoded and base64 wrapped.
func (s *Store) Query(ctx context.Context, table store.Table, pk string, cond store.SortKeyCondition, next string) (store.Page, error) {
	name, err := s.tableName(table)
	if err != nil {
		return store.Page{}, err
	}
	expr, err := keyCondition(pk, cond)
	if err != nil {
		return store.Page{}, err
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(s.pageSize),
	}
	if next != "" {
		start, err := decodeToken(next)
		if err != nil {
			return store.Page{}, err
		}
		in.ExclusiveStartKey = start
	}

	out, err := s.api.Query(ctx, in)
	if err != nil {
		return store.Page{}, fmt.Errorf("query %s: %w", pk, err)
	}

	page := store.Page{Items: make([]store.Item, 0, len(out.Items))}
	for _, av := range out.Items {
		it, err := unmarshalItem(av)
		if err != nil {
			return store.Page{}, err
		}
		page.Items = append(page.Items, it)
	}
	if len(out.LastEvaluatedKey) > 0 {
		page.Next, err = encodeToken(out.LastEvaluatedKey)
		if err != nil {
			return store.Page{}, err
		}
	}
	return page, nil
}

func keyCondition(pk string, cond store.SortKeyCondition) (expression.Expression, error) {
	kc := expression.Key(store.AttrPK).Equal(expression.Value(pk))
	sk := expression.Key(store.AttrSK)
	switch cond.Op {
	case store.SortEqual:
		kc = kc.And(sk.Equal(expression.Value(cond.Value)))
	case store.SortGreaterOrEqual:
		kc = kc.And(sk.GreaterThanEqual(expression.Value(cond.Value)))
	case store.SortBetween:
		kc = kc.And(sk.Between(expression.Value(cond.Value), expression.Value(cond.Upper)))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(kc).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("build key condition: %w", err)
	}
	return expr, nil
}

func marshalItem(it store.Item) (map[string]types.AttributeValue, error) {
	attrs := make(map[string]any, len(it.Attrs)+2)
	for k, v := range it.Attrs {
		attrs[k] = v
	}
	attrs[store.AttrPK] = it.PK
	attrs[store.AttrSK] = it.SK
	av, err := attributevalue.MarshalMap(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal item %s/%s: %w", it.PK, it.SK, err)
	}
	return av, nil
}

func unmarshalItem(av map[string]types.AttributeValue) (store.Item, error) {
	var attrs map[string]any
	if err := attributevalue.UnmarshalMap(av, &attrs); err != nil {
		return store.Item{}, fmt.Errorf("unmarshal item: %w", err)
	}
	pk, _ := attrs[store.AttrPK].(string)
	sk, _ := attrs[store.AttrSK].(string)
	delete(attrs, store.AttrPK)
	delete(attrs, store.AttrSK)
	return store.Item{PK: pk, SK: sk, Attrs: attrs}, nil
}

func writeRequests(items []store.Item) ([]types.WriteRequest, error) {
	reqs := make([]types.WriteRequest, 0, len(items))
	for _, it := range items {
		av, err := marshalItem(it)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	return reqs, nil
}

func dedupe(items []store.Item) []store.Item {
	type key struct{ pk, sk string }
	pos := make(map[key]int, len(items))
	out := make([]store.Item, 0, len(items))
	for _, it := range items {
		k := key{it.PK, it.SK}
		if i, ok := pos[k]; ok {
			out[i] = it
			continue
		}
		pos[k] = len(out)
		out = append(out, it)
	}
	return out
}

func encodeToken(key map[string]types.AttributeValue) (string, error) {
	var plain map[string]string
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", fmt.Errorf("encode continuation token: %w", err)
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("encode continuation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeToken(token string) (map[string]types.AttributeValue, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.Join(store.ErrBadCursor, err)
	}
	var plain map[string]string
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, errors.Join(store.ErrBadCursor, err)
	}
	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, errors.Join(store.ErrBadCursor, err)
	}
	return key, nil
}
