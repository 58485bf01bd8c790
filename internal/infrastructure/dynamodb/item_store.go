package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
)

const itemSortKey = "SNAPSHOT"

// ItemAPI is the subset of the DynamoDB client used by ItemStore.
type ItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// ItemStore keeps opaque values as single items keyed by PK.
type ItemStore struct {
	client  ItemAPI
	table   string
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

type valueItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      []byte `dynamodbav:"Data"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// NewItemStore creates an ItemStore on table. A nil breaker disables circuit
// breaking.
func NewItemStore(client ItemAPI, table string, breaker *gobreaker.CircuitBreaker) *ItemStore {
	return &ItemStore{client: client, table: table, breaker: breaker, now: time.Now}
}

func (s *ItemStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		partitionKey: &types.AttributeValueMemberS{Value: key},
		sortKey:      &types.AttributeValueMemberS{Value: itemSortKey},
	}
}

func (s *ItemStore) execute(fn func() (any, error)) (any, error) {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(fn)
}

// Get returns the value under key and whether it exists.
func (s *ItemStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.execute(func() (any, error) {
		return s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.table),
			Key:            s.itemKey(key),
			ConsistentRead: aws.Bool(true),
		})
	})
	if err != nil {
		return nil, false, classifyError(err, "get_item", key)
	}

	result := out.(*dynamodb.GetItemOutput)
	if len(result.Item) == 0 {
		return nil, false, nil
	}

	var item valueItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, classifyError(err, "get_item", key)
	}
	return item.Data, true, nil
}

// Put overwrites the value under key.
func (s *ItemStore) Put(ctx context.Context, key string, data []byte) error {
	av, err := attributevalue.MarshalMap(valueItem{
		PK:        key,
		SK:        itemSortKey,
		Data:      data,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return classifyError(err, "put_item", key)
	}

	_, err = s.execute(func() (any, error) {
		return s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      av,
		})
	})
	if err != nil {
		return classifyError(err, "put_item", key)
	}
	return nil
}

// Delete removes the value under key. Deleting a missing key succeeds.
func (s *ItemStore) Delete(ctx context.Context, key string) error {
	_, err := s.execute(func() (any, error) {
		return s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key:       s.itemKey(key),
		})
	})
	if err != nil {
		return classifyError(err, "delete_item", key)
	}
	return nil
}
