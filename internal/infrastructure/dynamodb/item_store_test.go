package dynamodb

import (
	"context"
	"testing"
	"time"

	apperrors "gridguardian-backend/internal/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockItemClient struct {
	mock.Mock
}

func (m *MockItemClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *MockItemClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *MockItemClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func keyIs(key map[string]types.AttributeValue, pk string) bool {
	v, ok := key["PK"].(*types.AttributeValueMemberS)
	return ok && v.Value == pk
}

func TestItemStore_PutThenGet(t *testing.T) {
	client := &MockItemClient{}
	store := NewItemStore(client, "cache", nil)
	store.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	var saved map[string]types.AttributeValue
	client.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return *in.TableName == "cache" && keyIs(in.Item, "latam_graph_v1")
	})).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*dynamodb.PutItemInput).Item
	}).Return(&dynamodb.PutItemOutput{}, nil).Once()

	// Act
	require.NoError(t, store.Put(ctx, "latam_graph_v1", []byte(`{"version":1}`)))

	// Assert
	require.NotNil(t, saved)
	var item valueItem
	require.NoError(t, attributevalue.UnmarshalMap(saved, &item))
	assert.Equal(t, "SNAPSHOT", item.SK)
	assert.Equal(t, "2024-05-01T12:00:00Z", item.UpdatedAt)

	client.On("GetItem", ctx, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return keyIs(in.Key, "latam_graph_v1")
	})).Return(&dynamodb.GetItemOutput{Item: saved}, nil).Once()

	data, ok, err := store.Get(ctx, "latam_graph_v1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"version":1}`, string(data))
	client.AssertExpectations(t)
}

func TestItemStore_GetMissing(t *testing.T) {
	client := &MockItemClient{}
	client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)
	store := NewItemStore(client, "cache", nil)

	data, ok, err := store.Get(context.Background(), "absent")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestItemStore_Errors(t *testing.T) {
	client := &MockItemClient{}
	apiErr := &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "busy"}
	client.On("GetItem", mock.Anything, mock.Anything).Return(nil, apiErr)
	client.On("DeleteItem", mock.Anything, mock.Anything).Return(nil, apiErr)
	store := NewItemStore(client, "cache", nil)

	_, _, err := store.Get(context.Background(), "k")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))
	assert.Equal(t, "get_item", apperrors.As(err).Operation)

	err = store.Delete(context.Background(), "k")
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, "delete_item", apperrors.As(err).Operation)
}

func TestItemStore_Delete(t *testing.T) {
	client := &MockItemClient{}
	client.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		return keyIs(in.Key, "k")
	})).Return(&dynamodb.DeleteItemOutput{}, nil).Once()

	require.NoError(t, NewItemStore(client, "cache", nil).Delete(context.Background(), "k"))
	client.AssertExpectations(t)
}
