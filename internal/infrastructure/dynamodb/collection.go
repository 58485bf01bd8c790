// Package dynamodb reads the point collections from a DynamoDB table laid out
// as documents: the partition key PK holds the collection path and the sort
// key SK the document id. It provides live polling subscriptions, a one-shot
// graph fetch and key/value storage for the snapshot cache.
package dynamodb

import (
	"context"
	"fmt"
	"strings"

	"gridguardian-backend/internal/domain/graph"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	partitionKey = "PK"
	sortKey      = "SK"
	tracerName   = "gridguardian-backend/dynamodb"
)

// CollectionPath joins path segments into the PK value of a collection.
func CollectionPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// CollectionReader reads every document of a collection.
type CollectionReader struct {
	client  dynamodb.QueryAPIClient
	table   string
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewCollectionReader creates a reader over table. A nil breaker disables
// circuit breaking.
func NewCollectionReader(client dynamodb.QueryAPIClient, table string, breaker *gobreaker.CircuitBreaker, logger *zap.Logger) *CollectionReader {
	return &CollectionReader{
		client:  client,
		table:   table,
		breaker: breaker,
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
	}
}

// Table returns the table name.
func (r *CollectionReader) Table() string {
	return r.table
}

// ReadCollection returns the documents of the collection at path, ordered by id.
func (r *CollectionReader) ReadCollection(ctx context.Context, path string) ([]graph.Document, error) {
	ctx, span := r.tracer.Start(ctx, "dynamodb.ReadCollection",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "dynamodb"),
			attribute.String("db.operation", "Query"),
			attribute.String("aws.dynamodb.table_names", r.table),
			attribute.String("collection.path", path),
		),
	)
	defer span.End()

	run := func() (any, error) {
		return r.query(ctx, path)
	}
	var (
		result any
		err    error
	)
	if r.breaker != nil {
		result, err = r.breaker.Execute(run)
	} else {
		result, err = run()
	}
	if err != nil {
		classified := classifyError(err, "read_collection", path)
		span.RecordError(classified)
		span.SetStatus(codes.Error, classified.Message)
		return nil, classified
	}

	docs := result.([]graph.Document)
	span.SetAttributes(attribute.Int("collection.documents", len(docs)))
	return docs, nil
}

func (r *CollectionReader) query(ctx context.Context, path string) ([]graph.Document, error) {
	keyEx := expression.Key(partitionKey).Equal(expression.Value(path))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	docs := make([]graph.Document, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			var fields map[string]any
			if err := attributevalue.UnmarshalMap(item, &fields); err != nil {
				r.logger.Warn("Skipping undecodable item",
					zap.String("collection", path),
					zap.Error(err),
				)
				continue
			}
			id, _ := fields[sortKey].(string)
			if id == "" {
				continue
			}
			delete(fields, partitionKey)
			delete(fields, sortKey)
			docs = append(docs, graph.Document{ID: id, Fields: fields})
		}
	}
	return docs, nil
}
