// Package eventbridge announces graph changes on an EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gridguardian-backend/internal/domain/graph"
	apperrors "gridguardian-backend/internal/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventTypeGraphSynced is the detail type of GraphSynced events.
const EventTypeGraphSynced = "GraphSynced"

// PutEventsAPI is the subset of the EventBridge client used by Publisher.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// GraphSynced summarizes a published graph state.
type GraphSynced struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	OccurredAt time.Time `json:"occurredAt"`
	PointCount int       `json:"pointCount"`
	EdgeCount  int       `json:"edgeCount"`
	PointIDs   []string  `json:"pointIds"`
	Error      string    `json:"error,omitempty"`
}

// NewGraphSynced builds the event for state.
func NewGraphSynced(state graph.State, now time.Time) GraphSynced {
	ids := make([]string, len(state.Points))
	for i, p := range state.Points {
		ids[i] = p.ID
	}
	ev := GraphSynced{
		EventID:    uuid.NewString(),
		EventType:  EventTypeGraphSynced,
		OccurredAt: now.UTC(),
		PointCount: len(state.Points),
		EdgeCount:  len(state.Edges),
		PointIDs:   ids,
	}
	if state.Err != nil {
		ev.Error = state.Err.Error()
	}
	return ev
}

// Publisher sends graph events to one bus.
type Publisher struct {
	client       PutEventsAPI
	eventBusName string
	source       string
	now          func() time.Time
	logger       *zap.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(client PutEventsAPI, eventBusName, source string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		source:       source,
		now:          time.Now,
		logger:       logger,
	}
}

// PublishGraphSynced announces state on the bus.
func (p *Publisher) PublishGraphSynced(ctx context.Context, state graph.State) error {
	event := NewGraphSynced(state, p.now())

	detail, err := json.Marshal(event)
	if err != nil {
		return apperrors.Internal(string(apperrors.CodeEventPublishFailed), "failed to encode event").
			WithOperation("publish_graph_synced").
			WithCause(err).
			Build()
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(EventTypeGraphSynced),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.OccurredAt),
		}},
	})
	if err != nil {
		return apperrors.External(string(apperrors.CodeEventBridgeError), "failed to publish event to EventBridge").
			WithOperation("publish_graph_synced").
			WithResource(p.eventBusName).
			WithCause(err).
			Build()
	}

	if result.FailedEntryCount > 0 {
		var code, message string
		if len(result.Entries) > 0 {
			code = aws.ToString(result.Entries[0].ErrorCode)
			message = aws.ToString(result.Entries[0].ErrorMessage)
		}
		p.logger.Error("Failed to publish event",
			zap.String("eventType", EventTypeGraphSynced),
			zap.String("errorCode", code),
			zap.String("errorMessage", message),
		)
		return apperrors.External(string(apperrors.CodeEventPublishFailed), "event rejected by EventBridge").
			WithOperation("publish_graph_synced").
			WithResource(p.eventBusName).
			WithDetails(fmt.Sprintf("%s: %s", code, message)).
			Build()
	}

	p.logger.Debug("Event published to EventBridge",
		zap.String("eventId", event.EventID),
		zap.Int("points", event.PointCount),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}

// NopPublisher discards events when publishing is disabled.
type NopPublisher struct{}

// PublishGraphSynced does nothing.
func (NopPublisher) PublishGraphSynced(context.Context, graph.State) error { return nil }
