package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(id fmt.Stringer) string {
	return "order-" + id.String()
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event.EventType, event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event.EventType, event)
}

// PublishPromotionApplied publishes PromotionApplied event
func (ep *EventPublisher) PublishPromotionApplied(ctx context.Context, event *models.PromotionAppliedEvent) error {
	return ep.producer.PublishEvent(ctx, "promotion-"+event.PromotionID.String(), event.EventType, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderCancelled func(context.Context, *models.OrderCancelledEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderCancelled registers a handler for OrderCancelled events
func (eh *EventHandler) OnOrderCancelled(handler func(context.Context, *models.OrderCancelledEvent) error) {
	eh.onOrderCancelled = handler
}

// HandleMessage routes messages to appropriate handlers. Event types
// without a registered handler are acknowledged and skipped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderCancelled:
		if eh.onOrderCancelled != nil {
			var event models.OrderCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCancelled event: %w", err)
			}
			eh.logger.Info("Handling event",
				zap.String("event_type", baseEvent.EventType),
				zap.String("event_id", baseEvent.EventID),
			)
			return eh.onOrderCancelled(ctx, &event)
		}

	default:
		eh.logger.Debug("Skipping event", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
