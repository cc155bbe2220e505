package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated     = "ORDER_CREATED"
	EventTypeOrderCancelled   = "ORDER_CANCELLED"
	EventTypePromotionApplied = "PROMOTION_APPLIED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// OrderCreatedEvent published when checkout commits an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
	Items   []OrderItemData `json:"items"`
	Code    string          `json:"promotion_code,omitempty"`
}

// OrderCancelledEvent published when an owner cancels an order.
// Consumers use Items to return stock.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Items   []OrderItemData `json:"items"`
}

// PromotionAppliedEvent published when a promotion usage is recorded outside checkout
type PromotionAppliedEvent struct {
	BaseEvent
	PromotionID    uuid.UUID       `json:"promotion_id"`
	Code           string          `json:"code"`
	UserID         uuid.UUID       `json:"user_id"`
	OrderValue     decimal.Decimal `json:"order_value"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ItemData projects order lines into event payload items
func ItemData(lines []OrderLine) []OrderItemData {
	items := make([]OrderItemData, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItemData{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return items
}
