package service

import (
	"context"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"

	"github.com/google/uuid"
)

// CatalogReader resolves users and authoritative product records
type CatalogReader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// CartStore persists cart lines
type CartStore interface {
	CatalogReader
	GetCartLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	CountCartItems(ctx context.Context, userID uuid.UUID) (int, error)
	AddCartItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	SetCartItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID uuid.UUID) error
}

// ProductCache holds display-only product views
type ProductCache interface {
	GetProductViews(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductView, error)
	SetProductViews(ctx context.Context, views []models.ProductView, ttl time.Duration) error
	InvalidateProducts(ctx context.Context, ids ...uuid.UUID) error
}

// PromotionStore persists promotions and their usage ledger
type PromotionStore interface {
	CreatePromotion(ctx context.Context, p *models.Promotion) error
	GetPromotionByCode(ctx context.Context, code string) (*models.Promotion, error)
	GetPromotionByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	ListPromotions(ctx context.Context, limit, offset int) ([]models.Promotion, int, error)
	DeactivatePromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	DeletePromotion(ctx context.Context, id uuid.UUID) error
	CountUserPromotionUsages(ctx context.Context, promotionID, userID uuid.UUID) (int, error)
	RecordPromotionUsage(ctx context.Context, u *models.PromotionUsage) error
}

// OrderStore persists orders and runs the checkout transaction
type OrderStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetCartLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	PlaceOrder(ctx context.Context, p store.PlaceOrderParams) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int, error)
	ListOrders(ctx context.Context, status models.OrderStatus, limit, offset int) ([]models.Order, int, error)
	TransitionOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error)
	UpdateFulfillmentStep(ctx context.Context, id uuid.UUID, from, to models.FulfillmentStep) (*models.Order, error)
	CreateRefundRequest(ctx context.Context, r *models.RefundRequest) error
}

// RestockStore returns cancelled quantities to stock once per event
type RestockStore interface {
	RestockOrder(ctx context.Context, eventID, eventType string, items []models.OrderItemData) (bool, error)
}

// OrderCancelledHandler restores what a cancelled order took
type OrderCancelledHandler interface {
	HandleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// IdempotencyStore maps a caller's Idempotency-Key to the order it created
type IdempotencyStore interface {
	LookupOrder(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error)
	RememberOrder(ctx context.Context, userID uuid.UUID, key string, orderID uuid.UUID, ttl time.Duration) error
}

// EventPublisher emits domain events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishPromotionApplied(ctx context.Context, event *models.PromotionAppliedEvent) error
}

// PageRequest is a 1-based page number and a page size
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
