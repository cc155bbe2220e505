package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Stock     int             `db:"stock" json:"stock"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// User is the owner of a cart and of orders
type User struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Name  string    `db:"name" json:"name"`
	Email string    `db:"email" json:"email"`
	Phone string    `db:"phone" json:"phone"`
}

// CartLine is one (product, quantity) pairing in a user's cart
type CartLine struct {
	ProductID uuid.UUID `db:"product_id" json:"productId"`
	Quantity  int       `db:"quantity" json:"quantity"`
}

// CartItemView is a cart line resolved against the catalog for display.
// Name, Price and Stock are informational only.
type CartItemView struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`
}

// ProductView is the cached display projection of a product
type ProductView struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// View projects a product into its display form
func (p *Product) View() ProductView {
	return ProductView{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
}

// OrderLine is an immutable price snapshot of a cart line
type OrderLine struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Totals holds the computed money amounts of an order
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// AppliedPromotion is the promotion snapshot denormalized into an order
type AppliedPromotion struct {
	PromotionID    uuid.UUID       `json:"promotionId"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// Address is a shipping address snapshot
type Address struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// Contact is a customer contact snapshot
type Contact struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

// PaymentSummary never carries a full payment reference
type PaymentSummary struct {
	Method          string `json:"method"`
	MaskedReference string `json:"maskedReference,omitempty"`
	Status          string `json:"status"`
}

// Order represents a customer order
type Order struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"userId"`
	Items           []OrderLine       `json:"items"`
	Totals          Totals            `json:"totals"`
	Promotion       *AppliedPromotion `json:"promotion,omitempty"`
	ShippingAddress Address           `json:"shippingAddress"`
	Customer        Contact           `json:"customer"`
	Payment         PaymentSummary    `json:"payment"`
	Status          OrderStatus       `json:"status"`
	FulfillmentStep FulfillmentStep   `json:"fulfillmentStep"`
	IdempotencyKey  string            `json:"-"`
	CancelledAt     *time.Time        `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// RefundRequest records a customer's request to refund an order
type RefundRequest struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"orderId"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Reason    string    `db:"reason" json:"reason"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Payment statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Refund request statuses
const (
	RefundStatusRequested = "requested"
)
