package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, user_id, items, totals, promotion, shipping_address, customer, payment,
	status, fulfillment_step, idempotency_key, cancelled_at, created_at, updated_at`

// orderRow is the relational shape of an order; the snapshot parts are JSONB documents
type orderRow struct {
	ID              uuid.UUID      `db:"id"`
	UserID          uuid.UUID      `db:"user_id"`
	Items           []byte         `db:"items"`
	Totals          []byte         `db:"totals"`
	Promotion       []byte         `db:"promotion"`
	ShippingAddress []byte         `db:"shipping_address"`
	Customer        []byte         `db:"customer"`
	Payment         []byte         `db:"payment"`
	Status          string         `db:"status"`
	FulfillmentStep string         `db:"fulfillment_step"`
	IdempotencyKey  sql.NullString `db:"idempotency_key"`
	CancelledAt     *time.Time     `db:"cancelled_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func newOrderRow(o *models.Order) (*orderRow, error) {
	row := &orderRow{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		FulfillmentStep: string(o.FulfillmentStep),
		IdempotencyKey:  sql.NullString{String: o.IdempotencyKey, Valid: o.IdempotencyKey != ""},
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}

	docs := []struct {
		dst *[]byte
		src interface{}
	}{
		{&row.Items, o.Items},
		{&row.Totals, o.Totals},
		{&row.ShippingAddress, o.ShippingAddress},
		{&row.Customer, o.Customer},
		{&row.Payment, o.Payment},
	}
	for _, d := range docs {
		b, err := json.Marshal(d.src)
		if err != nil {
			return nil, fmt.Errorf("encode order document: %w", err)
		}
		*d.dst = b
	}

	if o.Promotion != nil {
		b, err := json.Marshal(o.Promotion)
		if err != nil {
			return nil, fmt.Errorf("encode order promotion: %w", err)
		}
		row.Promotion = b
	}
	return row, nil
}

func (r *orderRow) toModel() (*models.Order, error) {
	o := &models.Order{
		ID:              r.ID,
		UserID:          r.UserID,
		Status:          models.OrderStatus(r.Status),
		FulfillmentStep: models.FulfillmentStep(r.FulfillmentStep),
		IdempotencyKey:  r.IdempotencyKey.String,
		CancelledAt:     r.CancelledAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}

	docs := []struct {
		src []byte
		dst interface{}
	}{
		{r.Items, &o.Items},
		{r.Totals, &o.Totals},
		{r.ShippingAddress, &o.ShippingAddress},
		{r.Customer, &o.Customer},
		{r.Payment, &o.Payment},
	}
	for _, d := range docs {
		if err := json.Unmarshal(d.src, d.dst); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", r.ID, err)
		}
	}

	if len(r.Promotion) > 0 && string(r.Promotion) != "null" {
		o.Promotion = &models.AppliedPromotion{}
		if err := json.Unmarshal(r.Promotion, o.Promotion); err != nil {
			return nil, fmt.Errorf("decode order %s promotion: %w", r.ID, err)
		}
	}
	return o, nil
}

// jsonb passes an encoded document as text; lib/pq would send []byte as bytea
func jsonb(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

func rowsToOrders(rows []orderRow) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// PlaceOrderParams is everything checkout persists in one transaction
type PlaceOrderParams struct {
	Order *models.Order
	// Usage is nil when no promotion discount applies
	Usage *models.PromotionUsage
}

// PlaceOrder writes the order, takes stock for every line, records the
// promotion usage and empties the owner's cart as one transaction.
// Any failure leaves the cart, stock and usage ledger untouched.
func (s *Store) PlaceOrder(ctx context.Context, p PlaceOrderParams) error {
	row, err := newOrderRow(p.Order)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, items, totals, promotion, shipping_address, customer, payment,
			status, fulfillment_step, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		row.ID, row.UserID, jsonb(row.Items), jsonb(row.Totals), jsonb(row.Promotion),
		jsonb(row.ShippingAddress), jsonb(row.Customer), jsonb(row.Payment), row.Status,
		row.FulfillmentStep, row.IdempotencyKey, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range p.Order.Items {
		if err := takeStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}

	if p.Usage != nil {
		if err := recordUsage(ctx, tx, p.Usage); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", p.Order.UserID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return tx.Commit()
}

func takeStock(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID, quantity int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("take stock for %s: %w", productID, err)
	}
	return expectOneRow(res, fmt.Errorf("%w: product %s", ErrInsufficientStock, productID))
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return row.toModel()
}

// GetOrderByIdempotencyKey returns nil, nil when the user never used key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 AND idempotency_key = $2", userID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order by idempotency key: %w", err)
	}
	return row.toModel()
}

// ListOrdersByUser returns one page of the user's orders, newest first, and the total count
func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders WHERE user_id = $1", userID); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	orders, err := rowsToOrders(rows)
	return orders, total, err
}

// ListOrders returns one page of all orders, optionally filtered by status
func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus, limit, offset int) ([]models.Order, int, error) {
	where, args := "", []interface{}{}
	if status != "" {
		where, args = " WHERE status = $1", append(args, string(status))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)+1, len(args)+2)

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	orders, err := rowsToOrders(rows)
	return orders, total, err
}

// TransitionOrderStatus moves an order from one status to another. It
// returns ErrStaleState if the order is no longer in from, or if it is being
// cancelled after its fulfillment finished.
func (s *Store) TransitionOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE orders
		SET status = $1,
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
			updated_at = NOW()
		WHERE id = $2 AND status = $3
			AND ($1 <> 'cancelled' OR fulfillment_step <> 'finished')
		RETURNING `+orderColumns,
		string(to), id, string(from))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return row.toModel()
}

// UpdateFulfillmentStep advances the fulfillment step of an approved order
// that is still at from.
func (s *Store) UpdateFulfillmentStep(ctx context.Context, id uuid.UUID, from, to models.FulfillmentStep) (*models.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE orders
		SET fulfillment_step = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'approved' AND fulfillment_step = $3
		RETURNING `+orderColumns,
		string(to), id, string(from))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, fmt.Errorf("update fulfillment step: %w", err)
	}
	return row.toModel()
}

// CreateRefundRequest stores a refund request; an order may only have one
func (s *Store) CreateRefundRequest(ctx context.Context, r *models.RefundRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refund_requests (id, order_id, user_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.OrderID, r.UserID, r.Reason, r.Status, r.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create refund request: %w", err)
	}
	return nil
}

// RestockOrder returns the given quantities to stock exactly once per
// eventID. It reports false when the event was already applied.
func (s *Store) RestockOrder(ctx context.Context, eventID, eventType string, items []models.OrderItemData) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	for _, item := range items {
		// A product deleted since checkout has nowhere to return stock to.
		_, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
			item.Quantity, item.ProductID)
		if err != nil {
			return false, fmt.Errorf("restock %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
