package service

import (
	"context"
	"errors"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PromotionQuoter prices a promotion code for checkout without failing
type PromotionQuoter interface {
	Quote(ctx context.Context, userID uuid.UUID, code string, subtotal decimal.Decimal) (*models.Promotion, decimal.Decimal)
}

// OrderConfig holds the checkout settings read from configuration
type OrderConfig struct {
	ShippingFee     decimal.Decimal
	CheckoutTimeout time.Duration
	IdempotencyTTL  time.Duration
}

// OrderService handles order business logic
type OrderService struct {
	store       OrderStore
	promotions  PromotionQuoter
	idempotency IdempotencyStore
	cache       ProductCache
	publisher   EventPublisher
	restock     OrderCancelledHandler
	cfg         OrderConfig
	now         func() time.Time
	logger      *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store OrderStore,
	promotions PromotionQuoter,
	idempotency IdempotencyStore,
	cache ProductCache,
	publisher EventPublisher,
	cfg OrderConfig,
) *OrderService {
	return &OrderService{
		store:       store,
		promotions:  promotions,
		idempotency: idempotency,
		cache:       cache,
		publisher:   publisher,
		cfg:         cfg,
		now:         time.Now,
		logger:      util.GetLogger(),
	}
}

// SetRestockFallback installs the handler Cancel calls directly when the
// ORDER_CANCELLED event cannot be published. The event id is shared with the
// published event, so a late delivery is skipped by the restock dedupe.
func (s *OrderService) SetRestockFallback(h OrderCancelledHandler) {
	s.restock = h
}

// PromotionInput names the code the customer wants applied
type PromotionInput struct {
	Code string `json:"code"`
}

// CheckoutRequest is the body of POST /orders. Client-submitted items and
// totals are accepted for compatibility and ignored.
type CheckoutRequest struct {
	Customer        models.Contact  `json:"customer"`
	ShippingAddress models.Address  `json:"shippingAddress"`
	Payment         PaymentInput    `json:"payment"`
	Items           interface{}     `json:"items,omitempty"`
	Totals          interface{}     `json:"totals,omitempty"`
	Promotion       *PromotionInput `json:"promotion,omitempty"`
	IdempotencyKey  string          `json:"-"`
}

// CheckoutResult is the created order. Replayed is set when an earlier
// request with the same Idempotency-Key already created it.
type CheckoutResult struct {
	Order    *models.Order
	Replayed bool
}

// Checkout turns the caller's cart into a pending order. The steps run
// strictly in sequence: cart snapshot, price recomputation, promotion
// evaluation, then a single transaction that writes the order, takes stock,
// records promotion usage and empties the cart.
func (s *OrderService) Checkout(ctx context.Context, caller auth.Caller, req *CheckoutRequest) (*CheckoutResult, error) {
	if s.cfg.CheckoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CheckoutTimeout)
		defer cancel()
	}

	userID := caller.CallerID()
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout", "user_id", userID.String())
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if req.IdempotencyKey != "" {
		existing, err := s.findIdempotent(ctx, userID, req.IdempotencyKey)
		if err != nil {
			return nil, Internal(err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID.String()))
			return &CheckoutResult{Order: existing, Replayed: true}, nil
		}
	}

	payment, err := req.Payment.Summarize()
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_payment").Inc()
		return nil, err
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, Internal(err)
	}

	lines, err := s.store.GetCartLines(ctx, userID)
	if err != nil {
		return nil, Internal(err)
	}
	if len(lines) == 0 {
		util.OrdersFailedTotal.WithLabelValues("cart_empty").Inc()
		return nil, ErrCartEmpty
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs(lines))
	if err != nil {
		return nil, Internal(err)
	}

	items, subtotal, err := Price(lines, indexProducts(products))
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("cart_empty").Inc()
		return nil, err
	}

	var promo *models.Promotion
	discount := decimal.Zero
	if req.Promotion != nil && req.Promotion.Code != "" {
		promo, discount = s.promotions.Quote(ctx, userID, req.Promotion.Code, subtotal)
	}

	now := s.now()
	order := &models.Order{
		ID:     uuid.New(),
		UserID: userID,
		Items:  items,
		Totals: models.Totals{
			Subtotal: subtotal,
			Discount: discount,
			Shipping: s.cfg.ShippingFee,
			Total:    subtotal.Sub(discount).Add(s.cfg.ShippingFee),
		},
		ShippingAddress: req.ShippingAddress,
		Customer:        req.Customer,
		Payment:         payment,
		Status:          models.OrderStatusPending,
		FulfillmentStep: models.FulfillmentNone,
		IdempotencyKey:  req.IdempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	params := store.PlaceOrderParams{Order: order}
	if promo != nil {
		order.Promotion = &models.AppliedPromotion{
			PromotionID:    promo.ID,
			Code:           promo.Code,
			DiscountAmount: discount,
		}
		params.Usage = &models.PromotionUsage{
			ID:              uuid.New(),
			PromotionID:     promo.ID,
			UserID:          userID,
			OrderID:         &order.ID,
			UsedAt:          now,
			OrderValue:      subtotal,
			DiscountApplied: discount,
		}
	}

	if err := s.store.PlaceOrder(ctx, params); err != nil {
		util.RecordError(span, err)
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
		case errors.Is(err, store.ErrDuplicate) && req.IdempotencyKey != "":
			// a concurrent request with the same key won the insert
			existing, lookupErr := s.store.GetOrderByIdempotencyKey(ctx, userID, req.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return &CheckoutResult{Order: existing, Replayed: true}, nil
			}
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, Internal(err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total", order.Totals.Total.StringFixed(2)))

	s.afterCheckout(ctx, order)
	return &CheckoutResult{Order: order}, nil
}

// afterCheckout runs the best-effort side effects of a committed order
func (s *OrderService) afterCheckout(ctx context.Context, order *models.Order) {
	if order.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.RememberOrder(ctx, order.UserID, order.IdempotencyKey, order.ID, s.cfg.IdempotencyTTL); err != nil {
			s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
		}
	}

	if s.cache != nil {
		ids := make([]uuid.UUID, len(order.Items))
		for i, item := range order.Items {
			ids[i] = item.ProductID
		}
		if err := s.cache.InvalidateProducts(ctx, ids...); err != nil {
			s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}

	event := &models.OrderCreatedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderCreated),
		OrderID:   order.ID,
		UserID:    order.UserID,
		Total:     order.Totals.Total,
		Items:     models.ItemData(order.Items),
	}
	if order.Promotion != nil {
		event.Code = order.Promotion.Code
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}

// findIdempotent returns the order an earlier request with key created, if any.
// The cache is consulted first; the store is authoritative.
func (s *OrderService) findIdempotent(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	if s.idempotency != nil {
		id, found, err := s.idempotency.LookupOrder(ctx, userID, key)
		if err != nil {
			s.logger.Warn("Idempotency cache lookup failed", zap.Error(err))
		} else if found {
			order, err := s.store.GetOrderByID(ctx, id)
			if err == nil {
				return order, nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
	}
	return s.store.GetOrderByIdempotencyKey(ctx, userID, key)
}

// Get returns an order visible to caller: its owner or any admin
func (s *OrderService) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Get", "order_id", id.String())
	defer span.End()

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsAdmin(caller) && order.UserID != caller.CallerID() {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

// GetMine returns one page of the caller's orders, newest first
func (s *OrderService) GetMine(ctx context.Context, caller auth.Caller, page PageRequest) ([]models.Order, int, error) {
	orders, total, err := s.store.ListOrdersByUser(ctx, caller.CallerID(), page.Limit, page.Offset())
	if err != nil {
		return nil, 0, Internal(err)
	}
	return orders, total, nil
}

// Cancel lets the owner cancel a pending or approved order whose fulfillment
// has not finished. Stock is returned asynchronously by the restock worker,
// or inline when the event cannot be published.
func (s *OrderService) Cancel(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel", "order_id", id.String())
	defer span.End()

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.CallerID() {
		return nil, ErrNotOrderOwner
	}
	if !order.Status.CanCancel() {
		return nil, Validation("order cannot be cancelled because it is already %s", order.Status)
	}
	if !order.CanCancel() {
		return nil, Validation("order cannot be cancelled because fulfillment is %s", order.FulfillmentStep)
	}

	cancelled, err := s.transition(ctx, order, models.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}
	util.OrdersCancelledTotal.Inc()

	event := &models.OrderCancelledEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   cancelled.ID,
		UserID:    cancelled.UserID,
		Items:     models.ItemData(cancelled.Items),
	}
	if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event",
			zap.String("order_id", cancelled.ID.String()),
			zap.Error(err))
		s.restockInline(ctx, event)
	}

	s.logger.Info("Order cancelled", zap.String("order_id", cancelled.ID.String()))
	return cancelled, nil
}

// RequestRefund records a refund request for an eligible order owned by caller
func (s *OrderService) RequestRefund(ctx context.Context, caller auth.Caller, id uuid.UUID, reason string) (*models.RefundRequest, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.RequestRefund", "order_id", id.String())
	defer span.End()

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != caller.CallerID() {
		return nil, ErrNotOrderOwner
	}
	if !order.EligibleForRefund() {
		return nil, Validation("order is not eligible for a refund")
	}

	refund := &models.RefundRequest{
		ID:        uuid.New(),
		OrderID:   order.ID,
		UserID:    order.UserID,
		Reason:    reason,
		Status:    models.RefundStatusRequested,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateRefundRequest(ctx, refund); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, Conflict("a refund has already been requested for this order")
		}
		return nil, Internal(err)
	}

	s.logger.Info("Refund requested", zap.String("order_id", order.ID.String()))
	return refund, nil
}

// ListAll returns one page of all orders, optionally filtered by status
func (s *OrderService) ListAll(ctx context.Context, status string, page PageRequest) ([]models.Order, int, error) {
	var filter models.OrderStatus
	if status != "" {
		parsed, ok := models.ParseOrderStatus(status)
		if !ok {
			return nil, 0, Validation("invalid status value %q", status)
		}
		filter = parsed
	}

	orders, total, err := s.store.ListOrders(ctx, filter, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, Internal(err)
	}
	return orders, total, nil
}

// UpdateStatus applies an administrative review decision to a pending order
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus", "order_id", id.String())
	defer span.End()

	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, Validation("invalid status value %q", status)
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, Validation("cannot change order status from %s to %s", order.Status, next)
	}

	updated, err := s.transition(ctx, order, next)
	if err != nil {
		return nil, err
	}
	util.OrderStatusTransitionsTotal.WithLabelValues(string(next)).Inc()
	return updated, nil
}

// UpdateFulfillment moves an approved order's fulfillment step forward.
// Steps may be skipped but never revisited.
func (s *OrderService) UpdateFulfillment(ctx context.Context, id uuid.UUID, step string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateFulfillment", "order_id", id.String())
	defer span.End()

	next := models.FulfillmentStep(step)
	if !next.Valid() {
		return nil, Validation("invalid fulfillment step %q", step)
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusApproved {
		return nil, Validation("fulfillment can only be updated on approved orders")
	}
	if next.Index() < order.FulfillmentStep.Index() {
		return nil, Validation("fulfillment cannot move back from %s to %s", order.FulfillmentStep, next)
	}
	if next == order.FulfillmentStep {
		return order, nil
	}

	updated, err := s.store.UpdateFulfillmentStep(ctx, id, order.FulfillmentStep, next)
	if errors.Is(err, store.ErrStaleState) {
		return nil, Conflict("order changed while updating, please retry")
	}
	if err != nil {
		return nil, Internal(err)
	}
	return updated, nil
}

func (s *OrderService) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}
	return order, nil
}

func (s *OrderService) restockInline(ctx context.Context, event *models.OrderCancelledEvent) {
	if s.restock == nil {
		return
	}
	if err := s.restock.HandleOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Inline restock failed, stock not returned",
			zap.String("order_id", event.OrderID.String()),
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, to models.OrderStatus) (*models.Order, error) {
	updated, err := s.store.TransitionOrderStatus(ctx, order.ID, order.Status, to)
	if errors.Is(err, store.ErrStaleState) {
		return nil, Conflict("order changed while updating, please retry")
	}
	if err != nil {
		return nil, Internal(err)
	}
	return updated, nil
}
