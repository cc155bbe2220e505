package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"checkout-service/internal/models"
	"checkout-service/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory stand-in for *store.Store with the same error
// contract. PlaceOrder is all-or-nothing like the real transaction.
type memStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]models.User
	products   map[uuid.UUID]models.Product
	carts      map[uuid.UUID][]models.CartLine
	promotions map[uuid.UUID]*models.Promotion
	usages     []models.PromotionUsage
	orders     map[uuid.UUID]*models.Order
	refunds    map[uuid.UUID]models.RefundRequest
	processed  map[string]bool

	placeErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uuid.UUID]models.User{},
		products:   map[uuid.UUID]models.Product{},
		carts:      map[uuid.UUID][]models.CartLine{},
		promotions: map[uuid.UUID]*models.Promotion{},
		orders:     map[uuid.UUID]*models.Order{},
		refunds:    map[uuid.UUID]models.RefundRequest{},
		processed:  map[string]bool{},
	}
}

func (m *memStore) addUser() uuid.UUID {
	id := uuid.New()
	m.users[id] = models.User{ID: id, Name: "Ada", Email: "ada@example.com"}
	return id
}

func (m *memStore) addProduct(name, price string, stock int) uuid.UUID {
	id := uuid.New()
	m.products[id] = models.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	return id
}

func (m *memStore) putInCart(userID, productID uuid.UUID, qty int) {
	m.carts[userID] = append(m.carts[userID], models.CartLine{ProductID: productID, Quantity: qty})
}

func (m *memStore) addPromotion(p *models.Promotion) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.promotions[p.ID] = p
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetProductByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) GetProductsByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetCartLines(_ context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartLine{}, m.carts[userID]...), nil
}

func (m *memStore) CountCartItems(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.carts[userID] {
		n += l.Quantity
	}
	return n, nil
}

func (m *memStore) AddCartItem(_ context.Context, userID, productID uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.carts[userID] {
		if l.ProductID == productID {
			m.carts[userID][i].Quantity += qty
			return nil
		}
	}
	m.carts[userID] = append(m.carts[userID], models.CartLine{ProductID: productID, Quantity: qty})
	return nil
}

func (m *memStore) SetCartItemQuantity(_ context.Context, userID, productID uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.carts[userID] {
		if l.ProductID == productID {
			m.carts[userID][i].Quantity = qty
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) RemoveCartItem(_ context.Context, userID, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.carts[userID]
	for i, l := range lines {
		if l.ProductID == productID {
			m.carts[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) PlaceOrder(_ context.Context, p store.PlaceOrderParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.placeErr != nil {
		return m.placeErr
	}
	if key := p.Order.IdempotencyKey; key != "" {
		for _, o := range m.orders {
			if o.UserID == p.Order.UserID && o.IdempotencyKey == key {
				return store.ErrDuplicate
			}
		}
	}
	for _, line := range p.Order.Items {
		if m.products[line.ProductID].Stock < line.Quantity {
			return fmt.Errorf("%w: product %s", store.ErrInsufficientStock, line.ProductID)
		}
	}

	for _, line := range p.Order.Items {
		prod := m.products[line.ProductID]
		prod.Stock -= line.Quantity
		m.products[line.ProductID] = prod
	}
	if p.Usage != nil {
		m.usages = append(m.usages, *p.Usage)
		m.promotions[p.Usage.PromotionID].UsedCount++
	}
	stored := *p.Order
	m.orders[stored.ID] = &stored
	m.carts[p.Order.UserID] = nil
	return nil
}

func (m *memStore) GetOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) GetOrderByIdempotencyKey(_ context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) sortedOrders(keep func(*models.Order) bool) []models.Order {
	out := []models.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func paginate(orders []models.Order, limit, offset int) []models.Order {
	if offset >= len(orders) {
		return []models.Order{}
	}
	end := offset + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[offset:end]
}

func (m *memStore) ListOrdersByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedOrders(func(o *models.Order) bool { return o.UserID == userID })
	return paginate(all, limit, offset), len(all), nil
}

func (m *memStore) ListOrders(_ context.Context, status models.OrderStatus, limit, offset int) ([]models.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedOrders(func(o *models.Order) bool { return status == "" || o.Status == status })
	return paginate(all, limit, offset), len(all), nil
}

func (m *memStore) TransitionOrderStatus(_ context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return nil, store.ErrStaleState
	}
	if to == models.OrderStatusCancelled && o.FulfillmentStep == models.FulfillmentFinished {
		return nil, store.ErrStaleState
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

func (m *memStore) UpdateFulfillmentStep(_ context.Context, id uuid.UUID, from, to models.FulfillmentStep) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != models.OrderStatusApproved || o.FulfillmentStep != from {
		return nil, store.ErrStaleState
	}
	o.FulfillmentStep = to
	cp := *o
	return &cp, nil
}

func (m *memStore) CreateRefundRequest(_ context.Context, r *models.RefundRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refunds[r.OrderID]; ok {
		return store.ErrDuplicate
	}
	m.refunds[r.OrderID] = *r
	return nil
}

func (m *memStore) CreatePromotion(_ context.Context, p *models.Promotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.promotions {
		if existing.Code == p.Code {
			return store.ErrDuplicate
		}
	}
	cp := *p
	m.promotions[p.ID] = &cp
	return nil
}

func (m *memStore) GetPromotionByCode(_ context.Context, code string) (*models.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.promotions {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetPromotionByID(_ context.Context, id uuid.UUID) (*models.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promotions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListPromotions(_ context.Context, limit, offset int) ([]models.Promotion, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Promotion{}
	for _, p := range m.promotions {
		out = append(out, *p)
	}
	total := len(out)
	if offset >= total {
		return []models.Promotion{}, total, nil
	}
	if offset+limit < total {
		out = out[offset : offset+limit]
	} else {
		out = out[offset:]
	}
	return out, total, nil
}

func (m *memStore) DeactivatePromotion(_ context.Context, id uuid.UUID) (*models.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promotions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Active = false
	cp := *p
	return &cp, nil
}

func (m *memStore) DeletePromotion(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.promotions[id]; !ok {
		return store.ErrNotFound
	}
	for _, u := range m.usages {
		if u.PromotionID == id {
			return store.ErrPromotionInUse
		}
	}
	delete(m.promotions, id)
	return nil
}

func (m *memStore) CountUserPromotionUsages(_ context.Context, promotionID, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.usages {
		if u.PromotionID == promotionID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) RecordPromotionUsage(_ context.Context, u *models.PromotionUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promotions[u.PromotionID]
	if !ok {
		return store.ErrNotFound
	}
	m.usages = append(m.usages, *u)
	p.UsedCount++
	return nil
}

func (m *memStore) RestockOrder(_ context.Context, eventID, _ string, items []models.OrderItemData) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed[eventID] {
		return false, nil
	}
	m.processed[eventID] = true
	for _, item := range items {
		if p, ok := m.products[item.ProductID]; ok {
			p.Stock += item.Quantity
			m.products[item.ProductID] = p
		}
	}
	return true, nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishPromotionApplied(ctx context.Context, event *models.PromotionAppliedEvent) error {
	return m.Called(ctx, event).Error(0)
}

// newQuietPublisher accepts any event without asserting on it
func newQuietPublisher() *mockPublisher {
	p := &mockPublisher{}
	p.On("PublishOrderCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishOrderCancelled", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishPromotionApplied", mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}
