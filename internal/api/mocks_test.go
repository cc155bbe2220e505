package api

import (
	"context"

	"checkout-service/internal/auth"
	"checkout-service/internal/models"
	"checkout-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockCarts struct{ mock.Mock }

func (m *mockCarts) GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItemView, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]models.CartItemView)
	return items, args.Error(1)
}

func (m *mockCarts) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockCarts) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *mockCarts) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *mockCarts) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return m.Called(ctx, userID, productID).Error(0)
}

type mockPromotions struct{ mock.Mock }

func (m *mockPromotions) Validate(ctx context.Context, caller auth.Caller, code string, orderValue decimal.Decimal) (*service.PromotionResult, error) {
	args := m.Called(ctx, caller, code, orderValue)
	res, _ := args.Get(0).(*service.PromotionResult)
	return res, args.Error(1)
}

func (m *mockPromotions) Apply(ctx context.Context, caller auth.Caller, userID uuid.UUID, code string, orderValue decimal.Decimal) (*service.PromotionResult, error) {
	args := m.Called(ctx, caller, userID, code, orderValue)
	res, _ := args.Get(0).(*service.PromotionResult)
	return res, args.Error(1)
}

func (m *mockPromotions) Create(ctx context.Context, req *service.CreatePromotionRequest) (*models.Promotion, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*models.Promotion)
	return p, args.Error(1)
}

func (m *mockPromotions) List(ctx context.Context, page service.PageRequest) ([]models.Promotion, int, error) {
	args := m.Called(ctx, page)
	items, _ := args.Get(0).([]models.Promotion)
	return items, args.Int(1), args.Error(2)
}

func (m *mockPromotions) Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Promotion)
	return p, args.Error(1)
}

func (m *mockPromotions) Deactivate(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Promotion)
	return p, args.Error(1)
}

func (m *mockPromotions) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) Checkout(ctx context.Context, caller auth.Caller, req *service.CheckoutRequest) (*service.CheckoutResult, error) {
	args := m.Called(ctx, caller, req)
	res, _ := args.Get(0).(*service.CheckoutResult)
	return res, args.Error(1)
}

func (m *mockOrders) Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, caller, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) GetMine(ctx context.Context, caller auth.Caller, page service.PageRequest) ([]models.Order, int, error) {
	args := m.Called(ctx, caller, page)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Int(1), args.Error(2)
}

func (m *mockOrders) Cancel(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, caller, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) RequestRefund(ctx context.Context, caller auth.Caller, id uuid.UUID, reason string) (*models.RefundRequest, error) {
	args := m.Called(ctx, caller, id, reason)
	r, _ := args.Get(0).(*models.RefundRequest)
	return r, args.Error(1)
}

func (m *mockOrders) ListAll(ctx context.Context, status string, page service.PageRequest) ([]models.Order, int, error) {
	args := m.Called(ctx, status, page)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Int(1), args.Error(2)
}

func (m *mockOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) UpdateFulfillment(ctx context.Context, id uuid.UUID, step string) (*models.Order, error) {
	args := m.Called(ctx, id, step)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }
