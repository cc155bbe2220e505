package service

import (
	"context"
	"errors"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService reads and edits a user's cart. Product details it returns are
// for display only and may come from the cache.
type CartService struct {
	store    CartStore
	cache    ProductCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, cache ProductCache, cacheTTL time.Duration) *CartService {
	return &CartService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// GetCart returns the user's cart lines resolved against current product
// details. Lines whose product is gone are returned with Available false.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItemView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart", "user_id", userID.String())
	defer span.End()

	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	lines, err := s.store.GetCartLines(ctx, userID)
	if err != nil {
		util.RecordError(span, err)
		return nil, Internal(err)
	}

	views, err := s.productViews(ctx, productIDs(lines))
	if err != nil {
		util.RecordError(span, err)
		return nil, Internal(err)
	}

	items := make([]models.CartItemView, 0, len(lines))
	for _, l := range lines {
		item := models.CartItemView{ProductID: l.ProductID, Quantity: l.Quantity}
		if v, ok := views[l.ProductID]; ok {
			item.Name = v.Name
			item.Price = v.Price
			item.Stock = v.Stock
			item.Available = true
		}
		items = append(items, item)
	}
	return items, nil
}

// Count returns the total quantity across the user's cart lines
func (s *CartService) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return 0, err
	}

	n, err := s.store.CountCartItems(ctx, userID)
	if err != nil {
		return 0, Internal(err)
	}
	return n, nil
}

// AddItem adds quantity of a product to the cart, merging with an existing line
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 {
		return Validation("quantity must be at least 1")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return Internal(err)
	}
	inCart, err := s.lineQuantity(ctx, userID, productID)
	if err != nil {
		return Internal(err)
	}
	if inCart+quantity > product.Stock {
		return Validation("only %d of %s left in stock", product.Stock, product.Name)
	}

	if err := s.store.AddCartItem(ctx, userID, productID, quantity); err != nil {
		util.RecordError(span, err)
		return Internal(err)
	}
	return nil
}

// UpdateItem replaces the quantity of an existing cart line. Lines whose
// product was deleted are not stock-checked.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return Validation("quantity must be at least 1")
	}

	product, err := s.store.GetProductByID(ctx, productID)
	switch {
	case err == nil:
		if quantity > product.Stock {
			return Validation("only %d of %s left in stock", product.Stock, product.Name)
		}
	case !errors.Is(err, store.ErrNotFound):
		return Internal(err)
	}

	err = s.store.SetCartItemQuantity(ctx, userID, productID, quantity)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCartItemNotFound
	}
	if err != nil {
		return Internal(err)
	}
	return nil
}

// RemoveItem deletes a line from the cart
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.store.RemoveCartItem(ctx, userID, productID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCartItemNotFound
	}
	if err != nil {
		return Internal(err)
	}
	return nil
}

func (s *CartService) lineQuantity(ctx context.Context, userID, productID uuid.UUID) (int, error) {
	lines, err := s.store.GetCartLines(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, l := range lines {
		if l.ProductID == productID {
			return l.Quantity, nil
		}
	}
	return 0, nil
}

func (s *CartService) requireUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return Internal(err)
	}
	return nil
}

// productViews serves what it can from the cache and fills misses from the
// store. Cache failures degrade to store reads.
func (s *CartService) productViews(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductView, error) {
	views := map[uuid.UUID]models.ProductView{}
	if len(ids) == 0 {
		return views, nil
	}

	if s.cache != nil {
		cached, err := s.cache.GetProductViews(ctx, ids)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.Error(err))
		} else {
			views = cached
		}
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := views[id]; !ok {
			missing = append(missing, id)
		}
	}
	util.ProductCacheResultsTotal.WithLabelValues("hit").Add(float64(len(ids) - len(missing)))
	util.ProductCacheResultsTotal.WithLabelValues("miss").Add(float64(len(missing)))
	if len(missing) == 0 {
		return views, nil
	}

	products, err := s.store.GetProductsByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}

	fresh := make([]models.ProductView, 0, len(products))
	for i := range products {
		v := products[i].View()
		views[v.ID] = v
		fresh = append(fresh, v)
	}

	if s.cache != nil {
		if err := s.cache.SetProductViews(ctx, fresh, s.cacheTTL); err != nil {
			s.logger.Warn("Product cache write failed", zap.Error(err))
		}
	}
	return views, nil
}
