package service

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryService returns stock taken by orders that were later cancelled
type InventoryService struct {
	store  RestockStore
	cache  ProductCache
	logger *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store RestockStore, cache ProductCache) *InventoryService {
	return &InventoryService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// HandleOrderCancelled restores stock for every line of the cancelled order.
// Redelivered events are detected by event id and skipped.
func (s *InventoryService) HandleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.HandleOrderCancelled", "order_id", event.OrderID.String())
	defer span.End()

	applied, err := s.store.RestockOrder(ctx, event.EventID, event.EventType, event.Items)
	if err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to restock order %s: %w", event.OrderID, err)
	}
	if !applied {
		s.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	ids := make([]uuid.UUID, 0, len(event.Items))
	units := 0
	for _, item := range event.Items {
		ids = append(ids, item.ProductID)
		units += item.Quantity
	}
	util.StockRestockedTotal.Add(float64(units))

	if s.cache != nil {
		if err := s.cache.InvalidateProducts(ctx, ids...); err != nil {
			s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}

	s.logger.Info("Stock restored for cancelled order",
		zap.String("order_id", event.OrderID.String()),
		zap.Int("units", units))
	return nil
}
