package worker

import (
	"context"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// MessageSource delivers messages to a handler until its context ends
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// CancellationHandler reacts to a cancelled order
type CancellationHandler interface {
	HandleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// RestockWorker returns stock for cancelled orders. It never takes part in
// checkout itself.
type RestockWorker struct {
	source       MessageSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewRestockWorker creates a new restock worker
func NewRestockWorker(source MessageSource, inventory CancellationHandler) *RestockWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCancelled(inventory.HandleOrderCancelled)

	return &RestockWorker{
		source:       source,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start consumes order events until ctx is cancelled
func (w *RestockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting restock worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RestockWorker) Stop() error {
	w.logger.Info("Stopping restock worker")
	return w.source.Close()
}
