package mockbackend

import (
	"context"
	"errors"
	"sync"

	"storefront/models"
	"storefront/rabbitmq"

	"go.uber.org/zap"
)

// Fulfillment tallies placed orders announced on the order queue and moves
// the ones this backend knows to Processing.
type Fulfillment struct {
	backend *Backend
	logger  *zap.Logger

	mu                sync.Mutex
	totalOrders       int64
	productQuantities map[string]int64
}

func NewFulfillment(backend *Backend, logger *zap.Logger) *Fulfillment {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fulfillment{
		backend:           backend,
		logger:            logger,
		productQuantities: make(map[string]int64),
	}
}

// HandleOrder is a rabbitmq.OrderHandler.
func (f *Fulfillment) HandleOrder(_ context.Context, event rabbitmq.OrderEvent) error {
	if event.OrderID == "" {
		return errors.New("order event without order id")
	}

	f.mu.Lock()
	f.totalOrders++
	for _, item := range event.Items {
		f.productQuantities[item.ProductID] += int64(item.Quantity)
	}
	total := f.totalOrders
	f.mu.Unlock()

	if _, ok := f.backend.setOrderStatus(event.OrderID, models.OrderProcessing); !ok {
		f.logger.Warn("Order event for unknown order", zap.String("order_id", event.OrderID))
	}
	f.logger.Info("Recorded order", zap.String("order_id", event.OrderID), zap.Int64("total_orders", total))
	return nil
}

func (f *Fulfillment) TotalOrders() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalOrders
}

func (f *Fulfillment) ProductQuantity(productID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productQuantities[productID]
}
