// Package rabbitmq publishes order-placed events to a durable AMQP queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// OrderEvent is the message body published when an order is placed.
type OrderEvent struct {
	OrderID         string             `json:"orderId"`
	UserID          string             `json:"userId"`
	Items           []models.OrderItem `json:"items"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
	ShippingAddress string             `json:"shippingAddress"`
	Status          models.OrderStatus `json:"status"`
	PlacedAt        time.Time          `json:"placedAt"`
}

func NewOrderEvent(order models.Order) OrderEvent {
	placedAt := order.CreatedAt
	if placedAt.IsZero() {
		placedAt = time.Now().UTC()
	}
	status := order.Status
	if status == "" {
		status = models.OrderPlaced
	}
	return OrderEvent{
		OrderID:         order.OrderID,
		UserID:          order.UserID,
		Items:           order.Items,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		Status:          status,
		PlacedAt:        placedAt,
	}
}

type Publisher struct {
	pool      *ChannelPool
	queueName string
	logger    *zap.Logger
}

func NewPublisher(pool *ChannelPool, queueName string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		pool:      pool,
		queueName: queueName,
		logger:    logger,
	}
}

// PublishOrder publishes an OrderEvent for order to the queue.
func (p *Publisher) PublishOrder(ctx context.Context, order models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ch, err := p.pool.GetChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.ReturnChannel(ch)

	body, err := json.Marshal(NewOrderEvent(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	err = ch.PublishWithContext(ctx,
		"",          // exchange
		p.queueName, // routing key (queue name)
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    order.OrderID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish order: %w", err)
	}

	p.logger.Info("Published order event", zap.String("order_id", order.OrderID), zap.String("queue", p.queueName))
	return nil
}
