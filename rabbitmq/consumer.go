package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConsumeChannel is the subset of *amqp.Channel a consumer needs.
type ConsumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// OrderHandler processes one order event. A returned error rejects the message.
type OrderHandler func(ctx context.Context, event OrderEvent) error

type Consumer struct {
	workerID  int
	channel   ConsumeChannel
	queueName string
	handle    OrderHandler
	logger    *zap.Logger
}

// NewConsumer sets up ch to deliver one unacknowledged message at a time.
func NewConsumer(workerID int, ch ConsumeChannel, queueName string, handle OrderHandler, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	err := ch.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set QoS for worker %d: %w", workerID, err)
	}
	return &Consumer{
		workerID:  workerID,
		channel:   ch,
		queueName: queueName,
		handle:    handle,
		logger:    logger.With(zap.Int("worker", workerID)),
	}, nil
}

// Run consumes messages until ctx ends or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.channel.Close()

	msgs, err := c.channel.Consume(
		c.queueName,                          // queue
		fmt.Sprintf("worker-%d", c.workerID), // consumer tag
		false,                                // auto-ack
		false,                                // exclusive
		false,                                // no-local
		false,                                // no-wait
		nil,                                  // args
	)
	if err != nil {
		return fmt.Errorf("worker %d failed to register consumer: %w", c.workerID, err)
	}

	c.logger.Info("Worker waiting for order events", zap.String("queue", c.queueName))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Worker stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("Delivery channel closed, worker stopped")
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("Failed to unmarshal order event", zap.Error(err))
		// Malformed, do not requeue.
		_ = msg.Nack(false, false)
		return
	}

	if err := c.handle(ctx, event); err != nil {
		c.logger.Error("Failed to handle order event", zap.String("order_id", event.OrderID), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to acknowledge message", zap.String("order_id", event.OrderID), zap.Error(err))
		return
	}
	c.logger.Debug("Processed order event", zap.String("order_id", event.OrderID))
}

// ConsumerGroup runs several consumers on one connection.
type ConsumerGroup struct {
	conn *amqp.Connection
	wg   sync.WaitGroup
}

// StartConsumers dials the broker, declares queueName and starts workers
// consumers, each on its own channel.
func StartConsumers(ctx context.Context, rabbitmqURL, queueName string, workers int, handle OrderHandler, logger *zap.Logger) (*ConsumerGroup, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	ch.Close()

	g := &ConsumerGroup{conn: conn}
	for i := 1; i <= max(workers, 1); i++ {
		workerCh, err := conn.Channel()
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("failed to open channel for worker %d: %w", i, err)
		}
		consumer, err := NewConsumer(i, workerCh, queueName, handle, logger)
		if err != nil {
			g.Close()
			return nil, err
		}
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := consumer.Run(ctx); err != nil {
				logger.Error("Consumer exited", zap.Error(err))
			}
		}()
	}
	logger.Info("Started order event consumers", zap.Int("workers", max(workers, 1)))
	return g, nil
}

// Close closes the connection and waits for every consumer to stop.
func (g *ConsumerGroup) Close() {
	g.conn.Close()
	g.wg.Wait()
}
