package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"mailnight/pkg/metrics"
	"mailnight/pkg/trace"
	"mailnight/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// RetryCounter tracks redeliveries of a message across consumers.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger

	retries    RetryCounter
	maxRetries int64
	deadLetter func(ctx context.Context, msg amqp091.Delivery, reason string) error
}

// NewConsumer creates a consumer for a specific routing key. An empty
// queueName declares a server-named exclusive queue, which gives every
// process its own copy of each event.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	role := queueName
	if role == "" {
		role = "push:" + routingKey
	}
	conn, err := NewConnection(url, role)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := DeclareExchange(ch); err != nil {
		return fail(fmt.Errorf("failed to declare exchange: %w", err))
	}

	exclusive := queueName == ""
	q, err := ch.QueueDeclare(
		queueName,
		!exclusive, // durable
		exclusive,  // auto-delete
		exclusive,
		false,
		nil,
	)
	if err != nil {
		return fail(fmt.Errorf("failed to declare queue: %w", err))
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		return fail(fmt.Errorf("failed to bind queue: %w", err))
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", q.Name),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// EnableDeadLetter sends messages to the dead letter exchange once a
// retryable failure has been redelivered more than maxRetries times, or
// immediately on a permanent failure. Without it every failure is requeued.
func (c *Consumer) EnableDeadLetter(retries RetryCounter, maxRetries int64) error {
	if err := DeclareDLQExchange(c.channel); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(c.channel, c.routingKey); err != nil {
		return err
	}
	c.retries = retries
	c.maxRetries = maxRetries
	c.deadLetter = func(ctx context.Context, msg amqp091.Delivery, reason string) error {
		return publishToDLQ(ctx, c.channel, msg, reason, c.queue.Name)
	}
	return nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until ctx is cancelled or the delivery channel closes.
// Every message is acked or nacked exactly once.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, msg)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	if traceID, ok := msg.Headers[TraceHeader].(string); ok && traceID != "" {
		ctx = trace.WithContext(ctx, traceID)
	}
	log := c.logger.With(
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.String("message_id", msg.MessageId),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			c.reject(ctx, log, msg, fmt.Errorf("panic: %v", r), true)
		}
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		retryable, kind := util.IsRetryableError(err)
		log.Error("Handler error",
			zap.String("error_type", kind),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		c.reject(ctx, log, msg, err, retryable)
		return
	}

	if c.retries != nil && msg.MessageId != "" {
		_ = c.retries.Reset(ctx, util.FormatRetryKey(c.routingKey, msg.MessageId))
	}
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
		return
	}
	metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
}

// reject requeues a failed message or moves it to the dead letter exchange.
func (c *Consumer) reject(ctx context.Context, log *zap.Logger, msg amqp091.Delivery, cause error, retryable bool) {
	if c.deadLetter == nil {
		if err := msg.Nack(false, true); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
		return
	}

	if retryable {
		requeue := c.retries == nil || msg.MessageId == ""
		if !requeue {
			// Without a counter the attempt budget is unknown; dead-letter
			// rather than loop on the queue until Redis comes back.
			count, err := c.retries.IncrementAndGet(ctx, util.FormatRetryKey(c.routingKey, msg.MessageId))
			if err != nil {
				log.Warn("Retry counter unavailable", zap.Error(err))
			}
			requeue = err == nil && util.ShouldRetry(count, c.maxRetries, retryable)
		}
		if requeue {
			if err := msg.Nack(false, true); err != nil {
				log.Error("Failed to nack message", zap.Error(err))
			}
			return
		}
	}

	reason := "permanent"
	if retryable {
		reason = "retries_exhausted"
	}
	if err := c.deadLetter(ctx, msg, cause.Error()); err != nil {
		log.Error("Failed to publish to DLQ, requeueing", zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	metrics.IncrementDeadLettered(c.routingKey, reason)
	log.Warn("Message dead-lettered", zap.String("reason", reason))
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack dead-lettered message", zap.Error(err))
	}
}
