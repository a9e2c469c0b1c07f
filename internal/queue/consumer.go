package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"newsletteradmin/internal/models"
)

// ErrDeliveriesClosed is reported when the broker closes the delivery
// channel, usually because the connection dropped
var ErrDeliveriesClosed = errors.New("fault delivery channel closed")

// FaultHandler processes one decoded fault report
type FaultHandler func(ctx context.Context, fault *models.SyncFault) error

// FaultConsumer delivers fault reports from the queue to a handler
type FaultConsumer struct {
	conn      *Connection
	queueName string
	handler   FaultHandler
	logger    *slog.Logger
	stopChan  chan struct{}
	doneChan  chan struct{}
	stopOnce  sync.Once
	err       error
}

// NewFaultConsumer declares the queue and returns a consumer for it
func NewFaultConsumer(conn *Connection, queueName string, handler FaultHandler, logger *slog.Logger) (*FaultConsumer, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := conn.DeclareQueue(queueName); err != nil {
		return nil, err
	}

	return &FaultConsumer{
		conn:      conn,
		queueName: queueName,
		handler:   handler,
		logger:    logger,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}, nil
}

// Start begins consuming in a background goroutine
func (c *FaultConsumer) Start(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go c.consume(ctx, deliveries)

	c.logger.Info("fault consumer started", "queue", c.queueName)
	return nil
}

func (c *FaultConsumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Error("fault delivery channel closed", "queue", c.queueName)
				c.err = ErrDeliveriesClosed
				return
			}
			c.handle(ctx, d)
		}
	}
}

// Done is closed once the consumer goroutine exits
func (c *FaultConsumer) Done() <-chan struct{} {
	return c.doneChan
}

// Err reports why consuming ended. Read it only after Done is closed.
func (c *FaultConsumer) Err() error {
	return c.err
}

func (c *FaultConsumer) handle(ctx context.Context, d amqp.Delivery) {
	err := c.process(ctx, d.Body)
	switch disposition(err, d.Redelivered) {
	case ack:
		d.Ack(false)
	case requeue:
		c.logger.Warn("fault handling failed, requeueing", "message_id", d.MessageId, "error", err)
		d.Nack(false, true)
	case discard:
		c.logger.Error("dropping fault message", "message_id", d.MessageId, "error", err)
		d.Nack(false, false)
	}
}

func (c *FaultConsumer) process(ctx context.Context, body []byte) error {
	fault, err := decodeFault(body)
	if err != nil {
		return &poisonError{err: err}
	}
	if err := c.handler(ctx, fault); err != nil {
		return fmt.Errorf("handler failed: %w", err)
	}
	return nil
}

// Stop stops consuming and waits for the in-flight message. It is safe to
// call more than once.
func (c *FaultConsumer) Stop() error {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		<-c.doneChan
		c.logger.Info("fault consumer stopped")
	})
	return nil
}

type outcome int

const (
	ack outcome = iota
	requeue
	discard
)

// poisonError marks a message that can never be processed
type poisonError struct {
	err error
}

func (e *poisonError) Error() string { return e.err.Error() }
func (e *poisonError) Unwrap() error { return e.err }

// disposition retries a failed message once and drops unreadable ones
func disposition(err error, redelivered bool) outcome {
	if err == nil {
		return ack
	}
	var poison *poisonError
	if errors.As(err, &poison) || redelivered {
		return discard
	}
	return requeue
}
