package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"newsletteradmin/internal/models"
)

// FaultPublisher sends sync fault reports to the fault queue
type FaultPublisher struct {
	conn      *Connection
	queueName string
}

// NewFaultPublisher declares the queue and returns a publisher for it
func NewFaultPublisher(conn *Connection, queueName string) (*FaultPublisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	if err := conn.DeclareQueue(queueName); err != nil {
		return nil, err
	}

	return &FaultPublisher{conn: conn, queueName: queueName}, nil
}

// PublishFault publishes one fault as a persistent JSON message
func (p *FaultPublisher) PublishFault(ctx context.Context, fault *models.SyncFault) error {
	body, err := encodeFault(fault)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	err = ch.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    fault.ID,
			Timestamp:    fault.OccurredAt,
			Type:         string(fault.Kind),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish fault %s: %w", fault.ID, err)
	}

	return nil
}

func encodeFault(fault *models.SyncFault) ([]byte, error) {
	if fault == nil {
		return nil, errors.New("fault cannot be nil")
	}
	if fault.ID == "" {
		return nil, errors.New("fault id is required")
	}
	body, err := json.Marshal(fault)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fault: %w", err)
	}
	return body, nil
}

func decodeFault(body []byte) (*models.SyncFault, error) {
	var fault models.SyncFault
	if err := json.Unmarshal(body, &fault); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fault: %w", err)
	}
	if fault.ID == "" {
		return nil, errors.New("fault message has no id")
	}
	return &fault, nil
}
