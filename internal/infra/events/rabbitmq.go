package events

import (
	"context"
	"encoding/json"
	"fmt"

	"outreach_scheduler/internal/domain/message"

	amqp "github.com/rabbitmq/amqp091-go"
)

const routingKeyPrefix = "message.status."

// RabbitMQ owns the connection and channel used by RabbitMQPublisher.
type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

// NewRabbitMQ dials url and declares exchange as a durable topic exchange.
func NewRabbitMQ(url, exchange string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.Ch.Close(); err != nil {
		return err
	}
	return r.Conn.Close()
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQPublisher sends status changes to a topic exchange, routed by status
// (message.status.sent, message.status.responded, ...).
type RabbitMQPublisher struct {
	ch       amqpChannel
	exchange string
}

func NewRabbitMQPublisher(ch amqpChannel, exchange string) *RabbitMQPublisher {
	return &RabbitMQPublisher{ch: ch, exchange: exchange}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, evt message.StatusChanged) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("error encoding status change: %w", err)
	}
	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		routingKeyPrefix+string(evt.Status),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    evt.EventID,
			Timestamp:    evt.OccurredAt,
			Type:         message.TopicStatusChanged,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("error publishing to RabbitMQ exchange %s: %w", p.exchange, err)
	}
	return nil
}
