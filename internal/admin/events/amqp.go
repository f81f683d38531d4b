package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/streadway/amqp"

	"github.com/kflex/dashboard/internal/admin/orders"
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// envelope matches the {pattern, data} framing expected by the storefront's message consumers.
type envelope struct {
	Pattern string  `json:"pattern"`
	Data    Message `json:"data"`
	ID      string  `json:"id,omitempty"`
}

// AMQPPublisher publishes order events to a RabbitMQ topic exchange. The routing key is
// the event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
}

// DialAMQP connects to RabbitMQ and declares the durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return nil, errors.New("amqp order publisher: exchange is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp order publisher: connect: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp order publisher: open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp order publisher: declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// NewAMQPPublisher wraps an already configured channel.
func NewAMQPPublisher(channel Channel, exchange string) (*AMQPPublisher, error) {
	if channel == nil {
		return nil, errors.New("amqp order publisher: channel is required")
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return nil, errors.New("amqp order publisher: exchange is required")
	}
	return &AMQPPublisher{channel: channel, exchange: exchange}, nil
}

// PublishOrderEvent publishes the event as a persistent JSON message.
func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, event orders.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	message := NewMessage(event)
	body, err := json.Marshal(envelope{Pattern: message.Type, Data: message, ID: message.EventID})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	err = p.channel.Publish(p.exchange, message.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    message.EventID,
		Timestamp:    message.OccurredAt,
		Type:         message.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
