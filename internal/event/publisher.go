package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

const (
	OrderCreated         = "order.created"
	PaymentProofUploaded = "payment.proof_uploaded"
	PaymentConfirmed     = "payment.confirmed"
	PaymentRejected      = "payment.rejected"
	PaymentCancelled     = "payment.cancelled"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

type Envelope struct {
	Pattern    string    `json:"pattern"`
	Data       any       `json:"data"`
	OccurredAt time.Time `json:"occurredAt"`
}

type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewRabbitPublisher(amqpURL, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	body, err := json.Marshal(Envelope{
		Pattern:    routingKey,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// NopPublisher drops events when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

var (
	_ Publisher = (*RabbitPublisher)(nil)
	_ Publisher = NopPublisher{}
)
