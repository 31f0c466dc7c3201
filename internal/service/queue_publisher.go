package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

// AMQPPublisher publishes domain events to RabbitMQ.  Each publish dials
// its own connection: events are rare (one per paid checkout) and a broker
// outage must never leave a half-open channel behind.
type AMQPPublisher struct {
	URL string
}

func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{URL: url} }

// PublishPromoRedeemed sends ev to the durable promo.redeemed queue as a
// persistent JSON message.
func (p *AMQPPublisher) PublishPromoRedeemed(ctx context.Context, ev queue.PromoRedeemedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.publish(ctx, queue.PromoRedeemedQueue, body)
}

func (p *AMQPPublisher) publish(ctx context.Context, queueName string, body []byte) error {
	log := logger.WithContext(ctx).With("queue", queueName)

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Error("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Error("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		log.Error("rabbitmq: queue declare failed", "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// Default exchange, routing key = queue name.
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Error("rabbitmq: publish failed", "error", err)
		return err
	}
	return nil
}
