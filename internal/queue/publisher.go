package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/rental-booking/internal/booking"
)

// Publisher sends status changes to a durable queue. It dials per publish;
// transitions are infrequent enough that a pooled connection is not needed.
type Publisher struct {
	url   string
	queue string
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// PublishStatusChanged implements booking.Publisher. Messages are persistent.
func (p *Publisher) PublishStatusChanged(ctx context.Context, ch booking.StatusChange) error {
	body, err := json.Marshal(EventFromChange(ch))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	c, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = c.Close() }()

	if _, err := declare(c, p.queue); err != nil {
		return err
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = c.PublishWithContext(pctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func declare(c *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := c.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	return q, nil
}

var _ booking.Publisher = (*Publisher)(nil)
