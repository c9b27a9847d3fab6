package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// AmqpBackend drives a broker speaking AMQP 0.9.1. One durable queue, manual
// acknowledgement, prefetch of one so a slow handler does not hoard messages
// other workers could take.
type AmqpBackend struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewAmqpBackend(amqpURL, queueName string) (*AmqpBackend, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err = channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err = channel.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &AmqpBackend{
		conn:    conn,
		channel: channel,
		queue:   queueName,
	}, nil
}

func (b *AmqpBackend) Publish(ctx context.Context, body []byte) error {
	return b.channel.PublishWithContext(
		ctx,
		"",      // default exchange
		b.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
}

func (b *AmqpBackend) Consume(ctx context.Context) (<-chan Delivery, error) {
	messages, err := b.channel.Consume(b.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					log.Warn().Msg("broker channel closed")
					return
				}
				select {
				case out <- Delivery{Body: msg.Body, tag: msg}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *AmqpBackend) Ack(d Delivery) error {
	msg, ok := d.tag.(amqp.Delivery)
	if !ok {
		return fmt.Errorf("delivery token is not an AMQP delivery")
	}
	return msg.Ack(false)
}

func (b *AmqpBackend) Nack(d Delivery, requeue bool) error {
	msg, ok := d.tag.(amqp.Delivery)
	if !ok {
		return fmt.Errorf("delivery token is not an AMQP delivery")
	}
	return msg.Nack(false, requeue)
}

func (b *AmqpBackend) Close() error {
	if err := b.channel.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close channel")
	}
	return b.conn.Close()
}
