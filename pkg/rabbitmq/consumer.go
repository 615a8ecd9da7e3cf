// Package rabbitmq provides a small AMQP consumer over a durable topic
// exchange with manual acknowledgment.
package rabbitmq

import (
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one message body. Returning true acknowledges
// the message; returning false rejects it and requeues for redelivery.
type MessageHandler func(body []byte) bool

type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *slog.Logger
}

func NewConsumer(amqpURL string, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp091.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

// Consume binds a durable queue to a topic exchange and blocks processing
// deliveries until the channel closes.
func (c *Consumer) Consume(exchange, queueName, routingKey string, handler MessageHandler) error {
	err := c.channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	queue, err := c.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	if err := c.channel.QueueBind(queue.Name, routingKey, exchange, false, nil); err != nil {
		return err
	}

	deliveries, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	c.logger.Info("consumer started", "queue", queue.Name, "routing_key", routingKey)
	for d := range deliveries {
		if handler(d.Body) {
			d.Ack(false)
		} else {
			d.Nack(false, true)
		}
	}
	return nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
