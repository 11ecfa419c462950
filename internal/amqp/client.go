// Package amqp publishes ledger events to a RabbitMQ direct exchange.
package amqp

import (
	"context"
	"fmt"
	"time"

	"pocket-survival/internal/log"
	"pocket-survival/internal/models"
	"pocket-survival/internal/ports"

	"github.com/rabbitmq/amqp091-go"
)

var _ ports.EventPublisher = (*Client)(nil)

// channel is the subset of *amqp091.Channel the client needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Client struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
	now      func() time.Time
}

// NewClient dials url and declares a durable direct exchange.
func NewClient(url, exchange string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Client{conn: conn, channel: ch, exchange: exchange, now: time.Now}, nil
}

func newWithChannel(ch channel, exchange string) *Client {
	return &Client{channel: ch, exchange: exchange, now: time.Now}
}

func (c *Client) PublishExpenseLogged(ctx context.Context, e models.Expense) error {
	return c.publish(ctx, NewExpenseLoggedEvent(e))
}

func (c *Client) PublishReset(ctx context.Context, owner string) error {
	return c.publish(ctx, NewResetEvent(owner, c.now()))
}

func (c *Client) publish(ctx context.Context, ev Event) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchange, // exchange
		ev.Type,    // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    c.now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	log.Component(log.ComponentAMQP).DebugContext(ctx, "published event",
		"type", ev.Type,
		log.FieldOwner, ev.Owner,
		"exchange", c.exchange)
	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
