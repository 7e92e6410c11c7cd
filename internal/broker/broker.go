// Package broker relays menu change events between server instances through
// a RabbitMQ fanout exchange.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/erazemk/menza/internal/model"
)

// DefaultExchange is the fanout exchange used when none is configured.
const DefaultExchange = "menu.changes"

// message is the wire format of a relayed event.
type message struct {
	Origin string            `json:"origin"`
	Event  model.ChangeEvent `json:"event"`
}

func encodeMessage(origin string, ev model.ChangeEvent) ([]byte, error) {
	return json.Marshal(message{Origin: origin, Event: ev})
}

func decodeMessage(body []byte) (message, error) {
	var msg message
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("decoding change message: %w", err)
	}
	if msg.Event.Type == "" {
		return msg, errors.New("decoding change message: missing event type")
	}
	return msg, nil
}

// Broker publishes local changes and consumes changes of other instances.
type Broker struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	origin   string
}

// Dial connects to RabbitMQ, declares the exchange and enables publisher confirms.
func Dial(url, exchange string) (*Broker, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enabling confirms: %w", err)
	}

	return &Broker{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		origin:   uuid.NewString(),
	}, nil
}

// Origin identifies this instance in relayed messages.
func (b *Broker) Origin() string {
	return b.origin
}

// Notify publishes ev and waits for the broker to confirm it. Each publish
// carries its own confirmation, so giving up on one never affects the next.
func (b *Broker) Notify(ctx context.Context, ev model.ChangeEvent) error {
	body, err := encodeMessage(b.origin, ev)
	if err != nil {
		return err
	}

	confirm, err := b.ch.PublishWithDeferredConfirmWithContext(ctx, b.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirmation: %w", err)
	}
	if !acked {
		return errors.New("publishing change: nack from broker")
	}
	return nil
}

// Consume delivers events published by other instances to handle until ctx
// is done or the connection drops.
func (b *Broker) Consume(ctx context.Context, handle func(model.ChangeEvent)) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening consumer channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue %s: %w", q.Name, err)
	}

	deliveries, err := ch.Consume(q.Name, "menza-"+b.origin[:8], true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", q.Name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("consumer channel closed")
			}
			msg, err := decodeMessage(d.Body)
			if err != nil {
				slog.Warn("discarding change message", "error", err)
				continue
			}
			if msg.Origin == b.origin {
				continue
			}
			handle(msg.Event)
		}
	}
}

// Close closes the channel and the connection.
func (b *Broker) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
