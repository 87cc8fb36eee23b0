// Package service holds application services shared by handlers. The
// Publisher sends domain events to RabbitMQ; failures are returned, not
// logged, so the caller decides whether and where to report them.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/balloon-tour-booking/internal/queue"
)

// Publisher dials the broker per message. Events are rare (one per booking
// or flight deletion), so a long-lived channel is not worth its reconnect
// handling.
type Publisher struct {
	url    string
	logger echo.Logger
}

// NewPublisher returns a publisher for url. An empty url yields a publisher
// whose methods are no-ops.
func NewPublisher(url string, logger echo.Logger) *Publisher {
	return &Publisher{url: url, logger: logger}
}

// Enabled reports whether events are actually sent.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

// ReservationCreated publishes ev on the reservation.created queue.
func (p *Publisher) ReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error {
	return p.Publish(ctx, queue.ReservationCreatedQueue, ev)
}

// FlightDeleted publishes ev on the flight.deleted queue.
func (p *Publisher) FlightDeleted(ctx context.Context, ev queue.FlightDeletedEvent) error {
	return p.Publish(ctx, queue.FlightDeletedQueue, ev)
}

// Publish marshals payload and sends it as a persistent message to the
// named queue via the default exchange.
func (p *Publisher) Publish(ctx context.Context, name string, payload any) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return failed("marshal event", err)
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return failed("dial", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return failed("channel open", err)
	}
	defer func() { _ = ch.Close() }()

	if err := queue.Declare(ch, name); err != nil {
		return failed("declare", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		name,  // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return failed("publish", err)
	}
	if p.logger != nil {
		p.logger.Debugf("rabbitmq: published %d bytes to %s", len(body), name)
	}
	return nil
}

func failed(op string, err error) error {
	return fmt.Errorf("rabbitmq: %s: %w", op, err)
}
