package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/balloon-tour-booking/internal/media"
)

// Consumer listens to the reservation.created and flight.deleted queues.
// Reservations are appended to a log file, one line each; deleted flights
// have their images removed from the object store.
type Consumer struct {
	url     string
	logPath string
	store   media.Store
	logger  echo.Logger

	mu sync.Mutex // serializes log file appends
}

// errInterrupted marks a message whose handling was cut short by shutdown.
// Such messages are requeued instead of dropped.
var errInterrupted = errors.New("interrupted by shutdown")

// NewConsumer builds a worker. store may be nil, in which case image
// cleanup is skipped.
func NewConsumer(url, logPath string, store media.Store, logger echo.Logger) *Consumer {
	return &Consumer{url: url, logPath: logPath, store: store, logger: logger}
}

// Run connects to the broker and consumes until ctx is cancelled. Lost
// connections are re-established with exponential backoff; a message that
// fails processing is rejected without requeueing so it cannot spin, unless
// the failure came from shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warnf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warnf("event-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warnf("event-consumer: set QoS failed: %v", err)
	}
	for _, q := range Queues {
		if err := Declare(ch, q); err != nil {
			return err
		}
	}
	reservations, err := ch.Consume(ReservationCreatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ReservationCreatedQueue, err)
	}
	flights, err := ch.Consume(FlightDeletedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", FlightDeletedQueue, err)
	}
	c.logger.Infof("event-consumer: consuming %v", Queues)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-reservations:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(d, c.HandleReservationCreated(d.Body))
		case d, ok := <-flights:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(d, c.HandleFlightDeleted(ctx, d.Body))
		}
	}
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errInterrupted):
		c.logger.Warnf("event-consumer: %s message requeued: %v", d.RoutingKey, err)
		_ = d.Nack(false, true)
	default:
		c.logger.Errorf("event-consumer: handle %s message failed: %v", d.RoutingKey, err)
		_ = d.Nack(false, false)
	}
}

// HandleReservationCreated appends one line per reservation to the log file.
func (c *Consumer) HandleReservationCreated(body []byte) error {
	var ev ReservationCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ReservationID == "" {
		return errors.New("event without reservation id")
	}
	line := fmt.Sprintf("[%s] Reservation created | reservation_id=%s | flight_id=%s | name=%q | email=%s | date=%s | travelers=%d | total=%.2f\n",
		ev.CreatedAt, ev.ReservationID, ev.FlightID, ev.FullName, ev.Email, ev.Date, ev.Travelers, ev.Total)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// HandleFlightDeleted removes the deleted flight's images. Failures on
// individual images are logged and the message is still acknowledged, since
// a retry would most likely fail the same way.  When ctx is cancelled first
// the error wraps errInterrupted so the message is redelivered.
func (c *Consumer) HandleFlightDeleted(ctx context.Context, body []byte) error {
	var ev FlightDeletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.OrphanedReservations > 0 {
		c.logger.Infof("event-consumer: flight %s removed with %d reservations still referencing it", ev.FlightID, ev.OrphanedReservations)
	}
	if c.store == nil || len(ev.Images) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errInterrupted, err)
	}
	dctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	failed, err := media.DeleteAll(dctx, c.store, ev.Images)
	if failed > 0 && ctx.Err() != nil {
		return fmt.Errorf("%w: flight %s: %d of %d images not deleted: %v", errInterrupted, ev.FlightID, failed, len(ev.Images), err)
	}
	if failed > 0 {
		c.logger.Warnf("event-consumer: flight %s: %d of %d images not deleted: %v", ev.FlightID, failed, len(ev.Images), err)
		return nil
	}
	c.logger.Infof("event-consumer: flight %s: deleted %d images", ev.FlightID, len(ev.Images))
	return nil
}

// sleep waits for d or until ctx is done, reporting whether to continue.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
