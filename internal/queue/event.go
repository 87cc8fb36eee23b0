// Package queue defines message payloads exchanged over the message broker
// and the background worker that consumes them.
package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names. Each event type has its own durable queue on the default
// exchange, so the routing key is the queue name.
const (
	ReservationCreatedQueue = "reservation.created"
	FlightDeletedQueue      = "flight.deleted"
)

// Queues lists every queue the worker consumes.
var Queues = []string{ReservationCreatedQueue, FlightDeletedQueue}

// ReservationCreatedEvent is published after a reservation is stored. It
// carries enough for the worker to log the booking without querying the
// document store.
type ReservationCreatedEvent struct {
	ReservationID string  `json:"reservation_id"`
	FlightID      string  `json:"flight_id"`
	FullName      string  `json:"full_name"`
	Email         string  `json:"email"`
	Date          string  `json:"date"`
	Travelers     int     `json:"travelers"`
	Total         float64 `json:"total"`
	CreatedAt     string  `json:"created_at"`
}

// FlightDeletedEvent is published after a flight is removed. Images holds
// the main image followed by the secondary images; the worker deletes them
// from the object store. OrphanedReservations is -1 when the count failed.
type FlightDeletedEvent struct {
	FlightID             string   `json:"flight_id"`
	Title                string   `json:"title"`
	Images               []string `json:"images"`
	OrphanedReservations int64    `json:"orphaned_reservations"`
	DeletedAt            string   `json:"deleted_at"`
}

// Declare makes sure a durable queue exists. Declaring is idempotent, so the
// publisher and the worker both call it.
func Declare(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("queue declare %s: %w", name, err)
	}
	return nil
}
