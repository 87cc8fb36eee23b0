package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/balloon-tour-booking/internal/model"
	"github.com/iliyamo/balloon-tour-booking/internal/queue"
	"github.com/iliyamo/balloon-tour-booking/internal/repository"
	"github.com/iliyamo/balloon-tour-booking/internal/validation"
)

// ReservationHandler lets the public book flights and admins review and
// cancel bookings.
type ReservationHandler struct {
	Reservations ReservationStore
	Flights      FlightStore
	Events       EventPublisher
	T            Timeouts

	now func() time.Time
}

func NewReservationHandler(reservations ReservationStore, flights FlightStore, events EventPublisher, t Timeouts) *ReservationHandler {
	if reservations == nil || flights == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: reservations, Flights: flights, Events: events, T: t.withDefaults(), now: utcNow}
}

// reservationView is a reservation as returned to clients.  Flight is the
// raw reference on create and the populated summary (or null when the
// flight is gone) on reads.
type reservationView struct {
	ID             primitive.ObjectID `json:"_id"`
	Date           time.Time          `json:"date"`
	Travelers      int                `json:"travelers"`
	Total          float64            `json:"total"`
	FullName       string             `json:"fullName"`
	Email          string             `json:"email"`
	PhoneNumber    string             `json:"phoneNumber,omitempty"`
	PickUpLocation string             `json:"pickUpLocation"`
	Flight         any                `json:"flight"`
	CreatedAt      time.Time          `json:"createdAt"`
}

func newReservationView(r model.Reservation, flight any) reservationView {
	return reservationView{
		ID:             r.ID,
		Date:           r.Date,
		Travelers:      r.Travelers,
		Total:          r.Total,
		FullName:       r.FullName,
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		PickUpLocation: r.PickUpLocation,
		Flight:         flight,
		CreatedAt:      r.CreatedAt,
	}
}

// Create handles POST /api/reservations.  The referenced flight must exist
// at this moment; it is not re-checked later.
func (h *ReservationHandler) Create(c echo.Context) error {
	var in validation.ReservationInput
	if err := c.Bind(&in); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := validation.ValidateReservation(in, h.now()); !errs.OK() {
		return validationFailed(c, errs)
	}
	r := in.Reservation()

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()

	exists, err := h.Flights.Exists(ctx, r.Flight)
	if err != nil {
		return serverError(c, "Failed to create reservation", err)
	}
	if !exists {
		return message(c, http.StatusBadRequest, "Referenced flight does not exist")
	}
	if err := h.Reservations.Create(ctx, &r); err != nil {
		return serverError(c, "Failed to create reservation", err)
	}

	if h.Events != nil {
		ev := queue.ReservationCreatedEvent{
			ReservationID: r.ID.Hex(),
			FlightID:      r.Flight.Hex(),
			FullName:      r.FullName,
			Email:         r.Email,
			Date:          r.Date.Format("2006-01-02"),
			Travelers:     r.Travelers,
			Total:         r.Total,
			CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		}
		background(c, "publish reservation.created", func(ctx context.Context) error {
			return h.Events.ReservationCreated(ctx, ev)
		})
	}
	return c.JSON(http.StatusCreated, newReservationView(r, r.Flight.Hex()))
}

// List handles GET /api/reservations: newest first, each with the flight's
// id, title and price.
func (h *ReservationHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()

	rs, err := h.Reservations.List(ctx)
	if err != nil {
		return serverError(c, "Failed to get reservations", err)
	}
	seen := make(map[primitive.ObjectID]bool, len(rs))
	ids := make([]primitive.ObjectID, 0, len(rs))
	for _, r := range rs {
		if !seen[r.Flight] {
			seen[r.Flight] = true
			ids = append(ids, r.Flight)
		}
	}
	summaries, err := h.Flights.Summaries(ctx, ids)
	if err != nil {
		return serverError(c, "Failed to get reservations", err)
	}

	out := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		var flight any // null for a deleted flight
		if s, ok := summaries[r.Flight]; ok {
			s.MainImage = ""
			flight = s
		}
		out = append(out, newReservationView(r, flight))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/reservations/:id with the flight's id, title, price
// and main image.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		return message(c, http.StatusBadRequest, "Invalid reservation ID")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()

	r, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return message(c, http.StatusNotFound, "Reservation not found")
		}
		return serverError(c, "Failed to get reservation", err)
	}
	summaries, err := h.Flights.Summaries(ctx, []primitive.ObjectID{r.Flight})
	if err != nil {
		return serverError(c, "Failed to get reservation", err)
	}
	var flight any
	if s, ok := summaries[r.Flight]; ok {
		flight = s
	}
	return c.JSON(http.StatusOK, newReservationView(*r, flight))
}

// Delete handles DELETE /api/reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		return message(c, http.StatusBadRequest, "Invalid reservation ID")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()

	deleted, err := h.Reservations.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return message(c, http.StatusNotFound, "Reservation not found")
		}
		return serverError(c, "Failed to delete reservation", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Reservation deleted successfully",
		"deletedId": deleted.ID.Hex(),
	})
}
