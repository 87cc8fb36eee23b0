package handler // handler defines http handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/balloon-tour-booking/internal/model"
	"github.com/iliyamo/balloon-tour-booking/internal/queue"
	"github.com/iliyamo/balloon-tour-booking/internal/validation"
)

// FlightsNamespace is the response-cache namespace of the public flight reads.
const FlightsNamespace = "flights"

// FlightStore is the subset of repository.FlightRepo the handlers use.
type FlightStore interface {
	Create(ctx context.Context, f *model.Flight) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Flight, error)
	List(ctx context.Context) ([]model.Flight, error)
	Update(ctx context.Context, id primitive.ObjectID, f *model.Flight) (*model.Flight, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*model.Flight, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.FlightSummary, error)
}

// ReservationStore is the subset of repository.ReservationRepo the handlers use.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Reservation, error)
	List(ctx context.Context) ([]model.Reservation, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*model.Reservation, error)
}

// ReservationCounter reports how many reservations reference a flight.
type ReservationCounter interface {
	CountByFlight(ctx context.Context, flightID primitive.ObjectID) (int64, error)
}

// UserStore is the subset of repository.UserRepo the handlers use.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

// EventPublisher sends domain events to the broker.
type EventPublisher interface {
	ReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error
	FlightDeleted(ctx context.Context, ev queue.FlightDeletedEvent) error
}

// CacheInvalidator drops cached responses of a namespace.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, namespace string) error
}

// Timeouts bound the work a single request may do.
type Timeouts struct {
	Store  time.Duration // one document store call
	Upload time.Duration // all media uploads of a request, or one email
}

// DefaultTimeouts are used when a field of Timeouts is zero.
var DefaultTimeouts = Timeouts{Store: 5 * time.Second, Upload: 60 * time.Second}

func (t Timeouts) withDefaults() Timeouts {
	if t.Store <= 0 {
		t.Store = DefaultTimeouts.Store
	}
	if t.Upload <= 0 {
		t.Upload = DefaultTimeouts.Upload
	}
	return t
}

// eventTimeout bounds a background publish, which outlives its request.
const eventTimeout = 15 * time.Second

func utcNow() time.Time { return time.Now().UTC() }

// validationFailed writes the 400 body shared by every validator.
func validationFailed(c echo.Context, errs validation.Errors) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": "Validation failed", "errors": []string(errs)})
}

// serverError logs err and writes a 500 whose body carries the raw error
// message next to a fixed description.
func serverError(c echo.Context, message string, err error) error {
	c.Logger().Errorf("%s %s: %s: %v", c.Request().Method, c.Path(), message, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": message, "error": err.Error()})
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}

// background runs fn after the response with a context detached from the
// request, logging a failure.
func background(c echo.Context, what string, fn func(ctx context.Context) error) {
	logger := c.Logger()
	parent := context.WithoutCancel(c.Request().Context())
	go func() {
		ctx, cancel := context.WithTimeout(parent, eventTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Warnf("%s: %v", what, err)
		}
	}()
}
