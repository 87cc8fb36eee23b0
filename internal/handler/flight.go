package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/balloon-tour-booking/internal/media"
	"github.com/iliyamo/balloon-tour-booking/internal/model"
	"github.com/iliyamo/balloon-tour-booking/internal/queue"
	"github.com/iliyamo/balloon-tour-booking/internal/repository"
	"github.com/iliyamo/balloon-tour-booking/internal/validation"
)

// FlightHandler serves the flight catalogue.  Reads are public; writes are
// admin-only multipart forms whose images go to the media store before the
// document is persisted.
type FlightHandler struct {
	Flights  FlightStore
	Bookings ReservationCounter
	Media    media.Store
	Cache    CacheInvalidator
	Events   EventPublisher
	T        Timeouts

	now func() time.Time
}

// NewFlightHandler panics if flights or store is nil.  bookings, cache and
// events are optional.
func NewFlightHandler(flights FlightStore, bookings ReservationCounter, store media.Store, cache CacheInvalidator, events EventPublisher, t Timeouts) *FlightHandler {
	if flights == nil || store == nil {
		panic("nil dependency passed to NewFlightHandler")
	}
	return &FlightHandler{Flights: flights, Bookings: bookings, Media: store, Cache: cache, Events: events, T: t.withDefaults(), now: utcNow}
}

type flightCreatedResp struct {
	ID        string   `json:"_id"`
	Title     string   `json:"title"`
	Overview  string   `json:"overview"`
	MainImage string   `json:"mainImage"`
	Images    []string `json:"images"`
	Price     float64  `json:"price"`
	Category  string   `json:"category"`
}

// List handles GET /api/flights.
func (h *FlightHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()

	flights, err := h.Flights.List(ctx)
	if err != nil {
		return serverError(c, "Failed to get flights", err)
	}
	if flights == nil {
		flights = []model.Flight{}
	}
	return c.JSON(http.StatusOK, flights)
}

// Get handles GET /api/flights/:id.
func (h *FlightHandler) Get(c echo.Context) error {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		return message(c, http.StatusBadRequest, "Invalid flight ID")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()

	f, err := h.Flights.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFlightNotFound) {
			return message(c, http.StatusNotFound, "Flight not found")
		}
		return serverError(c, "Failed to get flight", err)
	}
	return c.JSON(http.StatusOK, f)
}

// readForm decodes the multipart request: the file policy is enforced first,
// then the text fields are coerced into a FlightInput.  A non-nil error
// return means the response has already been written.
func (h *FlightHandler) readForm(c echo.Context) (validation.FlightInput, media.FlightFiles, bool, error) {
	var files media.FlightFiles
	if _, err := c.FormParams(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too large") {
			return validation.FlightInput{}, files, false, message(c, http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return validation.FlightInput{}, files, false, message(c, http.StatusBadRequest, "Invalid form data")
	}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return validation.FlightInput{}, files, false, message(c, http.StatusBadRequest, "Invalid form data")
		}
		files, err = media.ReadFlightFiles(form)
		if err != nil {
			return validation.FlightInput{}, files, false, uploadRejected(c, err)
		}
	}
	in, errs := validation.DecodeFlightForm(c.Request().PostForm)
	if !errs.OK() {
		return in, files, false, validationFailed(c, errs)
	}
	return in, files, true, nil
}

// uploadRejected maps the file policy errors onto HTTP statuses.
func uploadRejected(c echo.Context, err error) error {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return message(c, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 5MB per file.")
	case errors.Is(err, media.ErrTooManyFiles):
		return message(c, http.StatusRequestEntityTooLarge, "Too many files. Upload one main image and up to 4 additional images.")
	case errors.Is(err, media.ErrInvalidType):
		return message(c, http.StatusUnsupportedMediaType, media.ErrInvalidType.Error())
	case errors.Is(err, media.ErrUnexpectedField):
		return message(c, http.StatusBadRequest, "Unexpected file field")
	default:
		return message(c, http.StatusBadRequest, "Invalid form data")
	}
}

// upload stores every file and returns the URLs in files.All() order.
func (h *FlightHandler) upload(c echo.Context, files media.FlightFiles) ([]string, error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Upload)
	defer cancel()
	return media.UploadAll(ctx, h.Media, files.All(), media.FlightFolder)
}

func (h *FlightHandler) invalidate(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(c.Request().Context(), FlightsNamespace); err != nil {
		c.Logger().Warnf("flights: cache invalidation failed: %v", err)
	}
}

// Create handles POST /api/flights.  A main image is mandatory; up to four
// secondary images are optional.
func (h *FlightHandler) Create(c echo.Context) error {
	in, files, ok, err := h.readForm(c)
	if !ok {
		return err
	}
	if errs := validation.ValidateFlight(in, validation.ModeCreate); !errs.OK() {
		return validationFailed(c, errs)
	}
	if files.Main == nil {
		return message(c, http.StatusBadRequest, "Main image is required")
	}

	urls, err := h.upload(c, files)
	if err != nil {
		return serverError(c, "Failed to create flight", err)
	}
	var f model.Flight
	in.Apply(&f, h.now())
	f.MainImage = urls[0]
	f.Images = urls[1:]

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()
	if err := h.Flights.Create(ctx, &f); err != nil {
		return serverError(c, "Failed to create flight", err)
	}
	h.invalidate(c)

	return c.JSON(http.StatusCreated, flightCreatedResp{
		ID:        f.ID.Hex(),
		Title:     f.Title,
		Overview:  f.Overview,
		MainImage: f.MainImage,
		Images:    f.Images,
		Price:     f.Price,
		Category:  f.Category,
	})
}

// Update handles PUT /api/flights/:id.  Only submitted fields change.  A new
// main image replaces the old one; any submitted secondary images replace
// the whole secondary set.
func (h *FlightHandler) Update(c echo.Context) error {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		return message(c, http.StatusBadRequest, "Invalid flight ID")
	}
	in, files, ok, err := h.readForm(c)
	if !ok {
		return err
	}
	if errs := validation.ValidateFlight(in, validation.ModeUpdate); !errs.OK() {
		return validationFailed(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	existing, err := h.Flights.GetByID(ctx, id)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrFlightNotFound) {
			return message(c, http.StatusNotFound, "Flight not found")
		}
		return serverError(c, "Failed to update flight", err)
	}

	urls, err := h.upload(c, files)
	if err != nil {
		return serverError(c, "Failed to update flight", err)
	}
	if files.Main != nil {
		existing.MainImage, urls = urls[0], urls[1:]
	}
	if len(urls) > 0 {
		existing.Images = urls
	}
	in.Apply(existing, h.now())

	ctx, cancel = context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()
	updated, err := h.Flights.Update(ctx, id, existing)
	if err != nil {
		if errors.Is(err, repository.ErrFlightNotFound) {
			return message(c, http.StatusNotFound, "Flight not found")
		}
		return serverError(c, "Failed to update flight", err)
	}
	h.invalidate(c)
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/flights/:id.  Reservations that reference the
// flight are kept and their number is logged and sent with the event.  The
// flight's images are removed asynchronously by the event worker.
func (h *FlightHandler) Delete(c echo.Context) error {
	id, err := repository.ParseID(c.Param("id"))
	if err != nil {
		return message(c, http.StatusBadRequest, "Invalid flight ID")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.T.Store)
	defer cancel()

	deleted, err := h.Flights.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFlightNotFound) {
			return message(c, http.StatusNotFound, "Flight not found")
		}
		return serverError(c, "Failed to delete flight", err)
	}
	h.invalidate(c)
	orphaned := h.orphaned(ctx, c, id)

	if h.Events != nil {
		ev := queue.FlightDeletedEvent{
			FlightID:             deleted.ID.Hex(),
			Title:                deleted.Title,
			Images:               append([]string{deleted.MainImage}, deleted.Images...),
			OrphanedReservations: orphaned,
			DeletedAt:            h.now().Format(time.RFC3339),
		}
		background(c, "publish flight.deleted", func(ctx context.Context) error {
			return h.Events.FlightDeleted(ctx, ev)
		})
	}
	return message(c, http.StatusOK, "Flight deleted successfully")
}

// orphaned counts the reservations still pointing at a deleted flight, or
// returns -1 when that is unknown.
func (h *FlightHandler) orphaned(ctx context.Context, c echo.Context, id primitive.ObjectID) int64 {
	if h.Bookings == nil {
		return -1
	}
	n, err := h.Bookings.CountByFlight(ctx, id)
	if err != nil {
		c.Logger().Warnf("flights: count reservations of %s: %v", id.Hex(), err)
		return -1
	}
	if n > 0 {
		c.Logger().Infof("flights: %s deleted with %d reservations referencing it", id.Hex(), n)
	}
	return n
}
