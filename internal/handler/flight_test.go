package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/balloon-tour-booking/internal/model"
)

type flightFixture struct {
	e        *echo.Echo
	flights  *memFlights
	bookings *memReservations
	media    *memMedia
	cache    *countingCache
	events   *recordingEvents
}

func newFlightFixture() flightFixture {
	fx := flightFixture{
		e:        newEcho(),
		flights:  newMemFlights(),
		bookings: &memReservations{},
		media:    &memMedia{},
		cache:    &countingCache{},
		events:   newRecordingEvents(),
	}
	h := NewFlightHandler(fx.flights, fx.bookings, fx.media, fx.cache, fx.events, Timeouts{})
	fx.e.GET("/api/flights", h.List)
	fx.e.GET("/api/flights/:id", h.Get)
	fx.e.POST("/api/flights", h.Create)
	fx.e.PUT("/api/flights/:id", h.Update)
	fx.e.DELETE("/api/flights/:id", h.Delete)
	return fx
}

func validFlightFields() map[string]string {
	return map[string]string{
		"title":    "Sunrise over the valley",
		"overview": "One hour above the fairy chimneys at dawn",
		"price":    "249.99",
		"program":  `[{"miniTitle":"Pickup","text":"Hotel pickup at 4:30"}]`,
	}
}

func TestCreateFlight(t *testing.T) {
	fx := newFlightFixture()
	req := multipartRequest(t, http.MethodPost, "/api/flights", validFlightFields(),
		upload{"mainImage", "main.jpg", "image/jpeg", "main"},
		upload{"images", "a.png", "image/png", "a"},
		upload{"images", "b.webp", "image/webp", "b"},
	)
	rec := do(fx.e, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got flightCreatedResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 249.99, got.Price)
	assert.Equal(t, "https://cdn.test/flights/main", got.MainImage)
	assert.Equal(t, []string{"https://cdn.test/flights/a", "https://cdn.test/flights/b"}, got.Images)
	assert.Equal(t, model.CategoryVIP, got.Category)
	assert.NotEmpty(t, got.ID)
	assert.NotContains(t, rec.Body.String(), "program")

	assert.Len(t, fx.flights.items, 1)
	assert.Equal(t, 1, fx.cache.count(FlightsNamespace))
}

func TestCreateFlightRequiresMainImage(t *testing.T) {
	fx := newFlightFixture()
	rec := do(fx.e, multipartRequest(t, http.MethodPost, "/api/flights", validFlightFields()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Main image is required")
	assert.Empty(t, fx.media.uploaded)
}

func TestCreateFlightValidation(t *testing.T) {
	fx := newFlightFixture()
	fields := validFlightFields()
	fields["price"] = "free"
	fields["title"] = "ab"
	rec := do(fx.e, multipartRequest(t, http.MethodPost, "/api/flights", fields,
		upload{"mainImage", "main.jpg", "image/jpeg", "main"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, []string{
		"Title is required and must be at least 3 characters",
		"Valid price is required and must be greater than 0",
	}, body.Errors)
	assert.Empty(t, fx.media.uploaded)
}

func TestCreateFlightMalformedProgram(t *testing.T) {
	fx := newFlightFixture()
	fields := validFlightFields()
	fields["program"] = "not json"
	rec := do(fx.e, multipartRequest(t, http.MethodPost, "/api/flights", fields,
		upload{"mainImage", "main.jpg", "image/jpeg", "main"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Program must be an array")
}

func TestCreateFlightFilePolicy(t *testing.T) {
	fx := newFlightFixture()

	rec := do(fx.e, multipartRequest(t, http.MethodPost, "/api/flights", validFlightFields(),
		upload{"mainImage", "main.gif", "image/gif", "main"}))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only JPEG, PNG, and WebP are allowed.")

	rec = do(fx.e, multipartRequest(t, http.MethodPost, "/api/flights", validFlightFields(),
		upload{"mainImage", "a.png", "image/png", "a"},
		upload{"mainImage", "b.png", "image/png", "b"}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = do(fx.e, multipartRequest(t, http.MethodPost, "/api/flights", validFlightFields(),
		upload{"avatar", "a.png", "image/png", "a"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateFlightUploadFailure(t *testing.T) {
	fx := newFlightFixture()
	fx.media.fail = true
	rec := do(fx.e, multipartRequest(t, http.MethodPost, "/api/flights", validFlightFields(),
		upload{"mainImage", "main.jpg", "image/jpeg", "main"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to create flight")
	assert.Contains(t, rec.Body.String(), "object store down")
	assert.Empty(t, fx.flights.items)
}

func seedFlight(fx flightFixture) model.Flight {
	return fx.flights.seed(model.Flight{
		Title:     "Original title",
		Overview:  "Original overview of the flight",
		MainImage: "https://cdn.test/flights/old",
		Images:    []string{"https://cdn.test/flights/old-1"},
		Price:     100,
		Category:  model.CategoryRomantic,
		Program:   []model.ProgramItem{{MiniTitle: "Launch", Text: "Inflate the envelope"}},
	})
}

func TestUpdateFlightPriceOnly(t *testing.T) {
	fx := newFlightFixture()
	f := seedFlight(fx)

	rec := do(fx.e, multipartRequest(t, http.MethodPut, "/api/flights/"+f.ID.Hex(), map[string]string{"price": "300"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got model.Flight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 300.0, got.Price)
	assert.Equal(t, f.Title, got.Title)
	assert.Equal(t, f.Overview, got.Overview)
	assert.Equal(t, f.Program, got.Program)
	assert.Equal(t, f.MainImage, got.MainImage)
	assert.Equal(t, f.Images, got.Images)
	assert.Equal(t, model.CategoryRomantic, got.Category)

	stored := fx.flights.items[f.ID]
	assert.Equal(t, 300.0, stored.Price)
	assert.Equal(t, f.Title, stored.Title)
	assert.Equal(t, 1, fx.cache.count(FlightsNamespace))
}

func TestUpdateFlightURLEncoded(t *testing.T) {
	fx := newFlightFixture()
	f := seedFlight(fx)

	form := url.Values{"title": {"  Renamed flight  "}}
	req := httptest.NewRequest(http.MethodPut, "/api/flights/"+f.ID.Hex(), strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := do(fx.e, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Renamed flight", fx.flights.items[f.ID].Title)
	assert.Equal(t, 100.0, fx.flights.items[f.ID].Price)
}

func TestUpdateFlightReplacesImages(t *testing.T) {
	fx := newFlightFixture()
	f := seedFlight(fx)

	rec := do(fx.e, multipartRequest(t, http.MethodPut, "/api/flights/"+f.ID.Hex(), nil,
		upload{"images", "n1.png", "image/png", "n1"},
		upload{"images", "n2.png", "image/png", "n2"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored := fx.flights.items[f.ID]
	assert.Equal(t, f.MainImage, stored.MainImage)
	assert.Equal(t, []string{"https://cdn.test/flights/n1", "https://cdn.test/flights/n2"}, stored.Images)

	rec = do(fx.e, multipartRequest(t, http.MethodPut, "/api/flights/"+f.ID.Hex(), nil,
		upload{"mainImage", "m.png", "image/png", "m"}))
	require.Equal(t, http.StatusOK, rec.Code)
	stored = fx.flights.items[f.ID]
	assert.Equal(t, "https://cdn.test/flights/m", stored.MainImage)
	assert.Len(t, stored.Images, 2)
}

func TestUpdateFlightErrors(t *testing.T) {
	fx := newFlightFixture()
	f := seedFlight(fx)

	rec := do(fx.e, multipartRequest(t, http.MethodPut, "/api/flights/nope", map[string]string{"price": "3"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(fx.e, multipartRequest(t, http.MethodPut, "/api/flights/507f1f77bcf86cd799439011", map[string]string{"price": "3"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(fx.e, multipartRequest(t, http.MethodPut, "/api/flights/"+f.ID.Hex(), map[string]string{"price": "-1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 100.0, fx.flights.items[f.ID].Price)
}

func TestGetAndListFlights(t *testing.T) {
	fx := newFlightFixture()
	a := seedFlight(fx)
	b := seedFlight(fx)

	rec := do(fx.e, httptest.NewRequest(http.MethodGet, "/api/flights", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Flight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	rec = do(fx.e, httptest.NewRequest(http.MethodGet, "/api/flights/"+a.ID.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"_id":"`+a.ID.Hex()+`"`)

	assert.Equal(t, http.StatusBadRequest, do(fx.e, httptest.NewRequest(http.MethodGet, "/api/flights/xyz", nil)).Code)
	assert.Equal(t, http.StatusNotFound, do(fx.e, httptest.NewRequest(http.MethodGet, "/api/flights/507f1f77bcf86cd799439011", nil)).Code)
}

func TestListFlightsStoreError(t *testing.T) {
	fx := newFlightFixture()
	fx.flights.err = errStore
	rec := do(fx.e, httptest.NewRequest(http.MethodGet, "/api/flights", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Failed to get flights","error":"store unavailable"}`, rec.Body.String())
}

func TestDeleteFlight(t *testing.T) {
	fx := newFlightFixture()
	f := seedFlight(fx)

	assert.Equal(t, http.StatusBadRequest, do(fx.e, httptest.NewRequest(http.MethodDelete, "/api/flights/bad-id", nil)).Code)
	assert.Equal(t, http.StatusNotFound, do(fx.e, httptest.NewRequest(http.MethodDelete, "/api/flights/507f1f77bcf86cd799439011", nil)).Code)

	rec := do(fx.e, httptest.NewRequest(http.MethodDelete, "/api/flights/"+f.ID.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Flight deleted successfully"}`, rec.Body.String())
	assert.Empty(t, fx.flights.items)

	select {
	case ev := <-fx.events.flights:
		assert.Equal(t, f.ID.Hex(), ev.FlightID)
		assert.Equal(t, []string{f.MainImage, f.Images[0]}, ev.Images)
		assert.Zero(t, ev.OrphanedReservations)
	case <-time.After(2 * time.Second):
		t.Fatal("flight.deleted was not published")
	}
}

func TestDeleteFlightCountsOrphanedReservations(t *testing.T) {
	fx := newFlightFixture()
	f := seedFlight(fx)
	other := seedFlight(fx)
	for _, flight := range []primitive.ObjectID{f.ID, f.ID, other.ID} {
		require.NoError(t, fx.bookings.Create(context.Background(), &model.Reservation{Flight: flight, FullName: "Ada"}))
	}

	rec := do(fx.e, httptest.NewRequest(http.MethodDelete, "/api/flights/"+f.ID.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fx.bookings.items, 3, "reservations are kept")

	select {
	case ev := <-fx.events.flights:
		assert.Equal(t, int64(2), ev.OrphanedReservations)
	case <-time.After(2 * time.Second):
		t.Fatal("flight.deleted was not published")
	}
}

func TestDeleteFlightReservationCountFailure(t *testing.T) {
	fx := newFlightFixture()
	fx.bookings.countErr = errors.New("count timed out")
	f := seedFlight(fx)

	rec := do(fx.e, httptest.NewRequest(http.MethodDelete, "/api/flights/"+f.ID.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case ev := <-fx.events.flights:
		assert.Equal(t, int64(-1), ev.OrphanedReservations)
	case <-time.After(2 * time.Second):
		t.Fatal("flight.deleted was not published")
	}
}
