package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/balloon-tour-booking/internal/logging"
	"github.com/iliyamo/balloon-tour-booking/internal/mail"
	"github.com/iliyamo/balloon-tour-booking/internal/model"
	"github.com/iliyamo/balloon-tour-booking/internal/queue"
	"github.com/iliyamo/balloon-tour-booking/internal/repository"
)

var errStore = errors.New("store unavailable")

// ----- flights -----

type memFlights struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]model.Flight
	err   error
	clock time.Time
}

func newMemFlights() *memFlights {
	return &memFlights{items: map[primitive.ObjectID]model.Flight{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memFlights) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memFlights) seed(f model.Flight) model.Flight {
	_ = m.Create(context.Background(), &f)
	return f
}

func (m *memFlights) Create(_ context.Context, f *model.Flight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	f.ID = primitive.NewObjectID()
	f.CreatedAt = m.tick()
	f.UpdatedAt = f.CreatedAt
	if f.Images == nil {
		f.Images = []string{}
	}
	m.items[f.ID] = *f
	return nil
}

func (m *memFlights) GetByID(_ context.Context, id primitive.ObjectID) (*model.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.items[id]
	if !ok {
		return nil, repository.ErrFlightNotFound
	}
	return &f, nil
}

func (m *memFlights) List(context.Context) ([]model.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.Flight, 0, len(m.items))
	for _, f := range m.items {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memFlights) Update(_ context.Context, id primitive.ObjectID, f *model.Flight) (*model.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return nil, repository.ErrFlightNotFound
	}
	f.ID = id
	f.UpdatedAt = m.tick()
	m.items[id] = *f
	out := *f
	return &out, nil
}

func (m *memFlights) Delete(_ context.Context, id primitive.ObjectID) (*model.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.items[id]
	if !ok {
		return nil, repository.ErrFlightNotFound
	}
	delete(m.items, id)
	return &f, nil
}

func (m *memFlights) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok, m.err
}

func (m *memFlights) Summaries(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.FlightSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]model.FlightSummary{}
	for _, id := range ids {
		if f, ok := m.items[id]; ok {
			out[id] = model.FlightSummary{ID: f.ID, Title: f.Title, Price: f.Price, MainImage: f.MainImage}
		}
	}
	return out, nil
}

// ----- reservations -----

type memReservations struct {
	mu       sync.Mutex
	items    []model.Reservation
	clock    time.Time
	countErr error
}

func (m *memReservations) Create(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock.IsZero() {
		m.clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	m.clock = m.clock.Add(time.Minute)
	r.ID = primitive.NewObjectID()
	r.CreatedAt, r.UpdatedAt = m.clock, m.clock
	m.items = append(m.items, *r)
	return nil
}

func (m *memReservations) GetByID(_ context.Context, id primitive.ObjectID) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (m *memReservations) List(context.Context) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Reservation, 0, len(m.items))
	for i := len(m.items) - 1; i >= 0; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}

func (m *memReservations) Delete(_ context.Context, id primitive.ObjectID) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.items {
		if r.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return &r, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (m *memReservations) CountByFlight(_ context.Context, flightID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, r := range m.items {
		if r.Flight == flightID {
			n++
		}
	}
	return n, nil
}

// ----- users -----

type memUsers struct {
	mu    sync.Mutex
	items []model.User
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range m.items {
		if x.Email == u.Email {
			return &repository.ErrUserExists{Field: "email"}
		}
		if x.Username == u.Username {
			return &repository.ErrUserExists{Field: "username"}
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.items = append(m.items, *u)
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.items {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) FindByUsernameOrEmail(_ context.Context, username, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.items {
		if u.Username == username || u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

// ----- media, cache, events, mail -----

type memMedia struct {
	mu       sync.Mutex
	uploaded []string
	fail     bool
}

func (m *memMedia) Upload(_ context.Context, data []byte, folder, _ string) (string, error) {
	if m.fail {
		return "", errors.New("object store down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "https://cdn.test/" + folder + "/" + string(data)
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *memMedia) Delete(context.Context, string) error { return nil }

type countingCache struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingCache) Invalidate(_ context.Context, ns string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[ns]++
	return nil
}

func (c *countingCache) count(ns string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[ns]
}

type recordingEvents struct {
	reservations chan queue.ReservationCreatedEvent
	flights      chan queue.FlightDeletedEvent
}

func newRecordingEvents() *recordingEvents {
	return &recordingEvents{
		reservations: make(chan queue.ReservationCreatedEvent, 8),
		flights:      make(chan queue.FlightDeletedEvent, 8),
	}
}

func (r *recordingEvents) ReservationCreated(_ context.Context, ev queue.ReservationCreatedEvent) error {
	r.reservations <- ev
	return nil
}

func (r *recordingEvents) FlightDeleted(_ context.Context, ev queue.FlightDeletedEvent) error {
	r.flights <- ev
	return nil
}

type memMailer struct {
	sent []mail.Message
	err  error
}

func (m *memMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// ----- request helpers -----

func newEcho() *echo.Echo {
	e := echo.New()
	e.Logger = logging.Discard()
	return e
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

type upload struct {
	field, name, ctype, data string
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.ctype)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}
