package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/balloon-tour-booking/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func countingHandler(hits *atomic.Int32, status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		n := hits.Add(1)
		return c.JSON(status, echo.Map{"n": n})
	}
}

func TestResponseCacheHitAndInvalidate(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(cacheConfig(), rdb)
	var hits atomic.Int32

	e := echo.New()
	e.GET("/flights", countingHandler(&hits, http.StatusOK), rc.Middleware("flights"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))

	require.NoError(t, rc.Invalidate(context.Background(), "flights"))
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"n":2}`, rec.Body.String())
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(cacheConfig(), rdb)
	var hits atomic.Int32

	e := echo.New()
	e.GET("/flights/:id", countingHandler(&hits, http.StatusNotFound), rc.Middleware("flights"))

	serve(e, httptest.NewRequest(http.MethodGet, "/flights/x", nil))
	serve(e, httptest.NewRequest(http.MethodGet, "/flights/x", nil))
	assert.EqualValues(t, 2, hits.Load())
}

func TestResponseCacheKeysOnPath(t *testing.T) {
	_, rdb := newRedis(t)
	rc := NewResponseCache(cacheConfig(), rdb)
	var hits atomic.Int32

	e := echo.New()
	e.GET("/flights/:id", countingHandler(&hits, http.StatusOK), rc.Middleware("flights"))

	serve(e, httptest.NewRequest(http.MethodGet, "/flights/a", nil))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/flights/b", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.EqualValues(t, 2, hits.Load())
}

func TestResponseCacheDisabled(t *testing.T) {
	rc := NewResponseCache(cacheConfig(), nil)
	var hits atomic.Int32

	e := echo.New()
	e.GET("/flights", countingHandler(&hits, http.StatusOK), rc.Middleware("flights"))
	serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))

	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.EqualValues(t, 2, hits.Load())
	assert.NoError(t, rc.Invalidate(context.Background(), "flights"))

	var nilCache *ResponseCache
	assert.NoError(t, nilCache.Invalidate(context.Background(), "flights"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{1, 2})
	assert.False(t, ok)
}
