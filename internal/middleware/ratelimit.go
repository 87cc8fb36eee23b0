package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/balloon-tour-booking/internal/config"
)

// limiterScript refills the bucket for the elapsed whole intervals and takes
// one token.  The bucket is a hash {t = tokens, at = last refill in ms}.
// Returns {allowed (0|1), tokens left, ms until the next refill}.
var limiterScript = redis.NewScript(`
local now, cap, step, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 't', 'at')
local t, at = tonumber(b[1]), tonumber(b[2])
if not t or not at then
	t, at = cap, now
end
if every > 0 and step > 0 and now > at then
	local n = math.floor((now - at) / every)
	if n > 0 then
		t = math.min(cap, t + n * step)
		at = at + n * every
	end
end
local ok, wait = 0, 0
if t >= 1 then
	ok, t = 1, t - 1
else
	wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 't', t, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return { ok, t, wait }
`)

// NewTokenBucket limits requests per key (see buildRateKey) with a Redis
// token bucket.  A nil client or a disabled config passes everything; so
// does any Redis error, since failing closed would take login down with
// the cache server.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := limiterScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				c.Logger().Warnf("ratelimit: key=%s: %v (result %v); letting request through", key, err, res)
				return next(c)
			}
			allowed, remaining, waitMs := res[0] == 1, res[1], res[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if allowed {
				return next(c)
			}

			secs := int(math.Max(1, math.Ceil(float64(waitMs)/1000)))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				c.Logger().Infof("ratelimit: blocked key=%s for %ds", key, secs)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"message":     "Too many requests, please try again later.",
				"retry_after": secs,
			})
		}
	}
}

// ClientIP returns the IP extractor the limiter keys on.  Without a trusted
// proxy in front, forwarding headers are client-controlled and ignored; with
// one, X-Forwarded-For is only honoured when the hop that set it is on a
// loopback or private network.
func ClientIP(trustProxy bool) echo.IPExtractor {
	if trustProxy {
		return echo.ExtractIPFromXFFHeader()
	}
	return echo.ExtractIPDirect()
}

// buildRateKey composes the bucket key.  Public endpoints are anonymous, so
// the useful strategies are by client IP and by route; "user_route" keys
// admins by their user id.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = []string{"ip", ip}
	case "route":
		parts = []string{"route", route}
	case "user_route":
		parts = []string{"user", userKey(c), "route", route}
	default: // ip_route
		parts = []string{"ip", ip, "route", route}
	}
	return cfg.Prefix + ":" + strings.Join(parts, ":")
}
