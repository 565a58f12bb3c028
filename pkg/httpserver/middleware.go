package httpserver

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

const RequestIDHeader = "X-Request-ID"

// RequestID echoes X-Request-ID or assigns a fresh ULID, storing it in the
// request locals under the same key. The id outlives the request in bus
// events, so the header value is copied out of fiber's buffer.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := utils.CopyString(c.Get(RequestIDHeader))
		if requestID == "" {
			requestID = ulid.Make().String()
		}

		c.Locals(RequestIDHeader, requestID)
		c.Set(RequestIDHeader, requestID)
		return c.Next()
	}
}

func GetRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(RequestIDHeader).(string); ok {
		return id
	}
	return ""
}

// AccessLog logs one line per request.
func AccessLog(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				status = fiberErr.Code
			}
		}

		log.Debug("HTTP request",
			"request_id", GetRequestID(c),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
		)
		return err
	}
}

// RateLimiter hands out one token bucket per key. A bucket idle long enough
// to refill completely is dropped, since a fresh one behaves the same.
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute events per key with the given burst. A
// non-positive perMinute disables limiting.
func NewRateLimiter(perMinute int, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}

	r := &RateLimiter{
		limit:   rate.Inf,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	if perMinute > 0 {
		interval := time.Minute / time.Duration(perMinute)
		r.limit = rate.Every(interval)
		r.idle = max(interval*time.Duration(burst), time.Minute)
	}
	return r
}

func (r *RateLimiter) Allow(key string) bool {
	if r.limit == rate.Inf {
		return true
	}

	now := r.now()
	return r.limiterFor(key, now).AllowN(now, 1)
}

// Len reports how many keys currently hold a bucket.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.buckets)
}

func (r *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= r.idle {
		for k, b := range r.buckets {
			if now.Sub(b.lastSeen) >= r.idle {
				delete(r.buckets, k)
			}
		}
		r.lastSweep = now
	}

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}
