package middleware

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the default number of assistant messages per minute
	DefaultRateLimit = 20
	// DefaultBurstSize is the default burst size
	DefaultBurstSize = 5
	// CleanupInterval is how often idle callers are forgotten
	CleanupInterval = 5 * time.Minute
	// LimiterTTL is how long a caller may stay idle before being forgotten
	LimiterTTL = 10 * time.Minute

	// SessionIDHeader carries the assistant session of the caller
	SessionIDHeader = "X-Session-ID"
)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter keeps one token bucket per caller
type RateLimiter struct {
	mu       sync.Mutex
	callers  map[string]*caller
	perMin   int
	limit    rate.Limit
	burst    int
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

type caller struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new RateLimiter with default settings
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(DefaultRateLimit, DefaultBurstSize)
}

// NewRateLimiterWithConfig creates a RateLimiter allowing requestsPerMinute
// with bursts of burstSize
func NewRateLimiterWithConfig(requestsPerMinute int, burstSize int) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*caller),
		perMin:  requestsPerMinute,
		limit:   rate.Every(time.Minute / time.Duration(max(requestsPerMinute, 1))),
		burst:   burstSize,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go rl.evictIdle()

	return rl
}

// Take spends one token of key's bucket. A refused request spends nothing and
// learns how long until a token is available.
func (r *RateLimiter) Take(key string) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	c, ok := r.callers[key]
	if !ok {
		c = &caller{bucket: rate.NewLimiter(r.limit, r.burst)}
		r.callers[key] = c
	}
	c.lastSeen = now

	reservation := c.bucket.ReserveN(now, 1)
	if !reservation.OK() {
		return Decision{RetryAfter: time.Minute}
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return Decision{RetryAfter: delay}
	}

	return Decision{
		Allowed:   true,
		Remaining: int(math.Max(0, math.Floor(c.bucket.TokensAt(now)))),
	}
}

// Allow reports whether key may make one more request
func (r *RateLimiter) Allow(key string) bool {
	return r.Take(key).Allowed
}

func (r *RateLimiter) evictIdle() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			cutoff := r.now().Add(-LimiterTTL)
			for key, c := range r.callers {
				if c.lastSeen.Before(cutoff) {
					delete(r.callers, key)
				}
			}
			r.mu.Unlock()
		case <-r.stopCh:
			return
		}
	}
}

// Stop stops the eviction goroutine
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// callerKey identifies the caller by client IP. The session header is chosen
// by the client, so it never selects the bucket.
func callerKey(c echo.Context) string {
	return "ip:" + c.RealIP()
}

// RateLimitMiddleware returns an Echo middleware that applies rate limiting
func RateLimitMiddleware(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := callerKey(c)
			decision := rl.Take(key)

			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(rl.perMin))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				header.Set("Retry-After", strconv.Itoa(retryAfter))

				event := log.Warn().
					Str("key", key).
					Int("retry_after", retryAfter)
				if sessionID := strings.TrimSpace(c.Request().Header.Get(SessionIDHeader)); sessionID != "" {
					event = event.Str("session_id", sessionID)
				}
				event.Msg("Rate limit exceeded")

				return tooManyRequestsError(c, "Too many messages. Please retry after "+strconv.Itoa(retryAfter)+" seconds.")
			}

			return next(c)
		}
	}
}
