package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 5) // 10 per minute, burst of 5
	defer rl.Stop()

	// First 5 requests should be allowed (burst)
	for i := 0; i < 5; i++ {
		if !rl.Allow("session:a") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be rate limited (exceeded burst)
	if rl.Allow("session:a") {
		t.Error("Request 6 should be rate limited")
	}
}

func TestRateLimiter_DifferentCallers(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("session:one") {
			t.Errorf("Caller one request %d should be allowed", i+1)
		}
	}

	if rl.Allow("session:one") {
		t.Error("Caller one should be rate limited")
	}

	// Another caller still has its full burst
	for i := 0; i < 3; i++ {
		if !rl.Allow("session:two") {
			t.Errorf("Caller two request %d should be allowed", i+1)
		}
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	for i := 0; i < DefaultBurstSize; i++ {
		if !rl.Allow("ip:10.0.0.1") {
			t.Errorf("Request %d should be allowed within the default burst", i+1)
		}
	}
	if rl.Allow("ip:10.0.0.1") {
		t.Error("Request past the default burst should be rate limited")
	}
	if rl.perMin != DefaultRateLimit {
		t.Errorf("Expected %d per minute, got %d", DefaultRateLimit, rl.perMin)
	}
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	rl.Stop()
	rl.Stop()
}

func newAssistantRequest(remoteAddr, sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/messages", nil)
	req.RemoteAddr = remoteAddr
	if sessionID != "" {
		req.Header.Set(SessionIDHeader, sessionID)
	}
	return req
}

func TestRateLimitMiddleware_LimitsPerClient(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(10, 2) // Small burst for testing
	defer rl.Stop()

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	// First 2 requests should succeed (burst)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(newAssistantRequest("10.0.0.1:5000", "session_abc"), rec)

		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("Request %d: Expected no error, got %v", i+1, err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("Request %d: Expected status 200, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "10" {
			t.Errorf("Request %d: Expected X-RateLimit-Limit 10, got %q", i+1, rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	// 3rd request should be rate limited
	rec := httptest.NewRecorder()
	c := e.NewContext(newAssistantRequest("10.0.0.1:5000", "session_abc"), rec)

	if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	var problem problemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problem.Type != errorTypeRateLimit {
		t.Errorf("Expected type %s, got %s", errorTypeRateLimit, problem.Type)
	}

	// Another client is unaffected
	rec = httptest.NewRecorder()
	c = e.NewContext(newAssistantRequest("10.0.0.2:5000", "session_abc"), rec)
	if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 for other client, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware_RotatingSessionsShareTheLimit(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(1, 1)
	defer rl.Stop()

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	allowed := 0
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(newAssistantRequest("10.0.0.7:4000", "session_"+strconv.Itoa(i)), rec)
		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.Code == http.StatusOK {
			allowed++
		} else if rec.Code != http.StatusTooManyRequests {
			t.Errorf("Request %d: Expected status 200 or 429, got %d", i+1, rec.Code)
		}
	}

	if allowed != 1 {
		t.Errorf("Expected 1 of 50 requests allowed, got %d", allowed)
	}
}

func TestRateLimitMiddleware_WithoutSession(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(10, 1)
	defer rl.Stop()

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		c := e.NewContext(newAssistantRequest("10.0.0.3:5000", ""), rec)
		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("Expected [200 429], got %v", codes)
	}
}

func TestRateLimiter_Take_RetryAfter(t *testing.T) {
	rl := NewRateLimiterWithConfig(6, 1) // one token every 10s
	defer rl.Stop()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	first := rl.Take("session:a")
	if !first.Allowed || first.Remaining != 0 {
		t.Errorf("Expected first request allowed with 0 remaining, got %+v", first)
	}

	second := rl.Take("session:a")
	if second.Allowed {
		t.Fatal("Expected second request to be refused")
	}
	if second.RetryAfter < 9*time.Second || second.RetryAfter > 10*time.Second {
		t.Errorf("Expected retry after about 10s, got %v", second.RetryAfter)
	}

	// A refused request does not spend the next token
	now = now.Add(11 * time.Second)
	if !rl.Take("session:a").Allowed {
		t.Error("Expected request allowed once the token is back")
	}
}
