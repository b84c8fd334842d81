package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestRateLimitPerIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}
	router.GET("/", RateLimit(2, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	// Rotating X-Forwarded-For from an untrusted peer does not buy a fresh limiter.
	for i, xff := range []string{"1.1.1.1", "2.2.2.2"} {
		if code := hit("203.0.113.7:4000", xff); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := hit("203.0.113.7:4001", "3.3.3.3"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the burst, got %d", code)
	}
	if code := hit("198.51.100.2:4000", ""); code != http.StatusOK {
		t.Fatalf("expected another client to be unaffected, got %d", code)
	}
}

func TestRateLimitTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if err := router.SetTrustedProxies([]string{"10.0.0.1"}); err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}
	router.GET("/", RateLimit(1, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := hit("203.0.113.7"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := hit("198.51.100.2"); code != http.StatusOK {
		t.Fatalf("expected a second client behind the proxy to get its own limiter, got %d", code)
	}
	if code := hit("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for the first client, got %d", code)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	store := newRateLimiterStore(5)
	store.now = func() time.Time { return now }

	store.get("203.0.113.7")
	now = now.Add(time.Minute)
	store.get("198.51.100.2")
	if len(store.visitors) != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", len(store.visitors))
	}

	now = now.Add(limiterIdle)
	store.get("192.0.2.1")
	if _, ok := store.visitors["203.0.113.7"]; ok {
		t.Fatal("expected idle client to be evicted")
	}
	if _, ok := store.visitors["198.51.100.2"]; ok {
		t.Fatal("expected idle client to be evicted")
	}
	if len(store.visitors) != 1 {
		t.Fatalf("expected only the active client, got %d", len(store.visitors))
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
