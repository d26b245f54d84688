package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestLimiterAllowsBurstThenWaits(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	ok, wait := l.Allow("1.2.3.4")
	if ok || wait <= 0 || wait > 30*time.Second {
		t.Fatalf("third request: ok=%v wait=%v", ok, wait)
	}
	if ok, _ := l.Allow("5.6.7.8"); !ok {
		t.Fatal("other client limited")
	}

	now = now.Add(30 * time.Second)
	if ok, _ := l.Allow("1.2.3.4"); !ok {
		t.Fatal("token not refilled")
	}
}

func TestLimiterSweep(t *testing.T) {
	l := NewLimiter(10, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }
	l.Allow("a")

	now = now.Add(2 * time.Minute)
	if n := l.Sweep(); n != 0 {
		t.Fatalf("swept %d active clients", n)
	}
	now = now.Add(5 * time.Minute)
	if n := l.Sweep(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewLimiter(1, time.Hour, "/health")

	r := gin.New()
	r.Use(CORS([]string{"http://app.local"}), Secure(), l.Middleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Origin", "http://app.local")
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/api/x")
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "http://app.local" {
		t.Fatalf("first request: %d %v", w.Code, w.Header())
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("api response cacheable")
	}

	w = get("/api/x")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("second request: %d", w.Code)
	}
	for i := 0; i < 3; i++ {
		if w := get("/health"); w.Code != http.StatusOK {
			t.Fatalf("exempt route limited: %d", w.Code)
		}
	}
}
