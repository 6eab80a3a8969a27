package httpmiddleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"internship/internal/auth"
	"internship/internal/model"
)

func (l *SimpleTokenBucket) allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

func TestTokenBucketRefills(t *testing.T) {
	l := NewSimpleTokenBucket(2, 60)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.allow("a") || !l.allow("a") {
		t.Fatal("capacity not honoured")
	}
	if l.allow("a") {
		t.Fatal("expected bucket to be empty")
	}
	if !l.allow("b") {
		t.Fatal("buckets must be independent")
	}
	now = now.Add(2 * time.Second)
	if !l.allow("a") {
		t.Fatal("expected a refill after two seconds at 60/min")
	}
}

func TestMiddlewareKeysByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewSimpleTokenBucket(1, 1)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if name := c.GetHeader("X-User"); name != "" {
			auth.SetUser(c, model.User{Role: model.RoleStudent, Username: name})
		}
		c.Next()
	})
	r.Use(l.GinMiddleware(ByUserOrIP))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if user != "" {
			req.Header.Set("X-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if do("alice") != http.StatusOK || do("bob") != http.StatusOK || do("") != http.StatusOK {
		t.Fatal("first request per key must pass")
	}
	if do("alice") != http.StatusTooManyRequests || do("") != http.StatusTooManyRequests {
		t.Fatal("second request per key must be limited")
	}
}

func TestLimitedResponseCarriesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewSimpleTokenBucket(1, 30)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	r := gin.New()
	r.Use(l.GinMiddleware(nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d", w.Code)
	}
	// 30 per minute refills one token every two seconds
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q", got)
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf), "/healthz"))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, p := range []string{"/healthz", "/missing?x=1"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["path"] != "/missing" || entry["query"] != "x=1" || entry["level"] != "warn" || entry["status"] != float64(404) {
		t.Fatalf("unexpected entry %v", entry)
	}
}
