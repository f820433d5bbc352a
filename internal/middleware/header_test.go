package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.Use(handlers...)
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return g
}

func TestNoCacheHeaders(t *testing.T) {
	g := newEngine(NoCache())
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := w.Header().Get("Cache-Control"); got != "no-cache, max-age=0, must-revalidate" {
		t.Errorf("Cache-Control = %s", got)
	}
	if w.Header().Get("Expires") == "" {
		t.Error("missing Expires header")
	}
}

func TestSecureHeaders(t *testing.T) {
	g := newEngine(Secure())
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %s", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %s", got)
	}
	// 非TLS请求不能带HSTS
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("unexpected HSTS header on plain http")
	}
}

func TestRequestIdHeader(t *testing.T) {
	g := newEngine(RequestId())
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if id := w.Header().Get("X-Request-Id"); len(id) != 16 {
		t.Errorf("X-Request-Id = %q", id)
	}
}
