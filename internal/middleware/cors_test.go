package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rede-de-patas/patas-api/internal/config"
)

func serveCORS(cfg config.CORSConfig, method, origin string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSMiddleware(t *testing.T) {
	cfg := config.CORSConfig{AllowedOrigins: []string{"https://patas.example"}}

	w := serveCORS(cfg, http.MethodGet, "https://patas.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://patas.example" {
		t.Errorf("Allow-Origin = %q, want the request origin", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}

	w = serveCORS(cfg, http.MethodGet, "https://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for a foreign origin, want unset", got)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCORSMiddleware_WildcardAndPreflight(t *testing.T) {
	cfg := config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "PUT"}}

	w := serveCORS(cfg, http.MethodOptions, "https://any.example")
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://any.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, PUT" {
		t.Errorf("Allow-Methods = %q, want configured methods", got)
	}
}
