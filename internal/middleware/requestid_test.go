package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// newRequestIDRouter echoes the context request id in X-Context-Request-ID.
func newRequestIDRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.Header("X-Context-Request-ID", RequestID(c))
		c.Status(http.StatusOK)
	})
	return r
}

func serveRequestID(r *gin.Engine, incoming string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(RequestIDHeader, incoming)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// RequestIDMiddleware
// ---------------------------------------------------------------------------

func TestRequestIDMiddleware_GeneratesUUID(t *testing.T) {
	w := serveRequestID(newRequestIDRouter(), "")

	id := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-ID = %q, want a UUID: %v", id, err)
	}
	if ctxID := w.Header().Get("X-Context-Request-ID"); ctxID != id {
		t.Errorf("context id %q does not match response id %q", ctxID, id)
	}
}

func TestRequestIDMiddleware_PropagatesIncomingID(t *testing.T) {
	const upstream = "lb-request-0001"

	w := serveRequestID(newRequestIDRouter(), upstream)

	if got := w.Header().Get(RequestIDHeader); got != upstream {
		t.Errorf("X-Request-ID = %q, want %q", got, upstream)
	}
}

func TestRequestIDMiddleware_UniquePerRequest(t *testing.T) {
	r := newRequestIDRouter()
	seen := map[string]bool{}
	for i := range 10 {
		id := serveRequestID(r, "").Header().Get(RequestIDHeader)
		if seen[id] {
			t.Errorf("duplicate request id %q on iteration %d", id, i)
		}
		seen[id] = true
	}
}

func TestRequestID_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := RequestID(c); got != "" {
		t.Errorf("RequestID() = %q, want empty", got)
	}
}
