// Package httperr turns service errors into HTTP responses. Every error body
// has the shape {"error": message, "reason": reason}; reason is only present
// on authorization denials.
package httperr

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rede-de-patas/patas-api/internal/policy"
	"github.com/rede-de-patas/patas-api/internal/services"
)

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch services.KindOf(err) {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindForbidden:
		switch services.ReasonOf(err) {
		case policy.ReasonAlreadyMember:
			return http.StatusConflict
		case policy.ReasonNotFound:
			return http.StatusNotFound
		}
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindInvalid:
		return http.StatusBadRequest
	case services.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Respond aborts the request with the response for err.
func Respond(c *gin.Context, err error) {
	status := Status(err)
	body := gin.H{"error": err.Error()}
	if reason := services.ReasonOf(err); reason != "" {
		body["reason"] = reason
	}

	switch status {
	case http.StatusUnauthorized:
		c.Header("WWW-Authenticate", "Bearer")
	case http.StatusInternalServerError:
		// Not a services.Error; never leak the message.
		slog.Error("unhandled error", "path", c.FullPath(), "error", err)
		body["error"] = "internal server error"
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest aborts with 400 and msg
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// PathID parses a positive int64 path parameter. On failure it answers 400
// and returns false.
func PathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
