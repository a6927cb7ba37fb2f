package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wang-tianhao/session-auth-go/internal/users"
	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

var statusByCode = map[sessionauth.ErrorCode]int{
	sessionauth.ErrNotFound:       http.StatusNotFound,
	sessionauth.ErrUnauthorized:   http.StatusUnauthorized,
	sessionauth.ErrMalformedToken: http.StatusUnauthorized,
	sessionauth.ErrExpired:        http.StatusUnauthorized,
	sessionauth.ErrRevoked:        http.StatusUnauthorized,
	sessionauth.ErrInfrastructure: http.StatusServiceUnavailable,
	sessionauth.ErrConfigError:    http.StatusInternalServerError,
}

// writeError renders err as {"error", "reason"} with the matching status
func (h *handler) writeError(c *gin.Context, err error) {
	status, reason, message := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "reason": reason})
}

func classify(err error) (status int, reason, message string) {
	var sessErr *sessionauth.Error
	switch {
	case errors.As(err, &sessErr):
		mapped, ok := statusByCode[sessErr.Code]
		if !ok {
			mapped = http.StatusInternalServerError
		}
		return mapped, string(sessErr.Code), sessErr.Message
	case errors.Is(err, users.ErrConflict):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, users.ErrInvalid):
		return http.StatusBadRequest, "INVALID", err.Error()
	case errors.Is(err, sessionauth.ErrUserNotFound):
		return http.StatusNotFound, string(sessionauth.ErrNotFound), "user not found"
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "INVALID"})
}
