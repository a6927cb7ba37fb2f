package sessionauth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Authenticate returns a Gin middleware that attaches a Principal to the
// request context when it carries a live session token.
//
// The middleware never rejects a request for bad credentials: missing,
// malformed, expired or revoked tokens leave the request anonymous and
// authorization is left to downstream handlers (see RequirePrincipal).
// Only an unreachable token store or user directory aborts the request,
// with 503.
func Authenticate(svc *SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = c.Writer.Header().Get(requestIDHeader)
		}

		ctx, err := svc.authenticate(c.Request, requestID)
		c.Request = c.Request.WithContext(ctx)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, buildErrorResponse(err))
			return
		}

		c.Next()
	}
}

// RequirePrincipal returns a Gin middleware that rejects anonymous requests with 401
func RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "unauthorized",
				"reason": "AUTHENTICATION_REQUIRED",
			})
			return
		}
		c.Next()
	}
}

// Middleware is the net/http equivalent of Authenticate
func Middleware(svc *SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := svc.authenticate(r, r.Header.Get(requestIDHeader))
			if err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves the request's token and returns the enriched
// context. The returned error is non-nil only for infrastructure failures.
func (s *SessionService) authenticate(r *http.Request, requestID string) (context.Context, error) {
	start := time.Now()
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx := WithRequestID(r.Context(), requestID)

	token, err := extractToken(r, s.cfg.CookieName())
	if err != nil {
		return ctx, nil
	}

	return s.authenticateToken(ctx, token, start)
}

func (s *SessionService) authenticateToken(ctx context.Context, token string, start time.Time) (context.Context, error) {
	event := newEvent(ctx, actionAuthenticate, "", start)
	event.TokenPreview = token

	principal, err := s.Validate(ctx, token)
	event.Latency = time.Since(start)
	if err != nil {
		logSecurityEvent(s.cfg.Logger(), event.withFailure(err))
		if IsInfrastructure(err) {
			return ctx, err
		}
		return ctx, nil
	}

	event.Username = principal.Username
	logSecurityEvent(s.cfg.Logger(), event)
	return WithPrincipal(ctx, principal), nil
}

// buildErrorResponse constructs the body for an aborted request
func buildErrorResponse(err error) gin.H {
	return gin.H{
		"error":  "service unavailable",
		"reason": string(CodeOf(err)),
	}
}
