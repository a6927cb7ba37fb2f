// Package httpapi exposes the session endpoints over HTTP with gin.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/Wang-tianhao/session-auth-go/internal/users"
	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

const requestIDHeader = "X-Request-ID"

// Deps are the collaborators the router dispatches to
type Deps struct {
	Sessions     *sessionauth.SessionService
	Users        *users.Service
	Logger       *slog.Logger
	CookieSecure bool
}

// NewRouter builds the gin engine with middleware and routes mounted
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handler{
		sessions:     deps.Sessions,
		users:        deps.Users,
		logger:       deps.Logger,
		cookieName:   deps.Sessions.Config().CookieName(),
		cookieSecure: deps.CookieSecure,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.New(requestid.WithCustomHeaderStrKey(requestIDHeader)))
	r.Use(accessLog(deps.Logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(sessionauth.Authenticate(deps.Sessions))

	api := r.Group("/api/v1")
	api.GET("", h.index)

	user := api.Group("/user")
	user.POST("", h.register)
	user.GET("", h.lookup)
	user.POST("/login", h.login)
	user.POST("/logout", sessionauth.RequirePrincipal(), h.logout)
	user.GET("/me", sessionauth.RequirePrincipal(), h.me)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "reason": "NO_ROUTE"})
	})

	return r
}

// accessLog logs one line per request, correlated by request id
func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rlog := logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"request_id", requestid.Get(c),
		)

		start := time.Now()
		rlog.Debug("request started")
		c.Next()
		rlog.Info("request completed", "status", c.Writer.Status(), "duration", time.Since(start))
	}
}
