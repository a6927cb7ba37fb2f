package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Wang-tianhao/session-auth-go/internal/users"
	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

type handler struct {
	sessions     *sessionauth.SessionService
	users        *users.Service
	logger       *slog.Logger
	cookieName   string
	cookieSecure bool
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=6,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=255"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type lookupQuery struct {
	Username string `form:"username" binding:"required"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toProfileResponse(p *users.Profile) profileResponse {
	return profileResponse{ID: p.ID, Username: p.Username, Email: p.Email, CreatedAt: p.CreatedAt}
}

func (h *handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "session service is running"})
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.users.Register(c.Request.Context(), users.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProfileResponse(profile))
}

func (h *handler) lookup(c *gin.Context) {
	var q lookupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.users.Lookup(c.Request.Context(), q.Username)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(profile))
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch sessionauth.CodeOf(err) {
		case sessionauth.ErrNotFound, sessionauth.ErrUnauthorized:
			// One answer for both so usernames cannot be probed.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password", "reason": string(sessionauth.ErrUnauthorized)})
		default:
			h.writeError(c, err)
		}
		return
	}

	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	c.JSON(http.StatusOK, loginResponse{Token: session.Token, ExpiresAt: session.ExpiresAt})
}

func (h *handler) logout(c *gin.Context) {
	principal := sessionauth.MustPrincipal(c.Request.Context())

	if err := h.sessions.Logout(c.Request.Context(), principal.Username); err != nil {
		h.writeError(c, err)
		return
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *handler) me(c *gin.Context) {
	principal := sessionauth.MustPrincipal(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"username": principal.Username})
}

func (h *handler) setSessionCookie(c *gin.Context, token string, expires time.Time) {
	if h.cookieName == "" {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handler) clearSessionCookie(c *gin.Context) {
	if h.cookieName == "" {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
