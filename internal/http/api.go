package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"user-auth/internal/domain"
	"user-auth/internal/observability"
	"user-auth/internal/service"
)

// Options configures the HTTP handler.
type Options struct {
	Logger  logrus.FieldLogger
	Metrics *observability.Metrics
	// Registry is served on /metrics when set.
	Registry      *prometheus.Registry
	SessionCookie string
	// ExcludedPaths bypass the session guard. Nil selects DefaultExcludedPaths.
	ExcludedPaths []string
}

// Handler wires HTTP routes to the auth service.
type Handler struct {
	auth          service.AuthService
	log           logrus.FieldLogger
	metrics       *observability.Metrics
	registry      *prometheus.Registry
	sessionCookie string
	excludedPaths []string
}

func NewHandler(auth service.AuthService, opts Options) *Handler {
	h := &Handler{
		auth:          auth,
		log:           opts.Logger,
		metrics:       opts.Metrics,
		registry:      opts.Registry,
		sessionCookie: opts.SessionCookie,
		excludedPaths: opts.ExcludedPaths,
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	if h.sessionCookie == "" {
		h.sessionCookie = "session_id"
	}
	if h.excludedPaths == nil {
		h.excludedPaths = DefaultExcludedPaths
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestIDMiddleware(), h.loggingMiddleware(), h.metricsMiddleware(), corsMiddleware(), h.authMiddleware())

	router.GET("/", h.welcome)
	router.POST("/users", h.registerUser)
	router.POST("/sessions", h.login)
	router.DELETE("/sessions", h.logout)
	router.GET("/profile", h.profile)
	router.POST("/reset_password", h.resetPasswordToken)
	router.PUT("/reset_password", h.updatePassword)

	if h.registry != nil {
		router.GET("/metrics", gin.WrapH(observability.Handler(h.registry)))
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
}

type credentialsRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type resetRequest struct {
	Email string `form:"email" json:"email"`
}

type updatePasswordRequest struct {
	Email       string `form:"email" json:"email"`
	ResetToken  string `form:"reset_token" json:"reset_token"`
	NewPassword string `form:"new_password" json:"new_password"`
}

func (h *Handler) welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Bienvenue"})
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	if _, err := h.auth.RegisterUser(c.Request.Context(), req.Email, req.Password); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": req.Email, "message": "user created"})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	ok, err := h.auth.ValidLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	sessionID, err := h.auth.CreateSession(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if sessionID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessionCookie, *sessionID, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"email": req.Email, "message": "logged in"})
}

func (h *Handler) logout(c *gin.Context) {
	user, err := h.currentUser(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if user != nil {
		if err := h.auth.DestroySession(c.Request.Context(), user.ID); err != nil {
			h.writeError(c, err)
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.currentUser(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": user.Email})
}

func (h *Handler) resetPasswordToken(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	token, err := h.auth.GetResetPasswordToken(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": req.Email, "reset_token": token})
}

func (h *Handler) updatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	if err := h.auth.UpdatePassword(c.Request.Context(), req.ResetToken, req.NewPassword); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": req.Email, "message": "Password updated"})
}

// currentUser returns the user resolved by the auth middleware, or resolves
// the session cookie itself. A missing cookie yields a nil user.
func (h *Handler) currentUser(c *gin.Context) (*domain.User, error) {
	if v, ok := c.Get(currentUserKey); ok {
		if user, ok := v.(*domain.User); ok {
			return user, nil
		}
	}

	sessionID, err := c.Cookie(h.sessionCookie)
	if err != nil || sessionID == "" {
		return nil, nil
	}
	return h.auth.GetUserBySession(c.Request.Context(), sessionID)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid input"})
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"message": "email already registered"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid reset token"})
	default:
		h.log.WithError(err).WithField(requestIDKey, c.GetString(requestIDKey)).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
