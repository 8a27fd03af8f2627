package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"authd/internal/rate"
)

// Cookie names match the contract the frontend already relies on.
const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

// Handler exposes the auth service over HTTP.
type Handler struct {
	svc    *Service
	secure bool // mark cookies Secure (release mode)
	log    *slog.Logger
}

// NewHandler creates the HTTP handler layer.
func NewHandler(svc *Service, secureCookies bool, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, secure: secureCookies, log: log}
}

// Register mounts all auth routes.
func (h *Handler) Register(r *gin.Engine) {
	grp := r.Group("/auth")
	grp.POST("/signup", h.Signup)
	grp.POST("/login", h.LoginRateGuard(), h.Login)
	grp.POST("/logout", h.Logout)
	grp.GET("/verify", h.RequireSession(), h.Verify)
	grp.POST("/refresh", h.Refresh)

	r.GET("/healthz", h.Health)
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	u, pair, err := h.svc.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": u})
}

// Login handles POST /auth/login. The rate guard middleware has already
// cleared this attempt; a malformed body still counts as a failure.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.svc.NoteLoginFailure(c.Request.Context(), c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	u, pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": u})
}

// Logout handles POST /auth/logout. Succeeds from the caller's point of
// view even when the tokens were already gone.
func (h *Handler) Logout(c *gin.Context) {
	access, _ := c.Cookie(accessCookie)
	refresh, _ := c.Cookie(refreshCookie)

	if err := h.svc.Logout(c.Request.Context(), access, refresh); err != nil {
		h.fail(c, err)
		return
	}

	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Verify handles GET /auth/verify behind the session middleware.
func (h *Handler) Verify(c *gin.Context) {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return
	}

	u, err := h.svc.UserFromClaims(c.Request.Context(), claims)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u})
}

// Refresh handles POST /auth/refresh: single-use rotation of the refresh
// token presented in the cookie.
func (h *Handler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(refreshCookie)
	if err != nil || refresh == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token required"})
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setAuthCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"message": "Token refreshed successfully"})
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	if err := h.svc.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail maps a service error to its status code and body through the fixed
// taxonomy table.
func (h *Handler) fail(c *gin.Context, err error) {
	var blocked *rate.BlockedError
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
	case errors.Is(err, ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, ErrSessionInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired session"})
	case errors.Is(err, ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
	case errors.Is(err, ErrRefreshInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired refresh token"})
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	case errors.As(err, &blocked):
		retry := int(blocked.RetryAfter.Seconds())
		c.Header("Retry-After", strconv.Itoa(retry))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"message":           blocked.Error(),
			"retryAfterSeconds": retry,
		})
	default:
		// Includes store/guard unavailability: infrastructure trouble is
		// a 500, never a silent deauthentication.
		h.log.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}

func (h *Handler) setAuthCookies(c *gin.Context, pair *TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, pair.Access, h.svc.AccessTTL(), "/", "", h.secure, true)
	c.SetCookie(refreshCookie, pair.Refresh, h.svc.RefreshTTL(), "/", "", h.secure, true)
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, "", -1, "/", "", h.secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", h.secure, true)
}
