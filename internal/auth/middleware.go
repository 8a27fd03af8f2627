package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"authd/internal/rate"
	"authd/internal/token"
)

const claimsContextKey = "auth.claims"

// ClaimsFromContext returns the verified claims stored by RequireSession.
func ClaimsFromContext(c *gin.Context) (*token.Claims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}

// RequireSession guards authenticated routes. The session store is
// consulted before the signature so that revocation wins over an otherwise
// valid token.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		access, err := c.Cookie(accessCookie)
		if err != nil || access == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
			return
		}

		claims, err := h.svc.Verify(c.Request.Context(), access)
		if err != nil {
			switch {
			case errors.Is(err, ErrSessionInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired session"})
			case errors.Is(err, ErrTokenInvalid):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			default:
				h.log.Error("session verification failed", "err", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			}
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// LoginRateGuard rejects blocked IPs before any credential check runs,
// bounding the cost of a brute-force burst.
func (h *Handler) LoginRateGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.svc.CheckLoginAllowed(c.Request.Context(), c.ClientIP())
		if err == nil {
			c.Next()
			return
		}

		var blocked *rate.BlockedError
		if errors.As(err, &blocked) {
			h.fail(c, err)
			c.Abort()
			return
		}

		h.log.Error("rate guard check failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Rate limiting failed"})
	}
}
