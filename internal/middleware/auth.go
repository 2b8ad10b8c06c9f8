package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"spin-rewards-backend/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"

	SessionCookie = "session"
)

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// tokenFromRequest looks for the session token in the Authorization header,
// then the session cookie, then the token query parameter.
func tokenFromRequest(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errors.New("invalid authorization format")
		}
		return parts[1], nil
	}

	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, nil
	}

	if token := c.Query("token"); token != "" {
		return token, nil
	}

	return "", errors.New("not logged in")
}

// AuthMiddleware validates the session token and checks the session has not
// been revoked.
func AuthMiddleware(jwtService *services.JWTService, sessions services.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Not logged in")
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if _, err := sessions.GetUserSession(c.Request.Context(), claims.UserID, claims.SessionID); err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				log.WithError(err).WithField("user_id", claims.UserID).Error("Failed to load session")
			}
			abort(c, http.StatusUnauthorized, "Session expired or invalid")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextSessionID, claims.SessionID)

		c.Next()
	}
}

type rateRule struct {
	action string
	limit  int
	window time.Duration
}

var rateRules = map[string]rateRule{
	"/spin":    {action: "spin", limit: services.DefaultRateLimitSpins, window: time.Minute},
	"/scratch": {action: "scratch", limit: services.DefaultRateLimitScratch, window: time.Minute},
}

// RateLimitMiddleware throttles the spin and scratch endpoints per user.
// It must run after AuthMiddleware.
func RateLimitMiddleware(limiter services.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.Next()
			return
		}

		rule, ok := rateRules[c.FullPath()]
		if !ok {
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), userID, rule.action, rule.limit, rule.window)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Rate limit check failed")
		}
		if err != nil || !allowed {
			c.Header("Retry-After", "60")
			abort(c, http.StatusTooManyRequests, "Too many requests. Please wait.")
			return
		}

		c.Next()
	}
}
