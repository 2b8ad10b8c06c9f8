package handlers

import (
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"spin-rewards-backend/internal/middleware"
	"spin-rewards-backend/internal/models"
	"spin-rewards-backend/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	loginRateWindow    = time.Minute
	maxUserAgentLength = 100
)

type AuthHandler struct {
	rewards      *services.RewardService
	sessions     services.SessionStore
	limiter      services.RateLimiter
	jwtService   *services.JWTService
	clock        services.Clock
	secureCookie bool
}

func NewAuthHandler(
	rewards *services.RewardService,
	sessions services.SessionStore,
	limiter services.RateLimiter,
	jwtService *services.JWTService,
	clock services.Clock,
	secureCookie bool,
) *AuthHandler {
	return &AuthHandler{
		rewards:      rewards,
		sessions:     sessions,
		limiter:      limiter,
		jwtService:   jwtService,
		clock:        clock,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	allowed, err := h.limiter.CheckRateLimit(ctx, c.ClientIP(), "login", services.DefaultRateLimitLogin, loginRateWindow)
	if err != nil {
		log.WithError(err).Warn("Login rate limit check failed")
	}
	if !allowed && err == nil {
		fail(c, http.StatusTooManyRequests, "Too many login attempts. Please wait.")
		return
	}

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request")
		return
	}

	userID, err := models.ValidateUserID(req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	if _, err := h.rewards.Login(ctx, userID); err != nil {
		writeError(c, err)
		return
	}

	now := h.clock.Now()
	fingerprint := models.DeviceFingerprint(req.DeviceInfo)
	userAgent := truncate(c.GetHeader("User-Agent"), maxUserAgentLength)

	session := &models.UserSession{
		SessionID:    models.GenerateSessionID(),
		UserID:       userID,
		Fingerprint:  fingerprint,
		UserAgent:    userAgent,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if err := h.sessions.StoreUserSession(ctx, session, h.jwtService.TTL()); err != nil {
		writeError(c, fmt.Errorf("failed to store session: %w", err))
		return
	}

	token, err := h.jwtService.GenerateToken(userID, session.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(h.jwtService.TTL().Seconds()), "/", "", h.secureCookie, true)

	if dispatcher := h.rewards.Dispatcher(); dispatcher != nil {
		device := req.DeviceInfo
		at := now.Format("2006-01-02 15:04:05")
		dispatcher.NotifyWithChatInfo(userID, func(chatInfo string) string {
			return securityAlert(userID, device, fingerprint, at, userAgent, chatInfo)
		})
	}

	log.WithFields(log.Fields{
		"user_id":     userID,
		"fingerprint": fingerprint,
	}).Info("User logged in")

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"expires_in": int(h.jwtService.TTL().Seconds()),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sessionID := c.GetString(middleware.ContextSessionID)

	if err := h.sessions.DeleteUserSession(c.Request.Context(), userID, sessionID); err != nil {
		writeError(c, fmt.Errorf("failed to delete session: %w", err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func securityAlert(userID string, device models.DeviceInfo, fingerprint, at, userAgent, chatInfo string) string {
	return fmt.Sprintf(`🔐 <b>SECURITY ALERT</b>
👤 User ID: <code>%s</code>
📱 Device: %s
🌐 Browser: %s
🖥️ OS: %s
📍 Screen: %s
🔗 Device ID: <code>%s</code>
⏰ Time: %s
🌍 User Agent: %s
💬 Chat: %s`,
		userID,
		models.OrUnknown(device.Device),
		models.OrUnknown(device.Browser),
		models.OrUnknown(device.OS),
		models.OrUnknown(device.Screen),
		fingerprint,
		at,
		models.OrUnknown(userAgent),
		chatInfo,
	)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
