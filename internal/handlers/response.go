package handlers

import (
	"errors"
	"net/http"

	"spin-rewards-backend/internal/middleware"
	"spin-rewards-backend/internal/models"
	"spin-rewards-backend/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// writeError maps domain errors to their status and message. Anything
// unrecognized is logged and reported as a 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidUserID):
		fail(c, http.StatusBadRequest, "Invalid Telegram User ID")
	case errors.Is(err, services.ErrAlreadyPlayedToday):
		fail(c, http.StatusForbidden, "This ID has already been used today. Please try again tomorrow.")
	case errors.Is(err, services.ErrQuotaExceeded):
		fail(c, http.StatusConflict, "Daily spin limit reached!")
	case errors.Is(err, services.ErrQuotaNotReached):
		fail(c, http.StatusConflict, "Complete 15 spins first!")
	case errors.Is(err, services.ErrAlreadyClaimed):
		fail(c, http.StatusConflict, "Scratch card already used today!")
	default:
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		fail(c, http.StatusUnauthorized, "Not logged in")
		return "", false
	}
	return userID, true
}
