package handlers

import (
	"net/http"

	"spin-rewards-backend/internal/models"
	"spin-rewards-backend/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RelayStatusReporter reports which bot credentials are configured.
type RelayStatusReporter interface {
	Status() services.RelayStatus
}

type GameHandler struct {
	rewards *services.RewardService
	relay   RelayStatusReporter
}

func NewGameHandler(rewards *services.RewardService, relay RelayStatusReporter) *GameHandler {
	return &GameHandler{
		rewards: rewards,
		relay:   relay,
	}
}

func (h *GameHandler) GameData(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	account, err := h.rewards.Account(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.rewards.Snapshot(account))
}

func (h *GameHandler) Spin(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.SpinRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.AdViewed {
		fail(c, http.StatusBadRequest, "Please view the ad first!")
		return
	}

	result, err := h.rewards.Spin(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"visual_reward":   result.VisualReward.InexactFloat64(),
		"actual_reward":   result.ActualReward.InexactFloat64(),
		"winning_zone":    result.WinningZone,
		"spins_remaining": result.SpinsRemaining,
		"daily_earnings":  result.DailyEarnings.InexactFloat64(),
		"show_scratch":    result.BonusAvailable,
	})
}

func (h *GameHandler) Scratch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.rewards.ClaimBonus(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"reward":         result.BonusAmount.InexactFloat64(),
		"total_earnings": result.TotalEarnings.InexactFloat64(),
	})
}

func (h *GameHandler) TrackAdClick(c *gin.Context) {
	var req models.AdClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.WithError(err).Debug("Ad click without a readable body")
	}

	log.WithFields(log.Fields{
		"position":  models.OrUnknown(req.Position),
		"timestamp": req.Timestamp,
	}).Info("Ad clicked")

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GameHandler) DebugTokens(c *gin.Context) {
	c.JSON(http.StatusOK, h.relay.Status())
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
