package handlers

import (
	"spin-rewards-backend/internal/middleware"
	"spin-rewards-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Auth      *AuthHandler
	Game      *GameHandler
	WebSocket *WebSocketHandler

	JWT      *services.JWTService
	Sessions services.SessionStore
	Limiter  services.RateLimiter
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS())

	router.GET("/healthz", Healthz)
	router.POST("/login", cfg.Auth.Login)
	router.POST("/track-ad-click", cfg.Game.TrackAdClick)
	router.GET("/debug-tokens", cfg.Game.DebugTokens)

	protected := router.Group("/")
	protected.Use(
		middleware.AuthMiddleware(cfg.JWT, cfg.Sessions),
		middleware.RateLimitMiddleware(cfg.Limiter),
	)
	{
		protected.POST("/logout", cfg.Auth.Logout)
		protected.GET("/game-data", cfg.Game.GameData)
		protected.POST("/spin", cfg.Game.Spin)
		protected.POST("/scratch", cfg.Game.Scratch)

		protected.GET("/api/ws", cfg.WebSocket.HandleWebSocket)
	}

	return router
}
