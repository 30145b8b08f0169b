package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/drive-value/internal/domain/workspace"
	"github.com/yanqian/drive-value/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, registry *workspace.Registry) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.CORS.AllowOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", handler.Metrics)

	api := router.Group("/api/v1")
	api.Use(
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
		workspaceMiddleware(registry, handler.cookies),
	)
	{
		api.GET("/session", handler.Session)
		api.POST("/auth/login", handler.Login)
		api.POST("/auth/register", handler.Register)
		api.POST("/auth/google", handler.Google)
		api.GET("/auth/google/start", handler.GoogleStart)
		api.GET("/auth/google/callback", handler.GoogleCallback)
		api.POST("/auth/logout", handler.Logout)
	}

	protected := api.Group("")
	protected.Use(requireSession())
	{
		protected.POST("/valuations", handler.SubmitValuation)
		protected.GET("/valuations/state", handler.ValuationState)
		protected.DELETE("/valuations/state", handler.ClearValuation)
		protected.GET("/valuations/events", handler.ValuationEvents)
		protected.GET("/valuations/history", handler.ValuationHistory)
		protected.DELETE("/valuations/history", handler.ClearValuationHistory)

		protected.GET("/account", handler.Account)
		protected.PUT("/account/profile", handler.UpdateProfile)
		protected.PUT("/account/preferences", handler.UpdatePreferences)
		protected.POST("/account/favorites", handler.AddFavorite)
		protected.DELETE("/account/favorites/:vin", handler.RemoveFavorite)
		protected.POST("/account/searches", handler.RecordSearch)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
