package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmfesta/tradeacademy/internal/app"
	iauth "github.com/dmfesta/tradeacademy/internal/auth"
	"github.com/dmfesta/tradeacademy/internal/handlers"
	"github.com/dmfesta/tradeacademy/internal/middleware"
	"github.com/dmfesta/tradeacademy/internal/realtime"
	"github.com/dmfesta/tradeacademy/internal/services"
)

// Services bundles the business services the router wires into handlers.
type Services struct {
	Accounts *services.AccountService
	Admins   *services.AdminService
	Tokens   *services.TokenService
	Courses  *services.CourseService
	Videos   *services.VideoService
	Trades   *services.TradeService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(svc Services, jwt *iauth.JWTService, hub *realtime.Hub, cfg *app.Config) (*gin.Engine, error) {
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	switch {
	case svc.Accounts == nil, svc.Admins == nil, svc.Tokens == nil,
		svc.Courses == nil, svc.Videos == nil, svc.Trades == nil:
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(svc.Accounts, jwt, nil)
	adminHandler := handlers.NewAdminHandler(svc.Admins, jwt)
	tokenHandler := handlers.NewTokenHandler(svc.Tokens)
	userHandler := handlers.NewUserHandler(svc.Accounts, nil)
	courseHandler := handlers.NewCourseHandler(svc.Courses)
	videoHandler := handlers.NewVideoHandler(svc.Videos)
	tradeHandler := handlers.NewTradeHandler(svc.Trades)
	streamHandler := handlers.NewMarketStreamHandler(hub, jwt)

	// Public routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}
	r.POST("/api/admin/login", adminHandler.Login)

	// Websocket market feed authenticates via query token inside the handler.
	r.GET("/api/market/stream", streamHandler.Stream)

	requireAuth := middleware.Auth(jwt)
	requireActive := middleware.RequireActiveAccess(svc.Accounts, nil)

	// Member routes: a valid JWT plus an active access window.
	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	member := api.Group("")
	member.Use(requireActive)
	{
		member.GET("/courses", courseHandler.List)
		member.GET("/courses/categories", courseHandler.ListCategories)
		member.GET("/courses/:id", courseHandler.Get)

		member.GET("/videos", videoHandler.List)
		member.GET("/videos/categories", videoHandler.ListCategories)
		member.GET("/videos/progress", videoHandler.GetProgress)
		member.POST("/videos/progress", videoHandler.ReportProgress)
		member.GET("/videos/:id", videoHandler.Get)

		member.GET("/market", tradeHandler.Market)
		member.GET("/trades", tradeHandler.List)
		member.POST("/trades", tradeHandler.Execute)
		member.GET("/portfolio", tradeHandler.Portfolio)
	}

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/mfa/enroll", adminHandler.EnrollMFA)
		admin.POST("/mfa/activate", adminHandler.ActivateMFA)

		admin.POST("/tokens", tokenHandler.Issue)
		admin.GET("/tokens", tokenHandler.List)
		admin.DELETE("/tokens/:id", tokenHandler.Revoke)

		admin.GET("/users", userHandler.List)
		admin.GET("/users/:id", userHandler.Get)
		admin.PUT("/users/:id/status", userHandler.SetStatus)
		admin.POST("/users/:id/renew", userHandler.Renew)

		admin.POST("/courses", courseHandler.Create)
		admin.POST("/courses/categories", courseHandler.CreateCategory)
		admin.PUT("/courses/:id", courseHandler.Update)
		admin.DELETE("/courses/:id", courseHandler.Delete)
		admin.POST("/courses/:id/videos", courseHandler.AddVideo)
		admin.DELETE("/courses/:id/videos/:videoID", courseHandler.RemoveVideo)

		admin.POST("/videos", videoHandler.Create)
		admin.POST("/videos/categories", videoHandler.CreateCategory)
		admin.PUT("/videos/:id", videoHandler.Update)
		admin.DELETE("/videos/:id", videoHandler.Delete)
	}

	return r, nil
}
