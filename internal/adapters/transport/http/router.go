package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Miraines/jwtauth/internal/adapters/transport/http/middleware"
	appsvc "github.com/Miraines/jwtauth/internal/app/auth/service"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
)

type RouterConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	RateLimitRPS     int
	RateLimitBurst   int
	// Registry receives the HTTP collectors and is served on /metrics.
	// Nil disables both.
	Registry *prometheus.Registry
}

func NewRouter(svc appsvc.Service, cfg RouterConfig, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	if cfg.Registry != nil {
		router.Use(middleware.NewHTTPMetrics(cfg.Registry).Handler())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}
	if cfg.RateLimitRPS > 0 {
		router.Use(middleware.NewHTTPRateLimitPerIP(cfg.RateLimitRPS, cfg.RateLimitBurst, 10_000, time.Hour))
	}
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{
				"Origin", "Content-Type", "Accept",
				"Authorization",
				"X-Requested-With",
			},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := NewHandler(svc)

	router.GET("/health", Health)

	api := router.Group("/api/auth")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/refresh-token", h.RefreshToken)

	authed := api.Group("", middleware.RequireAuth(svc))
	authed.GET("", h.Authenticated)
	authed.GET("/me", h.Me)
	authed.POST("/logout", h.Logout)
	authed.GET("/admin-only", middleware.RequireRole(model.RoleAdmin), h.AdminOnly)

	return router
}
