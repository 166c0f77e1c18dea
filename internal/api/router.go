package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/phonegate/internal/app"
	iauth "github.com/charlesng35/phonegate/internal/auth"
	"github.com/charlesng35/phonegate/internal/handlers"
	"github.com/charlesng35/phonegate/internal/middleware"
	"github.com/charlesng35/phonegate/internal/services"
)

// Services bundles the wired domain services the router depends on.
type Services struct {
	Auth     *services.AuthService
	Accounts *services.AccountService
	Invites  *services.InviteService
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs.Auth == nil || svcs.Accounts == nil || svcs.Invites == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}

	authHandler := handlers.NewAuthHandler(svcs.Auth)
	profileHandler := handlers.NewProfileHandler(svcs.Accounts, svcs.Invites)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/otp", authHandler.RequestOrVerify)
	}

	// Protected routes
	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/account", profileHandler.Get)
	api.PUT("/account", profileHandler.Update)

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
