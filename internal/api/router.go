package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/authify/identity-api/internal/api/handler"
	"github.com/authify/identity-api/internal/api/middleware"
	"github.com/authify/identity-api/internal/core/domain"
	"github.com/authify/identity-api/internal/core/service"
	"github.com/authify/identity-api/internal/core/token"
	"github.com/authify/identity-api/internal/infrastructure/config"
	mongostore "github.com/authify/identity-api/internal/infrastructure/db/mongo"
	redisinfra "github.com/authify/identity-api/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Dependencies ---
	store := mongostore.NewIdentityStore(db)
	issuer := token.NewJWTIssuer(token.Config{
		Key:          cfg.JWT.Key,
		Issuer:       cfg.JWT.Issuer,
		Audience:     cfg.JWT.Audience,
		DurationDays: cfg.JWT.DurationDays,
	})
	authService := service.NewAuthService(store, issuer, log)
	limiter := redisinfra.NewLoginLimiter(rdb, cfg.Redis.MaxLoginFailures)
	authHandler := handler.NewAuthHandler(authService, limiter, log)
	authMiddleware := middleware.Auth(middleware.TokenConfig{
		Key:      cfg.JWT.Key,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/roles", authHandler.AddUserRole, authMiddleware, middleware.RBAC(domain.RoleAdmin))

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	return e
}
