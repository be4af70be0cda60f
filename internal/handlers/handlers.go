package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yasut0ra/mini-task/internal/config"
	"github.com/yasut0ra/mini-task/internal/mail"
	"github.com/yasut0ra/mini-task/internal/middleware"
	"github.com/yasut0ra/mini-task/internal/repository"
	"github.com/yasut0ra/mini-task/internal/service"
)

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authService  *service.AuthService
	resetService *service.PasswordResetService
	db           *pgxpool.Pool
	cache        *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, mailer mail.Mailer, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	auth := service.NewAuthService(userRepo, sessionRepo, cfg, log)
	reset := service.NewPasswordResetService(userRepo, sessionRepo, mailer, cfg, log)

	return HandlerSet{
		log:          log,
		cfg:          cfg,
		authService:  auth,
		resetService: reset,
		db:           db,
		cache:        cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.PUT("/reset-password/:ticket", h.ResetPassword)

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(h.authService))
		protected.GET("/me", h.Me)
		protected.GET("/sessions", h.ListSessions)

		users := v1.Group("/users")
		users.Use(middleware.Auth(h.authService))
		users.PUT("/profile", h.UpdateProfile)
		users.PUT("/password", h.ChangePassword)
	}
}
