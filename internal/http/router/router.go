package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/account-backend/internal/config"
	"github.com/ignatzorin/account-backend/internal/http/handlers"
	"github.com/ignatzorin/account-backend/internal/http/middleware"
	"github.com/ignatzorin/account-backend/internal/service"
)

// SetupRouter собирает все маршруты сервиса под /api/v1.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	healthHandler *handlers.HealthHandler,
	sessions *service.SessionManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api/v1")

	// Публичные маршруты защищены лимитом по IP от перебора.
	public := api.Group("")
	public.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		public.POST("/signup", authHandler.Signup)
		public.POST("/login", authHandler.Login)
		public.POST("/send-otp-email", authHandler.SendOTPEmail)
		public.POST("/verify-email", authHandler.VerifyEmail)
		public.POST("/forget-password", authHandler.ForgetPassword)
		public.POST("/forget-password-complete", authHandler.ForgetPasswordComplete)
	}

	// Маршруты, требующие действующей cookie сессии.
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(sessions))
	{
		protected.POST("/logout", authHandler.Logout)
		protected.GET("/profile", profileHandler.Profile)
		protected.PUT("/change-name", profileHandler.ChangeName)
		protected.PUT("/change-email", profileHandler.ChangeEmail)
		protected.PUT("/change-password", profileHandler.ChangePassword)
		protected.PUT("/change-profile-picture", profileHandler.ChangeProfilePicture)
		protected.PUT("/gender-and-dob", profileHandler.GenderAndDOB)
	}

	return r
}
