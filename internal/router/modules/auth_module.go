package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prestigemetals/account-service/internal/container"
	repo "github.com/prestigemetals/account-service/internal/domain/repository"
	handlers "github.com/prestigemetals/account-service/internal/interface/http"
	"github.com/prestigemetals/account-service/internal/interface/middleware"
	"github.com/prestigemetals/account-service/pkg/helpers"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	Users   repo.UserRepository
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, users repo.UserRepository, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, Users: users, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits
	signupLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	signinLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), nil)
	otpLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/auth/signin", signinLimiter, m.Handler.Signin)
	rg.POST("/auth/verifyOtp", otpLimiter, m.Handler.VerifyOtp)
	rg.POST("/auth/resendOtp", otpLimiter, m.Handler.ResendOtp)
	rg.POST("/auth/forgotPassword", resetLimiter, m.Handler.ForgotPassword)
	rg.POST("/auth/setPassword", resetLimiter, m.Handler.SetPassword)

	// Protected password change with a user-based rate limit
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Users, m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/auth/updatePassword", m.Handler.UpdatePassword)
	}
}
