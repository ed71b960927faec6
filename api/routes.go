package api

import (
	"github.com/SlpAus/scrum-poker-backend/internal/auth"
	"github.com/SlpAus/scrum-poker-backend/internal/participant"
	"github.com/SlpAus/scrum-poker-backend/internal/platform/health"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/health", health.GetStatus)

		// 登录登出不要求已有身份Cookie
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", participant.Login)
			authRoutes.POST("/logout", participant.Logout)
		}

		// 会话相关的路由都要求已验证的身份
		sessionRoutes := api.Group("/session", auth.RequireIdentityMiddleware())
		{
			sessionRoutes.GET("", participant.GetView)
			sessionRoutes.GET("/stream", participant.StreamView)
			sessionRoutes.POST("/vote", participant.CastVote)
			sessionRoutes.POST("/start", participant.StartSession)
			sessionRoutes.POST("/reveal", participant.Reveal)
			sessionRoutes.POST("/reset", participant.Reset)
		}
	}
}
