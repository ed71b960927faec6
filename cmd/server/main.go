package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SlpAus/scrum-poker-backend/api"
	"github.com/SlpAus/scrum-poker-backend/internal/auth"
	"github.com/SlpAus/scrum-poker-backend/internal/participant"
	"github.com/SlpAus/scrum-poker-backend/internal/platform/config"
	"github.com/SlpAus/scrum-poker-backend/internal/platform/database"
	"github.com/SlpAus/scrum-poker-backend/internal/platform/health"
	"github.com/SlpAus/scrum-poker-backend/internal/platform/shutdown"
	"github.com/SlpAus/scrum-poker-backend/internal/store"
	"github.com/SlpAus/scrum-poker-backend/pkg/lifecycle"
	"github.com/SlpAus/scrum-poker-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("配置加载失败，无法启动: %v", err))
	}

	token.GenerateSecretKey()
	database.InitDB(cfg.Database.Sqlite)
	database.InitRedis(cfg.Database.Redis)

	if err := auth.PrimeDB(); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 共享存储是所有会话协调的唯一通道
	sharedStore := store.NewRedisStore(database.RDB)
	participant.Setup(sharedStore)

	// 用本地缓存的身份恢复连接，避免启动后出现"未登录"的闪烁
	participant.RestoreCachedIdentity(database.Ctx)

	// 阻塞式执行一次启动后健康检查，再异步启动持续检查器
	health.PerformCheck()
	manager := lifecycle.NewManager()
	healthHandle, err := manager.NewServiceHandle("redis-health-checker")
	if err != nil {
		panic(fmt.Sprintf("注册健康检查器失败: %v", err))
	}
	go health.StartRedisHealthCheck(healthHandle)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic("Failed to start server: " + err.Error())
		}
	}()

	coordinator := shutdown.NewCoordinator(manager)
	coordinator.ListenForSignalsAndShutdown(server)
}
