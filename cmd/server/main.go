// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profile-media-go/internal/config"
	"profile-media-go/internal/handler"
	"profile-media-go/internal/middleware"
	"profile-media-go/internal/model"
	"profile-media-go/internal/ratelimit"
	"profile-media-go/internal/repository"
	"profile-media-go/internal/service"
	"profile-media-go/internal/storage"
	"profile-media-go/pkg/database"
	"profile-media-go/pkg/kafka"
	"profile-media-go/pkg/log"
	"profile-media-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 与 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	kafka.InitProducer(cfg.Kafka)

	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.ProfilePhoto{},
		&model.ProfileVideo{},
		&model.EvidenceFile{},
	); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 4. 初始化存储目录管理器
	folders, err := storage.NewFolderManager(cfg.Media.StorageRoot)
	if err != nil {
		log.Fatal("初始化存储目录失败", err)
	}

	// 5. 初始化限流存储（memory 或 redis，接口一致）
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	sweepInterval := time.Duration(cfg.RateLimit.SweepIntervalSec) * time.Second
	uploadWindow := time.Duration(cfg.RateLimit.UploadWindowMs) * time.Millisecond
	visitWindow := time.Duration(cfg.RateLimit.VisitWindowMs) * time.Millisecond

	userStore := newStore(sweepCtx, cfg.RateLimit.Store, "upload:user", cfg.RateLimit.UploadUserLimit, uploadWindow, sweepInterval)
	ipStore := newStore(sweepCtx, cfg.RateLimit.Store, "upload:ip", cfg.RateLimit.UploadIPLimit, uploadWindow, sweepInterval)
	visitStore := newStore(sweepCtx, cfg.RateLimit.Store, "visit", cfg.RateLimit.VisitBurstLimit, visitWindow, sweepInterval)

	uploadGate := ratelimit.NewUploadGate(userStore, ipStore)
	visitTracker := ratelimit.NewVisitTracker(visitStore, cfg.RateLimit.VisitBurstLimit)

	// 6. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	profileRepo := repository.NewProfileRepository(database.DB)

	// 7. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	userService := service.NewUserService(userRepo, jwtManager)
	uploadService := service.NewUploadService(uploadGate, folders, profileRepo, cfg.Media)
	profileService := service.NewProfileService(profileRepo, folders, visitTracker)
	reconcileService := service.NewReconcileService(folders, profileRepo, cfg.Media.URLPrefix)

	// 8. 启动后台 Kafka 消费者处理目录改名任务
	go kafka.StartConsumer(cfg.Kafka, service.NewRenameTaskHandler(folders))

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 10. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组 (公开访问)
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", handler.NewAuthHandler(userService).Register)
			auth.POST("/login", handler.NewAuthHandler(userService).Login)
		}

		// Upload 路由组，需要认证
		upload := apiV1.Group("/media")
		upload.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			upload.POST("/upload", handler.NewUploadHandler(uploadService, cfg.Media).Upload)
		}

		// Profile 路由组，需要认证
		profiles := apiV1.Group("/profiles")
		profiles.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			profileHandler := handler.NewProfileHandler(profileService)
			profiles.POST("", profileHandler.Create)
			profiles.GET("/:id", profileHandler.Get)
			profiles.PUT("/:id/display-name", profileHandler.UpdateDisplayName)
			profiles.DELETE("/:id", profileHandler.Delete)
			profiles.POST("/:id/visit", profileHandler.Visit)
		}

		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin := apiV1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtManager, userService), middleware.AdminAuthMiddleware())
		{
			adminHandler := handler.NewAdminHandler(reconcileService)
			admin.GET("/reconcile/:category", adminHandler.Scan)
			admin.POST("/reconcile/cleanup", adminHandler.Cleanup)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}

// newStore 按配置创建限流存储：进程内实现附带周期清理，
// Redis 实现依赖 key 过期自行清理，多实例部署共享状态。
func newStore(sweepCtx context.Context, kind, prefix string, limit int, window, sweepInterval time.Duration) ratelimit.Store {
	if kind == "redis" {
		return ratelimit.NewRedisStore(database.RDB, prefix, limit, window)
	}
	store := ratelimit.NewMemoryStore(limit, window)
	go store.StartSweep(sweepCtx, sweepInterval)
	return store
}
