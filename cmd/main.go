package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"carrier_wizard_v1/internal/controller"
	"carrier_wizard_v1/internal/gateway"
	"carrier_wizard_v1/internal/middleware"
	"carrier_wizard_v1/internal/model"
	"carrier_wizard_v1/internal/repository"
	"carrier_wizard_v1/internal/router"
	"carrier_wizard_v1/internal/service"
	"carrier_wizard_v1/internal/task"
	"carrier_wizard_v1/pkg/database"
	"carrier_wizard_v1/pkg/logger"
)

func main() {
	// 0. 环境变量与日志
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic("加载 .env 失败: " + err.Error())
	}
	if err := logger.Init(logger.Config{
		Level: getEnv("LOG_LEVEL", "info"),
		JSON:  getEnvBool("LOG_JSON", false),
	}); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer logger.Sync()

	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	if err := deps.Tasks.Start(); err != nil {
		logger.L().Fatalf("定时任务启动失败: %v", err)
	}
	defer deps.Tasks.Stop()

	// 4. 初始化路由
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	router.InitRoutes(r, deps.WizardCtl, deps.ShipmentCtl, router.Options{LabelDir: deps.LabelDir})

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Sessions    *service.SessionService
	Wizard      *service.WizardService
	Shipments   *service.ShipmentService
	Labels      *service.LabelService
	Tasks       *task.TaskManager
	WizardCtl   *controller.WizardController
	ShipmentCtl *controller.ShipmentController
	LabelDir    string // 本地存储目录，非本地存储为空
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库并注册审计回调
func initDatabase() *gorm.DB {
	cfg := database.DefaultConfig(getEnv("DATABASE_DSN", ""))
	cfg.LogLevel = getEnv("DATABASE_LOG_LEVEL", cfg.LogLevel)

	db, err := database.InitDB(cfg, &model.ShipmentRecord{}, &model.ShipmentPackage{})
	if err != nil {
		logger.L().Fatalf("数据库初始化失败: %v", err)
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		logger.L().Fatalf("注册审计回调失败: %v", err)
	}
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:      getEnv("JWT_SECRET", middleware.DefaultJWTConfig().SecretKey),
		AccessTokenTTL: getEnvDuration("JWT_TTL", 2*time.Hour),
		Issuer:         getEnv("JWT_ISSUER", "carrier-wizard"),
	})

	// -------- Repo 层 --------
	shipmentRepo := repository.NewShipmentRepository(db)

	// -------- 外部网关 --------
	gw := gateway.NewClient(gateway.Config{
		BaseURL: getEnv("GATEWAY_BASE_URL", "http://localhost:8081"),
		APIKey:  getEnv("GATEWAY_API_KEY", ""),
		Timeout: getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),
	})

	// -------- 业务服务 --------
	deps := &Dependencies{DB: db}
	deps.Sessions = service.NewSessionService(getEnvDuration("SESSION_TTL", 30*time.Minute))
	deps.Shipments = service.NewShipmentService(shipmentRepo)

	if storage := initStorage(deps); storage != nil {
		deps.Labels = service.NewLabelService(storage, shipmentRepo)
	}
	deps.Wizard = service.NewWizardService(deps.Sessions, gw, deps.Shipments, deps.Labels)

	// -------- 定时任务 --------
	taskDeps := &task.TaskManagerDeps{
		Sessions:     deps.Sessions,
		Limiter:      middleware.GetLimiter(),
		ShipmentRepo: shipmentRepo,
	}
	if deps.Labels != nil {
		taskDeps.Archiver = deps.Labels
	}
	taskCfg := task.DefaultConfig()
	taskCfg.LabelArchiveEnabled = getEnvBool("LABEL_ARCHIVE_ENABLED", true)
	deps.Tasks = task.NewTaskManager(taskDeps, taskCfg)

	// -------- Controller 层 --------
	deps.WizardCtl = controller.NewWizardController(deps.Wizard)
	deps.ShipmentCtl = controller.NewShipmentController(deps.Shipments)

	return deps
}

// initStorage 初始化面单存储，未配置时不归档面单
func initStorage(deps *Dependencies) service.StorageProvider {
	cfg := service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", ""),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		Endpoint:  getEnv("AWS_ENDPOINT", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "labels"),
	}
	if cfg.Provider == "" {
		logger.Warnf("STORAGE_PROVIDER 未配置，面单不归档")
		return nil
	}

	storage, err := service.NewStorageProvider(cfg)
	if err != nil {
		logger.Warnf("存储服务初始化失败，面单不归档: %v", err)
		return nil
	}
	if local, ok := storage.(*service.LocalStorage); ok {
		deps.LabelDir = local.BasePath()
	}
	return storage
}

// ==================== 服务启动 ====================

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 异步启动服务
	go func() {
		logger.Infof("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("服务强制关闭: %v", err)
		return
	}

	logger.Infof("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
