package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"cmms_backend/api"
	"cmms_backend/config"
	"cmms_backend/database"
	"cmms_backend/logger"
	"cmms_backend/middleware"
	"cmms_backend/models"
	"cmms_backend/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if err := logger.Setup(cfg.Logging); err != nil {
		log.Fatalf("Ошибка настройки логирования: %v", err)
	}
	cfg.LogConfig()

	if err := database.CreateDatabaseIfNotExists(cfg); err != nil {
		log.WithError(err).Fatal("Ошибка при создании базы данных")
	}
	db, err := database.ConnectDatabase(cfg)
	if err != nil {
		log.WithError(err).Fatal("Ошибка подключения к базе данных")
	}
	if err := database.CreateIndexes(db); err != nil {
		log.WithError(err).Warn("Не удалось создать индексы")
	}

	ctx := context.Background()
	redisClient, err := database.InitRedis(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis недоступен, кэширование отключено")
	}

	// Сервисы
	var messenger services.Messenger
	if cfg.Telegram.BotToken != "" {
		client, err := services.NewTelegramClient(cfg.Telegram.BotToken)
		if err != nil {
			log.WithError(err).Warn("Telegram недоступен, уведомления только сохраняются")
		} else if client.IsHealthy() {
			messenger = client
		}
	}

	clock := func() time.Time { return time.Now().UTC() }
	notifications := services.NewNotificationService(db, messenger, cfg.Telegram.ChatID)
	pmService := services.NewPMService(db, services.NewCacheService(redisClient), models.AnchorPolicy(cfg.Scheduler.AnchorPolicy))
	workOrders := services.NewWorkOrderService(db, pmService, notifications)
	warehouses := services.NewWarehouseService(db, notifications)
	reports := services.NewReportService(cfg.Scheduler.ReportsDir)

	var scheduler *services.PMSchedulerService
	if cfg.Scheduler.Enabled {
		scheduler = services.NewPMSchedulerService(cfg.Scheduler, warehouses, pmService, workOrders, notifications, reports, clock)
		if err := scheduler.Start(); err != nil {
			log.WithError(err).Fatal("Ошибка запуска планировщика ТО")
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "pong",
			"version": cfg.App.Version,
		})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.NewTenantMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer).SetTenant())
	v1.Use(middleware.ModerateRateLimit(redisClient))
	api.RegisterRoutes(v1, api.Handlers{
		PM:            api.NewPreventiveMaintenanceAPI(pmService, reports, clock),
		WorkOrders:    api.NewWorkOrderAPI(workOrders, warehouses, cfg.Scheduler.LookaheadDays, clock),
		Notifications: api.NewNotificationAPI(notifications),
		Scheduler:     api.NewSchedulerAPI(scheduler),
	}, middleware.StrictRateLimit(redisClient))

	srv := &http.Server{
		Addr:              cfg.App.Host + ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Сервер запущен на %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Ошибка HTTP сервера")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Остановка сервера...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Ошибка остановки HTTP сервера")
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Сервер остановлен")
}

// requestLogger пишет access log через logrus
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("HTTP запрос")
	}
}
