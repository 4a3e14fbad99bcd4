package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/stpp-dev/rekod-sekolah-api/api/swagger"
	"github.com/stpp-dev/rekod-sekolah-api/internal/handler"
	"github.com/stpp-dev/rekod-sekolah-api/internal/middleware"
	"github.com/stpp-dev/rekod-sekolah-api/internal/models"
	"github.com/stpp-dev/rekod-sekolah-api/internal/repository"
	"github.com/stpp-dev/rekod-sekolah-api/internal/service"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/cache"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/config"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/database"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/jobs"
	"github.com/stpp-dev/rekod-sekolah-api/pkg/logger"
	corsmiddleware "github.com/stpp-dev/rekod-sekolah-api/pkg/middleware/cors"
	reqidmiddleware "github.com/stpp-dev/rekod-sekolah-api/pkg/middleware/requestid"
)

// @title Rekod Sekolah API
// @version 1.0.0
// @description School attendance, canteen and invoicing records
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	location, err := time.LoadLocation(cfg.School.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid school timezone", "timezone", cfg.School.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	metricsService := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	canteenRepo := repository.NewCanteenRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	mealOrderRepo := repository.NewMealOrderRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Reports.CacheTTL, logr,
		cfg.Reports.CacheEnabled && redisClient != nil)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "rekod-sekolah-api",
	})
	studentService := service.NewStudentService(studentRepo, gradeRepo, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, cacheService, location, logr)
	canteenService := service.NewCanteenService(canteenRepo, attendanceService, location, logr)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	invoiceService := service.NewInvoiceService(invoiceRepo, canteenService, notificationService, location, service.InvoiceConfig{
		MealPrice:  decimal.NewFromFloat(cfg.School.MealPrice),
		ClientName: cfg.School.InvoiceClient,
	}, logr)
	mealOrderService := service.NewMealOrderService(mealOrderRepo, validate, location, logr)
	reportService := service.NewReportService(attendanceRepo, studentRepo, invoiceRepo, cacheService, location, service.ReportConfig{
		CacheEnabled: cacheService.Enabled(),
		CacheTTL:     cfg.Reports.CacheTTL,
		SchoolName:   cfg.School.Name,
	}, logr)

	queueCtx, stopQueue := context.WithCancel(context.Background())
	notificationService.Start(queueCtx)

	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, metricsService, location)
	canteenHandler := handler.NewCanteenHandler(canteenService, metricsService)
	reportHandler := handler.NewReportHandler(reportService, location)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	mealOrderHandler := handler.NewMealOrderHandler(mealOrderService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	students := authed.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), studentHandler.Create)
		students.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), studentHandler.Update)
		students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), studentHandler.Delete)
	}
	authed.GET("/grades", studentHandler.Grades)

	attendance := authed.Group("/attendance")
	attendance.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		attendance.GET("/day", attendanceHandler.Day)
		attendance.POST("/scan", attendanceHandler.Scan)
		attendance.PUT("/day/:studentId", attendanceHandler.SetPresent)
		attendance.POST("/day/mark-all", attendanceHandler.MarkAll)
	}

	canteen := authed.Group("/canteen")
	canteen.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleCanteen))
	{
		canteen.GET("/today", canteenHandler.Today)
		canteen.PUT("/today/:studentId", canteenHandler.SetLunch)
		canteen.POST("/today/mark-all", canteenHandler.MarkAll)
	}

	mealOrders := authed.Group("/meal-orders")
	mealOrders.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleCanteen))
	{
		mealOrders.POST("", mealOrderHandler.Create)
		mealOrders.GET("", mealOrderHandler.List)
	}

	invoices := authed.Group("/invoices")
	{
		invoices.GET("/draft", middleware.RequireRoles(models.RoleAdmin, models.RoleCanteen), invoiceHandler.Draft)
		invoices.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleCanteen), invoiceHandler.Send)
		invoices.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleFinance, models.RoleCanteen), invoiceHandler.List)
		invoices.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleFinance, models.RoleCanteen), invoiceHandler.Get)
		invoices.PUT("/:id/status", middleware.RequireRoles(models.RoleAdmin, models.RoleFinance), invoiceHandler.UpdateStatus)
		invoices.GET("/:id/pdf", middleware.RequireRoles(models.RoleAdmin, models.RoleFinance, models.RoleCanteen), invoiceHandler.PDF)
	}

	reports := authed.Group("/reports")
	reports.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleFinance))
	{
		reports.GET("/monthly-register", reportHandler.MonthlyRegister)
		reports.GET("/overview", reportHandler.Overview)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
	}

	authed.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "timezone", cfg.School.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	stopQueue()
	notificationService.Stop()
}
