package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "ideaportal/api/swagger" // swagger docs
	"ideaportal/internal/config"
	"ideaportal/internal/database"
	"ideaportal/internal/handler"
	"ideaportal/internal/logger"
	"ideaportal/internal/mailer"
	"ideaportal/internal/middleware"
	"ideaportal/internal/obs"
	"ideaportal/internal/repository"
	"ideaportal/internal/service"
	"ideaportal/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Idea Portal API
// @version         1.0
// @description     Idea submission and multi-stage approval workflow.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "ideaportal-api",
	})

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("database connection failed")
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("database connected and migrated")

	obs.Init()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx.Done())

	// Outbound email
	var sender mailer.Sender = mailer.NewLogSender(log)
	if cfg.SMTP.Host != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig(cfg.SMTP))
	}
	mailQueue := mailer.NewQueue(sender, mailer.Config(cfg.Mail), log)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	ideaRepo := repository.NewIdeaRepository(db)
	historyRepo := repository.NewApprovalHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	settingService := service.NewSettingService(settingRepo, auditRepo, log)
	classifier := service.NewWorkflowClassifier(settingService)
	resolver := service.NewApproverResolver(roleRepo, userRepo, ideaRepo, log)
	dispatcher := service.NewNotificationDispatcher(resolver, employeeRepo, notificationRepo, mailQueue, wsHub, cfg.BaseURL, log)
	workflowService := service.NewWorkflowService(txManager, ideaRepo, historyRepo, userRepo, resolver, dispatcher,
		service.WorkflowOptions{StrictAuthorization: cfg.Workflow.StrictAuthorization}, log)
	ideaService := service.NewIdeaService(txManager, ideaRepo, historyRepo, employeeRepo, notificationRepo, classifier, dispatcher, log)
	notificationService := service.NewNotificationService(notificationRepo)
	roleService := service.NewRoleService(txManager, roleRepo, log)

	jwtSecret := middleware.JWTSecret(cfg.JWT.Secret, cfg.IsRelease())
	authService := service.NewAuthService(userRepo, jwtSecret, cfg.JWT.TokenTTL, log)

	if err := roleService.SeedDefaultRoles(ctx); err != nil {
		log.Fatal().Err(err).Msg("role seeding failed")
	}

	mailQueue.OnSent(dispatcher.EmailSent)
	mailQueue.Start(ctx)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, cfg.JWT.TokenTTL, cfg.IsRelease())
	ideaHandler := handler.NewIdeaHandler(ideaService)
	approvalHandler := handler.NewApprovalHandler(workflowService)
	workflowHandler := handler.NewWorkflowHandler(classifier, resolver, ideaService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	roleHandler := handler.NewRoleHandler(roleService)
	settingHandler := handler.NewSettingHandler(settingService, service.NewAuditService(auditRepo))

	// Set up Gin Router
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), obs.Instrument())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(obs.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "websocket_clients": wsHub.ClientCount()})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, jwtSecret)
	})

	requireAuth := middleware.RequireAuth(jwtSecret)
	loginLimiter := middleware.RateLimit(cfg.LoginRatePerSecond, cfg.LoginRateBurst, 5*time.Minute)

	api := router.Group("")
	authHandler.RegisterRoutes(api, loginLimiter)
	ideaHandler.RegisterRoutes(api, requireAuth)
	approvalHandler.RegisterRoutes(api, requireAuth)
	workflowHandler.RegisterRoutes(api, requireAuth)
	notificationHandler.RegisterRoutes(api, requireAuth)
	roleHandler.RegisterRoutes(api, requireAuth)
	settingHandler.RegisterRoutes(api, requireAuth)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	mailQueue.Stop()
}
