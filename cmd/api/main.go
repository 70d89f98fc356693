package main

import (
	"fmt"
	"os"

	"custodia/internal/config"
	"custodia/internal/database"
	"custodia/internal/excel"
	"custodia/internal/handler"
	"custodia/internal/logger"
	"custodia/internal/middleware"
	"custodia/internal/pdf"
	"custodia/internal/repository"
	"custodia/internal/service"
	"custodia/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	db, err := database.NewConnection(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Repository -> Service -> Handler
	txManager := repository.NewTransactionManager(db)
	reportRepo := repository.NewReportRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	limitRepo := repository.NewLimitRepository(db)
	closureRepo := repository.NewClosureRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	stationRepo := repository.NewStationRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	balanceService := service.NewBalanceService(reportRepo, deliveryRepo, expenseRepo, settlementRepo)
	reportService := service.NewReportService(reportRepo, stationRepo, closureRepo, auditRepo, txManager, wsHub, log)
	deliveryService := service.NewDeliveryService(deliveryRepo, stationRepo, userRepo, settlementRepo, balanceService, auditRepo, txManager, wsHub, log)
	expenseService := service.NewExpenseService(expenseRepo, limitRepo, stationRepo, settlementRepo, balanceService, auditRepo, txManager, log)
	closureService := service.NewClosureService(closureRepo, reportRepo, settlementRepo, auditRepo, txManager, log)
	settlementService := service.NewSettlementService(settlementRepo, closureRepo, stationRepo, deliveryRepo, expenseRepo, reportRepo, balanceService, auditRepo, txManager, log)
	auditService := service.NewAuditService(auditRepo)

	reportHandler := handler.NewReportHandler(reportService)
	balanceHandler := handler.NewBalanceHandler(balanceService)
	deliveryHandler := handler.NewDeliveryHandler(deliveryService, pdf.NewGenerator())
	expenseHandler := handler.NewExpenseHandler(expenseService)
	closureHandler := handler.NewClosureHandler(closureService)
	settlementHandler := handler.NewSettlementHandler(settlementService, excel.NewGenerator())
	auditHandler := handler.NewAuditHandler(auditService)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	secret := []byte(cfg.Auth.JWTSecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	api := router.Group("", middleware.Authenticate(secret))
	reportHandler.RegisterRoutes(api)
	balanceHandler.RegisterRoutes(api)
	deliveryHandler.RegisterRoutes(api)
	expenseHandler.RegisterRoutes(api)
	closureHandler.RegisterRoutes(api)
	settlementHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("server listening")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
