package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"notary-chain/notary-portal/notary-portal-backend/internal/config"
	"notary-chain/notary-portal/notary-portal-backend/internal/documents"
	"notary-chain/notary-portal/notary-portal-backend/internal/minting"
	"notary-chain/notary-portal/notary-portal-backend/internal/notifications"
	"notary-chain/notary-portal/notary-portal-backend/internal/payments"
	"notary-chain/notary-portal/notary-portal-backend/internal/scheduler"
	"notary-chain/notary-portal/notary-portal-backend/internal/sessions"
	"notary-chain/notary-portal/notary-portal-backend/internal/users"
	"notary-chain/notary-portal/notary-portal-backend/internal/wallet"
	"notary-chain/notary-portal/notary-portal-backend/internal/workflow"
	"notary-chain/notary-portal/notary-portal-backend/pkg/pdf"
	"notary-chain/notary-portal/notary-portal-backend/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// Database connections. The workflow and domain repositories run on
	// sqlx; wallet and mint job records run on GORM.
	dbURL := cfg.Database.GetDatabaseURL()
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to open gorm connection", zap.Error(err))
	}

	// External collaborators.
	s3Client, err := storage.NewS3Client(ctx, cfg.AWS.Region)
	if err != nil {
		logger.Fatal("failed to create S3 client", zap.Error(err))
	}
	ipfsClient := storage.NewIPFSClient(cfg.IPFS.APIURL, cfg.IPFS.Timeout)

	mailer, err := notifications.NewSESMailer(ctx, cfg.AWS.Region, cfg.AWS.SenderAddress, logger)
	if err != nil {
		logger.Fatal("failed to create mailer", zap.Error(err))
	}

	paymentProvider := payments.NewProvider(cfg.Payments.GatewayURL, cfg.Payments.APIKey, cfg.Payments.Timeout)

	mintGateway := minting.NewGatewayClient(cfg.Minting.GatewayURL, cfg.Minting.APIKey,
		cfg.Minting.ContractAddress, cfg.Minting.Timeout)
	mintService, err := minting.NewService(gormDB, ipfsClient, mintGateway, logger)
	if err != nil {
		logger.Fatal("failed to create mint service", zap.Error(err))
	}

	walletService, err := wallet.NewService(gormDB)
	if err != nil {
		logger.Fatal("failed to create wallet service", zap.Error(err))
	}

	// Workflow core.
	statusStore := workflow.NewStatusStore(db)
	approvalStore := workflow.NewApprovalStore(db)
	directory := users.NewDirectory(db)

	documentService := documents.NewService(
		documents.NewRepository(db),
		statusStore,
		approvalStore,
		documents.NewStorageProvider(s3Client, cfg.AWS.DocumentBucket),
		mailer,
		paymentProvider,
		mintService,
		walletService,
		directory,
		pdf.NewGenerator(),
		documents.Settings{
			StalenessThreshold: cfg.Workflow.StalenessThreshold,
			DependencyTimeout:  cfg.Workflow.DependencyTimeout,
			ExactDocumentMatch: cfg.Workflow.ExactDocumentMatch,
			PaymentReturnURL:   cfg.Payments.ReturnURL,
			PaymentCancelURL:   cfg.Payments.CancelURL,
		},
		logger,
	)

	sessionService := sessions.NewService(
		sessions.NewRepository(db),
		statusStore,
		approvalStore,
		s3Client,
		mailer,
		directory,
		sessions.Settings{
			StalenessThreshold: cfg.Workflow.StalenessThreshold,
			Bucket:             cfg.AWS.DocumentBucket,
		},
		logger,
	)

	sched := scheduler.NewManager(documentService, sessionService, scheduler.Config{
		SweepInterval: cfg.Workflow.SweepInterval,
	}, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// HTTP surface.
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api := router.Group("/api/v1")
	{
		documents.NewHandler(documentService).RegisterRoutes(api)
		sessions.NewHandler(sessionService).RegisterRoutes(api)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.Int("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
