package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	"notary-chain/notary-portal/notary-portal-backend/internal/sessions"
	"notary-chain/notary-portal/notary-portal-backend/internal/users"
	"notary-chain/notary-portal/notary-portal-backend/internal/wallet"
	"notary-chain/notary-portal/notary-portal-backend/internal/workflow"
	"notary-chain/notary-portal/notary-portal-backend/pkg/pdf"
	"notary-chain/notary-portal/notary-portal-backend/pkg/storage"
)

// VerifyWorker runs the stale-pending sweeps on a fixed cadence. It is the
// standalone counterpart of the in-process scheduler, for deployments that
// keep background work out of the API binary.
type VerifyWorker struct {
	documents documents.Service
	sessions  sessions.Service
	logger    *zap.Logger
	config    VerifyWorkerConfig
	done      chan struct{}
}

// VerifyWorkerConfig configuration for the verify worker
type VerifyWorkerConfig struct {
	SweepInterval time.Duration
	SweepTimeout  time.Duration
}

// DefaultVerifyWorkerConfig returns default configuration
func DefaultVerifyWorkerConfig() VerifyWorkerConfig {
	return VerifyWorkerConfig{
		SweepInterval: time.Minute,
		SweepTimeout:  5 * time.Minute,
	}
}

// NewVerifyWorker creates a new verify worker
func NewVerifyWorker(documentService documents.Service, sessionService sessions.Service, logger *zap.Logger, config VerifyWorkerConfig) *VerifyWorker {
	return &VerifyWorker{
		documents: documentService,
		sessions:  sessionService,
		logger:    logger,
		config:    config,
		done:      make(chan struct{}),
	}
}

// Start starts the verify worker
func (w *VerifyWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting verify worker",
		zap.Duration("sweep_interval", w.config.SweepInterval))

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	// Sweep immediately so stale subjects are not left waiting a full
	// interval after a restart.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Verify worker shutting down")
			return nil
		case <-w.done:
			w.logger.Info("Verify worker stopped")
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop stops the verify worker
func (w *VerifyWorker) Stop() {
	close(w.done)
}

func (w *VerifyWorker) sweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, w.config.SweepTimeout)
	defer cancel()

	docResults, err := w.documents.AutoVerify(ctx)
	if err != nil {
		w.logger.Error("document auto-verify sweep failed", zap.Error(err))
	} else {
		for _, r := range docResults {
			if r.Err != nil {
				w.logger.Warn("document sweep item failed",
					zap.String("subject_id", r.SubjectID.String()), zap.Error(r.Err))
			}
		}
	}

	sessionResults, err := w.sessions.SweepStalePending(ctx)
	if err != nil {
		w.logger.Error("session staleness sweep failed", zap.Error(err))
		return
	}
	for _, r := range sessionResults {
		if r.Err != nil {
			w.logger.Warn("session sweep item failed",
				zap.String("subject_id", r.SubjectID.String()), zap.Error(r.Err))
		}
	}
}

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	dbURL := cfg.Database.GetDatabaseURL()
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database")

	gormDB, err := gorm.Open(gormpostgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	s3Client, err := storage.NewS3Client(ctx, cfg.AWS.Region)
	if err != nil {
		logger.Fatal("Failed to create S3 client", zap.Error(err))
	}
	ipfsClient := storage.NewIPFSClient(cfg.IPFS.APIURL, cfg.IPFS.Timeout)

	mailer, err := notifications.NewSESMailer(ctx, cfg.AWS.Region, cfg.AWS.SenderAddress, logger)
	if err != nil {
		logger.Fatal("Failed to create mailer", zap.Error(err))
	}

	paymentProvider := payments.NewProvider(cfg.Payments.GatewayURL, cfg.Payments.APIKey, cfg.Payments.Timeout)

	mintGateway := minting.NewGatewayClient(cfg.Minting.GatewayURL, cfg.Minting.APIKey,
		cfg.Minting.ContractAddress, cfg.Minting.Timeout)
	mintService, err := minting.NewService(gormDB, ipfsClient, mintGateway, logger)
	if err != nil {
		logger.Fatal("Failed to create mint service", zap.Error(err))
	}

	walletService, err := wallet.NewService(gormDB)
	if err != nil {
		logger.Fatal("Failed to create wallet service", zap.Error(err))
	}

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

	workerConfig := DefaultVerifyWorkerConfig()
	if cfg.Workflow.SweepInterval > 0 {
		workerConfig.SweepInterval = cfg.Workflow.SweepInterval
	}
	worker := NewVerifyWorker(documentService, sessionService, logger, workerConfig)

	runCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	logger.Info("Verify worker starting")
	if err := worker.Start(runCtx); err != nil {
		logger.Error("Worker error", zap.Error(err))
	}

	logger.Info("Verify worker stopped")
}
