package minting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"notary-chain/notary-portal/notary-portal-backend/pkg/storage"
)

// Service is the minting collaborator consumed by the document workflow:
// pin content, mint an NFT referencing it, and read back the on-chain
// transaction data. Every attempt is recorded as a MintJob row.
type Service interface {
	UploadContent(ctx context.Context, name string, body io.Reader) (string, error)
	Mint(ctx context.Context, subjectID uuid.UUID, contentURI string) (string, error)
	GetTransactionData(ctx context.Context, transactionHash string) (*TransactionData, error)
}

type service struct {
	db      *gorm.DB
	ipfs    storage.IPFSClient
	gateway GatewayClient
	logger  *zap.Logger
}

func NewService(db *gorm.DB, ipfs storage.IPFSClient, gateway GatewayClient, logger *zap.Logger) (Service, error) {
	if err := db.AutoMigrate(&MintJob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate mint tables: %w", err)
	}
	return &service{db: db, ipfs: ipfs, gateway: gateway, logger: logger}, nil
}

func (s *service) UploadContent(ctx context.Context, name string, body io.Reader) (string, error) {
	cid, err := s.ipfs.PinFile(ctx, name, body)
	if err != nil {
		return "", fmt.Errorf("failed to pin content: %w", err)
	}
	return "ipfs://" + cid, nil
}

func (s *service) Mint(ctx context.Context, subjectID uuid.UUID, contentURI string) (string, error) {
	job := &MintJob{
		ID:         uuid.New(),
		SubjectID:  subjectID,
		ContentURI: contentURI,
		Status:     JobStatusSubmitted,
	}
	meta, _ := json.Marshal(map[string]string{"submitted_at": time.Now().Format(time.RFC3339)})
	job.Metadata = datatypes.JSON(meta)

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return "", fmt.Errorf("failed to create mint job: %w", err)
	}

	txHash, err := s.gateway.Mint(ctx, contentURI)
	if err != nil {
		msg := err.Error()
		job.Status = JobStatusFailed
		job.ErrorMessage = &msg
		s.db.WithContext(ctx).Save(job)
		return "", err
	}

	job.Status = JobStatusConfirmed
	job.TransactionHash = &txHash
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		s.logger.Error("failed to record mint confirmation",
			zap.String("job_id", job.ID.String()),
			zap.String("tx_hash", txHash),
			zap.Error(err))
	}
	return txHash, nil
}

func (s *service) GetTransactionData(ctx context.Context, transactionHash string) (*TransactionData, error) {
	return s.gateway.GetTransactionData(ctx, transactionHash)
}
