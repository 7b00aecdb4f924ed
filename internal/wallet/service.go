package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateTransaction is returned when a transaction hash is already
// recorded for the owner. Callers retrying a partially-failed mint treat it
// as success for the already-minted file.
var ErrDuplicateTransaction = errors.New("transaction already recorded for owner")

// AddNFTRequest carries the on-chain data recorded in a wallet.
type AddNFTRequest struct {
	TransactionHash string
	Filename        string
	Amount          int64
	TokenID         string
	TokenURI        string
	ContractAddress string
}

// Service manages per-user NFT wallets.
type Service interface {
	AddNFT(ctx context.Context, ownerID uuid.UUID, req AddNFTRequest) error
	ListNFTs(ctx context.Context, ownerID uuid.UUID) ([]NFTRecord, error)
	HasTransaction(ctx context.Context, ownerID uuid.UUID, transactionHash string) (bool, error)
}

type service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) (Service, error) {
	if err := db.AutoMigrate(&NFTRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate wallet tables: %w", err)
	}
	return &service{db: db}, nil
}

func (s *service) AddNFT(ctx context.Context, ownerID uuid.UUID, req AddNFTRequest) error {
	exists, err := s.HasTransaction(ctx, ownerID, req.TransactionHash)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateTransaction
	}

	record := &NFTRecord{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		TransactionHash: req.TransactionHash,
		Filename:        req.Filename,
		Amount:          req.Amount,
		TokenID:         req.TokenID,
		TokenURI:        req.TokenURI,
		ContractAddress: req.ContractAddress,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		// Two concurrent retries can both pass the pre-check; the loser
		// lands on the owner+hash unique index instead.
		if isDuplicateKey(err) {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to record NFT: %w", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *service) ListNFTs(ctx context.Context, ownerID uuid.UUID) ([]NFTRecord, error) {
	var records []NFTRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (s *service) HasTransaction(ctx context.Context, ownerID uuid.UUID, transactionHash string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&NFTRecord{}).
		Where("owner_id = ? AND transaction_hash = ?", ownerID, transactionHash).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check wallet transaction: %w", err)
	}
	return count > 0, nil
}
