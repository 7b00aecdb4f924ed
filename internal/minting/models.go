package minting

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusConfirmed JobStatus = "confirmed"
	JobStatusFailed    JobStatus = "failed"
)

// MintJob records one mint attempt against the chain gateway.
type MintJob struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID       uuid.UUID      `gorm:"type:uuid;index" json:"subject_id"`
	ContentURI      string         `gorm:"not null" json:"content_uri"`
	TransactionHash *string        `gorm:"uniqueIndex" json:"transaction_hash,omitempty"`
	Status          JobStatus      `gorm:"type:varchar(32);not null" json:"status"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
	Metadata        datatypes.JSON `json:"metadata"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (MintJob) TableName() string { return "mint_jobs" }

// TransactionData is the on-chain record for a confirmed mint.
type TransactionData struct {
	TransactionHash string `json:"transaction_hash"`
	TokenID         string `json:"token_id"`
	TokenURI        string `json:"token_uri"`
	ContractAddress string `json:"contract_address"`
}
