package wallet

import (
	"time"

	"github.com/google/uuid"
)

// NFTRecord is one minted notarization NFT held in a user's wallet.
// TransactionHash is unique per owner, guarding retried mints against
// double-recording.
type NFTRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID `gorm:"type:uuid;index:idx_owner_tx,unique" json:"owner_id"`
	TransactionHash string    `gorm:"index:idx_owner_tx,unique;not null" json:"transaction_hash"`
	Filename        string    `json:"filename"`
	Amount          int64     `json:"amount"`
	TokenID         string    `json:"token_id"`
	TokenURI        string    `json:"token_uri"`
	ContractAddress string    `json:"contract_address"`
	CreatedAt       time.Time `json:"created_at"`
}

func (NFTRecord) TableName() string { return "wallet_nfts" }
