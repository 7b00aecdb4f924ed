package workflow

import (
	"time"

	"github.com/google/uuid"
)

// StatusRecord is the single current-status row for a subject. It is mutated
// in place on every transition; the audit trail lives in HistoryEntry rows.
// Version is an optimistic-concurrency counter bumped on every write.
type StatusRecord struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	SubjectID   uuid.UUID   `json:"subject_id" db:"subject_id"`
	SubjectKind SubjectKind `json:"subject_kind" db:"subject_kind"`
	Status      Status      `json:"status" db:"status"`
	Feedback    *string     `json:"feedback,omitempty" db:"feedback"`
	Version     int         `json:"version" db:"version"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// HistoryEntry is one append-only audit row per transition. ActorID is nil
// for system-driven transitions (the auto-verify sweep).
type HistoryEntry struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	SubjectID    uuid.UUID  `json:"subject_id" db:"subject_id"`
	ActorID      *uuid.UUID `json:"actor_id,omitempty" db:"actor_id"`
	BeforeStatus Status     `json:"before_status" db:"before_status"`
	AfterStatus  Status     `json:"after_status" db:"after_status"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// ApprovalRequest is the dual-signature record gating
// digitalSignature -> completed. Created lazily the first time a subject
// reaches digitalSignature. The counterparty may only approve after the
// subject's own user has approved; once both flags are set the record is
// frozen.
type ApprovalRequest struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	SubjectID         uuid.UUID  `json:"subject_id" db:"subject_id"`
	SignatureImage    *string    `json:"signature_image,omitempty" db:"signature_image"`
	Amount            *int64     `json:"amount,omitempty" db:"amount"`
	UserApproved      bool       `json:"user_approved" db:"user_approved"`
	UserApprovedAt    *time.Time `json:"user_approved_at,omitempty" db:"user_approved_at"`
	CounterApproved   bool       `json:"counter_approved" db:"counter_approved"`
	CounterApprovedAt *time.Time `json:"counter_approved_at,omitempty" db:"counter_approved_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Sealed reports whether both parties have approved and the request may no
// longer be mutated.
func (a *ApprovalRequest) Sealed() bool {
	return a.UserApproved && a.CounterApproved
}
