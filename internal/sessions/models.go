package sessions

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus is the join state of one invited participant. It is
// independent of the session's own workflow status.
type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberAccepted MemberStatus = "accepted"
	MemberRejected MemberStatus = "rejected"
)

// Session is a multi-party notarization request.
type Session struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatorID uuid.UUID `json:"creator_id" db:"creator_id"`
	Name      string    `json:"name" db:"name"`
	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SessionMember is one roster entry.
type SessionMember struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	SessionID   uuid.UUID    `json:"session_id" db:"session_id"`
	Email       string       `json:"email" db:"email"`
	UserID      *uuid.UUID   `json:"user_id,omitempty" db:"user_id"`
	Status      MemberStatus `json:"status" db:"status"`
	InvitedAt   time.Time    `json:"invited_at" db:"invited_at"`
	RespondedAt *time.Time   `json:"responded_at,omitempty" db:"responded_at"`
}

// SessionFile is one file uploaded into the session.
type SessionFile struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SessionID  uuid.UUID `json:"session_id" db:"session_id"`
	Filename   string    `json:"filename" db:"filename"`
	S3Key      string    `json:"s3_key" db:"s3_key"`
	S3Bucket   string    `json:"s3_bucket" db:"s3_bucket"`
	UploadedBy uuid.UUID `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}
