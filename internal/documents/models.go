package documents

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// FileKind separates the requester's evidence uploads from the notarized
// outputs attached by staff.
type FileKind string

const (
	FileKindInput  FileKind = "input"
	FileKindOutput FileKind = "output"
)

// Document is a notarization request. RequiredDocuments lists the document
// types its notarization service demands; the auto-verify sweep checks the
// uploaded filenames against it.
type Document struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	RequesterID       uuid.UUID      `json:"requester_id" db:"requester_id"`
	Name              string         `json:"name" db:"name"`
	ServiceCode       string         `json:"service_code" db:"service_code"`
	RequiredDocuments pq.StringArray `json:"required_documents" db:"required_documents"`
	Amount            int64          `json:"amount" db:"amount"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// DocumentFile is one stored file belonging to a document.
type DocumentFile struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	Filename   string    `json:"filename" db:"filename"`
	S3Key      string    `json:"s3_key" db:"s3_key"`
	S3Bucket   string    `json:"s3_bucket" db:"s3_bucket"`
	Kind       FileKind  `json:"kind" db:"kind"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}
