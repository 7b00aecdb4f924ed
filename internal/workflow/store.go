package workflow

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StatusStore persists the current status, history trail and staleness
// queries for workflow subjects.
type StatusStore interface {
	CreateRecord(ctx context.Context, rec *StatusRecord) error
	GetRecord(ctx context.Context, subjectID uuid.UUID) (*StatusRecord, error)
	// UpdateRecordWithHistory commits the status write and its audit row as
	// one transaction, so a subject can never advance without a matching
	// history entry. The write carries an optimistic version check; it fails
	// with KindConflictStaleRecord when another writer committed first.
	UpdateRecordWithHistory(ctx context.Context, rec *StatusRecord, entry *HistoryEntry) error
	ListStalePending(ctx context.Context, kind SubjectKind, olderThan time.Time) ([]StatusRecord, error)

	ListHistory(ctx context.Context, subjectID uuid.UUID) ([]HistoryEntry, error)
}

// ApprovalStore persists the dual-approval signature records.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, req *ApprovalRequest) error
	GetApproval(ctx context.Context, subjectID uuid.UUID) (*ApprovalRequest, error)
	UpdateApproval(ctx context.Context, req *ApprovalRequest) error
}

type postgresStatusStore struct {
	db *sqlx.DB
}

// NewStatusStore returns the postgres-backed status store.
func NewStatusStore(db *sqlx.DB) StatusStore {
	return &postgresStatusStore{db: db}
}

func (s *postgresStatusStore) CreateRecord(ctx context.Context, rec *StatusRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	query := `
		INSERT INTO status_records (
			id, subject_id, subject_kind, status, feedback, version, created_at, updated_at
		) VALUES (
			:id, :subject_id, :subject_kind, :status, :feedback, :version, :created_at, :updated_at
		)`
	_, err := s.db.NamedExecContext(ctx, query, rec)
	return err
}

func (s *postgresStatusStore) GetRecord(ctx context.Context, subjectID uuid.UUID) (*StatusRecord, error) {
	var rec StatusRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM status_records WHERE subject_id = $1", subjectID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &rec, err
}

func (s *postgresStatusStore) UpdateRecordWithHistory(ctx context.Context, rec *StatusRecord, entry *HistoryEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	expected := rec.Version
	rec.Version = expected + 1
	rec.UpdatedAt = time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE status_records SET
			status = $1,
			feedback = $2,
			version = $3,
			updated_at = $4
		WHERE subject_id = $5 AND version = $6`,
		rec.Status, rec.Feedback, rec.Version, rec.UpdatedAt, rec.SubjectID, expected)
	if err != nil {
		rec.Version = expected
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rec.Version = expected
		return err
	}
	if affected == 0 {
		rec.Version = expected
		return E(KindConflictStaleRecord, "status record for %s was modified concurrently", rec.SubjectID)
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO approval_history (
			id, subject_id, actor_id, before_status, after_status, created_at
		) VALUES (
			:id, :subject_id, :actor_id, :before_status, :after_status, :created_at
		)`, entry); err != nil {
		rec.Version = expected
		return err
	}

	if err := tx.Commit(); err != nil {
		rec.Version = expected
		return err
	}
	return nil
}

func (s *postgresStatusStore) ListStalePending(ctx context.Context, kind SubjectKind, olderThan time.Time) ([]StatusRecord, error) {
	var recs []StatusRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT * FROM status_records
		WHERE subject_kind = $1 AND status = $2 AND updated_at < $3
		ORDER BY updated_at ASC`,
		kind, StatusPending, olderThan)
	return recs, err
}

func (s *postgresStatusStore) ListHistory(ctx context.Context, subjectID uuid.UUID) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM approval_history WHERE subject_id = $1 ORDER BY created_at ASC", subjectID)
	return entries, err
}

type postgresApprovalStore struct {
	db *sqlx.DB
}

// NewApprovalStore returns the postgres-backed approval store.
func NewApprovalStore(db *sqlx.DB) ApprovalStore {
	return &postgresApprovalStore{db: db}
}

func (s *postgresApprovalStore) CreateApproval(ctx context.Context, req *ApprovalRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	query := `
		INSERT INTO approval_requests (
			id, subject_id, signature_image, amount, user_approved, user_approved_at,
			counter_approved, counter_approved_at, created_at, updated_at
		) VALUES (
			:id, :subject_id, :signature_image, :amount, :user_approved, :user_approved_at,
			:counter_approved, :counter_approved_at, :created_at, :updated_at
		)`
	_, err := s.db.NamedExecContext(ctx, query, req)
	return err
}

func (s *postgresApprovalStore) GetApproval(ctx context.Context, subjectID uuid.UUID) (*ApprovalRequest, error) {
	var req ApprovalRequest
	err := s.db.GetContext(ctx, &req, "SELECT * FROM approval_requests WHERE subject_id = $1", subjectID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &req, err
}

func (s *postgresApprovalStore) UpdateApproval(ctx context.Context, req *ApprovalRequest) error {
	req.UpdatedAt = time.Now()
	query := `
		UPDATE approval_requests SET
			signature_image = :signature_image,
			amount = :amount,
			user_approved = :user_approved,
			user_approved_at = :user_approved_at,
			counter_approved = :counter_approved,
			counter_approved_at = :counter_approved_at,
			updated_at = :updated_at
		WHERE subject_id = :subject_id`
	_, err := s.db.NamedExecContext(ctx, query, req)
	return err
}
