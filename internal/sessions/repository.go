package sessions

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error)

	AddMember(ctx context.Context, member *SessionMember) error
	GetMemberByEmail(ctx context.Context, sessionID uuid.UUID, email string) (*SessionMember, error)
	UpdateMember(ctx context.Context, member *SessionMember) error
	ListMembers(ctx context.Context, sessionID uuid.UUID) ([]SessionMember, error)

	AddFile(ctx context.Context, file *SessionFile) error
	ListFiles(ctx context.Context, sessionID uuid.UUID) ([]SessionFile, error)
	CountFiles(ctx context.Context, sessionID uuid.UUID) (int, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (
			id, creator_id, name, notes, created_at, updated_at
		) VALUES (
			:id, :creator_id, :name, :notes, :created_at, :updated_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, session)
	return err
}

func (r *postgresRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	err := r.db.GetContext(ctx, &session, "SELECT * FROM sessions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &session, err
}

func (r *postgresRepository) AddMember(ctx context.Context, member *SessionMember) error {
	query := `
		INSERT INTO session_members (
			id, session_id, email, user_id, status, invited_at, responded_at
		) VALUES (
			:id, :session_id, :email, :user_id, :status, :invited_at, :responded_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, member)
	return err
}

func (r *postgresRepository) GetMemberByEmail(ctx context.Context, sessionID uuid.UUID, email string) (*SessionMember, error) {
	var member SessionMember
	err := r.db.GetContext(ctx, &member,
		"SELECT * FROM session_members WHERE session_id = $1 AND email = $2", sessionID, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &member, err
}

func (r *postgresRepository) UpdateMember(ctx context.Context, member *SessionMember) error {
	query := `
		UPDATE session_members SET
			user_id = :user_id,
			status = :status,
			responded_at = :responded_at
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, member)
	return err
}

func (r *postgresRepository) ListMembers(ctx context.Context, sessionID uuid.UUID) ([]SessionMember, error) {
	var members []SessionMember
	err := r.db.SelectContext(ctx, &members,
		"SELECT * FROM session_members WHERE session_id = $1 ORDER BY invited_at ASC", sessionID)
	return members, err
}

func (r *postgresRepository) AddFile(ctx context.Context, file *SessionFile) error {
	query := `
		INSERT INTO session_files (
			id, session_id, filename, s3_key, s3_bucket, uploaded_by, uploaded_at
		) VALUES (
			:id, :session_id, :filename, :s3_key, :s3_bucket, :uploaded_by, :uploaded_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, file)
	return err
}

func (r *postgresRepository) ListFiles(ctx context.Context, sessionID uuid.UUID) ([]SessionFile, error) {
	var files []SessionFile
	err := r.db.SelectContext(ctx, &files,
		"SELECT * FROM session_files WHERE session_id = $1 ORDER BY uploaded_at ASC", sessionID)
	return files, err
}

func (r *postgresRepository) CountFiles(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM session_files WHERE session_id = $1", sessionID)
	return count, err
}
