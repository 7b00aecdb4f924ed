package documents

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocumentsByRequester(ctx context.Context, requesterID uuid.UUID) ([]Document, error)

	AddFile(ctx context.Context, file *DocumentFile) error
	ListFiles(ctx context.Context, documentID uuid.UUID, kind *FileKind) ([]DocumentFile, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (
			id, requester_id, name, service_code, required_documents, amount, created_at, updated_at
		) VALUES (
			:id, :requester_id, :name, :service_code, :required_documents, :amount, :created_at, :updated_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *postgresRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM documents WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &doc, err
}

func (r *postgresRepository) ListDocumentsByRequester(ctx context.Context, requesterID uuid.UUID) ([]Document, error) {
	var docs []Document
	err := r.db.SelectContext(ctx, &docs,
		"SELECT * FROM documents WHERE requester_id = $1 ORDER BY created_at DESC", requesterID)
	return docs, err
}

func (r *postgresRepository) AddFile(ctx context.Context, file *DocumentFile) error {
	query := `
		INSERT INTO document_files (
			id, document_id, filename, s3_key, s3_bucket, kind, uploaded_at
		) VALUES (
			:id, :document_id, :filename, :s3_key, :s3_bucket, :kind, :uploaded_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, file)
	return err
}

func (r *postgresRepository) ListFiles(ctx context.Context, documentID uuid.UUID, kind *FileKind) ([]DocumentFile, error) {
	var files []DocumentFile
	if kind != nil {
		err := r.db.SelectContext(ctx, &files,
			"SELECT * FROM document_files WHERE document_id = $1 AND kind = $2 ORDER BY uploaded_at ASC",
			documentID, *kind)
		return files, err
	}
	err := r.db.SelectContext(ctx, &files,
		"SELECT * FROM document_files WHERE document_id = $1 ORDER BY uploaded_at ASC", documentID)
	return files, err
}
