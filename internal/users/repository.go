package users

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Directory resolves users for role checks and notification fan-out.
type Directory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUsersByRole(ctx context.Context, role string) ([]User, error)
}

type postgresDirectory struct {
	db *sqlx.DB
}

func NewDirectory(db *sqlx.DB) Directory {
	return &postgresDirectory{db: db}
}

func (r *postgresDirectory) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &user, err
}

func (r *postgresDirectory) GetUsersByRole(ctx context.Context, role string) ([]User, error) {
	var list []User
	err := r.db.SelectContext(ctx, &list, "SELECT * FROM users WHERE role = $1 ORDER BY created_at ASC", role)
	return list, err
}
