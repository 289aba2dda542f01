package resolution

import (
	"context"
	_ "embed"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// Repository handles resolution_attempts database operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new resolution repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the table and indexes if they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Create inserts an entry
func (r *Repository) Create(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO resolution_attempts
			(id, operation, request_id, outcome, endpoint, status, error, attempts, duration_ms, created_at)
		VALUES
			(:id, :operation, :request_id, :outcome, :endpoint, :status, :error, :attempts, :duration_ms, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, e)
	return err
}

// List returns the newest entries, optionally for one operation.
func (r *Repository) List(ctx context.Context, operation string, limit int) ([]Entry, error) {
	query := `
		SELECT * FROM resolution_attempts
		WHERE ($1 = '' OR operation = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	entries := []Entry{}
	err := r.db.SelectContext(ctx, &entries, query, operation, limit)
	return entries, err
}

// DeleteBefore removes entries created before cutoff and returns how many.
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resolution_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
