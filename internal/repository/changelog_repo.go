package repository

import (
	"context"

	"github.com/kodevali/the300/internal/database"
	"github.com/kodevali/the300/internal/models"
)

// changelogRepo is the concrete implementation of ChangelogRepository
type changelogRepo struct {
	db *database.DB
}

// NewChangelogRepo creates a new change log repository
func NewChangelogRepo(db *database.DB) ChangelogRepository {
	return &changelogRepo{db: db}
}

// Record appends an entry
func (r *changelogRepo) Record(ctx context.Context, entry *models.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO changelog (id, created_at, actor_name, actor_email, action, details) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Timestamp, entry.ActorName, entry.ActorEmail, entry.Action, entry.Details,
	)
	return err
}

// List returns entries newest first; limit <= 0 returns all
func (r *changelogRepo) List(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	query := `SELECT id, created_at, actor_name, actor_email, action, details FROM changelog ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActorName, &e.ActorEmail, &e.Action, &e.Details); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Clear deletes every entry
func (r *changelogRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM changelog")
	return err
}
