package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kodevali/the300/internal/database"
)

// lockRepo is the concrete implementation of LockRepository
type lockRepo struct {
	db *database.DB
}

// NewLockRepo creates a new lock repository
func NewLockRepo(db *database.DB) LockRepository {
	return &lockRepo{db: db}
}

// IsLocked reports the lock flag of lob; unknown LOBs are unlocked
func (r *lockRepo) IsLocked(ctx context.Context, lob string) (bool, error) {
	var locked bool
	err := r.db.QueryRowContext(ctx, "SELECT locked FROM lob_locks WHERE lob = $1", lob).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return locked, err
}

// ListLocks returns the lock flag of every LOB that has one
func (r *lockRepo) ListLocks(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT lob, locked FROM lob_locks")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locks := make(map[string]bool)
	for rows.Next() {
		var lob string
		var locked bool
		if err := rows.Scan(&lob, &locked); err != nil {
			return nil, err
		}
		locks[lob] = locked
	}
	return locks, rows.Err()
}

// SetLock sets the lock flag of lob
func (r *lockRepo) SetLock(ctx context.Context, lob string, locked bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lob_locks (lob, locked, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (lob) DO UPDATE SET locked = EXCLUDED.locked, updated_at = EXCLUDED.updated_at
	`, lob, locked)
	return err
}

// UnlockAll clears every lock flag
func (r *lockRepo) UnlockAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "UPDATE lob_locks SET locked = FALSE, updated_at = NOW() WHERE locked")
	return err
}
