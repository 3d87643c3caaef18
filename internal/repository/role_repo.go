package repository

import (
	"context"
	"database/sql"

	"github.com/kodevali/the300/internal/database"
	"github.com/kodevali/the300/internal/models"
	"github.com/lib/pq"
)

// roleRepo is the concrete implementation of RoleRepository
type roleRepo struct {
	db *database.DB
}

// NewRoleRepo creates a new role repository
func NewRoleRepo(db *database.DB) RoleRepository {
	return &roleRepo{db: db}
}

// ListAdmins returns the admin allowlist
func (r *roleRepo) ListAdmins(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT email FROM admins ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// IsAdmin checks the allowlist for a lower-cased email
func (r *roleRepo) IsAdmin(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM admins WHERE email = $1)", models.NormalizeEmail(email)).Scan(&exists)
	return exists, err
}

// ReplaceAdmins swaps the allowlist for emails
func (r *roleRepo) ReplaceAdmins(ctx context.Context, emails []string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM admins"); err != nil {
			return err
		}
		_, err := insertAdmins(ctx, tx, emails)
		return err
	})
}

// AddAdmins inserts emails, ignoring ones already present, and returns how
// many were new
func (r *roleRepo) AddAdmins(ctx context.Context, emails []string) (int, error) {
	var added int
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		added, err = insertAdmins(ctx, tx, emails)
		return err
	})
	return added, err
}

func insertAdmins(ctx context.Context, tx *sql.Tx, emails []string) (int, error) {
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = models.NormalizeEmail(e); e != "" {
			normalized = append(normalized, e)
		}
	}
	if len(normalized) == 0 {
		return 0, nil
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO admins (email) SELECT DISTINCT unnest($1::text[]) ON CONFLICT (email) DO NOTHING",
		pq.Array(normalized),
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// ListRoles returns the group head and delegates of every LOB
func (r *roleRepo) ListRoles(ctx context.Context) ([]models.LOBRoles, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT lob, group_head, delegates FROM lob_roles ORDER BY lob")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.LOBRoles
	for rows.Next() {
		var lr models.LOBRoles
		var groupHead sql.NullString
		if err := rows.Scan(&lr.LOB, &groupHead, pq.Array(&lr.Delegates)); err != nil {
			return nil, err
		}
		lr.GroupHead = groupHead.String
		if lr.Delegates == nil {
			lr.Delegates = []string{}
		}
		roles = append(roles, lr)
	}
	return roles, rows.Err()
}

// SaveRoles replaces the roles of one LOB
func (r *roleRepo) SaveRoles(ctx context.Context, roles models.LOBRoles) error {
	delegates := roles.Delegates
	if delegates == nil {
		delegates = []string{}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lob_roles (lob, group_head, delegates) VALUES ($1, $2, $3)
		ON CONFLICT (lob) DO UPDATE SET group_head = EXCLUDED.group_head, delegates = EXCLUDED.delegates
	`, roles.LOB, nullString(roles.GroupHead), pq.Array(delegates))
	return err
}
