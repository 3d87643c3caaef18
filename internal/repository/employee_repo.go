package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kodevali/the300/internal/database"
	"github.com/kodevali/the300/internal/models"
	"github.com/lib/pq"
)

// employeeColumns is the column order used by every read and bulk write
var employeeColumns = []string{
	"id", "name", "email", "designation", "manager", "department",
	"line_of_business", "location", "city",
	"modifier_name", "modifier_email", "reason", "modified_at",
	"internet_access", "requested_sites_to_unblock", "external_email_sending",
	"external_email_recipients", "work_email_mobile", "vpn_access", "vpn_type",
}

// columns that keep their stored value when the incoming row leaves them absent
var mergeColumns = employeeColumns[3:]

var (
	selectEmployees = "SELECT " + strings.Join(employeeColumns, ", ") + " FROM employees"
	upsertFromStage = buildUpsertFromStage()
)

func buildUpsertFromStage() string {
	cols := strings.Join(employeeColumns, ", ")

	sets := []string{"name = EXCLUDED.name", "email = EXCLUDED.email"}
	for _, c := range mergeColumns {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, employees.%s)", c, c, c))
	}
	sets = append(sets, "updated_at = NOW()")

	// DISTINCT ON keeps the last occurrence of an id within the batch
	return fmt.Sprintf(`
		INSERT INTO employees (%s)
		SELECT DISTINCT ON (id) %s FROM employees_stage ORDER BY id, seq DESC
		ON CONFLICT (id) DO UPDATE SET %s`,
		cols, cols, strings.Join(sets, ",\n\t\t\t"))
}

// employeeRepo is the concrete implementation of EmployeeRepository
type employeeRepo struct {
	db *database.DB
}

// NewEmployeeRepo creates a new employee repository
func NewEmployeeRepo(db *database.DB) EmployeeRepository {
	return &employeeRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(s rowScanner) (*models.Employee, error) {
	var e models.Employee
	var modifierName, modifierEmail sql.NullString

	err := s.Scan(
		&e.ID, &e.Name, &e.Email, &e.Designation, &e.Manager, &e.Department,
		&e.LineOfBusiness, &e.Location, &e.City,
		&modifierName, &modifierEmail, &e.Reason, &e.ModifiedAt,
		&e.InternetAccess, &e.RequestedSitesToUnblock, &e.ExternalEmailSending,
		&e.ExternalEmailRecipients, &e.WorkEmailMobile, &e.VPNAccess, &e.VPNType,
	)
	if err != nil {
		return nil, err
	}

	if modifierName.String != "" && modifierEmail.String != "" {
		e.Modifier = &models.Modifier{Name: modifierName.String, Email: modifierEmail.String}
	}
	return &e, nil
}

// employeeArgs returns values in employeeColumns order; nil pointers become NULL
func employeeArgs(e *models.Employee) []any {
	var modifierName, modifierEmail any
	if e.Modifier != nil {
		modifierName, modifierEmail = e.Modifier.Name, e.Modifier.Email
	}
	return []any{
		e.ID, e.Name, e.Email, e.Designation, e.Manager, e.Department,
		e.LineOfBusiness, e.Location, e.City,
		modifierName, modifierEmail, e.Reason, e.ModifiedAt,
		e.InternetAccess, e.RequestedSitesToUnblock, e.ExternalEmailSending,
		e.ExternalEmailRecipients, e.WorkEmailMobile, e.VPNAccess, e.VPNType,
	}
}

func (r *employeeRepo) query(ctx context.Context, query string, args ...any) ([]*models.Employee, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// ListAll returns the whole roster ordered by id
func (r *employeeRepo) ListAll(ctx context.Context) ([]*models.Employee, error) {
	return r.query(ctx, selectEmployees+" ORDER BY id")
}

// ListByLOB returns the roster of one line of business
func (r *employeeRepo) ListByLOB(ctx context.Context, lob string) ([]*models.Employee, error) {
	return r.query(ctx, selectEmployees+" WHERE line_of_business = $1 ORDER BY id", lob)
}

// StreamAll streams the roster for export (memory efficient)
func (r *employeeRepo) StreamAll(ctx context.Context, callback func(*models.Employee) error) error {
	rows, err := r.db.QueryContext(ctx, selectEmployees+" ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return err
		}
		if err := callback(e); err != nil {
			return err
		}
	}

	return rows.Err()
}

// GetByID retrieves an employee by id, nil when absent
func (r *employeeRepo) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	e, err := scanEmployee(r.db.QueryRowContext(ctx, selectEmployees+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// FindByEmail retrieves an employee by case-insensitive email, nil when absent
func (r *employeeRepo) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	e, err := scanEmployee(r.db.QueryRowContext(ctx,
		selectEmployees+" WHERE LOWER(email) = $1 LIMIT 1", models.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// Count returns the total number of employees
func (r *employeeRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM employees").Scan(&count)
	return count, err
}

// UpsertMany writes one batch in a single transaction. New values win on id;
// fields left nil keep what is stored.
func (r *employeeRepo) UpsertMany(ctx context.Context, employees []*models.Employee) error {
	if len(employees) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertTx(ctx, tx, employees)
	})
}

// ReplaceAll swaps the whole roster for employees atomically
func (r *employeeRepo) ReplaceAll(ctx context.Context, employees []*models.Employee) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM employees"); err != nil {
			return fmt.Errorf("failed to clear employees: %w", err)
		}
		if len(employees) == 0 {
			return nil
		}
		return upsertTx(ctx, tx, employees)
	})
}

// upsertTx stages rows with COPY then merges them into employees
func upsertTx(ctx context.Context, tx *sql.Tx, employees []*models.Employee) error {
	_, err := tx.ExecContext(ctx,
		`CREATE TEMP TABLE employees_stage (LIKE employees INCLUDING DEFAULTS, seq INTEGER) ON COMMIT DROP`)
	if err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	cols := append(append([]string{}, employeeColumns...), "seq")
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("employees_stage", cols...))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range employees {
		if _, err := stmt.ExecContext(ctx, append(employeeArgs(e), i)...); err != nil {
			return fmt.Errorf("failed to stage employee %s: %w", e.ID, err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, upsertFromStage); err != nil {
		return fmt.Errorf("failed to merge employees: %w", err)
	}
	return nil
}

// DeleteAll removes every employee
func (r *employeeRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM employees")
	return err
}

// ApplySelections writes a batch of selection edits in one transaction.
// A nil reason clears the reason, modifier and timestamp.
func (r *employeeRepo) ApplySelections(ctx context.Context, edits []models.SelectionEdit) error {
	if len(edits) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE employees SET
				reason = $2, modifier_name = $3, modifier_email = $4, modified_at = $5, updated_at = NOW()
			WHERE id = $1
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, edit := range edits {
			var name, email, modifiedAt any
			if edit.Reason != nil {
				name, email = edit.Modifier.Name, edit.Modifier.Email
				modifiedAt = models.FormatTimestamp(edit.ModifiedAt)
			}
			if _, err := stmt.ExecContext(ctx, edit.EmployeeID, edit.Reason, name, email, modifiedAt); err != nil {
				return fmt.Errorf("failed to apply selection for %s: %w", edit.EmployeeID, err)
			}
		}
		return nil
	})
}

// ClearSelections removes every allocation, returning how many were cleared
func (r *employeeRepo) ClearSelections(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE employees SET
			reason = NULL, modifier_name = NULL, modifier_email = NULL, modified_at = NULL, updated_at = NOW()
		WHERE reason IS NOT NULL OR modifier_name IS NOT NULL
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
