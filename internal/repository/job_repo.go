package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kodevali/the300/internal/database"
	"github.com/kodevali/the300/internal/models"
	"github.com/lib/pq"
)

const selectJobs = `
	SELECT id, type, resource, status, idempotency_key, total_records, processed_count,
		successful_count, failed_count, duration_ms, rows_per_sec, file_path, error_message,
		actor_name, actor_email, created_at, started_at, completed_at
	FROM jobs`

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

func scanJob(s rowScanner) (*models.Job, error) {
	var job models.Job
	var idempotencyKey, filePath, errorMessage, actorName, actorEmail sql.NullString
	var startedAt, completedAt sql.NullTime

	err := s.Scan(
		&job.ID, &job.Type, &job.Resource, &job.Status, &idempotencyKey,
		&job.TotalRecords, &job.ProcessedCount, &job.SuccessfulCount, &job.FailedCount,
		&job.DurationMs, &job.RowsPerSec, &filePath, &errorMessage,
		&actorName, &actorEmail, &job.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.IdempotencyKey = idempotencyKey.String
	job.FilePath = filePath.String
	job.ErrorMessage = errorMessage.String
	job.ActorName = actorName.String
	job.ActorEmail = actorEmail.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

// Create inserts a new job
func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, type, resource, status, idempotency_key, total_records,
			processed_count, successful_count, failed_count, file_path, actor_name, actor_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Type, job.Resource, job.Status, nullString(job.IdempotencyKey),
		job.TotalRecords, job.ProcessedCount, job.SuccessfulCount, job.FailedCount,
		nullString(job.FilePath), nullString(job.ActorName), nullString(job.ActorEmail), job.CreatedAt,
	)
	return err
}

// Update updates job status and counters
func (r *jobRepo) Update(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs SET
			status = $1, total_records = $2, processed_count = $3, successful_count = $4,
			failed_count = $5, duration_ms = $6, rows_per_sec = $7, error_message = $8,
			started_at = $9, completed_at = $10
		WHERE id = $11
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status, job.TotalRecords, job.ProcessedCount, job.SuccessfulCount,
		job.FailedCount, job.DurationMs, job.RowsPerSec, nullString(job.ErrorMessage),
		job.StartedAt, job.CompletedAt, job.ID,
	)
	return err
}

// UpdateProgress records the running import total after a committed batch
func (r *jobRepo) UpdateProgress(ctx context.Context, jobID string, processed, total int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET processed_count = $1, successful_count = $1, total_records = $2 WHERE id = $3`,
		processed, total, jobID,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, selectJobs+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// GetByIdempotencyKey retrieves a job by idempotency key
func (r *jobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, selectJobs+" WHERE idempotency_key = $1", key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// GetPendingJobs retrieves all pending jobs, oldest first
func (r *jobRepo) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx, selectJobs+" WHERE status = 'pending' ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// MarkJobAsProcessing atomically marks a pending job as processing
func (r *jobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs SET status = 'processing', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), jobID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AddErrors adds validation errors using the COPY protocol
func (r *jobRepo) AddErrors(ctx context.Context, jobID string, errs []models.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("job_errors",
		"job_id", "line_number", "field", "message", "value",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range errs {
		if _, err := stmt.ExecContext(ctx, jobID, e.Line, e.Field, e.Message, valueString(e.Value)); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetErrors retrieves validation errors for a job
func (r *jobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error) {
	query := `SELECT line_number, field, message, value FROM job_errors WHERE job_id = $1 ORDER BY line_number, id`
	args := []any{jobID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []models.ValidationError
	for rows.Next() {
		var e models.ValidationError
		var field, value sql.NullString
		if err := rows.Scan(&e.Line, &field, &e.Message, &value); err != nil {
			return nil, err
		}
		e.Field = field.String
		if value.Valid && value.String != "" {
			e.Value = value.String
		}
		errs = append(errs, e)
	}

	return errs, rows.Err()
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func valueString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
