package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kodevali/the300/internal/config"
	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
	"github.com/kodevali/the300/internal/validation"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos   *repository.Repositories
	audit   AuditService
	cfg     *config.Config
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, audit AuditService, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *importService {
	return &importService{
		repos:   repos,
		audit:   audit,
		cfg:     cfg,
		metrics: m,
		log:     log.With().Str("service", "import").Logger(),
	}
}

// CreateImportJob creates a new import or restore job for an uploaded file
func (s *importService) CreateImportJob(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error) {
	jobType := req.Type
	if jobType == "" {
		jobType = models.JobTypeImport
	}

	job := &models.Job{
		ID:             uuid.New().String(),
		Type:           jobType,
		Resource:       models.ResourceEmployees,
		Status:         models.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		FilePath:       filePath,
		ActorName:      req.Actor.Name,
		ActorEmail:     req.Actor.Email,
		CreatedAt:      time.Now(),
	}

	if err := s.repos.Job.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("mode", string(job.Type)).
		Str("actor", job.ActorEmail).
		Str("file", filePath).
		Msg("Import job created")

	return job, nil
}

// ProcessImport runs a queued job: decode the upload, validate it, then
// persist it in batches while recording progress on the job.
func (s *importService) ProcessImport(ctx context.Context, job *models.Job) error {
	startTime := time.Now()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &startTime
	if err := s.repos.Job.Update(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job processing")
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("mode", string(job.Type)).
		Msg("Starting import processing")

	summary, err := s.processFile(ctx, job)

	duration := time.Since(startTime)
	job.DurationMs = duration.Milliseconds()
	if summary != nil {
		job.TotalRecords = summary.Total
		job.ProcessedCount = summary.Imported
		job.SuccessfulCount = summary.Imported
		job.FailedCount = summary.Total - summary.Imported
		if summary.Imported > 0 && duration.Seconds() > 0 {
			job.RowsPerSec = float64(summary.Imported) / duration.Seconds()
		}
	}

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = models.JobStatusFailed
		job.ErrorMessage = err.Error()
		s.storeJobError(ctx, job, err)
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Import failed")
	} else {
		job.Status = models.JobStatusCompleted
		s.log.Info().
			Str("job_id", job.ID).
			Int("total", job.TotalRecords).
			Int("imported", job.SuccessfulCount).
			Int64("duration_ms", job.DurationMs).
			Float64("rows_per_sec", job.RowsPerSec).
			Msg("Import completed")
	}

	if updateErr := s.repos.Job.Update(ctx, job); updateErr != nil {
		s.log.Error().Err(updateErr).Str("job_id", job.ID).Msg("Failed to update job")
	}

	if job.FilePath != "" {
		if rmErr := os.Remove(job.FilePath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.Warn().Err(rmErr).Str("file", job.FilePath).Msg("Failed to remove upload")
		}
	}

	return err
}

func (s *importService) processFile(ctx context.Context, job *models.Job) (*models.ImportSummary, error) {
	raw, err := os.ReadFile(job.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	text, err := csvcodec.DecodeText(raw)
	if err != nil {
		return nil, err
	}

	progress := func(imported, total int) {
		if err := s.repos.Job.UpdateProgress(ctx, job.ID, imported, total); err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record progress")
		}
	}

	return s.ImportText(ctx, text, job.Type, job.Actor(), progress)
}

// storeJobError records a fatal error on the job with the line it refers to
func (s *importService) storeJobError(ctx context.Context, job *models.Job, err error) {
	ve := models.ValidationError{Line: 1, Message: err.Error()}

	var rowErr *csvcodec.RowError
	var missingErr *csvcodec.MissingColumnsError
	var batchErr *BatchPersistenceError
	switch {
	case errors.As(err, &rowErr):
		ve.Line, ve.Field = rowErr.Row, rowErr.Field
	case errors.As(err, &missingErr):
		ve.Field = "header"
	case errors.As(err, &batchErr):
		// first row of the failed batch, after the header line
		ve.Line = batchErr.Committed + 2
	}

	if addErr := s.repos.Job.AddErrors(ctx, job.ID, []models.ValidationError{ve}); addErr != nil {
		s.log.Error().Err(addErr).Str("job_id", job.ID).Msg("Failed to store job error")
	}
}

// ImportText parses and validates CSV text for mode, then persists it. Any
// header or row error aborts before anything is written. Restore clears the
// roster only once the whole file has validated.
func (s *importService) ImportText(ctx context.Context, text string, mode models.JobType, actor models.Actor, progress ProgressFunc) (*models.ImportSummary, error) {
	table, err := csvcodec.Parse(text)
	if err != nil {
		return nil, err
	}

	mapped, err := validation.MapRows(table, mode)
	if err != nil {
		return nil, err
	}
	for _, w := range mapped.Warnings {
		s.log.Warn().Str("mode", string(mode)).Msg(w)
	}

	var summary *models.ImportSummary
	if mode == models.JobTypeRestore {
		summary, err = s.Restore(ctx, mapped.Employees, actor, progress)
	} else {
		summary, err = s.ImportRecords(ctx, mapped.Employees, actor, progress)
	}
	if summary != nil {
		summary.Truncated = len(mapped.Warnings)
	}
	return summary, err
}

// ImportRecords upserts records by id in sequential batches
func (s *importService) ImportRecords(ctx context.Context, records []*models.Employee, actor models.Actor, progress ProgressFunc) (*models.ImportSummary, error) {
	summary, err := s.runBatches(ctx, records, models.JobTypeImport, progress)
	s.recordOutcome(ctx, actor, models.ActionCSVImport, summary, err)
	return summary, err
}

// Restore replaces the whole roster with records
func (s *importService) Restore(ctx context.Context, records []*models.Employee, actor models.Actor, progress ProgressFunc) (*models.ImportSummary, error) {
	if err := s.repos.Employee.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear roster before restore: %w", err)
	}
	s.log.Info().Str("actor", actor.Email).Msg("Roster cleared for restore")

	summary, err := s.runBatches(ctx, records, models.JobTypeRestore, progress)
	s.recordOutcome(ctx, actor, models.ActionCSVRestore, summary, err)
	return summary, err
}

// runBatches submits records in fixed-size batches, one at a time. It stops
// at the first failed batch; earlier batches stay committed. The returned
// summary is non-nil even on failure.
func (s *importService) runBatches(ctx context.Context, records []*models.Employee, mode models.JobType, progress ProgressFunc) (*models.ImportSummary, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveImport(string(mode), time.Since(start)) }()

	size := s.cfg.Import.BatchSize
	total := len(records)
	summary := &models.ImportSummary{Total: total}

	for offset := 0; offset < total; offset += size {
		end := min(offset+size, total)
		batch := records[offset:end]

		err := ctx.Err()
		if err == nil {
			err = s.repos.Employee.UpsertMany(ctx, batch)
		}
		if err != nil {
			s.metrics.ObserveBatch(false, 0, string(mode))
			return summary, &BatchPersistenceError{
				Batch:     summary.Batches + 1,
				Committed: summary.Imported,
				Total:     total,
				Err:       err,
			}
		}

		summary.Batches++
		summary.Imported = end
		s.metrics.ObserveBatch(true, len(batch), string(mode))

		s.log.Debug().
			Int("batch", summary.Batches).
			Int("imported", summary.Imported).
			Int("total", total).
			Msg("Batch committed")

		if progress != nil {
			progress(summary.Imported, total)
		}
	}

	return summary, nil
}

func (s *importService) recordOutcome(ctx context.Context, actor models.Actor, action string, summary *models.ImportSummary, err error) {
	var details string
	switch {
	case err == nil && action == models.ActionCSVRestore:
		details = fmt.Sprintf("%d records have been restored.", summary.Imported)
	case err == nil:
		details = fmt.Sprintf("%d users have been imported/updated.", summary.Imported)
	default:
		details = fmt.Sprintf("Stopped after %d of %d records: %v", summary.Imported, summary.Total, err)
	}
	s.audit.Record(ctx, actor, action, details)
}
