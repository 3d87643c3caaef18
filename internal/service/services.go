package service

import (
	"context"
	"io"

	"github.com/kodevali/the300/internal/config"
	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
	"github.com/rs/zerolog"
)

// ProgressFunc receives the running count after every committed batch
type ProgressFunc func(imported, total int)

// ImportService defines the interface for import operations
type ImportService interface {
	CreateImportJob(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error)
	ProcessImport(ctx context.Context, job *models.Job) error
	ImportText(ctx context.Context, text string, mode models.JobType, actor models.Actor, progress ProgressFunc) (*models.ImportSummary, error)
	ImportRecords(ctx context.Context, records []*models.Employee, actor models.Actor, progress ProgressFunc) (*models.ImportSummary, error)
	Restore(ctx context.Context, records []*models.Employee, actor models.Actor, progress ProgressFunc) (*models.ImportSummary, error)
}

// ExportService defines the interface for CSV exports and reports
type ExportService interface {
	Template() *models.Report
	BackupFilename() string
	WriteBackup(ctx context.Context, w io.Writer) (int, error)
	LOBReport(ctx context.Context, lob string) (*models.Report, error)
	ConsolidatedReport(ctx context.Context, q string) (*models.Report, error)
	Summaries(ctx context.Context) ([]models.LOBSummary, error)
	SummaryReport(ctx context.Context) (*models.Report, error)
	ITAccessReport(ctx context.Context) (*models.Report, error)
}

// JobService defines the interface for job management
type JobService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error)
	SetImportService(importService ImportService)
}

// AuditService defines the interface for the change log
type AuditService interface {
	Record(ctx context.Context, actor models.Actor, action, details string)
	List(ctx context.Context, limit int) ([]*models.AuditEntry, error)
	Clear(ctx context.Context, actor models.Actor) error
}

// RoleService defines the interface for admins and LOB roles
type RoleService interface {
	DeriveRoles(ctx context.Context, actor models.Actor) (models.Actor, error)
	RolesFor(ctx context.Context, actor models.Actor) (*models.RolesResponse, error)
	SaveRoles(ctx context.Context, roles models.LOBRoles, actor models.Actor) error
	ListAdmins(ctx context.Context) ([]string, error)
	ReplaceAdmins(ctx context.Context, emails []string, actor models.Actor) error
	AddAdmins(ctx context.Context, emails []string) (int, error)
}

// LockService defines the interface for LOB locks
type LockService interface {
	IsLocked(ctx context.Context, lob string) (bool, error)
	ListLocks(ctx context.Context) (map[string]bool, error)
	SetLock(ctx context.Context, lob string, locked bool, actor models.Actor) error
}

// SelectionService defines the interface for seat selections
type SelectionService interface {
	ListEmployees(ctx context.Context, actor models.Actor, lob string) ([]*models.Employee, error)
	Queue(ctx context.Context, employeeID string, reason *string, actor models.Actor) (*models.SelectionEdit, error)
	Flush(ctx context.Context) (int, error)
	ResetForGoLive(ctx context.Context, actor models.Actor) error
	Close(ctx context.Context) error
}

// Services holds all service interfaces
type Services struct {
	Import    ImportService
	Export    ExportService
	Job       JobService
	Audit     AuditService
	Role      RoleService
	Lock      LockService
	Selection SelectionService
}

// NewServices creates all services. A nil notifier logs lock events.
func NewServices(repos *repository.Repositories, cfg *config.Config, m *metrics.Metrics, notifier Notifier, log zerolog.Logger) *Services {
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}

	auditSvc := newAuditService(repos.Changelog, log)
	jobSvc := newJobService(repos.Job, cfg, log)
	importSvc := newImportService(repos, auditSvc, cfg, m, log)

	jobSvc.SetImportService(importSvc)

	return &Services{
		Import:    importSvc,
		Export:    newExportService(repos, m, log),
		Job:       jobSvc,
		Audit:     auditSvc,
		Role:      newRoleService(repos, auditSvc, log),
		Lock:      newLockService(repos, auditSvc, notifier, m, log),
		Selection: newSelectionService(repos, auditSvc, cfg, m, log),
	}
}
