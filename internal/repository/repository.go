package repository

import (
	"context"

	"github.com/kodevali/the300/internal/database"
	"github.com/kodevali/the300/internal/models"
)

// EmployeeRepository defines the interface for roster data operations
type EmployeeRepository interface {
	ListAll(ctx context.Context) ([]*models.Employee, error)
	ListByLOB(ctx context.Context, lob string) ([]*models.Employee, error)
	StreamAll(ctx context.Context, callback func(*models.Employee) error) error
	GetByID(ctx context.Context, id string) (*models.Employee, error)
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
	Count(ctx context.Context) (int, error)
	UpsertMany(ctx context.Context, employees []*models.Employee) error
	ReplaceAll(ctx context.Context, employees []*models.Employee) error
	DeleteAll(ctx context.Context) error
	ApplySelections(ctx context.Context, edits []models.SelectionEdit) error
	ClearSelections(ctx context.Context) (int64, error)
}

// JobRepository defines the interface for job data operations
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	UpdateProgress(ctx context.Context, jobID string, processed, total int) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetPendingJobs(ctx context.Context) ([]*models.Job, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
	AddErrors(ctx context.Context, jobID string, errors []models.ValidationError) error
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error)
}

// ChangelogRepository defines the interface for audit entries
type ChangelogRepository interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, limit int) ([]*models.AuditEntry, error)
	Clear(ctx context.Context) error
}

// RoleRepository defines the interface for admins and per-LOB roles
type RoleRepository interface {
	ListAdmins(ctx context.Context) ([]string, error)
	IsAdmin(ctx context.Context, email string) (bool, error)
	ReplaceAdmins(ctx context.Context, emails []string) error
	AddAdmins(ctx context.Context, emails []string) (int, error)
	ListRoles(ctx context.Context) ([]models.LOBRoles, error)
	SaveRoles(ctx context.Context, roles models.LOBRoles) error
}

// LockRepository defines the interface for per-LOB lock flags
type LockRepository interface {
	IsLocked(ctx context.Context, lob string) (bool, error)
	ListLocks(ctx context.Context) (map[string]bool, error)
	SetLock(ctx context.Context, lob string, locked bool) error
	UnlockAll(ctx context.Context) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Employee  EmployeeRepository
	Job       JobRepository
	Changelog ChangelogRepository
	Role      RoleRepository
	Lock      LockRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Employee:  NewEmployeeRepo(db),
		Job:       NewJobRepo(db),
		Changelog: NewChangelogRepo(db),
		Role:      NewRoleRepo(db),
		Lock:      NewLockRepo(db),
	}
}
