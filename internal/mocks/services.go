package mocks

import (
	"context"
	"sync"

	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
)

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	CreateJobFunc func(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error)
	ProcessFunc   func(ctx context.Context, job *models.Job) error
	ProcessedJobs []*models.Job
	CreatedJobs   []*models.Job
	Requests      []*models.ImportRequest
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		ProcessedJobs: make([]*models.Job, 0),
		CreatedJobs:   make([]*models.Job, 0),
	}
}

func (m *MockImportService) CreateImportJob(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error) {
	m.Requests = append(m.Requests, req)
	if m.CreateJobFunc != nil {
		return m.CreateJobFunc(ctx, req, filePath)
	}
	job := &models.Job{
		ID:         "test-job-id",
		Type:       req.Type,
		Resource:   models.ResourceEmployees,
		Status:     models.JobStatusPending,
		FilePath:   filePath,
		ActorEmail: req.Actor.Email,
	}
	m.CreatedJobs = append(m.CreatedJobs, job)
	return job, nil
}

func (m *MockImportService) ProcessImport(ctx context.Context, job *models.Job) error {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, job)
	}
	m.ProcessedJobs = append(m.ProcessedJobs, job)
	job.Status = models.JobStatusCompleted
	return nil
}

func (m *MockImportService) ImportText(ctx context.Context, text string, mode models.JobType, actor models.Actor, progress service.ProgressFunc) (*models.ImportSummary, error) {
	return &models.ImportSummary{}, nil
}

func (m *MockImportService) ImportRecords(ctx context.Context, records []*models.Employee, actor models.Actor, progress service.ProgressFunc) (*models.ImportSummary, error) {
	return &models.ImportSummary{Total: len(records), Imported: len(records)}, nil
}

func (m *MockImportService) Restore(ctx context.Context, records []*models.Employee, actor models.Actor, progress service.ProgressFunc) (*models.ImportSummary, error) {
	return &models.ImportSummary{Total: len(records), Imported: len(records)}, nil
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	Jobs          map[string]*models.JobResponse
	Errors        map[string][]models.ValidationError
	ImportService service.ImportService
}

// Verify interface compliance
var _ service.JobService = (*MockJobService)(nil)

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs:   make(map[string]*models.JobResponse),
		Errors: make(map[string][]models.ValidationError),
	}
}

func (m *MockJobService) StartProcessor(ctx context.Context) {}

func (m *MockJobService) StopProcessor() {}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	return m.Jobs[id], nil
}

func (m *MockJobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	for _, job := range m.Jobs {
		if job.IdempotencyKey == key {
			return &job.Job, nil
		}
	}
	return nil, nil
}

func (m *MockJobService) GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error) {
	return m.Errors[id], nil
}

func (m *MockJobService) SetImportService(importService service.ImportService) {
	m.ImportService = importService
}

// MockNotifier records lock notifications
type MockNotifier struct {
	mu     sync.Mutex
	Events []service.LockEvent
	Err    error
}

var _ service.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) NotifyLocked(ctx context.Context, event service.LockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}
