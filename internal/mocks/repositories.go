package mocks

import (
	"context"
	"slices"
	"sync"

	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
)

var (
	_ repository.EmployeeRepository  = (*MockEmployeeRepository)(nil)
	_ repository.JobRepository       = (*MockJobRepository)(nil)
	_ repository.ChangelogRepository = (*MockChangelogRepository)(nil)
	_ repository.RoleRepository      = (*MockRoleRepository)(nil)
	_ repository.LockRepository      = (*MockLockRepository)(nil)
)

// RepoSet bundles a Repositories aggregate with the mocks behind it
type RepoSet struct {
	Repositories *repository.Repositories
	Employees    *MockEmployeeRepository
	Jobs         *MockJobRepository
	Changelog    *MockChangelogRepository
	Roles        *MockRoleRepository
	Locks        *MockLockRepository
}

// NewRepoSet wires fresh mocks into a Repositories aggregate
func NewRepoSet() *RepoSet {
	set := &RepoSet{
		Employees: NewMockEmployeeRepository(),
		Jobs:      NewMockJobRepository(),
		Changelog: NewMockChangelogRepository(),
		Roles:     NewMockRoleRepository(),
		Locks:     NewMockLockRepository(),
	}
	set.Repositories = &repository.Repositories{
		Employee:  set.Employees,
		Job:       set.Jobs,
		Changelog: set.Changelog,
		Role:      set.Roles,
		Lock:      set.Locks,
	}
	return set
}

// MockEmployeeRepository is a mock implementation of EmployeeRepository.
// Edits may be flushed from a timer goroutine, so it is guarded by a mutex.
type MockEmployeeRepository struct {
	mu        sync.Mutex
	Employees map[string]*models.Employee

	UpsertManyFunc      func(ctx context.Context, employees []*models.Employee) error
	UpsertCalls         int
	Batches             [][]*models.Employee
	DeleteAllFunc       func(ctx context.Context) error
	DeleteAllCalls      int
	ApplySelectionsFunc func(ctx context.Context, edits []models.SelectionEdit) error
	AppliedEdits        [][]models.SelectionEdit
	ListError           error
}

func NewMockEmployeeRepository() *MockEmployeeRepository {
	return &MockEmployeeRepository{
		Employees: make(map[string]*models.Employee),
	}
}

// Seed stores employees as-is
func (m *MockEmployeeRepository) Seed(employees ...*models.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range employees {
		m.Employees[e.ID] = e
	}
}

func (m *MockEmployeeRepository) sorted(keep func(*models.Employee) bool) []*models.Employee {
	ids := make([]string, 0, len(m.Employees))
	for id := range m.Employees {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]*models.Employee, 0, len(ids))
	for _, id := range ids {
		e := m.Employees[id]
		if keep == nil || keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

func (m *MockEmployeeRepository) ListAll(ctx context.Context) ([]*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.sorted(nil), nil
}

func (m *MockEmployeeRepository) ListByLOB(ctx context.Context, lob string) ([]*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.sorted(func(e *models.Employee) bool { return e.LOB() == lob }), nil
}

func (m *MockEmployeeRepository) StreamAll(ctx context.Context, callback func(*models.Employee) error) error {
	all, err := m.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, e := range all {
		if err := callback(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockEmployeeRepository) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Employees[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *MockEmployeeRepository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Employees {
		if models.NormalizeEmail(e.Email) == models.NormalizeEmail(email) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockEmployeeRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Employees), nil
}

// UpsertMany merges by id: present fields overwrite, absent (nil) ones keep
// the stored value.
func (m *MockEmployeeRepository) UpsertMany(ctx context.Context, employees []*models.Employee) error {
	m.mu.Lock()
	m.UpsertCalls++
	m.Batches = append(m.Batches, employees)
	fn := m.UpsertManyFunc
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, employees); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range employees {
		cp := *e
		if old, ok := m.Employees[e.ID]; ok {
			merge(&cp, old)
		}
		m.Employees[e.ID] = &cp
	}
	return nil
}

func merge(dst, old *models.Employee) {
	keep := func(p **string, o *string) {
		if *p == nil {
			*p = o
		}
	}
	keepBool := func(p **bool, o *bool) {
		if *p == nil {
			*p = o
		}
	}
	keep(&dst.Designation, old.Designation)
	keep(&dst.Manager, old.Manager)
	keep(&dst.Department, old.Department)
	keep(&dst.LineOfBusiness, old.LineOfBusiness)
	keep(&dst.Location, old.Location)
	keep(&dst.City, old.City)
	keep(&dst.Reason, old.Reason)
	keep(&dst.ModifiedAt, old.ModifiedAt)
	if dst.Modifier == nil {
		dst.Modifier = old.Modifier
	}
	keepBool(&dst.InternetAccess, old.InternetAccess)
	keep(&dst.RequestedSitesToUnblock, old.RequestedSitesToUnblock)
	keepBool(&dst.ExternalEmailSending, old.ExternalEmailSending)
	keep(&dst.ExternalEmailRecipients, old.ExternalEmailRecipients)
	keepBool(&dst.WorkEmailMobile, old.WorkEmailMobile)
	keepBool(&dst.VPNAccess, old.VPNAccess)
	keep(&dst.VPNType, old.VPNType)
}

func (m *MockEmployeeRepository) ReplaceAll(ctx context.Context, employees []*models.Employee) error {
	if err := m.DeleteAll(ctx); err != nil {
		return err
	}
	return m.UpsertMany(ctx, employees)
}

func (m *MockEmployeeRepository) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	m.DeleteAllCalls++
	fn := m.DeleteAllFunc
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Employees = make(map[string]*models.Employee)
	return nil
}

func (m *MockEmployeeRepository) ApplySelections(ctx context.Context, edits []models.SelectionEdit) error {
	m.mu.Lock()
	fn := m.ApplySelectionsFunc
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, edits); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppliedEdits = append(m.AppliedEdits, edits)
	for _, ed := range edits {
		e, ok := m.Employees[ed.EmployeeID]
		if !ok {
			continue
		}
		if ed.Reason == nil {
			e.Reason, e.Modifier, e.ModifiedAt = nil, nil, nil
			continue
		}
		mod := ed.Modifier
		ts := models.FormatTimestamp(ed.ModifiedAt)
		e.Reason, e.Modifier, e.ModifiedAt = ed.Reason, &mod, &ts
	}
	return nil
}

// Applied returns a snapshot of the ApplySelections batches
func (m *MockEmployeeRepository) Applied() [][]models.SelectionEdit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.AppliedEdits)
}

func (m *MockEmployeeRepository) ClearSelections(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.Employees {
		if e.Reason != nil || e.Modifier != nil || e.ModifiedAt != nil {
			n++
		}
		e.Reason, e.Modifier, e.ModifiedAt = nil, nil, nil
	}
	return n, nil
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	Jobs            map[string]*models.Job
	IdempotencyJobs map[string]*models.Job
	Errors          map[string][]models.ValidationError
	Progress        [][2]int
	CreateError     error
	UpdateError     error
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		Jobs:            make(map[string]*models.Job),
		IdempotencyJobs: make(map[string]*models.Job),
		Errors:          make(map[string][]models.ValidationError),
	}
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.Job) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Jobs[job.ID] = job
	if job.IdempotencyKey != "" {
		m.IdempotencyJobs[job.IdempotencyKey] = job
	}
	return nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.Job) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.Jobs[job.ID] = job
	return nil
}

func (m *MockJobRepository) UpdateProgress(ctx context.Context, jobID string, processed, total int) error {
	m.Progress = append(m.Progress, [2]int{processed, total})
	if job, ok := m.Jobs[jobID]; ok {
		job.ProcessedCount = processed
		job.TotalRecords = total
	}
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	return m.Jobs[id], nil
}

func (m *MockJobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	return m.IdempotencyJobs[key], nil
}

func (m *MockJobRepository) GetPendingJobs(ctx context.Context) ([]*models.Job, error) {
	var pending []*models.Job
	for _, job := range m.Jobs {
		if job.Status == models.JobStatusPending {
			pending = append(pending, job)
		}
	}
	return pending, nil
}

func (m *MockJobRepository) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	job, exists := m.Jobs[jobID]
	if !exists || job.Status != models.JobStatusPending {
		return false, nil
	}
	job.Status = models.JobStatusProcessing
	return true, nil
}

func (m *MockJobRepository) AddErrors(ctx context.Context, jobID string, errors []models.ValidationError) error {
	m.Errors[jobID] = append(m.Errors[jobID], errors...)
	return nil
}

func (m *MockJobRepository) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error) {
	errors := m.Errors[jobID]
	if limit > 0 && len(errors) > limit {
		return errors[:limit], nil
	}
	return errors, nil
}

// MockChangelogRepository is a mock implementation of ChangelogRepository
type MockChangelogRepository struct {
	mu          sync.Mutex
	Entries     []*models.AuditEntry
	RecordError error
	ClearCalls  int
}

func NewMockChangelogRepository() *MockChangelogRepository {
	return &MockChangelogRepository{}
}

func (m *MockChangelogRepository) Record(ctx context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordError != nil {
		return m.RecordError
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

// Snapshot returns a copy of the recorded entries, oldest first
func (m *MockChangelogRepository) Snapshot() []*models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Entries)
}

func (m *MockChangelogRepository) List(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.Entries)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockChangelogRepository) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	m.Entries = nil
	return nil
}

// MockRoleRepository is a mock implementation of RoleRepository
type MockRoleRepository struct {
	Admins []string
	Roles  map[string]models.LOBRoles
}

func NewMockRoleRepository() *MockRoleRepository {
	return &MockRoleRepository{
		Roles: make(map[string]models.LOBRoles),
	}
}

func (m *MockRoleRepository) ListAdmins(ctx context.Context) ([]string, error) {
	return slices.Clone(m.Admins), nil
}

func (m *MockRoleRepository) IsAdmin(ctx context.Context, email string) (bool, error) {
	return slices.Contains(m.Admins, email), nil
}

func (m *MockRoleRepository) ReplaceAdmins(ctx context.Context, emails []string) error {
	m.Admins = slices.Clone(emails)
	return nil
}

func (m *MockRoleRepository) AddAdmins(ctx context.Context, emails []string) (int, error) {
	added := 0
	for _, e := range emails {
		if !slices.Contains(m.Admins, e) {
			m.Admins = append(m.Admins, e)
			added++
		}
	}
	return added, nil
}

func (m *MockRoleRepository) ListRoles(ctx context.Context) ([]models.LOBRoles, error) {
	out := make([]models.LOBRoles, 0, len(m.Roles))
	for _, lr := range m.Roles {
		out = append(out, lr)
	}
	slices.SortFunc(out, func(a, b models.LOBRoles) int {
		switch {
		case a.LOB < b.LOB:
			return -1
		case a.LOB > b.LOB:
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *MockRoleRepository) SaveRoles(ctx context.Context, roles models.LOBRoles) error {
	m.Roles[roles.LOB] = roles
	return nil
}

// MockLockRepository is a mock implementation of LockRepository
type MockLockRepository struct {
	mu    sync.Mutex
	Locks map[string]bool
}

func NewMockLockRepository() *MockLockRepository {
	return &MockLockRepository{Locks: make(map[string]bool)}
}

func (m *MockLockRepository) IsLocked(ctx context.Context, lob string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Locks[lob], nil
}

func (m *MockLockRepository) ListLocks(ctx context.Context) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.Locks))
	for k, v := range m.Locks {
		out[k] = v
	}
	return out, nil
}

func (m *MockLockRepository) SetLock(ctx context.Context, lob string, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locks[lob] = locked
	return nil
}

func (m *MockLockRepository) UnlockAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.Locks {
		m.Locks[k] = false
	}
	return nil
}
