package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
	"github.com/kodevali/the300/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	reasonNotSpecified = "Not Specified"
	notAssigned        = "Not Assigned"
	none               = "None"
)

var templateExample = &models.Employee{
	ID:             "51",
	Name:           "Jane Doe",
	Email:          "jane.doe@example.com",
	Designation:    models.StrPtr("Project Manager"),
	Manager:        models.StrPtr("David Lee"),
	Department:     models.StrPtr("Engineering"),
	LineOfBusiness: models.StrPtr("Centralized Operations"),
	Location:       models.StrPtr("FTC"),
	City:           models.StrPtr("Karachi"),
}

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos   *repository.Repositories
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, m *metrics.Metrics, log zerolog.Logger) *exportService {
	return &exportService{
		repos:   repos,
		metrics: m,
		log:     log.With().Str("service", "export").Logger(),
		now:     time.Now,
	}
}

// Template returns the import template with one example row
func (s *exportService) Template() *models.Report {
	headers, fields := csvcodec.Split(validation.RosterColumns())
	s.metrics.IncExport("template")
	return &models.Report{
		Filename: "user_template.csv",
		Content:  csvcodec.Serialize(headers, []*models.Employee{templateExample}, fields),
		Rows:     1,
	}
}

// BackupFilename names a backup taken now
func (s *exportService) BackupFilename() string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(models.FormatTimestamp(s.now()))
	return "the300_backup_" + ts + ".csv"
}

// WriteBackup streams every employee in restore-file layout to w
func (s *exportService) WriteBackup(ctx context.Context, w io.Writer) (int, error) {
	headers, fields := csvcodec.Split(validation.BackupColumns())
	rw := csvcodec.NewRecordWriter(w, headers, fields)

	err := s.repos.Employee.StreamAll(ctx, func(e *models.Employee) error {
		rw.Write(e)
		return nil
	})
	if err != nil {
		return rw.Count(), fmt.Errorf("failed to stream roster: %w", err)
	}
	if err := rw.Flush(); err != nil {
		return rw.Count(), err
	}

	s.metrics.IncExport("backup")
	s.log.Info().Int("count", rw.Count()).Msg("Backup export completed")
	return rw.Count(), nil
}

var lobReportColumns = []csvcodec.Column[*models.Employee]{
	{Header: "Name", Value: func(e *models.Employee) string { return e.Name }},
	{Header: "Email", Value: func(e *models.Employee) string { return e.Email }},
	{Header: "Designation", Value: func(e *models.Employee) string { return models.Str(e.Designation) }},
	{Header: "Manager", Value: func(e *models.Employee) string { return models.Str(e.Manager) }},
	{Header: "Department", Value: func(e *models.Employee) string { return models.Str(e.Department) }},
	{Header: "Modifier", Value: (*models.Employee).ModifierName},
	{Header: "Reason", Value: func(e *models.Employee) string { return models.Str(e.Reason) }},
}

// LOBReport lists the employees holding a seat in lob
func (s *exportService) LOBReport(ctx context.Context, lob string) (*models.Report, error) {
	employees, err := s.repos.Employee.ListByLOB(ctx, lob)
	if err != nil {
		return nil, err
	}

	var selected []*models.Employee
	for _, e := range employees {
		if e.IsSelected() {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: there are no selected employees to report for %s", ErrNothingToExport, lob)
	}

	headers, fields := csvcodec.Split(lobReportColumns)
	s.metrics.IncExport("lob_report")
	return &models.Report{
		Filename: lob + "_Allocation_Report.csv",
		Content:  csvcodec.Serialize(headers, selected, fields),
		Rows:     len(selected),
	}, nil
}

var consolidatedColumns = []csvcodec.Column[*models.Employee]{
	{Header: "Line of Business", Value: (*models.Employee).LOB},
	{Header: "Department", Value: func(e *models.Employee) string { return models.Str(e.Department) }},
	{Header: "Name", Value: func(e *models.Employee) string { return e.Name }},
	{Header: "Email", Value: func(e *models.Employee) string { return e.Email }},
	{Header: "Designation", Value: func(e *models.Employee) string { return models.Str(e.Designation) }},
	{Header: "Manager", Value: func(e *models.Employee) string { return models.Str(e.Manager) }},
	{Header: "Location", Value: func(e *models.Employee) string { return models.Str(e.Location) }},
	{Header: "Modifier", Value: (*models.Employee).ModifierName},
	{Header: "Reason", Value: func(e *models.Employee) string { return models.Str(e.Reason) }},
}

// ConsolidatedReport lists every employee with a reason in a locked LOB.
// q, when set, keeps rows whose name, LOB or department contains it.
func (s *exportService) ConsolidatedReport(ctx context.Context, q string) (*models.Report, error) {
	var (
		employees []*models.Employee
		locks     map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = s.repos.Employee.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		locks, err = s.repos.Lock.ListLocks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	q = strings.ToLower(strings.TrimSpace(q))
	var rows []*models.Employee
	for _, e := range employees {
		if models.Str(e.Reason) == "" || !locks[e.LOB()] {
			continue
		}
		if q != "" && !matches(q, e.Name, e.LOB(), models.Str(e.Department)) {
			continue
		}
		rows = append(rows, e)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no locked data to export", ErrNothingToExport)
	}

	headers, fields := csvcodec.Split(consolidatedColumns)
	s.metrics.IncExport("consolidated")
	return &models.Report{
		Filename: "consolidated_report.csv",
		Content:  csvcodec.Serialize(headers, rows, fields),
		Rows:     len(rows),
	}, nil
}

func matches(q string, values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// Summaries tallies every LOB found on the roster, sorted by name
func (s *exportService) Summaries(ctx context.Context) ([]models.LOBSummary, error) {
	var (
		employees   []*models.Employee
		assignments []models.LOBRoles
		locks       map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = s.repos.Employee.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		assignments, err = s.repos.Role.ListRoles(gctx)
		return err
	})
	g.Go(func() (err error) {
		locks, err = s.repos.Lock.ListLocks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarize(employees, assignments, locks), nil
}

func summarize(employees []*models.Employee, assignments []models.LOBRoles, locks map[string]bool) []models.LOBSummary {
	names := make(map[string]string, len(employees))
	byLOB := make(map[string][]*models.Employee)
	for _, e := range employees {
		names[e.ID] = e.Name
		if lob := e.LOB(); lob != "" {
			byLOB[lob] = append(byLOB[lob], e)
		}
	}
	roles := make(map[string]models.LOBRoles, len(assignments))
	for _, lr := range assignments {
		roles[lr.LOB] = lr
	}

	lobs := make([]string, 0, len(byLOB))
	for lob := range byLOB {
		lobs = append(lobs, lob)
	}
	slices.Sort(lobs)

	out := make([]models.LOBSummary, 0, len(lobs))
	for _, lob := range lobs {
		sum := models.LOBSummary{
			LOB:       lob,
			Strength:  len(byLOB[lob]),
			Locked:    locks[lob],
			Delegates: []string{},
			Reasons:   []models.ReasonCount{},
		}
		lr := roles[lob]
		if lr.GroupHead != "" {
			sum.GroupHead = names[lr.GroupHead]
		}
		for _, id := range lr.Delegates {
			if n, ok := names[id]; ok {
				sum.Delegates = append(sum.Delegates, n)
			}
		}

		index := make(map[string]int)
		for _, e := range byLOB[lob] {
			if e.Modifier == nil {
				continue
			}
			sum.OfficeUsers++
			reason := models.Str(e.Reason)
			if reason == "" || reason == models.ReasonNotSelected {
				reason = reasonNotSpecified
			}
			if i, ok := index[reason]; ok {
				sum.Reasons[i].Count++
				continue
			}
			index[reason] = len(sum.Reasons)
			sum.Reasons = append(sum.Reasons, models.ReasonCount{Reason: reason, Count: 1})
		}
		out = append(out, sum)
	}
	return out
}

var summaryColumns = []csvcodec.Column[models.LOBSummary]{
	{Header: "Line of Business", Value: func(s models.LOBSummary) string { return s.LOB }},
	{Header: "Group Head", Value: func(s models.LOBSummary) string { return orDefault(s.GroupHead, notAssigned) }},
	{Header: "Delegates", Value: func(s models.LOBSummary) string { return orDefault(strings.Join(s.Delegates, ", "), none) }},
	{Header: "Reasons", Value: formatReasons},
	{Header: "Office Users", Value: func(s models.LOBSummary) string { return strconv.Itoa(s.OfficeUsers) }},
	{Header: "LOB Strength", Value: func(s models.LOBSummary) string { return strconv.Itoa(s.Strength) }},
	{Header: "Status", Value: func(s models.LOBSummary) string {
		if s.Locked {
			return "Locked"
		}
		return ""
	}},
}

func formatReasons(s models.LOBSummary) string {
	parts := make([]string, len(s.Reasons))
	for i, rc := range s.Reasons {
		parts[i] = fmt.Sprintf("%s (%d)", rc.Reason, rc.Count)
	}
	return orDefault(strings.Join(parts, "; "), none)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// SummaryReport renders Summaries as CSV
func (s *exportService) SummaryReport(ctx context.Context) (*models.Report, error) {
	summaries, err := s.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	headers, fields := csvcodec.Split(summaryColumns)
	s.metrics.IncExport("summary")
	return &models.Report{
		Filename: "lob_allocation_summary.csv",
		Content:  csvcodec.Serialize(headers, summaries, fields),
		Rows:     len(summaries),
	}, nil
}

// ITAccessReport lists the IT access requests of selected employees
func (s *exportService) ITAccessReport(ctx context.Context) (*models.Report, error) {
	employees, err := s.repos.Employee.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var rows []*models.Employee
	for _, e := range employees {
		if e.IsSelected() {
			rows = append(rows, e)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: there are no selected employees", ErrNothingToExport)
	}

	cols := append(validation.RosterColumns()[:3], validation.ITAccessColumns()...)
	headers, fields := csvcodec.Split(cols)
	s.metrics.IncExport("it_access")
	return &models.Report{
		Filename: "it_access_requests.csv",
		Content:  csvcodec.Serialize(headers, rows, fields),
		Rows:     len(rows),
	}, nil
}
