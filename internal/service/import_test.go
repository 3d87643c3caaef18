package service_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
)

func TestImportRecords_Chunking(t *testing.T) {
	h := newTestHarness(t, 50)

	var progress [][2]int
	summary, err := h.services.Import.ImportRecords(context.Background(), employees(120), admin, func(imported, total int) {
		progress = append(progress, [2]int{imported, total})
	})
	if err != nil {
		t.Fatalf("ImportRecords returned error: %v", err)
	}

	if h.repos.Employees.UpsertCalls != 3 {
		t.Errorf("Expected 3 upsert calls, got %d", h.repos.Employees.UpsertCalls)
	}
	sizes := []int{50, 50, 20}
	for i, b := range h.repos.Employees.Batches {
		if len(b) != sizes[i] {
			t.Errorf("Batch %d: expected %d records, got %d", i+1, sizes[i], len(b))
		}
	}
	if summary.Imported != 120 || summary.Batches != 3 {
		t.Errorf("Expected 120 imported in 3 batches, got %+v", summary)
	}

	want := [][2]int{{50, 120}, {100, 120}, {120, 120}}
	if len(progress) != len(want) {
		t.Fatalf("Expected %d progress calls, got %d", len(want), len(progress))
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("Progress %d: expected %v, got %v", i, want[i], progress[i])
		}
	}

	entries := h.repos.Changelog.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("Expected one change log entry, got %d", len(entries))
	}
	if entries[0].Action != models.ActionCSVImport || entries[0].Details != "120 users have been imported/updated." {
		t.Errorf("Unexpected audit entry: %+v", entries[0])
	}
}

func TestImportRecords_StopsAtFailedBatch(t *testing.T) {
	h := newTestHarness(t, 50)
	dbErr := errors.New("connection reset")
	h.repos.Employees.UpsertManyFunc = func(ctx context.Context, batch []*models.Employee) error {
		if h.repos.Employees.UpsertCalls == 2 {
			return dbErr
		}
		return nil
	}

	summary, err := h.services.Import.ImportRecords(context.Background(), employees(120), admin, nil)

	var batchErr *service.BatchPersistenceError
	if !errors.As(err, &batchErr) {
		t.Fatalf("Expected BatchPersistenceError, got %v", err)
	}
	if batchErr.Batch != 2 || batchErr.Committed != 50 || batchErr.Total != 120 {
		t.Errorf("Unexpected batch error: %+v", batchErr)
	}
	if !errors.Is(err, dbErr) {
		t.Error("Expected the store error to be wrapped")
	}
	if h.repos.Employees.UpsertCalls != 2 {
		t.Errorf("Third batch must not be attempted, got %d calls", h.repos.Employees.UpsertCalls)
	}
	if summary == nil || summary.Imported != 50 {
		t.Errorf("Expected 50 committed records in summary, got %+v", summary)
	}
	if n, _ := h.repos.Employees.Count(context.Background()); n != 50 {
		t.Errorf("Expected first batch to stay committed, store has %d", n)
	}

	entries := h.repos.Changelog.Snapshot()
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Details, "Stopped after 50 of 120 records") {
		t.Errorf("Unexpected audit entries: %+v", entries)
	}
}

func TestImportRecords_Empty(t *testing.T) {
	h := newTestHarness(t, 50)

	summary, err := h.services.Import.ImportRecords(context.Background(), nil, admin, nil)
	if err != nil {
		t.Fatalf("ImportRecords returned error: %v", err)
	}
	if h.repos.Employees.UpsertCalls != 0 {
		t.Errorf("Expected no upsert calls, got %d", h.repos.Employees.UpsertCalls)
	}
	if summary.Imported != 0 {
		t.Errorf("Expected 0 imported, got %d", summary.Imported)
	}
}

func TestImportRecords_CancelledContext(t *testing.T) {
	h := newTestHarness(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.services.Import.ImportRecords(ctx, employees(30), admin, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if h.repos.Employees.UpsertCalls != 0 {
		t.Errorf("Expected no upsert calls, got %d", h.repos.Employees.UpsertCalls)
	}
}

func TestImportText_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		mode    models.JobType
		wantErr func(error) bool
	}{
		{
			name: "empty file",
			text: "  \n ",
			mode: models.JobTypeImport,
			wantErr: func(err error) bool {
				var e *csvcodec.EmptyHeaderError
				return errors.As(err, &e)
			},
		},
		{
			name: "missing columns",
			text: "id,name,email\n1,A,a@example.com",
			mode: models.JobTypeImport,
			wantErr: func(err error) bool {
				var e *csvcodec.MissingColumnsError
				return errors.As(err, &e) && strings.Contains(err.Error(), "designation, manager")
			},
		},
		{
			name: "row without email",
			text: "id,name,email,designation,manager,department,lineOfBusiness,location,city\n" +
				"1,A,a@example.com,,,,Ops,,\n2,B,,,,,Ops,,",
			mode: models.JobTypeImport,
			wantErr: func(err error) bool {
				var e *csvcodec.RowError
				return errors.As(err, &e) && e.Row == 3 && e.Field == "email"
			},
		},
		{
			name: "restore file without provenance",
			text: "id,name,email,designation,manager,department,lineOfBusiness,location,city\n1,A,a@example.com,,,,Ops,,",
			mode: models.JobTypeRestore,
			wantErr: func(err error) bool {
				var e *csvcodec.MissingColumnsError
				return errors.As(err, &e) && len(e.Missing) == 4
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(t, 50)
			h.repos.Employees.Seed(employee("9", "Existing", "Ops"))

			_, err := h.services.Import.ImportText(context.Background(), tt.text, tt.mode, admin, nil)
			if err == nil || !tt.wantErr(err) {
				t.Fatalf("Unexpected error: %v", err)
			}
			if h.repos.Employees.UpsertCalls != 0 {
				t.Errorf("Expected nothing written, got %d upsert calls", h.repos.Employees.UpsertCalls)
			}
			if h.repos.Employees.DeleteAllCalls != 0 {
				t.Error("Roster must not be cleared when the file is invalid")
			}
			if n, _ := h.repos.Employees.Count(context.Background()); n != 1 {
				t.Errorf("Expected existing roster untouched, got %d rows", n)
			}
		})
	}
}

func TestImportText_UpsertKeepsAbsentColumns(t *testing.T) {
	h := newTestHarness(t, 50)
	existing := employee("7", "Old Name", "Ops")
	existing.City = models.StrPtr("Karachi")
	h.repos.Employees.Seed(existing)

	text := "id,name,email,designation,manager,department,lineOfBusiness,location,city\n" +
		"7,New Name,7@example.com,Lead,,Engineering,Ops,FTC,"

	if _, err := h.services.Import.ImportText(context.Background(), text, models.JobTypeImport, admin, nil); err != nil {
		t.Fatalf("ImportText returned error: %v", err)
	}

	got, _ := h.repos.Employees.GetByID(context.Background(), "7")
	if got.Name != "New Name" {
		t.Errorf("Expected name to be replaced, got %q", got.Name)
	}
	if got.City == nil || *got.City != "" {
		t.Errorf("Expected present-but-empty city to be stored as empty, got %v", got.City)
	}
}

func TestRestore_ReplacesRoster(t *testing.T) {
	h := newTestHarness(t, 2)
	h.repos.Employees.Seed(employee("999", "Stale", "Ops"))

	raw, err := os.ReadFile(testdataPath(t, "roster_sample.csv"))
	if err != nil {
		t.Fatal(err)
	}

	summary, err := h.services.Import.ImportText(context.Background(), string(raw), models.JobTypeRestore, admin, nil)
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if summary.Imported != 4 || summary.Batches != 2 {
		t.Errorf("Expected 4 rows in 2 batches, got %+v", summary)
	}
	if h.repos.Employees.DeleteAllCalls != 1 {
		t.Errorf("Expected one DeleteAll call, got %d", h.repos.Employees.DeleteAllCalls)
	}
	if stale, _ := h.repos.Employees.GetByID(context.Background(), "999"); stale != nil {
		t.Error("Restore must remove rows missing from the backup")
	}

	e, _ := h.repos.Employees.GetByID(context.Background(), "101")
	if e.Modifier == nil || e.Modifier.Email != "omar.siddiqui@example.com" {
		t.Errorf("Expected modifier restored, got %+v", e.Modifier)
	}
	partial, _ := h.repos.Employees.GetByID(context.Background(), "103")
	if partial.Modifier != nil {
		t.Error("Modifier needs both name and email")
	}
	if models.Str(partial.Reason) != models.ReasonNotSelected {
		t.Errorf("Expected NOT_SELECTED reason, got %q", models.Str(partial.Reason))
	}

	entries := h.repos.Changelog.Snapshot()
	if len(entries) != 1 || entries[0].Action != models.ActionCSVRestore || entries[0].Details != "4 records have been restored." {
		t.Errorf("Unexpected audit entries: %+v", entries)
	}
}

func TestProcessImport_Job(t *testing.T) {
	h := newTestHarness(t, 3)
	path := copyToTemp(t, "roster_sample.csv")

	job, err := h.services.Import.CreateImportJob(context.Background(), &models.ImportRequest{
		Type:  models.JobTypeImport,
		Actor: admin,
	}, path)
	if err != nil {
		t.Fatalf("CreateImportJob returned error: %v", err)
	}
	if job.Status != models.JobStatusPending || job.Resource != models.ResourceEmployees {
		t.Errorf("Unexpected new job: %+v", job)
	}

	if err := h.services.Import.ProcessImport(context.Background(), job); err != nil {
		t.Fatalf("ProcessImport returned error: %v", err)
	}

	if job.Status != models.JobStatusCompleted {
		t.Errorf("Expected status completed, got %s", job.Status)
	}
	if job.TotalRecords != 4 || job.SuccessfulCount != 4 || job.FailedCount != 0 {
		t.Errorf("Unexpected counts: total=%d ok=%d failed=%d", job.TotalRecords, job.SuccessfulCount, job.FailedCount)
	}
	want := [][2]int{{3, 4}, {4, 4}}
	if len(h.repos.Jobs.Progress) != 2 || h.repos.Jobs.Progress[0] != want[0] || h.repos.Jobs.Progress[1] != want[1] {
		t.Errorf("Expected progress %v, got %v", want, h.repos.Jobs.Progress)
	}
	if job.CompletedAt == nil || job.StartedAt == nil {
		t.Error("Expected start and completion times")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected upload to be removed after processing")
	}
}

func TestProcessImport_FailedJobRecordsLine(t *testing.T) {
	h := newTestHarness(t, 50)
	path := copyToTemp(t, "roster_sample.csv")
	data, _ := os.ReadFile(path)
	os.WriteFile(path, []byte(strings.Replace(string(data), "bilal.ahmed@example.com", "", 1)), 0o600)

	job := &models.Job{
		ID:        "failing-job",
		Type:      models.JobTypeImport,
		Resource:  models.ResourceEmployees,
		Status:    models.JobStatusPending,
		FilePath:  path,
		CreatedAt: time.Now(),
	}
	h.repos.Jobs.Create(context.Background(), job)

	if err := h.services.Import.ProcessImport(context.Background(), job); err == nil {
		t.Fatal("Expected ProcessImport to fail")
	}

	if job.Status != models.JobStatusFailed {
		t.Errorf("Expected status failed, got %s", job.Status)
	}
	stored := h.repos.Jobs.Errors[job.ID]
	if len(stored) != 1 {
		t.Fatalf("Expected one stored error, got %d", len(stored))
	}
	if stored[0].Line != 3 || stored[0].Field != "email" {
		t.Errorf("Expected error on line 3 field email, got %+v", stored[0])
	}
	if h.repos.Employees.UpsertCalls != 0 {
		t.Error("Nothing may be written when a row is invalid")
	}

	resp, err := h.services.Job.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if resp.ErrorReport != "/v1/imports/failing-job/errors" || resp.ErrorCount != 1 {
		t.Errorf("Unexpected job response: %+v", resp)
	}
}
