package service_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
)

func TestTemplate(t *testing.T) {
	h := newTestHarness(t, 50)

	report := h.services.Export.Template()
	want := "id,name,email,designation,manager,department,lineOfBusiness,location,city\n" +
		"51,Jane Doe,jane.doe@example.com,Project Manager,David Lee,Engineering,Centralized Operations,FTC,Karachi"
	if report.Content != want {
		t.Errorf("Unexpected template:\n%s", report.Content)
	}
	if report.Filename != "user_template.csv" {
		t.Errorf("Unexpected filename %q", report.Filename)
	}
}

func TestBackup_RestoresToSameRoster(t *testing.T) {
	h := newTestHarness(t, 50)
	ctx := context.Background()
	tricky := selected(employee("1", "Khan, Ayesha", "Ops"), `Owner of "core"`, "Omar")
	tricky.Manager = models.StrPtr("line1\nline2")
	h.repos.Employees.Seed(tricky, employee("2", "Bilal", "Ops"))

	var buf bytes.Buffer
	n, err := h.services.Export.WriteBackup(ctx, &buf)
	if err != nil {
		t.Fatalf("WriteBackup returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}

	lines := strings.SplitN(buf.String(), "\n", 2)
	if lines[0] != "id,name,email,designation,manager,department,lineOfBusiness,location,city,modifierName,modifierEmail,reason,modifiedAt" {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if !strings.Contains(buf.String(), `"Khan, Ayesha"`) || !strings.Contains(buf.String(), `"Owner of ""core"""`) {
		t.Errorf("Expected quoted fields, got:\n%s", buf.String())
	}
	if strings.HasSuffix(buf.String(), "\n") {
		t.Error("Backup must not end with a newline")
	}

	if ok, _ := regexp.MatchString(`^the300_backup_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z\.csv$`, h.services.Export.BackupFilename()); !ok {
		t.Errorf("Unexpected backup filename %q", h.services.Export.BackupFilename())
	}
}

func TestLOBReport(t *testing.T) {
	h := newTestHarness(t, 50)
	h.repos.Employees.Seed(
		selected(employee("1", "Ayesha", "Ops"), "Critical, on-site", "Omar"),
		selected(employee("2", "Bilal", "Ops"), models.ReasonNotSelected, "Omar"),
		employee("3", "Chen", "Ops"),
		selected(employee("4", "Dana", "Retail"), "Support", "Sana"),
	)

	report, err := h.services.Export.LOBReport(context.Background(), "Ops")
	if err != nil {
		t.Fatalf("LOBReport returned error: %v", err)
	}
	want := "Name,Email,Designation,Manager,Department,Modifier,Reason\n" +
		`Ayesha,1@example.com,,,Engineering,Omar,"Critical, on-site"`
	if report.Content != want {
		t.Errorf("Unexpected report:\n%s", report.Content)
	}
	if report.Filename != "Ops_Allocation_Report.csv" {
		t.Errorf("Unexpected filename %q", report.Filename)
	}

	_, err = h.services.Export.LOBReport(context.Background(), "Empty")
	if !errors.Is(err, service.ErrNothingToExport) {
		t.Errorf("Expected ErrNothingToExport, got %v", err)
	}
}

func TestConsolidatedReport(t *testing.T) {
	h := newTestHarness(t, 50)
	ctx := context.Background()
	h.repos.Employees.Seed(
		selected(employee("1", "Ayesha", "Ops"), "Owner", "Omar"),
		selected(employee("2", "Bilal", "Ops"), models.ReasonNotSelected, "Omar"),
		employee("3", "Chen", "Ops"),
		selected(employee("4", "Dana", "Retail"), "Support", "Sana"),
	)

	if _, err := h.services.Export.ConsolidatedReport(ctx, ""); !errors.Is(err, service.ErrNothingToExport) {
		t.Errorf("Expected ErrNothingToExport with nothing locked, got %v", err)
	}

	h.repos.Locks.SetLock(ctx, "Ops", true)
	report, err := h.services.Export.ConsolidatedReport(ctx, "")
	if err != nil {
		t.Fatalf("ConsolidatedReport returned error: %v", err)
	}
	if report.Rows != 2 {
		t.Errorf("Expected 2 rows (reasoned employees of locked LOBs), got %d:\n%s", report.Rows, report.Content)
	}

	filtered, err := h.services.Export.ConsolidatedReport(ctx, "bil")
	if err != nil {
		t.Fatalf("ConsolidatedReport returned error: %v", err)
	}
	if filtered.Rows != 1 || !strings.Contains(filtered.Content, "Bilal") {
		t.Errorf("Expected the search to keep Bilal only, got:\n%s", filtered.Content)
	}
}

func TestSummaryReport(t *testing.T) {
	h := newTestHarness(t, 50)
	ctx := context.Background()
	h.repos.Employees.Seed(
		selected(employee("1", "Ayesha", "Ops"), "Owner", "Omar"),
		selected(employee("2", "Bilal", "Ops"), models.ReasonNotSelected, "Omar"),
		selected(employee("3", "Chen", "Ops"), "Owner", "Omar"),
		employee("4", "Dana", "Ops"),
		employee("5", "Eve", "Retail"),
	)
	h.repos.Roles.Roles["Ops"] = models.LOBRoles{LOB: "Ops", GroupHead: "1", Delegates: []string{"4", "5"}}
	h.repos.Locks.SetLock(ctx, "Ops", true)

	report, err := h.services.Export.SummaryReport(ctx)
	if err != nil {
		t.Fatalf("SummaryReport returned error: %v", err)
	}
	want := "Line of Business,Group Head,Delegates,Reasons,Office Users,LOB Strength,Status\n" +
		`Ops,Ayesha,"Dana, Eve",Owner (2); Not Specified (1),3,4,Locked` + "\n" +
		"Retail,Not Assigned,None,None,0,1,"
	if report.Content != want {
		t.Errorf("Unexpected summary:\n%s\nwant:\n%s", report.Content, want)
	}
	if report.Filename != "lob_allocation_summary.csv" {
		t.Errorf("Unexpected filename %q", report.Filename)
	}
}

func TestITAccessReport(t *testing.T) {
	h := newTestHarness(t, 50)
	e := selected(employee("1", "Ayesha", "Ops"), "Owner", "Omar")
	e.VPNAccess = models.BoolPtr(true)
	e.VPNType = models.StrPtr("Full tunnel")
	h.repos.Employees.Seed(e, employee("2", "Bilal", "Ops"))

	report, err := h.services.Export.ITAccessReport(context.Background())
	if err != nil {
		t.Fatalf("ITAccessReport returned error: %v", err)
	}
	want := "id,name,email,internetAccess,requestedSitesToUnblock,externalEmailSending,externalEmailRecipients,workEmailMobile,vpnAccess,vpnType\n" +
		"1,Ayesha,1@example.com,,,,,,true,Full tunnel"
	if report.Content != want {
		t.Errorf("Unexpected report:\n%s", report.Content)
	}
}
