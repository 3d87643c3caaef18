package validation

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/models"
)

func testdataPath(t *testing.T, filename string) string {
	t.Helper()
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(currentFile)))
	path := filepath.Join(projectRoot, "testdata", filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("testdata file not found: %s", path)
	}
	return path
}

func mapText(t *testing.T, text string, mode models.JobType) []*models.Employee {
	t.Helper()
	table, err := csvcodec.Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	result, err := MapRows(table, mode)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	return result.Employees
}

func assertSameEmployees(t *testing.T, want, got []*models.Employee) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d employees, got %d", len(want), len(got))
	}
	headers, fields := csvcodec.Split(BackupColumns())
	for i := range want {
		for j, f := range fields {
			if f(want[i]) != f(got[i]) {
				t.Errorf("Employee %d column %s: expected %q, got %q", i, headers[j], f(want[i]), f(got[i]))
			}
		}
	}
}

func TestBackupRoundTrip_SampleFile(t *testing.T) {
	raw, err := os.ReadFile(testdataPath(t, "roster_sample.csv"))
	if err != nil {
		t.Fatal(err)
	}
	text, err := csvcodec.DecodeText(raw)
	if err != nil {
		t.Fatal(err)
	}

	original := mapText(t, text, models.JobTypeRestore)
	if len(original) != 4 {
		t.Fatalf("Expected 4 employees in sample, got %d", len(original))
	}
	if models.Str(original[1].Manager) != "Rehman, Sana" {
		t.Errorf("Expected quoted manager, got %q", models.Str(original[1].Manager))
	}
	if original[2].Modifier != nil {
		t.Error("Expected partial modifier to be dropped")
	}
	if original[2].Designation == nil || *original[2].Designation != `Engineer "L2"` {
		t.Errorf("Expected escaped quotes decoded, got %v", original[2].Designation)
	}

	headers, fields := csvcodec.Split(BackupColumns())
	restored := mapText(t, csvcodec.Serialize(headers, original, fields), models.JobTypeRestore)

	assertSameEmployees(t, original, restored)
}

func TestRosterRoundTrip_Quoting(t *testing.T) {
	original := []*models.Employee{
		{
			ID:          "1",
			Name:        "Quote Person",
			Email:       "q@example.com",
			Designation: models.StrPtr(`he said ""hi"", bye`),
			Department:  models.StrPtr("a,b"),
		},
		{
			ID:    "2",
			Name:  "Plain",
			Email: "p@example.com",
			City:  models.StrPtr("Karachi"),
		},
	}

	headers, fields := csvcodec.Split(RosterColumns())
	restored := mapText(t, csvcodec.Serialize(headers, original, fields), models.JobTypeImport)

	if got := models.Str(restored[0].Designation); got != `he said ""hi"", bye` {
		t.Errorf("Expected embedded quotes preserved, got %q", got)
	}
	if got := models.Str(restored[0].Department); got != "a,b" {
		t.Errorf("Expected embedded comma preserved, got %q", got)
	}
	assertSameEmployees(t, original, restored)
}
