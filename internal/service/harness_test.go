package service_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kodevali/the300/internal/config"
	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/mocks"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
	"github.com/rs/zerolog"
)

// testdataPath returns the absolute path to a file in the testdata directory.
func testdataPath(t testing.TB, filename string) string {
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

// copyToTemp copies a testdata file somewhere ProcessImport may delete it
func copyToTemp(t *testing.T, filename string) string {
	t.Helper()
	data, err := os.ReadFile(testdataPath(t, filename))
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	path := filepath.Join(t.TempDir(), filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

type testHarness struct {
	services *service.Services
	repos    *mocks.RepoSet
	notifier *mocks.MockNotifier
	cfg      *config.Config
}

func newTestHarness(t *testing.T, batchSize int) *testHarness {
	t.Helper()

	repos := mocks.NewRepoSet()
	notifier := &mocks.MockNotifier{}

	cfg := &config.Config{
		Import: config.ImportConfig{
			BatchSize:     batchSize,
			MaxUploadSize: 20 * 1024 * 1024,
			UploadDir:     t.TempDir(),
			PollInterval:  time.Second,
			MaxWorkers:    1,
		},
		Edits: config.EditConfig{FlushDelay: time.Hour},
	}

	services := service.NewServices(repos.Repositories, cfg, metrics.New(), notifier, zerolog.Nop())
	t.Cleanup(func() { services.Selection.Close(context.Background()) })

	return &testHarness{
		services: services,
		repos:    repos,
		notifier: notifier,
		cfg:      cfg,
	}
}

var (
	admin    = models.Actor{Name: "Root Admin", Email: "root@example.com", Roles: []string{models.RoleAdmin}}
	opsHead  = models.Actor{Name: "Omar Siddiqui", Email: "omar.siddiqui@example.com", Roles: []string{models.RoleGroupHead}, LOBs: []string{"Centralized Operations"}}
	outsider = models.Actor{Name: "Nobody", Email: "nobody@example.com"}
)

func employee(id, name, lob string) *models.Employee {
	return &models.Employee{
		ID:             id,
		Name:           name,
		Email:          id + "@example.com",
		LineOfBusiness: models.StrPtr(lob),
		Department:     models.StrPtr("Engineering"),
	}
}

func selected(e *models.Employee, reason, modifier string) *models.Employee {
	e.Reason = models.StrPtr(reason)
	e.Modifier = &models.Modifier{Name: modifier, Email: "mod@example.com"}
	ts := "2024-05-01T10:00:00.000Z"
	e.ModifiedAt = &ts
	return e
}

func employees(n int) []*models.Employee {
	out := make([]*models.Employee, n)
	for i := range out {
		out[i] = employee(padInt(i, 4), "Employee "+padInt(i, 4), "Retail Banking")
	}
	return out
}

func padInt(i, width int) string {
	s := ""
	for n := i; n > 0; n /= 10 {
		s = string(rune('0'+n%10)) + s
	}
	for len(s) < width {
		s = "0" + s
	}
	return s
}
