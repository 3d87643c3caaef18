package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
)

func TestQueue_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		actor   models.Actor
		locked  bool
		wantErr error
	}{
		{name: "unknown employee", id: "404", actor: admin, wantErr: service.ErrNotFound},
		{name: "other LOB", id: "r1", actor: opsHead, wantErr: service.ErrForbidden},
		{name: "no roles", id: "c1", actor: outsider, wantErr: service.ErrForbidden},
		{name: "locked LOB", id: "c1", actor: opsHead, locked: true, wantErr: service.ErrLocked},
		{name: "locked LOB for admin", id: "c1", actor: admin, locked: true, wantErr: service.ErrLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(t, 50)
			h.repos.Employees.Seed(
				employee("c1", "Chen Wei", "Centralized Operations"),
				employee("r1", "Bilal Ahmed", "Retail Banking"),
			)
			if tt.locked {
				h.repos.Locks.SetLock(context.Background(), "Centralized Operations", true)
			}

			reason := models.ReasonNotSelected
			_, err := h.services.Selection.Queue(context.Background(), tt.id, &reason, tt.actor)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestQueueAndFlush(t *testing.T) {
	h := newTestHarness(t, 50)
	h.repos.Employees.Seed(
		employee("c1", "Chen Wei", "Centralized Operations"),
		employee("c2", "Ayesha Khan", "Centralized Operations"),
		selected(employee("c3", "Dana Scott", "Centralized Operations"), "Branch support", "Someone"),
	)
	ctx := context.Background()

	notSelected := models.ReasonNotSelected
	reason := "  Critical system owner  "
	blank := "   "
	if _, err := h.services.Selection.Queue(ctx, "c1", &notSelected, opsHead); err != nil {
		t.Fatalf("Queue returned error: %v", err)
	}
	if _, err := h.services.Selection.Queue(ctx, "c2", &notSelected, opsHead); err != nil {
		t.Fatalf("Queue returned error: %v", err)
	}
	if _, err := h.services.Selection.Queue(ctx, "c2", &reason, opsHead); err != nil {
		t.Fatalf("Queue returned error: %v", err)
	}
	if _, err := h.services.Selection.Queue(ctx, "c3", &blank, opsHead); err != nil {
		t.Fatalf("Queue returned error: %v", err)
	}

	if len(h.repos.Employees.Applied()) != 0 {
		t.Fatal("Edits must be buffered until flushed")
	}

	// pending edits are visible before the flush
	list, err := h.services.Selection.ListEmployees(ctx, opsHead, "")
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(list) != 3 || models.Str(list[1].Reason) != "Critical system owner" || list[2].Reason != nil {
		t.Errorf("Expected pending edits overlaid, got %+v", list)
	}

	n, err := h.services.Selection.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 edits flushed, got %d", n)
	}
	applied := h.repos.Employees.Applied()
	if len(applied) != 1 || len(applied[0]) != 3 {
		t.Fatalf("Expected one batched write of 3 edits, got %v", applied)
	}

	c2, _ := h.repos.Employees.GetByID(ctx, "c2")
	if models.Str(c2.Reason) != "Critical system owner" || c2.ModifierEmail() != opsHead.Email {
		t.Errorf("Unexpected stored selection: %+v", c2)
	}
	c3, _ := h.repos.Employees.GetByID(ctx, "c3")
	if c3.Reason != nil || c3.Modifier != nil || c3.ModifiedAt != nil {
		t.Errorf("Deselect must clear provenance, got %+v", c3)
	}

	entries := h.repos.Changelog.Snapshot()
	want := []string{
		"Selected employee Chen Wei (c1@example.com)",
		`Updated reason for Ayesha Khan (c2@example.com) to "Critical system owner"`,
		"Deselected employee Dana Scott (c3@example.com)",
	}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d audit entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Details != w {
			t.Errorf("Entry %d: expected %q, got %q", i, w, entries[i].Details)
		}
		if entries[i].ActorEmail != opsHead.Email {
			t.Errorf("Entry %d: expected actor %s, got %s", i, opsHead.Email, entries[i].ActorEmail)
		}
	}
}

func TestFlush_DropsEditsForNewlyLockedLOB(t *testing.T) {
	h := newTestHarness(t, 50)
	h.repos.Employees.Seed(
		employee("c1", "Chen Wei", "Centralized Operations"),
		employee("r1", "Bilal Ahmed", "Retail Banking"),
	)
	ctx := context.Background()
	reason := models.ReasonNotSelected

	h.services.Selection.Queue(ctx, "c1", &reason, admin)
	h.services.Selection.Queue(ctx, "r1", &reason, admin)
	h.repos.Locks.SetLock(ctx, "Retail Banking", true)

	if _, err := h.services.Selection.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	applied := h.repos.Employees.Applied()
	if len(applied) != 1 || len(applied[0]) != 1 || applied[0][0].EmployeeID != "c1" {
		t.Errorf("Expected only the unlocked edit applied, got %v", applied)
	}
}

func TestFlush_FailureKeepsEdits(t *testing.T) {
	h := newTestHarness(t, 50)
	h.repos.Employees.Seed(employee("c1", "Chen Wei", "Centralized Operations"))
	h.repos.Employees.ApplySelectionsFunc = func(ctx context.Context, edits []models.SelectionEdit) error {
		return errors.New("deadlock detected")
	}
	ctx := context.Background()
	reason := models.ReasonNotSelected
	h.services.Selection.Queue(ctx, "c1", &reason, admin)

	if _, err := h.services.Selection.Flush(ctx); err == nil {
		t.Fatal("Expected Flush to fail")
	}
	if len(h.repos.Changelog.Snapshot()) != 0 {
		t.Error("Nothing may be audited for a failed flush")
	}

	h.repos.Employees.ApplySelectionsFunc = nil
	n, err := h.services.Selection.Flush(ctx)
	if err != nil || n != 1 {
		t.Errorf("Expected the edit to be retried, got n=%d err=%v", n, err)
	}
}

func TestClose_FlushesPendingEdits(t *testing.T) {
	h := newTestHarness(t, 50)
	h.repos.Employees.Seed(employee("c1", "Chen Wei", "Centralized Operations"))
	reason := models.ReasonNotSelected
	h.services.Selection.Queue(context.Background(), "c1", &reason, admin)

	if err := h.services.Selection.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if len(h.repos.Employees.Applied()) != 1 {
		t.Error("Expected pending edits written on close")
	}
}

func TestResetForGoLive(t *testing.T) {
	h := newTestHarness(t, 50)
	ctx := context.Background()
	h.repos.Employees.Seed(
		selected(employee("c1", "Chen Wei", "Centralized Operations"), "Owner", "X"),
		employee("c2", "Ayesha Khan", "Centralized Operations"),
	)
	h.repos.Locks.SetLock(ctx, "Centralized Operations", true)
	h.services.Audit.Record(ctx, admin, models.ActionLocked, "Centralized Operations")

	if err := h.services.Selection.ResetForGoLive(ctx, opsHead); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-admin, got %v", err)
	}

	if err := h.services.Selection.ResetForGoLive(ctx, admin); err != nil {
		t.Fatalf("ResetForGoLive returned error: %v", err)
	}

	c1, _ := h.repos.Employees.GetByID(ctx, "c1")
	if c1.Reason != nil || c1.Modifier != nil {
		t.Error("Expected selections cleared")
	}
	if locked, _ := h.repos.Locks.IsLocked(ctx, "Centralized Operations"); locked {
		t.Error("Expected all LOBs unlocked")
	}
	entries := h.repos.Changelog.Snapshot()
	if len(entries) != 1 || entries[0].Action != models.ActionResetForGoLive {
		t.Errorf("Expected only the reset entry after clearing, got %+v", entries)
	}
}
