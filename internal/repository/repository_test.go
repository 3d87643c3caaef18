package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/kodevali/the300/internal/models"
)

// fakeRow feeds values into Scan destinations the way database/sql would
type fakeRow struct {
	values []any
}

func (f fakeRow) Scan(dest ...any) error {
	if len(dest) != len(f.values) {
		return fmt.Errorf("expected %d destinations, got %d", len(f.values), len(dest))
	}
	for i, d := range dest {
		v := f.values[i]
		switch p := d.(type) {
		case *string:
			p2, _ := v.(string)
			*p = p2
		case **string:
			if v == nil {
				*p = nil
			} else {
				s := v.(string)
				*p = &s
			}
		case **bool:
			if v == nil {
				*p = nil
			} else {
				b := v.(bool)
				*p = &b
			}
		case *sql.NullString:
			if v == nil {
				*p = sql.NullString{}
			} else {
				*p = sql.NullString{String: v.(string), Valid: true}
			}
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func employeeRow(modifierName, modifierEmail any) fakeRow {
	return fakeRow{values: []any{
		"1", "Alice", "alice@example.com", "Dev", nil, "Eng",
		"Retail", "HQ", "Karachi",
		modifierName, modifierEmail, "Critical", "2024-05-01T10:00:00.000Z",
		true, nil, false, nil, nil, nil, "Split",
	}}
}

func TestScanEmployee(t *testing.T) {
	e, err := scanEmployee(employeeRow("Carol", "carol@example.com"))
	if err != nil {
		t.Fatalf("scanEmployee failed: %v", err)
	}

	if e.ID != "1" || e.Email != "alice@example.com" {
		t.Errorf("Unexpected identity: %s %s", e.ID, e.Email)
	}
	if e.Manager != nil {
		t.Errorf("Expected nil manager, got %q", *e.Manager)
	}
	if models.Str(e.LineOfBusiness) != "Retail" {
		t.Errorf("Expected LOB Retail, got %q", models.Str(e.LineOfBusiness))
	}
	if e.Modifier == nil || e.Modifier.Email != "carol@example.com" {
		t.Errorf("Expected modifier carol, got %+v", e.Modifier)
	}
	if e.InternetAccess == nil || !*e.InternetAccess {
		t.Error("Expected internet access true")
	}
	if e.ExternalEmailSending == nil || *e.ExternalEmailSending {
		t.Error("Expected external email sending false")
	}
	if e.VPNAccess != nil {
		t.Error("Expected vpn access absent")
	}
}

func TestScanEmployee_PartialModifierDropped(t *testing.T) {
	e, err := scanEmployee(employeeRow("Carol", nil))
	if err != nil {
		t.Fatalf("scanEmployee failed: %v", err)
	}
	if e.Modifier != nil {
		t.Errorf("Expected no modifier, got %+v", e.Modifier)
	}
}

func TestEmployeeArgs_MatchColumns(t *testing.T) {
	e := &models.Employee{
		ID:       "1",
		Name:     "Alice",
		Email:    "alice@example.com",
		Modifier: &models.Modifier{Name: "Carol", Email: "carol@example.com"},
		Reason:   models.StrPtr("Critical"),
	}

	args := employeeArgs(e)
	if len(args) != len(employeeColumns) {
		t.Fatalf("Expected %d args, got %d", len(employeeColumns), len(args))
	}

	byColumn := make(map[string]any, len(args))
	for i, c := range employeeColumns {
		byColumn[c] = args[i]
	}
	if byColumn["modifier_email"] != "carol@example.com" {
		t.Errorf("Expected modifier_email carol, got %v", byColumn["modifier_email"])
	}
	if r, ok := byColumn["reason"].(*string); !ok || *r != "Critical" {
		t.Errorf("Expected reason pointer, got %v", byColumn["reason"])
	}
}

func TestEmployeeArgs_NoModifier(t *testing.T) {
	args := employeeArgs(&models.Employee{ID: "1", Email: "a@example.com"})
	if args[9] != nil || args[10] != nil {
		t.Errorf("Expected NULL modifier columns, got %v %v", args[9], args[10])
	}
}

func TestUpsertFromStage(t *testing.T) {
	if !strings.Contains(upsertFromStage, "DISTINCT ON (id)") {
		t.Error("Expected batch dedupe on id")
	}
	if !strings.Contains(upsertFromStage, "ORDER BY id, seq DESC") {
		t.Error("Expected last occurrence to win")
	}
	for _, c := range mergeColumns {
		want := fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, employees.%s)", c, c, c)
		if !strings.Contains(upsertFromStage, want) {
			t.Errorf("Expected merge clause %q", want)
		}
	}
	if strings.Contains(upsertFromStage, "COALESCE(EXCLUDED.email") {
		t.Error("Expected email to be overwritten, not merged")
	}
}

func TestNullString(t *testing.T) {
	if nullString("").Valid {
		t.Error("Expected empty string to be NULL")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("Expected valid x, got %+v", ns)
	}
}
