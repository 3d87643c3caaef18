package validation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/models"
)

func TestValidateHeaders(t *testing.T) {
	tests := []struct {
		name        string
		headers     []string
		required    []string
		wantMissing []string
	}{
		{
			name:     "all present",
			headers:  BaseHeaders,
			required: BaseHeaders,
		},
		{
			name:     "extra columns allowed",
			headers:  append(append([]string{}, BaseHeaders...), "vpnAccess"),
			required: BaseHeaders,
		},
		{
			name:        "single missing column",
			headers:     []string{"id", "name", "email"},
			required:    []string{"id", "name", "email", "department"},
			wantMissing: []string{"department"},
		},
		{
			name:        "missing reported in required order",
			headers:     []string{"city", "email"},
			required:    []string{"id", "email", "name", "city"},
			wantMissing: []string{"id", "name"},
		},
		{
			name:        "restore needs provenance",
			headers:     BaseHeaders,
			required:    RestoreHeaders(),
			wantMissing: ProvenanceHeaders,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm, err := ValidateHeaders(tt.headers, tt.required)

			if tt.wantMissing == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				if len(hm) == 0 {
					t.Error("Expected a populated header map")
				}
				return
			}

			var missingErr *csvcodec.MissingColumnsError
			if !errors.As(err, &missingErr) {
				t.Fatalf("Expected MissingColumnsError, got %v", err)
			}
			if !reflect.DeepEqual(missingErr.Missing, tt.wantMissing) {
				t.Errorf("Expected missing %v, got %v", tt.wantMissing, missingErr.Missing)
			}
		})
	}
}

func TestValidateHeaders_DuplicateLastWins(t *testing.T) {
	hm, err := ValidateHeaders([]string{"id", "email", "id"}, []string{"id"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if hm["id"] != 2 {
		t.Errorf("Expected id at index 2, got %d", hm["id"])
	}
}

func TestRequiredHeaders(t *testing.T) {
	if got := len(RequiredHeaders(models.JobTypeImport)); got != 9 {
		t.Errorf("Expected 9 import headers, got %d", got)
	}
	restore := RequiredHeaders(models.JobTypeRestore)
	if len(restore) != 13 {
		t.Errorf("Expected 13 restore headers, got %d", len(restore))
	}
	if restore[9] != "modifierName" || restore[12] != "modifiedAt" {
		t.Errorf("Unexpected restore header order: %v", restore)
	}
	// RestoreHeaders must not alias BaseHeaders
	if len(BaseHeaders) != 9 {
		t.Errorf("BaseHeaders modified: %v", BaseHeaders)
	}
}
