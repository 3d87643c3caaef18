package validation

import (
	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/models"
)

// BaseHeaders are the roster columns every import file must carry
var BaseHeaders = []string{
	"id", "name", "email", "designation", "manager",
	"department", "lineOfBusiness", "location", "city",
}

// ProvenanceHeaders are the extra columns a backup file carries
var ProvenanceHeaders = []string{"modifierName", "modifierEmail", "reason", "modifiedAt"}

// ITAccessHeaders are optional columns understood when present
var ITAccessHeaders = []string{
	"internetAccess", "requestedSitesToUnblock", "externalEmailSending",
	"externalEmailRecipients", "workEmailMobile", "vpnAccess", "vpnType",
}

// RestoreHeaders returns the 13 columns required to restore a backup
func RestoreHeaders() []string {
	h := make([]string, 0, len(BaseHeaders)+len(ProvenanceHeaders))
	h = append(h, BaseHeaders...)
	return append(h, ProvenanceHeaders...)
}

// RequiredHeaders returns the header set a file must satisfy for mode
func RequiredHeaders(mode models.JobType) []string {
	if mode == models.JobTypeRestore {
		return RestoreHeaders()
	}
	return BaseHeaders
}

// HeaderMap maps a column name to its position in the header line
type HeaderMap map[string]int

// Has reports whether the column was present in the file
func (hm HeaderMap) Has(name string) bool {
	_, ok := hm[name]
	return ok
}

// ValidateHeaders indexes headers and checks every required name is present.
// A duplicated header maps to its last position.
func ValidateHeaders(headers, required []string) (HeaderMap, error) {
	hm := make(HeaderMap, len(headers))
	for i, h := range headers {
		hm[h] = i
	}

	var missing []string
	for _, r := range required {
		if !hm.Has(r) {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, &csvcodec.MissingColumnsError{Missing: missing}
	}

	return hm, nil
}
