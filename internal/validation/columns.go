package validation

import (
	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/models"
)

type employeeColumn = csvcodec.Column[*models.Employee]

func strColumn(header string, get func(*models.Employee) *string) employeeColumn {
	return employeeColumn{Header: header, Value: func(e *models.Employee) string { return models.Str(get(e)) }}
}

// RosterColumns renders the nine import columns in BaseHeaders order
func RosterColumns() []employeeColumn {
	return []employeeColumn{
		{Header: "id", Value: func(e *models.Employee) string { return e.ID }},
		{Header: "name", Value: func(e *models.Employee) string { return e.Name }},
		{Header: "email", Value: func(e *models.Employee) string { return e.Email }},
		strColumn("designation", func(e *models.Employee) *string { return e.Designation }),
		strColumn("manager", func(e *models.Employee) *string { return e.Manager }),
		strColumn("department", func(e *models.Employee) *string { return e.Department }),
		strColumn("lineOfBusiness", func(e *models.Employee) *string { return e.LineOfBusiness }),
		strColumn("location", func(e *models.Employee) *string { return e.Location }),
		strColumn("city", func(e *models.Employee) *string { return e.City }),
	}
}

// BackupColumns renders the roster plus allocation provenance, matching
// RestoreHeaders.
func BackupColumns() []employeeColumn {
	return append(RosterColumns(),
		employeeColumn{Header: "modifierName", Value: (*models.Employee).ModifierName},
		employeeColumn{Header: "modifierEmail", Value: (*models.Employee).ModifierEmail},
		strColumn("reason", func(e *models.Employee) *string { return e.Reason }),
		strColumn("modifiedAt", func(e *models.Employee) *string { return e.ModifiedAt }),
	)
}

// ITAccessColumns renders the optional IT access request columns
func ITAccessColumns() []employeeColumn {
	boolColumn := func(header string, get func(*models.Employee) *bool) employeeColumn {
		return employeeColumn{Header: header, Value: func(e *models.Employee) string { return csvcodec.FormatBool(get(e)) }}
	}
	return []employeeColumn{
		boolColumn("internetAccess", func(e *models.Employee) *bool { return e.InternetAccess }),
		strColumn("requestedSitesToUnblock", func(e *models.Employee) *string { return e.RequestedSitesToUnblock }),
		boolColumn("externalEmailSending", func(e *models.Employee) *bool { return e.ExternalEmailSending }),
		strColumn("externalEmailRecipients", func(e *models.Employee) *string { return e.ExternalEmailRecipients }),
		boolColumn("workEmailMobile", func(e *models.Employee) *bool { return e.WorkEmailMobile }),
		boolColumn("vpnAccess", func(e *models.Employee) *bool { return e.VPNAccess }),
		strColumn("vpnType", func(e *models.Employee) *string { return e.VPNType }),
	}
}
