package models

// MergedRow is the view model produced by the merge engine: one employee,
// one day, reconciled across local snapshot, remote API and the
// supervisor-confirmation overlay. It is recomputed on every query and never
// persisted.
type MergedRow struct {
	ID                  string   `json:"id"`
	EmployeeCode        string   `json:"employeeCode"`
	EmployeeName        string   `json:"employeeName"`
	OfficeName          string   `json:"officeName"`
	Date                string   `json:"date"` // YYYY-MM-DD
	Status              Status   `json:"status"`
	AbnormalItems       []string `json:"abnormalItems"`
	HasComment          bool     `json:"hasComment"`
	SupervisorConfirmed bool     `json:"supervisorConfirmed"`

	// RemoteID is the backend Record PK when the row came from the API
	// (nil when the record only exists locally or not at all).
	RemoteID *int64 `json:"recordId,omitempty"`

	// Local marks rows projected from the snapshot. Their derived fields
	// come from the snapshot items and must not be overwritten from remote
	// data.
	Local bool `json:"-"`

	// Matching keys carried through normalization; not for display.
	OfficeCode string `json:"-"`
	OfficeID   string `json:"-"`
	EmployeeID string `json:"-"`
}

// DetailItem is one checklist line of a record detail, with display fields
// resolved through the category dictionary.
type DetailItem struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Section  string `json:"section"`
	IsNormal bool   `json:"is_normal"`
	Value    string `json:"value,omitempty"`
}

// RecordDetail is the per-record drill-down the UI shows in the dialog.
type RecordDetail struct {
	Items        []DetailItem `json:"items"`
	Comment      string       `json:"comment"`
	EmployeeName string       `json:"employeeName,omitempty"`
	OfficeName   string       `json:"officeName,omitempty"`
	Date         string       `json:"date,omitempty"`
}

type Role string

const (
	RoleHQAdmin       Role = "hq_admin"
	RoleBranchManager Role = "branch_manager"
	RoleEmployee      Role = "employee"
)
