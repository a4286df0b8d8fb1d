package models

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusNotSubmitted Status = "未入力"
	StatusArrived      Status = "出勤入力済"
	StatusDeparted     Status = "退勤入力済"
	StatusDayOff       Status = "休み"
)

// CheckRecord is one employee's hygiene record for one day.
type CheckRecord struct {
	ID            string     `json:"id"` // `${date}-${employeeCode}`
	EmployeeCode  string     `json:"employeeCode"`
	Date          string     `json:"date"` // YYYY-MM-DD
	WorkStartTime *time.Time `json:"work_start_time,omitempty"`
	WorkEndTime   *time.Time `json:"work_end_time,omitempty"`
	Status        Status     `json:"status"`
	Temperature   *float64   `json:"temperature,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	DayOff        bool       `json:"day_off,omitempty"`
}

// RecordID builds the composite key used across all stores.
func RecordID(dateISO, employeeCode string) string {
	return fmt.Sprintf("%s-%s", dateISO, employeeCode)
}

// DeriveStatus computes the status from the timestamps and off-flag. Status
// is never set independently of them.
func (r *CheckRecord) DeriveStatus() Status {
	if r.DayOff {
		return StatusDayOff
	}
	if r.WorkEndTime != nil && !r.WorkEndTime.IsZero() {
		return StatusDeparted
	}
	if r.WorkStartTime != nil && !r.WorkStartTime.IsZero() {
		return StatusArrived
	}
	return StatusNotSubmitted
}

// UpdateCalculatedFields keeps the stored status consistent with the
// timestamps before any persistence.
func (r *CheckRecord) UpdateCalculatedFields() {
	r.Status = r.DeriveStatus()
}

func (r *CheckRecord) IsValid() bool {
	if r.ID == "" {
		return false
	}
	if r.EmployeeCode == "" {
		return false
	}
	if r.Date == "" {
		return false
	}
	if r.WorkEndTime != nil && r.WorkStartTime == nil {
		return false
	}
	return true
}

// CheckItem is one checklist line inside a CheckRecord.
type CheckItem struct {
	RecordID string `json:"recordId"`
	Category string `json:"category"`
	IsNormal bool   `json:"is_normal"`
	Value    string `json:"value,omitempty"`
}
