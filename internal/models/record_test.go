package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	start := time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 17, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  CheckRecord
		want Status
	}{
		{"no timestamps", CheckRecord{}, StatusNotSubmitted},
		{"arrival only", CheckRecord{WorkStartTime: &start}, StatusArrived},
		{"both timestamps", CheckRecord{WorkStartTime: &start, WorkEndTime: &end}, StatusDeparted},
		{"day off wins", CheckRecord{WorkStartTime: &start, DayOff: true}, StatusDayOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.DeriveStatus())
		})
	}
}

func TestUpdateCalculatedFields(t *testing.T) {
	start := time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)

	rec := CheckRecord{
		ID:           RecordID("2025-08-01", "100002"),
		EmployeeCode: "100002",
		Date:         "2025-08-01",
		Status:       StatusDeparted, // stale, must be recomputed
	}
	rec.WorkStartTime = &start
	rec.UpdateCalculatedFields()

	assert.Equal(t, StatusArrived, rec.Status)
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "2025-08-01-100002", RecordID("2025-08-01", "100002"))
}

func TestIsValid(t *testing.T) {
	start := time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 17, 0, 0, 0, time.UTC)

	valid := CheckRecord{ID: "2025-08-01-100002", EmployeeCode: "100002", Date: "2025-08-01"}
	assert.True(t, valid.IsValid())

	assert.False(t, (&CheckRecord{EmployeeCode: "100002", Date: "2025-08-01"}).IsValid())

	endOnly := CheckRecord{ID: "x", EmployeeCode: "100002", Date: "2025-08-01", WorkEndTime: &end}
	assert.False(t, endOnly.IsValid())

	both := CheckRecord{ID: "x", EmployeeCode: "100002", Date: "2025-08-01", WorkStartTime: &start, WorkEndTime: &end}
	assert.True(t, both.IsValid())
}
