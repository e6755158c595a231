package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceStatus_Valid(t *testing.T) {
	tests := []struct {
		status AttendanceStatus
		valid  bool
		name   string
	}{
		{AttendanceUnset, false, "unset"},
		{AttendanceAttending, true, "attending"},
		{AttendanceNotAttending, true, "not_attending"},
		{AttendanceStatus(3), false, "unset"},
		{AttendanceStatus(-1), false, "unset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.name, tt.status.String())
		})
	}
}

func TestAttendance_StatusIsNumericOnTheWire(t *testing.T) {
	a := Attendance{
		ID:         "att-1",
		ScheduleID: "sch-1",
		UserID:     "user-1",
		Status:     AttendanceNotAttending,
		CreatedAt:  time.Now(),
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(2), raw["status"])
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name       string
		items      []string
		page       int
		perPage    int
		total      int
		totalPages int
	}{
		{"empty", nil, 1, 10, 0, 0},
		{"exact", []string{"a", "b"}, 1, 2, 4, 2},
		{"remainder", []string{"a"}, 3, 10, 21, 3},
		{"zero per page", []string{"a"}, 1, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(tt.items, tt.page, tt.perPage, tt.total)

			assert.NotNil(t, p.Items)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
			assert.Equal(t, tt.total, p.TotalItems)
			assert.Equal(t, tt.totalPages, p.TotalPages)
		})
	}
}

func TestNoticeFile_OmitsMissingURL(t *testing.T) {
	data, err := json.Marshal(NoticeFile{NoticeID: "n1", Path: "private/notice/n1/a.pdf", FileName: "a.pdf"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"url"`)
}
