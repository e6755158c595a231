// Package calendar turns schedules into the events a month calendar renders.
package calendar

import (
	"sort"
	"time"

	"org-dashboard/internal/editor"
	"org-dashboard/models"
)

// Event is one calendar entry. Declined is set only when the viewer answered
// "not attending"; an unanswered schedule renders like an attended one.
type Event struct {
	ID         string                  `json:"id"`
	Title      string                  `json:"title"`
	Date       string                  `json:"date"`
	Start      time.Time               `json:"start"`
	Attendance models.AttendanceStatus `json:"attendance"`
	Declined   bool                    `json:"declined"`
}

// Title is the label shown on the calendar.
func Title(s models.Schedule) string {
	return s.Content + " @ " + s.Place
}

// BuildEvents returns one event per schedule ordered by start. attendance
// maps schedule ids to the viewer's answer; missing ids are Unset.
func BuildEvents(schedules []models.Schedule, attendance map[string]models.AttendanceStatus, loc *time.Location) []Event {
	if loc == nil {
		loc = time.UTC
	}

	events := make([]Event, 0, len(schedules))
	for _, s := range schedules {
		status := attendance[s.ID]
		events = append(events, Event{
			ID:         s.ID,
			Title:      Title(s),
			Date:       s.Date.In(loc).Format(editor.DateLayout),
			Start:      s.Date.In(loc),
			Attendance: status,
			Declined:   status == models.AttendanceNotAttending,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

// DraftFor is the editor a click on an empty day opens.
func DraftFor(date time.Time) editor.Create {
	return editor.Create{Date: date}
}

// Selected is the editor a click on an event opens.
func Selected(s models.Schedule) editor.Detail {
	return editor.Detail{Entry: s}
}
