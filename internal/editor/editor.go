// Package editor holds the schedule editor state machine. A dialog is in
// exactly one Mode: creating a schedule for a clicked date, editing an
// existing schedule, or showing it read-only with its actions.
package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"org-dashboard/internal/validate"
	"org-dashboard/models"
)

const (
	DateLayout  = "2006-01-02"
	TimeLayout  = "15:04"
	DefaultTime = "12:00"
)

var (
	ErrNothingToOpen = errors.New("editor needs a date or a schedule")
	ErrReadOnly      = errors.New("schedule detail is read only")
)

// Mode is one of Create, Edit or Detail.
type Mode interface {
	isMode()
	Name() string
}

// Create is a new schedule on Date.
type Create struct {
	Date time.Time
}

// Edit changes Entry.
type Edit struct {
	Entry models.Schedule
}

// Detail shows Entry with its actions.
type Detail struct {
	Entry models.Schedule
}

func (Create) isMode() {}
func (Edit) isMode()   {}
func (Detail) isMode() {}

func (Create) Name() string { return "create" }
func (Edit) Name() string   { return "edit" }
func (Detail) Name() string { return "detail" }

// Open picks the initial mode: a selected schedule opens its detail,
// otherwise a clicked date opens a new draft.
func Open(date *time.Time, entry *models.Schedule) (Mode, error) {
	switch {
	case entry != nil:
		return Detail{Entry: *entry}, nil
	case date != nil:
		return Create{Date: *date}, nil
	default:
		return nil, ErrNothingToOpen
	}
}

// Settings switches the detail view to editing.
func (d Detail) Settings() Edit {
	return Edit(d)
}

// Back returns from editing to the detail view.
func (e Edit) Back() Detail {
	return Detail(e)
}

// Action is something the caller can do from the detail view.
type Action string

const (
	ActionAttend   Action = "attend"
	ActionDecline  Action = "decline"
	ActionDelete   Action = "delete"
	ActionSettings Action = "settings"
)

func (Detail) Actions() []Action {
	return []Action{ActionAttend, ActionDecline, ActionDelete, ActionSettings}
}

// Form is the editor input as typed by the user.
type Form struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string `json:"time" validate:"omitempty,datetime=15:04"`
	Place   string `json:"place" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// Initial returns the form a mode starts with.
func Initial(mode Mode, loc *time.Location) Form {
	switch m := mode.(type) {
	case Create:
		return Form{Date: m.Date.In(loc).Format(DateLayout), Time: DefaultTime}
	case Edit:
		return fromEntry(m.Entry, loc)
	case Detail:
		return fromEntry(m.Entry, loc)
	default:
		return Form{Time: DefaultTime}
	}
}

func fromEntry(entry models.Schedule, loc *time.Location) Form {
	at := entry.Date.In(loc)
	return Form{
		Date:    at.Format(DateLayout),
		Time:    at.Format(TimeLayout),
		Place:   entry.Place,
		Content: entry.Content,
	}
}

// Validate checks the form fields.
func (f Form) Validate() error {
	return validate.Struct(f)
}

// DateTime composes the schedule instant from date and time in loc. An empty
// time means DefaultTime.
func (f Form) DateTime(loc *time.Location) (time.Time, error) {
	clock := f.Time
	if clock == "" {
		clock = DefaultTime
	}

	at, err := time.ParseInLocation(DateLayout+"T"+TimeLayout+":05", f.Date+"T"+clock+":00", loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule date: %w", err)
	}
	return at, nil
}

// Store persists schedules.
type Store interface {
	CreateSchedule(ctx context.Context, date time.Time, place, content, ownerID string) (models.Schedule, error)
	UpdateSchedule(ctx context.Context, id string, date time.Time, place, content string) (models.Schedule, error)
}

// Submit validates form and saves it according to mode.
func Submit(ctx context.Context, mode Mode, form Form, store Store, userID string, loc *time.Location) (models.Schedule, error) {
	if _, ok := mode.(Detail); ok {
		return models.Schedule{}, ErrReadOnly
	}

	if err := form.Validate(); err != nil {
		return models.Schedule{}, err
	}
	at, err := form.DateTime(loc)
	if err != nil {
		return models.Schedule{}, err
	}

	switch m := mode.(type) {
	case Create:
		return store.CreateSchedule(ctx, at, form.Place, form.Content, userID)
	case Edit:
		return store.UpdateSchedule(ctx, m.Entry.ID, at, form.Place, form.Content)
	default:
		return models.Schedule{}, ErrNothingToOpen
	}
}
