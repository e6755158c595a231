package handlers

import (
	"net/http"
	"time"

	"org-dashboard/internal/calendar"
	"org-dashboard/internal/editor"
	"org-dashboard/internal/services"
	"org-dashboard/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type ScheduleHandler struct {
	schedules *services.ScheduleService
	loc       *time.Location
}

func NewScheduleHandler(schedules *services.ScheduleService, loc *time.Location) *ScheduleHandler {
	return &ScheduleHandler{
		schedules: schedules,
		loc:       loc,
	}
}

type attendanceRequest struct {
	Status models.AttendanceStatus `json:"status" validate:"oneof=1 2"`
}

// ScheduleDetail is the read-only view of one schedule.
type ScheduleDetail struct {
	Mode         string                  `json:"mode"`
	Entry        models.Schedule         `json:"entry"`
	Form         editor.Form             `json:"form"`
	Participants []models.Participant    `json:"participants"`
	Attendance   models.AttendanceStatus `json:"attendance"`
	Actions      []editor.Action         `json:"actions"`
}

// ListSchedules returns every schedule ordered by date.
func (h *ScheduleHandler) ListSchedules(e *core.RequestEvent) error {
	schedules, err := h.schedules.ListSchedules(e.Request.Context())
	if err != nil {
		return apiError(e, err, "Failed to load schedules.")
	}
	return e.JSON(http.StatusOK, schedules)
}

// CalendarEvents returns the schedules as calendar events for the caller.
func (h *ScheduleHandler) CalendarEvents(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	schedules, err := h.schedules.ListSchedules(ctx)
	if err != nil {
		return apiError(e, err, "Failed to load schedules.")
	}
	attendance, err := h.schedules.AttendanceByUser(ctx, CurrentUserID(e))
	if err != nil {
		return apiError(e, err, "Failed to load attendance.")
	}

	return e.JSON(http.StatusOK, calendar.BuildEvents(schedules, attendance, h.loc))
}

// Draft returns the create-mode editor state for ?date=YYYY-MM-DD.
func (h *ScheduleHandler) Draft(e *core.RequestEvent) error {
	date, err := time.ParseInLocation(editor.DateLayout, e.Request.URL.Query().Get("date"), h.loc)
	if err != nil {
		return apis.NewBadRequestError("date must be YYYY-MM-DD.", nil)
	}

	mode := calendar.DraftFor(date)
	return e.JSON(http.StatusOK, map[string]any{
		"mode": mode.Name(),
		"form": editor.Initial(mode, h.loc),
	})
}

func (h *ScheduleHandler) GetSchedule(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	entry, err := h.schedules.GetSchedule(ctx, e.Request.PathValue("id"))
	if err != nil {
		return apiError(e, err, "Failed to load the schedule.")
	}

	participants, err := h.schedules.FetchParticipants(ctx, entry.ID)
	if err != nil {
		return apiError(e, err, "Failed to load participants.")
	}
	attendance, err := h.schedules.AttendanceFor(ctx, entry.ID, CurrentUserID(e))
	if err != nil {
		return apiError(e, err, "Failed to load attendance.")
	}

	detail := calendar.Selected(entry)
	return e.JSON(http.StatusOK, ScheduleDetail{
		Mode:         detail.Name(),
		Entry:        entry,
		Form:         editor.Initial(detail, h.loc),
		Participants: participants,
		Attendance:   attendance,
		Actions:      detail.Actions(),
	})
}

func (h *ScheduleHandler) CreateSchedule(e *core.RequestEvent) error {
	form := editor.Form{}
	if err := e.BindBody(&form); err != nil {
		return apis.NewBadRequestError("Failed to read the request data.", err)
	}

	created, err := editor.Submit(e.Request.Context(), editor.Create{}, form, h.schedules, CurrentUserID(e), h.loc)
	if err != nil {
		return apiError(e, err, "Failed to create the schedule.")
	}
	return e.JSON(http.StatusCreated, created)
}

func (h *ScheduleHandler) UpdateSchedule(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	entry, err := h.schedules.GetSchedule(ctx, e.Request.PathValue("id"))
	if err != nil {
		return apiError(e, err, "Failed to load the schedule.")
	}

	form := editor.Initial(editor.Edit{Entry: entry}, h.loc)
	if err := e.BindBody(&form); err != nil {
		return apis.NewBadRequestError("Failed to read the request data.", err)
	}

	mode := calendar.Selected(entry).Settings()
	updated, err := editor.Submit(ctx, mode, form, h.schedules, CurrentUserID(e), h.loc)
	if err != nil {
		return apiError(e, err, "Failed to update the schedule.")
	}
	return e.JSON(http.StatusOK, updated)
}

func (h *ScheduleHandler) DeleteSchedule(e *core.RequestEvent) error {
	if err := h.schedules.DeleteSchedule(e.Request.Context(), e.Request.PathValue("id")); err != nil {
		return apiError(e, err, "Failed to delete the schedule.")
	}
	return noContent(e)
}

// SetAttendance records the caller's answer (1 attending, 2 not attending)
// and returns the refreshed participant list.
func (h *ScheduleHandler) SetAttendance(e *core.RequestEvent) error {
	req := attendanceRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	ctx := e.Request.Context()
	id := e.Request.PathValue("id")

	attendance, err := h.schedules.SetAttendance(ctx, id, CurrentUserID(e), req.Status)
	if err != nil {
		return apiError(e, err, "Failed to save attendance.")
	}
	participants, err := h.schedules.FetchParticipants(ctx, id)
	if err != nil {
		return apiError(e, err, "Failed to load participants.")
	}

	return e.JSON(http.StatusOK, map[string]any{
		"attendance":   attendance,
		"participants": participants,
	})
}

func (h *ScheduleHandler) Participants(e *core.RequestEvent) error {
	participants, err := h.schedules.FetchParticipants(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return apiError(e, err, "Failed to load participants.")
	}
	return e.JSON(http.StatusOK, participants)
}
