package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"org-dashboard/internal/gateway"
	"org-dashboard/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	SchedulesCollection   = "schedules"
	AttendancesCollection = "attendances"
)

type ScheduleService struct {
	gw       *gateway.Gateway
	notifier *Notifier
}

func NewScheduleService(gw *gateway.Gateway, notifier *Notifier) *ScheduleService {
	return &ScheduleService{
		gw:       gw,
		notifier: notifier,
	}
}

// ListSchedules returns every schedule ordered by date, earliest first.
func (s *ScheduleService) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	records, err := s.gw.FindAll(ctx, SchedulesCollection, nil)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	schedules := make([]models.Schedule, 0, len(records))
	for _, rec := range records {
		schedules = append(schedules, recordToSchedule(rec))
	}
	sort.SliceStable(schedules, func(i, j int) bool {
		return schedules[i].Date.Before(schedules[j].Date)
	})

	return schedules, nil
}

func (s *ScheduleService) GetSchedule(ctx context.Context, id string) (models.Schedule, error) {
	rec, err := s.gw.FindByID(ctx, SchedulesCollection, id)
	if err != nil {
		if gateway.IsNotFound(err) {
			return models.Schedule{}, ErrScheduleNotFound
		}
		return models.Schedule{}, fmt.Errorf("get schedule: %w", err)
	}
	return recordToSchedule(rec), nil
}

func (s *ScheduleService) CreateSchedule(ctx context.Context, date time.Time, place, content, ownerID string) (models.Schedule, error) {
	if ownerID == "" {
		return models.Schedule{}, ErrOwnerRequired
	}

	rec, err := s.gw.NewRecord(SchedulesCollection)
	if err != nil {
		return models.Schedule{}, err
	}
	rec.Set("date", date)
	rec.Set("place", place)
	rec.Set("content", content)
	rec.Set("owner", ownerID)

	if err := s.gw.Save(ctx, rec); err != nil {
		return models.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}

	slog.Info("Schedule created", "scheduleID", rec.Id, "ownerID", ownerID)
	s.notifier.SchedulesChanged("created", rec.Id)

	return recordToSchedule(rec), nil
}

// UpdateSchedule overwrites date, place and content of an existing schedule.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, id string, date time.Time, place, content string) (models.Schedule, error) {
	rec, err := s.gw.FindByID(ctx, SchedulesCollection, id)
	if err != nil {
		if gateway.IsNotFound(err) {
			return models.Schedule{}, ErrScheduleNotFound
		}
		return models.Schedule{}, fmt.Errorf("update schedule: %w", err)
	}

	rec.Set("date", date)
	rec.Set("place", place)
	rec.Set("content", content)

	if err := s.gw.Save(ctx, rec); err != nil {
		return models.Schedule{}, fmt.Errorf("update schedule: %w", err)
	}

	slog.Info("Schedule updated", "scheduleID", id)
	s.notifier.SchedulesChanged("updated", id)

	return recordToSchedule(rec), nil
}

// DeleteSchedule removes the attendance rows of the schedule and then the
// schedule itself, in one transaction.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id string) error {
	removed := 0

	err := s.gw.RunInTransaction("delete", SchedulesCollection, func(txApp core.App) error {
		schedule, err := txApp.FindRecordById(SchedulesCollection, id)
		if err != nil {
			if gateway.IsNotFound(err) {
				return ErrScheduleNotFound
			}
			return err
		}

		attendances, err := txApp.FindAllRecords(AttendancesCollection, dbx.HashExp{"schedule": id})
		if err != nil {
			return fmt.Errorf("find attendances: %w", err)
		}
		for _, a := range attendances {
			if err := txApp.DeleteWithContext(ctx, a); err != nil {
				return fmt.Errorf("delete attendance %s: %w", a.Id, err)
			}
		}
		removed = len(attendances)

		return txApp.DeleteWithContext(ctx, schedule)
	})
	if err != nil {
		return err
	}

	slog.Info("Schedule deleted", "scheduleID", id, "attendancesRemoved", removed)
	s.notifier.SchedulesChanged("deleted", id)

	return nil
}

// SetAttendance records the user's answer for a schedule. The row keyed by
// (schedule, user) is updated when present and inserted otherwise; the
// unique index on that pair keeps concurrent calls from producing
// duplicates.
func (s *ScheduleService) SetAttendance(ctx context.Context, scheduleID, userID string, status models.AttendanceStatus) (models.Attendance, error) {
	if !status.Valid() {
		return models.Attendance{}, ErrInvalidStatus
	}
	if userID == "" {
		return models.Attendance{}, ErrOwnerRequired
	}

	var saved *core.Record

	err := s.gw.RunInTransaction("upsert", AttendancesCollection, func(txApp core.App) error {
		if _, err := txApp.FindRecordById(SchedulesCollection, scheduleID); err != nil {
			if gateway.IsNotFound(err) {
				return ErrScheduleNotFound
			}
			return err
		}

		rec := &core.Record{}
		err := txApp.RecordQuery(AttendancesCollection).
			WithContext(ctx).
			AndWhere(gateway.Where().Eq("schedule", scheduleID).Eq("user", userID).Expr()).
			Limit(1).
			One(rec)
		switch {
		case err == nil:
		case gateway.IsNotFound(err):
			collection, err := txApp.FindCachedCollectionByNameOrId(AttendancesCollection)
			if err != nil {
				return err
			}
			rec = core.NewRecord(collection)
			rec.Set("schedule", scheduleID)
			rec.Set("user", userID)
		default:
			return fmt.Errorf("find attendance: %w", err)
		}

		rec.Set("status", int(status))
		if err := txApp.SaveWithContext(ctx, rec); err != nil {
			return fmt.Errorf("save attendance: %w", err)
		}
		saved = rec
		return nil
	})
	if err != nil {
		return models.Attendance{}, err
	}

	s.gw.Monitor.TrackAttendance(status.String())
	slog.Info("Attendance set", "scheduleID", scheduleID, "userID", userID, "status", status.String())
	s.notifier.SchedulesChanged("attendance", scheduleID)

	return recordToAttendance(saved), nil
}

// FetchParticipants lists the users attending a schedule, earliest answer
// first.
func (s *ScheduleService) FetchParticipants(ctx context.Context, scheduleID string) ([]models.Participant, error) {
	rows := []struct {
		UserID  string         `db:"user_id"`
		Name    string         `db:"name"`
		Created types.DateTime `db:"created"`
	}{}

	started := time.Now()
	err := s.gw.App.DB().NewQuery(`
		SELECT [[a.user]] AS user_id, [[u.name]] AS name, [[a.created]] AS created
		FROM {{attendances}} a
		INNER JOIN {{users}} u ON [[u.id]] = [[a.user]]
		WHERE [[a.schedule]] = {:schedule} AND [[a.status]] = {:status}
		ORDER BY [[a.created]] ASC, [[a.id]] ASC
	`).Bind(dbx.Params{
		"schedule": scheduleID,
		"status":   int(models.AttendanceAttending),
	}).WithContext(ctx).All(&rows)
	s.gw.Monitor.TrackGatewayOperation("participants", AttendancesCollection, started, err)
	if err != nil {
		return nil, fmt.Errorf("fetch participants: %w", err)
	}

	participants := make([]models.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, models.Participant{
			UserID: row.UserID,
			Name:   row.Name,
			Since:  row.Created.Time(),
		})
	}
	return participants, nil
}

// AttendanceByUser maps schedule ids to the user's stored answer. Schedules
// the user never answered are absent, i.e. Unset.
func (s *ScheduleService) AttendanceByUser(ctx context.Context, userID string) (map[string]models.AttendanceStatus, error) {
	result := map[string]models.AttendanceStatus{}
	if userID == "" {
		return result, nil
	}

	records, err := s.gw.FindAll(ctx, AttendancesCollection, gateway.Where().Eq("user", userID))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	for _, rec := range records {
		result[rec.GetString("schedule")] = models.AttendanceStatus(rec.GetInt("status"))
	}
	return result, nil
}

// AttendanceFor returns one user's answer for one schedule.
func (s *ScheduleService) AttendanceFor(ctx context.Context, scheduleID, userID string) (models.AttendanceStatus, error) {
	if userID == "" {
		return models.AttendanceUnset, nil
	}

	records, err := s.gw.FindAll(ctx, AttendancesCollection,
		gateway.Where().Eq("schedule", scheduleID).Eq("user", userID))
	if err != nil {
		return models.AttendanceUnset, fmt.Errorf("get attendance: %w", err)
	}
	if len(records) == 0 {
		return models.AttendanceUnset, nil
	}
	return models.AttendanceStatus(records[0].GetInt("status")), nil
}

func recordToSchedule(rec *core.Record) models.Schedule {
	return models.Schedule{
		ID:        rec.Id,
		Date:      rec.GetDateTime("date").Time(),
		Place:     rec.GetString("place"),
		Content:   rec.GetString("content"),
		OwnerID:   rec.GetString("owner"),
		CreatedAt: rec.GetDateTime("created").Time(),
	}
}

func recordToAttendance(rec *core.Record) models.Attendance {
	return models.Attendance{
		ID:         rec.Id,
		ScheduleID: rec.GetString("schedule"),
		UserID:     rec.GetString("user"),
		Status:     models.AttendanceStatus(rec.GetInt("status")),
		CreatedAt:  rec.GetDateTime("created").Time(),
		UpdatedAt:  rec.GetDateTime("updated").Time(),
	}
}
