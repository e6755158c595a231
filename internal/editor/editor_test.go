package editor

import (
	"context"
	"testing"
	"time"

	"org-dashboard/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokyo = time.FixedZone("JST", 9*60*60)

type fakeStore struct {
	created []models.Schedule
	updated []models.Schedule
}

func (f *fakeStore) CreateSchedule(_ context.Context, date time.Time, place, content, ownerID string) (models.Schedule, error) {
	s := models.Schedule{ID: "new", Date: date, Place: place, Content: content, OwnerID: ownerID}
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeStore) UpdateSchedule(_ context.Context, id string, date time.Time, place, content string) (models.Schedule, error) {
	s := models.Schedule{ID: id, Date: date, Place: place, Content: content}
	f.updated = append(f.updated, s)
	return s, nil
}

func TestOpen(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, tokyo)
	entry := models.Schedule{ID: "s1"}

	t.Run("entry wins over date", func(t *testing.T) {
		mode, err := Open(&day, &entry)
		require.NoError(t, err)
		assert.Equal(t, Detail{Entry: entry}, mode)
	})

	t.Run("date only", func(t *testing.T) {
		mode, err := Open(&day, nil)
		require.NoError(t, err)
		assert.Equal(t, Create{Date: day}, mode)
	})

	t.Run("nothing", func(t *testing.T) {
		_, err := Open(nil, nil)
		assert.ErrorIs(t, err, ErrNothingToOpen)
	})
}

func TestDetailTransitions(t *testing.T) {
	d := Detail{Entry: models.Schedule{ID: "s1", Place: "Room A"}}

	edit := d.Settings()
	assert.Equal(t, "edit", edit.Name())
	assert.Equal(t, d.Entry, edit.Entry)
	assert.Equal(t, d, edit.Back())

	assert.Equal(t, []Action{ActionAttend, ActionDecline, ActionDelete, ActionSettings}, d.Actions())
}

func TestInitial(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, tokyo)
	assert.Equal(t, Form{Date: "2024-05-01", Time: "12:00"}, Initial(Create{Date: day}, tokyo))

	entry := models.Schedule{
		ID:      "s1",
		Date:    time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		Place:   "Room A",
		Content: "Standup",
	}
	assert.Equal(t, Form{Date: "2024-05-01", Time: "18:30", Place: "Room A", Content: "Standup"},
		Initial(Edit{Entry: entry}, tokyo))
}

func TestForm_DateTime(t *testing.T) {
	tests := []struct {
		name string
		form Form
		want time.Time
	}{
		{"explicit time", Form{Date: "2024-05-01", Time: "09:15"}, time.Date(2024, 5, 1, 9, 15, 0, 0, tokyo)},
		{"default noon", Form{Date: "2024-05-01"}, time.Date(2024, 5, 1, 12, 0, 0, 0, tokyo)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.form.DateTime(tokyo)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		form   Form
		fields []string
	}{
		{"valid", Form{Date: "2024-05-01", Time: "10:00", Place: "Room A", Content: "Standup"}, nil},
		{"missing everything", Form{}, []string{"date", "place", "content"}},
		{"bad date and time", Form{Date: "05/01/2024", Time: "10am", Place: "A", Content: "B"}, []string{"date", "time"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}

			var errs validation.Errors
			require.ErrorAs(t, err, &errs)
			for _, field := range tt.fields {
				assert.Contains(t, errs, field)
			}
			assert.Len(t, errs, len(tt.fields))
		})
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	form := Form{Date: "2024-05-01", Time: "10:00", Place: "Room A", Content: "Standup"}
	entry := models.Schedule{ID: "s1"}

	t.Run("create", func(t *testing.T) {
		store := &fakeStore{}
		got, err := Submit(ctx, Create{}, form, store, "u1", tokyo)
		require.NoError(t, err)
		require.Len(t, store.created, 1)
		assert.Equal(t, "u1", got.OwnerID)
		assert.True(t, time.Date(2024, 5, 1, 10, 0, 0, 0, tokyo).Equal(got.Date))
	})

	t.Run("edit", func(t *testing.T) {
		store := &fakeStore{}
		_, err := Submit(ctx, Edit{Entry: entry}, form, store, "u1", tokyo)
		require.NoError(t, err)
		require.Len(t, store.updated, 1)
		assert.Equal(t, "s1", store.updated[0].ID)
		assert.Empty(t, store.created)
	})

	t.Run("detail is read only", func(t *testing.T) {
		store := &fakeStore{}
		_, err := Submit(ctx, Detail{Entry: entry}, form, store, "u1", tokyo)
		assert.ErrorIs(t, err, ErrReadOnly)
		assert.Empty(t, store.created)
		assert.Empty(t, store.updated)
	})

	t.Run("invalid form is not saved", func(t *testing.T) {
		store := &fakeStore{}
		_, err := Submit(ctx, Create{}, Form{Date: "2024-05-01"}, store, "u1", tokyo)
		assert.Error(t, err)
		assert.Empty(t, store.created)
	})
}
