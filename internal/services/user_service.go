package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"org-dashboard/internal/gateway"
	"org-dashboard/models"

	"github.com/pocketbase/pocketbase/core"
)

const (
	UsersCollection    = "users"
	GroupsCollection   = "groups"
	StatusesCollection = "statuses"

	birthdayLayout = "2006-01-02"
)

// UserInput carries the writable fields of a directory entry. An empty
// Password leaves the current password unchanged on update.
type UserInput struct {
	Name     string
	Email    string
	Password string
	Birthday string
	GroupID  string
	StatusID string
}

type UserService struct {
	gw *gateway.Gateway
}

func NewUserService(gw *gateway.Gateway) *UserService {
	return &UserService{gw: gw}
}

// ListUsers returns one page of users whose name contains keyword, newest
// first.
func (s *UserService) ListUsers(ctx context.Context, keyword string, page, perPage int) (models.Page[models.User], error) {
	p := s.gw.Pagination(page, perPage)
	filter := gateway.Where().Contains(keyword, "name")

	records, total, err := s.gw.FindPage(ctx, UsersCollection, filter, p, "created DESC", "id DESC")
	if err != nil {
		return models.Page[models.User]{}, fmt.Errorf("list users: %w", err)
	}

	users := make([]models.User, 0, len(records))
	for _, rec := range records {
		users = append(users, s.recordToUser(rec))
	}
	return models.NewPage(users, p.Page, p.PerPage, total), nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (models.User, error) {
	rec, err := s.findUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return s.recordToUser(rec), nil
}

func (s *UserService) CreateUser(ctx context.Context, in UserInput) (models.User, error) {
	rec, err := s.gw.NewRecord(UsersCollection)
	if err != nil {
		return models.User{}, err
	}

	if err := s.apply(rec, in); err != nil {
		return models.User{}, err
	}
	rec.SetPassword(in.Password)
	rec.SetVerified(true)

	if err := s.gw.Save(ctx, rec); err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.Info("User created", "userID", rec.Id)
	return s.recordToUser(rec), nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, in UserInput) (models.User, error) {
	rec, err := s.findUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if err := s.apply(rec, in); err != nil {
		return models.User{}, err
	}
	if in.Password != "" {
		rec.SetPassword(in.Password)
	}

	if err := s.gw.Save(ctx, rec); err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return s.recordToUser(rec), nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	rec, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.gw.Delete(ctx, rec); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	slog.Info("User deleted", "userID", id)
	return nil
}

// Groups lists the active groups by name.
func (s *UserService) Groups(ctx context.Context) ([]models.Group, error) {
	records, err := s.gw.FindAll(ctx, GroupsCollection, gateway.Where().Eq("active", true), "name ASC")
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	groups := make([]models.Group, 0, len(records))
	for _, rec := range records {
		groups = append(groups, models.Group{ID: rec.Id, Name: rec.GetString("name")})
	}
	return groups, nil
}

// Statuses lists the active statuses by name.
func (s *UserService) Statuses(ctx context.Context) ([]models.Status, error) {
	records, err := s.gw.FindAll(ctx, StatusesCollection, gateway.Where().Eq("active", true), "name ASC")
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}

	statuses := make([]models.Status, 0, len(records))
	for _, rec := range records {
		statuses = append(statuses, models.Status{ID: rec.Id, Name: rec.GetString("name")})
	}
	return statuses, nil
}

func (s *UserService) apply(rec *core.Record, in UserInput) error {
	rec.Set("name", in.Name)
	rec.SetEmail(in.Email)
	rec.Set("group", in.GroupID)
	rec.Set("status", in.StatusID)

	if in.Birthday == "" {
		rec.Set("birthday", "")
		return nil
	}

	birthday, err := time.ParseInLocation(birthdayLayout, in.Birthday, s.gw.Config.Location)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBirthday, err)
	}
	rec.Set("birthday", birthday)
	return nil
}

func (s *UserService) findUser(ctx context.Context, id string) (*core.Record, error) {
	rec, err := s.gw.FindByID(ctx, UsersCollection, id)
	if err != nil {
		if gateway.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return rec, nil
}

func (s *UserService) recordToUser(rec *core.Record) models.User {
	user := models.User{
		ID:        rec.Id,
		Name:      rec.GetString("name"),
		Email:     rec.Email(),
		GroupID:   rec.GetString("group"),
		StatusID:  rec.GetString("status"),
		CreatedAt: rec.GetDateTime("created").Time(),
	}
	if birthday := rec.GetDateTime("birthday"); !birthday.IsZero() {
		user.Birthday = birthday.Time().In(s.gw.Config.Location).Format(birthdayLayout)
	}
	return user
}
