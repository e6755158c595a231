package handlers

import (
	"net/http"

	"org-dashboard/internal/services"

	"github.com/pocketbase/pocketbase/core"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=71"`
	Birthday string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	GroupID  string `json:"group_id"`
	StatusID string `json:"status_id"`
}

type updateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8,max=71"`
	Birthday string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	GroupID  string `json:"group_id"`
	StatusID string `json:"status_id"`
}

func (h *UserHandler) ListUsers(e *core.RequestEvent) error {
	page, perPage, keyword := listQuery(e)

	result, err := h.users.ListUsers(e.Request.Context(), keyword, page, perPage)
	if err != nil {
		return apiError(e, err, "Failed to load users.")
	}
	return e.JSON(http.StatusOK, result)
}

func (h *UserHandler) GetUser(e *core.RequestEvent) error {
	user, err := h.users.GetUser(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return apiError(e, err, "Failed to load the user.")
	}
	return e.JSON(http.StatusOK, user)
}

func (h *UserHandler) CreateUser(e *core.RequestEvent) error {
	req := createUserRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	user, err := h.users.CreateUser(e.Request.Context(), services.UserInput(req))
	if err != nil {
		return apiError(e, err, "Failed to create the user.")
	}
	return e.JSON(http.StatusCreated, user)
}

func (h *UserHandler) UpdateUser(e *core.RequestEvent) error {
	req := updateUserRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateUser(e.Request.Context(), e.Request.PathValue("id"), services.UserInput(req))
	if err != nil {
		return apiError(e, err, "Failed to update the user.")
	}
	return e.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(e *core.RequestEvent) error {
	if err := h.users.DeleteUser(e.Request.Context(), e.Request.PathValue("id")); err != nil {
		return apiError(e, err, "Failed to delete the user.")
	}
	return noContent(e)
}

func (h *UserHandler) ListGroups(e *core.RequestEvent) error {
	groups, err := h.users.Groups(e.Request.Context())
	if err != nil {
		return apiError(e, err, "Failed to load groups.")
	}
	return e.JSON(http.StatusOK, groups)
}

func (h *UserHandler) ListStatuses(e *core.RequestEvent) error {
	statuses, err := h.users.Statuses(e.Request.Context())
	if err != nil {
		return apiError(e, err, "Failed to load statuses.")
	}
	return e.JSON(http.StatusOK, statuses)
}
