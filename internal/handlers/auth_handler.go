package handlers

import (
	"net/http"

	"org-dashboard/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{
		auth:  auth,
		users: users,
	}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type passwordResetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	RedirectURL string `json:"redirect_url" validate:"omitempty,url"`
}

type passwordResetConfirmRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=71"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type passwordUpdateRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=71"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// Session returns the signed in user.
func (h *AuthHandler) Session(e *core.RequestEvent) error {
	user := CurrentUser(e)
	if user == nil {
		return apis.NewUnauthorizedError("The request requires a signed in user.", nil)
	}

	profile, err := h.users.GetUser(e.Request.Context(), user.Id)
	if err != nil {
		return apiError(e, err, "Failed to load the session user.")
	}
	return e.JSON(http.StatusOK, map[string]any{"user": profile})
}

func (h *AuthHandler) SignIn(e *core.RequestEvent) error {
	req := signInRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	rec, err := h.auth.SignIn(e.Request.Context(), req.Email, req.Password)
	if err != nil {
		return apis.NewBadRequestError("Failed to authenticate.", nil)
	}
	return apis.RecordAuthResponse(e, rec, "password", nil)
}

func (h *AuthHandler) SignOut(e *core.RequestEvent) error {
	user := CurrentUser(e)
	if user == nil {
		return apis.NewUnauthorizedError("The request requires a signed in user.", nil)
	}

	if err := h.auth.SignOut(e.Request.Context(), user); err != nil {
		return apiError(e, err, "Failed to sign out.")
	}
	return noContent(e)
}

// RequestPasswordReset always answers 204 for well formed requests so the
// response does not reveal whether the email is registered.
func (h *AuthHandler) RequestPasswordReset(e *core.RequestEvent) error {
	req := passwordResetRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	if err := h.auth.RequestPasswordReset(e.Request.Context(), req.Email, req.RedirectURL); err != nil {
		return apiError(e, err, "Failed to send the password reset email.")
	}
	return noContent(e)
}

func (h *AuthHandler) ConfirmPasswordReset(e *core.RequestEvent) error {
	req := passwordResetConfirmRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	if err := h.auth.ConfirmPasswordReset(e.Request.Context(), req.Token, req.Password); err != nil {
		return apiError(e, err, "Failed to reset the password.")
	}
	return noContent(e)
}

// UpdatePassword changes the caller's password and returns a fresh auth
// response, since the old token no longer validates.
func (h *AuthHandler) UpdatePassword(e *core.RequestEvent) error {
	user := CurrentUser(e)
	if user == nil {
		return apis.NewUnauthorizedError("The request requires a signed in user.", nil)
	}

	req := passwordUpdateRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	if err := h.auth.UpdatePassword(e.Request.Context(), user, req.Password); err != nil {
		return apiError(e, err, "Failed to update the password.")
	}
	return apis.RecordAuthResponse(e, user, "password", nil)
}
