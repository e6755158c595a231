package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"org-dashboard/internal/editor"
	"org-dashboard/internal/services"
	"org-dashboard/internal/validate"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
)

// apiError converts a service error into the HTTP error returned to the
// client. Unknown errors are logged and reported with message only.
func apiError(e *core.RequestEvent, err error, message string) error {
	var apiErr *router.ApiError
	var fieldErrs validation.Errors

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &fieldErrs):
		return apis.NewBadRequestError("Invalid request data.", fieldErrs)
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrScheduleNotFound):
		return apis.NewNotFoundError("The requested resource wasn't found.", nil)
	case errors.Is(err, services.ErrOwnerRequired):
		return apis.NewUnauthorizedError("The request requires a signed in user.", nil)
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidFile),
		errors.Is(err, services.ErrInvalidBirthday),
		errors.Is(err, services.ErrInvalidRedirect),
		errors.Is(err, services.ErrInvalidResetToken),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, editor.ErrReadOnly):
		return apis.NewBadRequestError(err.Error(), nil)
	}

	slog.Error(message,
		"method", e.Request.Method,
		"path", e.Request.URL.Path,
		"error", err,
	)
	return apis.NewBadRequestError(message, nil)
}

// bindBody reads the JSON body into dst and validates it.
func bindBody(e *core.RequestEvent, dst any) error {
	if err := e.BindBody(dst); err != nil {
		return apis.NewBadRequestError("Failed to read the request data.", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apis.NewBadRequestError("Invalid request data.", err)
	}
	return nil
}

// listQuery reads the page, per_page and q query parameters.
func listQuery(e *core.RequestEvent) (page, perPage int, keyword string) {
	q := e.Request.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	perPage, _ = strconv.Atoi(q.Get("per_page"))
	return page, perPage, q.Get("q")
}

func noContent(e *core.RequestEvent) error {
	return e.NoContent(http.StatusNoContent)
}
