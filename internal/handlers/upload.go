package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
	"github.com/pocketbase/pocketbase/tools/router"
)

// uploadedFile returns the first multipart file sent under field, or nil when
// the field is absent. The file is read lazily from the parsed form, so large
// uploads stream to storage. Parse failures such as an exceeded body limit
// are returned as is.
func uploadedFile(e *core.RequestEvent, field string) (*filesystem.File, error) {
	files, err := e.FindUploadedFiles(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}

		var apiErr *router.ApiError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, apis.NewBadRequestError("Failed to read the uploaded file.", err)
	}
	return files[0], nil
}
