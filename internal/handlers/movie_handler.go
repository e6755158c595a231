package handlers

import (
	"net/http"
	"strconv"

	"org-dashboard/internal/services"
	"org-dashboard/internal/validate"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type MovieHandler struct {
	movies *services.MovieService
}

func NewMovieHandler(movies *services.MovieService) *MovieHandler {
	return &MovieHandler{movies: movies}
}

type movieRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	SortNo      int    `json:"sort_no" validate:"min=0"`
}

func (h *MovieHandler) ListMovies(e *core.RequestEvent) error {
	page, perPage, keyword := listQuery(e)

	result, err := h.movies.ListMovies(e.Request.Context(), keyword, page, perPage)
	if err != nil {
		return apiError(e, err, "Failed to load movies.")
	}
	return e.JSON(http.StatusOK, result)
}

func (h *MovieHandler) GetMovie(e *core.RequestEvent) error {
	movie, err := h.movies.GetMovie(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return apiError(e, err, "Failed to load the movie.")
	}
	return e.JSON(http.StatusOK, movie)
}

// UploadMovie takes a multipart form with "file", an optional "thumbnail",
// "title", "description" and "sort_no".
func (h *MovieHandler) UploadMovie(e *core.RequestEvent) error {
	// Reading the files first parses the form and surfaces body limit
	// errors, which FormValue would swallow.
	video, err := uploadedFile(e, "file")
	if err != nil {
		return err
	}
	if video == nil {
		return apis.NewBadRequestError("Missing file.", nil)
	}
	thumbnail, err := uploadedFile(e, "thumbnail")
	if err != nil {
		return err
	}

	sortNo := 0
	if raw := e.Request.FormValue("sort_no"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apis.NewBadRequestError("sort_no must be a number.", nil)
		}
		sortNo = n
	}

	req := movieRequest{
		Title:       e.Request.FormValue("title"),
		Description: e.Request.FormValue("description"),
		SortNo:      sortNo,
	}
	if err := validate.Struct(req); err != nil {
		return apis.NewBadRequestError("Invalid request data.", err)
	}

	movie, err := h.movies.Upload(e.Request.Context(), CurrentUserID(e), services.MovieUpload{
		Title:       req.Title,
		Description: req.Description,
		SortNo:      req.SortNo,
		Video:       video,
		Thumbnail:   thumbnail,
	})
	if err != nil {
		return apiError(e, err, "Failed to upload the movie.")
	}
	return e.JSON(http.StatusCreated, movie)
}

func (h *MovieHandler) UpdateMovie(e *core.RequestEvent) error {
	req := movieRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	movie, err := h.movies.UpdateMovie(e.Request.Context(), e.Request.PathValue("id"), req.Title, req.Description, req.SortNo)
	if err != nil {
		return apiError(e, err, "Failed to update the movie.")
	}
	return e.JSON(http.StatusOK, movie)
}

func (h *MovieHandler) DeleteMovie(e *core.RequestEvent) error {
	if err := h.movies.DeleteMovie(e.Request.Context(), e.Request.PathValue("id")); err != nil {
		return apiError(e, err, "Failed to delete the movie.")
	}
	return noContent(e)
}

// SignedURL returns a time-limited URL of the video, or of the thumbnail with
// ?thumbnail=true.
func (h *MovieHandler) SignedURL(e *core.RequestEvent) error {
	thumbnail, _ := strconv.ParseBool(e.Request.URL.Query().Get("thumbnail"))

	u, err := h.movies.SignedURL(e.Request.Context(), e.Request.PathValue("id"), thumbnail)
	if err != nil {
		return apiError(e, err, "Failed to sign the movie url.")
	}
	return e.JSON(http.StatusOK, u)
}
