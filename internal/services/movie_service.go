package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"org-dashboard/internal/gateway"
	"org-dashboard/models"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
)

const (
	MoviesCollection = "movies"

	movieRoot         = "private/movie/"
	thumbnailFileName = "thumbnail.png"
)

// MovieUpload is a new library entry. The video keeps its original file name.
// Thumbnail is optional.
type MovieUpload struct {
	Title       string
	Description string
	SortNo      int
	Video       *filesystem.File
	Thumbnail   *filesystem.File
}

type MovieService struct {
	gw *gateway.Gateway
}

func NewMovieService(gw *gateway.Gateway) *MovieService {
	return &MovieService{gw: gw}
}

// ListMovies returns one page of movies whose title contains keyword, newest
// first.
func (s *MovieService) ListMovies(ctx context.Context, keyword string, page, perPage int) (models.Page[models.Movie], error) {
	p := s.gw.Pagination(page, perPage)
	filter := gateway.Where().Contains(keyword, "title")

	records, total, err := s.gw.FindPage(ctx, MoviesCollection, filter, p, "created DESC", "id DESC")
	if err != nil {
		return models.Page[models.Movie]{}, fmt.Errorf("list movies: %w", err)
	}

	if errs := s.gw.App.ExpandRecords(records, []string{"owner"}, nil); len(errs) > 0 {
		slog.Warn("Failed to expand movie owners", "errors", errs)
	}

	movies := make([]models.Movie, 0, len(records))
	for _, rec := range records {
		movies = append(movies, recordToMovie(rec))
	}
	return models.NewPage(movies, p.Page, p.PerPage, total), nil
}

func (s *MovieService) GetMovie(ctx context.Context, id string) (models.Movie, error) {
	rec, err := s.findMovie(ctx, id)
	if err != nil {
		return models.Movie{}, err
	}

	if errs := s.gw.App.ExpandRecords([]*core.Record{rec}, []string{"owner"}, nil); len(errs) > 0 {
		slog.Warn("Failed to expand movie owner", "movieID", id, "errors", errs)
	}
	return recordToMovie(rec), nil
}

// Upload stores the video and optional thumbnail under a fresh video id and
// records the movie. The row is written first so the sweeper never sees the
// folder of an upload in flight as orphaned.
func (s *MovieService) Upload(ctx context.Context, ownerID string, in MovieUpload) (models.Movie, error) {
	if ownerID == "" {
		return models.Movie{}, ErrOwnerRequired
	}
	if gateway.EmptyFile(in.Video) {
		return models.Movie{}, ErrInvalidFile
	}
	name := gateway.CleanFileName(in.Video.OriginalName)
	if name == "" {
		return models.Movie{}, ErrInvalidFile
	}

	dir := movieDir(ownerID, uuid.NewString())
	videoKey := dir + name
	thumbnailKey := ""
	if !gateway.EmptyFile(in.Thumbnail) {
		thumbnailKey = dir + thumbnailFileName
	}

	rec, err := s.gw.NewRecord(MoviesCollection)
	if err != nil {
		return models.Movie{}, err
	}
	rec.Set("title", in.Title)
	rec.Set("description", in.Description)
	rec.Set("sort_no", in.SortNo)
	rec.Set("path", videoKey)
	rec.Set("thumbnail_path", thumbnailKey)
	rec.Set("owner", ownerID)

	if err := s.gw.Save(ctx, rec); err != nil {
		return models.Movie{}, fmt.Errorf("create movie: %w", err)
	}

	if err := s.store(ctx, videoKey, in.Video, thumbnailKey, in.Thumbnail); err != nil {
		if rmErr := s.gw.Bucket.Remove(ctx, videoKey, thumbnailKey); rmErr != nil {
			slog.Error("Failed to clean up movie objects", "dir", dir, "error", rmErr)
		}
		if delErr := s.gw.Delete(ctx, rec); delErr != nil {
			slog.Error("Failed to roll back movie row", "movieID", rec.Id, "error", delErr)
		}
		return models.Movie{}, err
	}

	slog.Info("Movie uploaded", "movieID", rec.Id, "ownerID", ownerID, "key", videoKey, "bytes", in.Video.Size)
	return recordToMovie(rec), nil
}

func (s *MovieService) store(ctx context.Context, videoKey string, video *filesystem.File, thumbnailKey string, thumbnail *filesystem.File) error {
	if err := s.gw.Bucket.Upload(ctx, videoKey, video); err != nil {
		return fmt.Errorf("upload movie: %w", err)
	}
	if thumbnailKey == "" {
		return nil
	}
	if err := s.gw.Bucket.Upload(ctx, thumbnailKey, thumbnail); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}
	return nil
}

func (s *MovieService) UpdateMovie(ctx context.Context, id, title, description string, sortNo int) (models.Movie, error) {
	rec, err := s.findMovie(ctx, id)
	if err != nil {
		return models.Movie{}, err
	}

	rec.Set("title", title)
	rec.Set("description", description)
	rec.Set("sort_no", sortNo)

	if err := s.gw.Save(ctx, rec); err != nil {
		return models.Movie{}, fmt.Errorf("update movie: %w", err)
	}
	return recordToMovie(rec), nil
}

// DeleteMovie removes the video, the thumbnail and anything else left in the
// movie folder, then the row.
func (s *MovieService) DeleteMovie(ctx context.Context, id string) error {
	rec, err := s.findMovie(ctx, id)
	if err != nil {
		return err
	}

	if err := s.RemoveObjects(ctx, rec); err != nil {
		return err
	}

	if err := s.gw.Delete(ctx, rec); err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}

	slog.Info("Movie deleted", "movieID", id)
	return nil
}

// RemoveObjects deletes every stored object of the movie record.
func (s *MovieService) RemoveObjects(ctx context.Context, rec *core.Record) error {
	videoKey := rec.GetString("path")
	thumbnailKey := rec.GetString("thumbnail_path")
	removed := []string{videoKey}
	if thumbnailKey != "" {
		removed = append(removed, thumbnailKey)
	}

	if err := s.gw.Bucket.Remove(ctx, videoKey); err != nil {
		return fmt.Errorf("remove movie: %w", err)
	}
	if err := s.gw.Bucket.Remove(ctx, thumbnailKey); err != nil {
		return fmt.Errorf("remove thumbnail: %w", err)
	}

	if dir := folderOf(videoKey); dir != "" {
		leftovers, err := s.gw.Bucket.List(ctx, dir)
		if err != nil {
			return fmt.Errorf("list movie folder: %w", err)
		}
		if err := s.gw.Bucket.Remove(ctx, leftovers...); err != nil {
			return fmt.Errorf("remove movie folder: %w", err)
		}
		removed = append(removed, leftovers...)
	}

	s.gw.Signer.Forget(ctx, removed...)
	return nil
}

// SignedURL returns a time-limited URL for the video, or for the thumbnail
// when thumbnail is set.
func (s *MovieService) SignedURL(ctx context.Context, id string, thumbnail bool) (models.SignedURL, error) {
	rec, err := s.findMovie(ctx, id)
	if err != nil {
		return models.SignedURL{}, err
	}

	key := rec.GetString("path")
	if thumbnail {
		key = rec.GetString("thumbnail_path")
	}
	if key == "" {
		return models.SignedURL{}, ErrNotFound
	}

	return s.gw.Signer.SignedURL(ctx, key)
}

func (s *MovieService) findMovie(ctx context.Context, id string) (*core.Record, error) {
	rec, err := s.gw.FindByID(ctx, MoviesCollection, id)
	if err != nil {
		if gateway.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get movie: %w", err)
	}
	return rec, nil
}

func movieDir(ownerID, videoID string) string {
	return fmt.Sprintf("%s%s/%s/", movieRoot, ownerID, videoID)
}

// folderOf returns the private/movie/{user}/{video}/ folder of key, or "" if
// key is not shaped like a movie object.
func folderOf(key string) string {
	if !strings.HasPrefix(key, movieRoot) {
		return ""
	}
	parts := strings.Split(strings.TrimPrefix(key, movieRoot), "/")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return path.Join(movieRoot, parts[0], parts[1]) + "/"
}

func recordToMovie(rec *core.Record) models.Movie {
	movie := models.Movie{
		ID:            rec.Id,
		Title:         rec.GetString("title"),
		Description:   rec.GetString("description"),
		SortNo:        rec.GetInt("sort_no"),
		Path:          rec.GetString("path"),
		ThumbnailPath: rec.GetString("thumbnail_path"),
		OwnerID:       rec.GetString("owner"),
		CreatedAt:     rec.GetDateTime("created").Time(),
	}
	if owner := rec.ExpandedOne("owner"); owner != nil {
		movie.OwnerName = owner.GetString("name")
	}
	return movie
}
