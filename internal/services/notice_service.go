package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"org-dashboard/internal/gateway"
	"org-dashboard/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
)

const (
	NoticesCollection     = "notices"
	NoticeFilesCollection = "notice_files"
)

type NoticeService struct {
	gw *gateway.Gateway
}

func NewNoticeService(gw *gateway.Gateway) *NoticeService {
	return &NoticeService{gw: gw}
}

// ListNotices returns one page of notices whose title or content contains
// keyword, newest first.
func (s *NoticeService) ListNotices(ctx context.Context, keyword string, page, perPage int) (models.Page[models.Notice], error) {
	p := s.gw.Pagination(page, perPage)
	filter := gateway.Where().Contains(keyword, "title", "content")

	records, total, err := s.gw.FindPage(ctx, NoticesCollection, filter, p, "created DESC", "id DESC")
	if err != nil {
		return models.Page[models.Notice]{}, fmt.Errorf("list notices: %w", err)
	}

	if errs := s.gw.App.ExpandRecords(records, []string{"author"}, nil); len(errs) > 0 {
		slog.Warn("Failed to expand notice authors", "errors", errs)
	}

	notices := make([]models.Notice, 0, len(records))
	for _, rec := range records {
		notices = append(notices, recordToNotice(rec))
	}

	return models.NewPage(notices, p.Page, p.PerPage, total), nil
}

func (s *NoticeService) GetNotice(ctx context.Context, id string) (models.Notice, error) {
	rec, err := s.findNotice(ctx, id)
	if err != nil {
		return models.Notice{}, err
	}

	if errs := s.gw.App.ExpandRecords([]*core.Record{rec}, []string{"author"}, nil); len(errs) > 0 {
		slog.Warn("Failed to expand notice author", "noticeID", id, "errors", errs)
	}
	return recordToNotice(rec), nil
}

func (s *NoticeService) CreateNotice(ctx context.Context, title, content, authorID string) (models.Notice, error) {
	if authorID == "" {
		return models.Notice{}, ErrOwnerRequired
	}

	rec, err := s.gw.NewRecord(NoticesCollection)
	if err != nil {
		return models.Notice{}, err
	}
	rec.Set("title", title)
	rec.Set("content", content)
	rec.Set("author", authorID)

	if err := s.gw.Save(ctx, rec); err != nil {
		return models.Notice{}, fmt.Errorf("create notice: %w", err)
	}

	slog.Info("Notice created", "noticeID", rec.Id, "authorID", authorID)
	return s.GetNotice(ctx, rec.Id)
}

func (s *NoticeService) UpdateNotice(ctx context.Context, id, title, content string) (models.Notice, error) {
	rec, err := s.findNotice(ctx, id)
	if err != nil {
		return models.Notice{}, err
	}

	rec.Set("title", title)
	rec.Set("content", content)

	if err := s.gw.Save(ctx, rec); err != nil {
		return models.Notice{}, fmt.Errorf("update notice: %w", err)
	}
	return s.GetNotice(ctx, id)
}

// DeleteNotice removes the notice together with its attachment object and
// row.
func (s *NoticeService) DeleteNotice(ctx context.Context, id string) error {
	rec, err := s.findNotice(ctx, id)
	if err != nil {
		return err
	}

	if err := s.RemoveAttachment(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := s.gw.Delete(ctx, rec); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}

	slog.Info("Notice deleted", "noticeID", id)
	return nil
}

// AttachFile stores file as the notice attachment, replacing the previous one
// if any.
func (s *NoticeService) AttachFile(ctx context.Context, noticeID string, file *filesystem.File) (*models.NoticeFile, error) {
	if gateway.EmptyFile(file) {
		return nil, ErrInvalidFile
	}
	name := gateway.CleanFileName(file.OriginalName)
	if name == "" {
		return nil, ErrInvalidFile
	}

	if _, err := s.findNotice(ctx, noticeID); err != nil {
		return nil, err
	}

	if err := s.RemoveAttachment(ctx, noticeID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	key := noticeFileKey(noticeID, name)
	if err := s.gw.Bucket.Upload(ctx, key, file); err != nil {
		return nil, fmt.Errorf("upload notice file: %w", err)
	}

	rec, err := s.gw.NewRecord(NoticeFilesCollection)
	if err != nil {
		return nil, err
	}
	rec.Set("notice", noticeID)
	rec.Set("path", key)
	rec.Set("file_name", name)

	if err := s.gw.Save(ctx, rec); err != nil {
		if rmErr := s.gw.Bucket.Remove(ctx, key); rmErr != nil {
			slog.Error("Failed to remove orphaned notice file", "key", key, "error", rmErr)
		}
		return nil, fmt.Errorf("save notice file: %w", err)
	}

	slog.Info("Notice file attached", "noticeID", noticeID, "key", key)
	return s.withURL(ctx, rec)
}

// Attachment returns the notice attachment with a signed URL, or nil when the
// notice has none.
func (s *NoticeService) Attachment(ctx context.Context, noticeID string) (*models.NoticeFile, error) {
	rec, err := s.findAttachment(ctx, noticeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.withURL(ctx, rec)
}

// RemoveAttachment deletes the stored object and the attachment row. It
// returns ErrNotFound when the notice has no attachment.
func (s *NoticeService) RemoveAttachment(ctx context.Context, noticeID string) error {
	rec, err := s.findAttachment(ctx, noticeID)
	if err != nil {
		return err
	}

	key := rec.GetString("path")
	if err := s.gw.Bucket.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove notice file: %w", err)
	}
	s.gw.Signer.Forget(ctx, key)

	if err := s.gw.Delete(ctx, rec); err != nil {
		return fmt.Errorf("delete notice file: %w", err)
	}
	return nil
}

func (s *NoticeService) findNotice(ctx context.Context, id string) (*core.Record, error) {
	rec, err := s.gw.FindByID(ctx, NoticesCollection, id)
	if err != nil {
		if gateway.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notice: %w", err)
	}
	return rec, nil
}

func (s *NoticeService) findAttachment(ctx context.Context, noticeID string) (*core.Record, error) {
	records, err := s.gw.FindAll(ctx, NoticeFilesCollection, gateway.Where().Eq("notice", noticeID))
	if err != nil {
		return nil, fmt.Errorf("get notice file: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

func (s *NoticeService) withURL(ctx context.Context, rec *core.Record) (*models.NoticeFile, error) {
	file := recordToNoticeFile(rec)

	u, err := s.gw.Signer.SignedURL(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("sign notice file url: %w", err)
	}
	file.URL = &u
	return &file, nil
}

func noticeFileKey(noticeID, fileName string) string {
	return fmt.Sprintf("private/notice/%s/%s", noticeID, fileName)
}

func recordToNotice(rec *core.Record) models.Notice {
	notice := models.Notice{
		ID:        rec.Id,
		Title:     rec.GetString("title"),
		Content:   rec.GetString("content"),
		AuthorID:  rec.GetString("author"),
		CreatedAt: rec.GetDateTime("created").Time(),
	}
	if author := rec.ExpandedOne("author"); author != nil {
		notice.AuthorName = author.GetString("name")
	}
	return notice
}

func recordToNoticeFile(rec *core.Record) models.NoticeFile {
	return models.NoticeFile{
		NoticeID:  rec.GetString("notice"),
		Path:      rec.GetString("path"),
		FileName:  rec.GetString("file_name"),
		CreatedAt: rec.GetDateTime("created").Time(),
	}
}
