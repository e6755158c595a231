package handlers

import (
	"net/http"

	"org-dashboard/internal/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type NoticeHandler struct {
	notices *services.NoticeService
}

func NewNoticeHandler(notices *services.NoticeService) *NoticeHandler {
	return &NoticeHandler{notices: notices}
}

type noticeRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func (h *NoticeHandler) ListNotices(e *core.RequestEvent) error {
	page, perPage, keyword := listQuery(e)

	result, err := h.notices.ListNotices(e.Request.Context(), keyword, page, perPage)
	if err != nil {
		return apiError(e, err, "Failed to load notices.")
	}
	return e.JSON(http.StatusOK, result)
}

func (h *NoticeHandler) GetNotice(e *core.RequestEvent) error {
	ctx := e.Request.Context()
	id := e.Request.PathValue("id")

	notice, err := h.notices.GetNotice(ctx, id)
	if err != nil {
		return apiError(e, err, "Failed to load the notice.")
	}
	file, err := h.notices.Attachment(ctx, id)
	if err != nil {
		return apiError(e, err, "Failed to load the notice attachment.")
	}

	return e.JSON(http.StatusOK, map[string]any{
		"notice": notice,
		"file":   file,
	})
}

func (h *NoticeHandler) CreateNotice(e *core.RequestEvent) error {
	req := noticeRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	notice, err := h.notices.CreateNotice(e.Request.Context(), req.Title, req.Content, CurrentUserID(e))
	if err != nil {
		return apiError(e, err, "Failed to create the notice.")
	}
	return e.JSON(http.StatusCreated, notice)
}

func (h *NoticeHandler) UpdateNotice(e *core.RequestEvent) error {
	req := noticeRequest{}
	if err := bindBody(e, &req); err != nil {
		return err
	}

	notice, err := h.notices.UpdateNotice(e.Request.Context(), e.Request.PathValue("id"), req.Title, req.Content)
	if err != nil {
		return apiError(e, err, "Failed to update the notice.")
	}
	return e.JSON(http.StatusOK, notice)
}

func (h *NoticeHandler) DeleteNotice(e *core.RequestEvent) error {
	if err := h.notices.DeleteNotice(e.Request.Context(), e.Request.PathValue("id")); err != nil {
		return apiError(e, err, "Failed to delete the notice.")
	}
	return noContent(e)
}

// UploadAttachment stores the multipart "file" as the notice attachment.
func (h *NoticeHandler) UploadAttachment(e *core.RequestEvent) error {
	upload, err := uploadedFile(e, "file")
	if err != nil {
		return err
	}
	if upload == nil {
		return apis.NewBadRequestError("Missing file.", nil)
	}

	file, err := h.notices.AttachFile(e.Request.Context(), e.Request.PathValue("id"), upload)
	if err != nil {
		return apiError(e, err, "Failed to upload the attachment.")
	}
	return e.JSON(http.StatusOK, file)
}

func (h *NoticeHandler) GetAttachment(e *core.RequestEvent) error {
	file, err := h.notices.Attachment(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return apiError(e, err, "Failed to load the attachment.")
	}
	if file == nil {
		return apis.NewNotFoundError("The notice has no attachment.", nil)
	}
	return e.JSON(http.StatusOK, file)
}

func (h *NoticeHandler) DeleteAttachment(e *core.RequestEvent) error {
	if err := h.notices.RemoveAttachment(e.Request.Context(), e.Request.PathValue("id")); err != nil {
		return apiError(e, err, "Failed to delete the attachment.")
	}
	return noContent(e)
}
