package handlers

import (
	"log/slog"
	"path"

	"org-dashboard/internal/gateway"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// MediaHandler serves stored objects to holders of a signed URL. The token
// is the capability, so the route needs no session.
type MediaHandler struct {
	bucket gateway.Bucket
	signer *gateway.Signer
}

func NewMediaHandler(bucket gateway.Bucket, signer *gateway.Signer) *MediaHandler {
	return &MediaHandler{
		bucket: bucket,
		signer: signer,
	}
}

func (h *MediaHandler) Serve(e *core.RequestEvent) error {
	key, err := h.signer.Verify(e.Request.URL.Query().Get("token"))
	if err != nil {
		return apis.NewForbiddenError("The media link is invalid or has expired.", nil)
	}

	e.Response.Header().Set("Cache-Control", "private, max-age=300")
	if err := h.bucket.Serve(e.Response, e.Request, key, path.Base(key)); err != nil {
		slog.Error("Failed to serve media", "key", key, "error", err)
		return apis.NewNotFoundError("The requested file wasn't found.", nil)
	}
	return nil
}
