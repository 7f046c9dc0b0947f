package handlers

import (
	"mime"
	"path/filepath"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// FileHandler streams blobs to holders of a valid download handle. The
// handle is the credential; no bearer token is needed.
type FileHandler struct {
	responder
	reports *services.ReportService
	signer  *storage.URLSigner
}

func NewFileHandler(reports *services.ReportService, signer *storage.URLSigner, debug bool) *FileHandler {
	return &FileHandler{responder: responder{debug: debug}, reports: reports, signer: signer}
}

func (h *FileHandler) Download(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := storage.ValidName(name); err != nil {
		return h.fail(c, apperr.NotFound("file not found"))
	}
	if err := h.signer.Verify(name, c.Query("token")); err != nil {
		return h.fail(c, apperr.Forbidden("invalid or expired download link"))
	}

	rc, err := h.reports.OpenBlob(c.UserContext(), name)
	if err != nil {
		return h.fail(c, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, no-store")
	// fasthttp closes the stream once the body is written.
	return c.SendStream(rc)
}
