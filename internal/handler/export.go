package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"storyboard/internal/domain/services"
	"storyboard/internal/httputil"
)

// ArchiveURLHeader carries the presigned URL of the archived copy, when archiving is on
const ArchiveURLHeader = "X-Export-Archive-Url"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler renders storyboard workbooks
type ExportHandler struct {
	exportService services.ExportService
	archive       services.ExportArchive
	logger        *slog.Logger
}

// NewExportHandler creates a new export handler. archive may be nil.
func NewExportHandler(exportService services.ExportService, archive services.ExportArchive, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		archive:       archive,
		logger:        logger,
	}
}

// Export returns the project's storyboard as an XLSX attachment
// POST /api/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req services.ExportRequest
	if !parseBody(w, r, &req) {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.WriteWorkbook(r.Context(), &req, &buf); err != nil {
		h.logger.Warn("export failed", "error", err)
		handleError(w, err)
		return
	}

	userID := httputil.GetUserID(r)
	filename := h.exportService.Filename(req.Project.Title)

	if h.archive != nil {
		url, err := h.archive.Store(r.Context(), userID, filename, buf.Bytes())
		if err != nil {
			h.logger.Warn("export archive failed", "user_id", userID, "error", err)
		} else {
			w.Header().Set(ArchiveURLHeader, url)
		}
	}

	h.logger.Info("export generated",
		"user_id", userID,
		"scenes", len(req.Scenes),
		"bytes", buf.Len(),
	)

	httputil.SetAttachment(w, filename, xlsxContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
