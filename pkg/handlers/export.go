package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/apperrors"
	"github.com/cladtek/dbchat-engine/pkg/export"
	"github.com/cladtek/dbchat-engine/pkg/inputguard"
	"github.com/cladtek/dbchat-engine/pkg/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler streams the last query result of a session as an .xlsx
// workbook.
type ExportHandler struct {
	exporter *export.Exporter
	store    *session.Store
	logger   *zap.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exporter *export.Exporter, store *session.Store, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exporter: exporter, store: store, logger: logger}
}

// RegisterRoutes registers the export handler's routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/chat/{sessionID}/export", h.Export)
}

// Export handles GET /api/chat/{sessionID}/export.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	if !inputguard.ValidSessionID(sessionID) {
		_ = WriteError(w, apperrors.ErrInvalidSessionID)
		return
	}

	sess, ok := h.store.Get(sessionID)
	if !ok {
		_ = WriteError(w, apperrors.ErrNoExportableQuery)
		return
	}

	result, err := h.exporter.LastQuery(r.Context(), sess)
	if err != nil {
		h.logger.Warn("export failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		_ = WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Content)))
	if _, err := w.Write(result.Content); err != nil {
		h.logger.Error("Failed to stream workbook", zap.Error(err))
	}
}
