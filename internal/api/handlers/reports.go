package handlers

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"labmaint/internal/core"
	"labmaint/internal/report"
)

// ReportRenderer renders an on-demand history report.
type ReportRenderer interface {
	OnDemand(ctx context.Context, now time.Time, format report.Format) (report.File, error)
}

// ReportHandler serves report downloads.
type ReportHandler struct {
	renderer ReportRenderer
	now      func() time.Time
	logger   *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(renderer ReportRenderer, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{renderer: renderer, now: time.Now, logger: logger}
}

// RegisterRoutes mounts the report route.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reportes/historial", h.History)
}

// History handles GET /reportes/historial?formato=xlsx|pdf. xlsx is the
// default.
func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("formato")
	if raw == "" {
		raw = string(report.FormatXLSX)
	}
	format, err := report.ParseFormat(raw)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	file, err := h.renderer.OnDemand(r.Context(), h.now(), format)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "report generation failed", "formato", format, "error", err)
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}
