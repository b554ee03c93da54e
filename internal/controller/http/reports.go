package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
	"github.com/maksim/chatpulse/internal/domain/analytics/policy"
	"github.com/maksim/chatpulse/internal/httpx/response"
)

// ReportPolicy defines the interface for report history operations
type ReportPolicy interface {
	Report(ctx context.Context, id string) (*entity.Report, error)
	Reports(ctx context.Context, in policy.ReportsInput) ([]entity.Report, error)
	DeleteReport(ctx context.Context, id string) error
	ExportReport(ctx context.Context, id string) (*policy.ExportOutput, error)
}

// ReportHandler handles HTTP requests for persisted reports
type ReportHandler struct {
	policy ReportPolicy
}

// NewReportHandler creates a new report handler
func NewReportHandler(p ReportPolicy) *ReportHandler {
	return &ReportHandler{policy: p}
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.List())
		r.Get("/{id}", h.Get())
		r.Delete("/{id}", h.Delete())
		r.Get("/{id}/export", h.Export())
	})
}

// ListReportsResponse represents the report history response
type ListReportsResponse struct {
	Reports []entity.Report `json:"reports"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// List handles GET /reports
func (h *ReportHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := 20
		offset := 0
		if l := q.Get("limit"); l != "" {
			li, err := strconv.Atoi(l)
			if err != nil || li < 1 {
				response.BadRequest(w, "invalid limit")
				return
			}
			if li > 100 {
				li = 100
			}
			limit = li
		}
		if o := q.Get("offset"); o != "" {
			oi, err := strconv.Atoi(o)
			if err != nil || oi < 0 {
				response.BadRequest(w, "invalid offset")
				return
			}
			offset = oi
		}

		reports, err := h.policy.Reports(r.Context(), policy.ReportsInput{Limit: limit, Offset: offset})
		if err != nil {
			handleDomainError(w, err)
			return
		}
		if reports == nil {
			reports = []entity.Report{}
		}

		response.OK(w, ListReportsResponse{Reports: reports, Limit: limit, Offset: offset})
	}
}

// Get handles GET /reports/{id}
func (h *ReportHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := h.policy.Report(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, report)
	}
}

// Delete handles DELETE /reports/{id}
func (h *ReportHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.policy.DeleteReport(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleDomainError(w, err)
			return
		}

		response.NoContent(w)
	}
}

// Export handles GET /reports/{id}/export. The workbook is streamed as a
// download; when export storage is configured the upload URL travels in a
// header so clients can share a stable link.
func (h *ReportHandler) Export() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := h.policy.ExportReport(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", out.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
		if out.URL != "" {
			w.Header().Set("X-Export-URL", out.URL)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(out.Body.Bytes())
	}
}
