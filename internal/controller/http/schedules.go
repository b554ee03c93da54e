package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
	"github.com/maksim/chatpulse/internal/domain/analytics/policy"
	"github.com/maksim/chatpulse/internal/httpx/response"
)

// SchedulePolicy defines the interface for recurring report operations
type SchedulePolicy interface {
	CreateSchedule(ctx context.Context, in policy.CreateScheduleInput) (*entity.Schedule, error)
	Schedule(ctx context.Context, id string) (*entity.Schedule, error)
	Schedules(ctx context.Context) ([]entity.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// ScheduleHandler handles HTTP requests for recurring reports
type ScheduleHandler struct {
	policy SchedulePolicy
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(p SchedulePolicy) *ScheduleHandler {
	return &ScheduleHandler{policy: p}
}

// RegisterRoutes registers schedule routes
func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/schedules", func(r chi.Router) {
		r.Post("/", h.Create())
		r.Get("/", h.List())
		r.Get("/{id}", h.Get())
		r.Delete("/{id}", h.Delete())
	})
}

// CreateScheduleRequest represents the request body for creating a schedule
type CreateScheduleRequest struct {
	Name            string  `json:"name"`
	ChatIDs         []int64 `json:"chat_ids"`
	WindowDays      int     `json:"window_days"`
	IntervalSeconds int64   `json:"interval_seconds"`
}

// Create handles POST /schedules
func (h *ScheduleHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		schedule, err := h.policy.CreateSchedule(r.Context(), policy.CreateScheduleInput{
			Name:       req.Name,
			ChatIDs:    req.ChatIDs,
			WindowDays: req.WindowDays,
			Interval:   time.Duration(req.IntervalSeconds) * time.Second,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.Created(w, schedule)
	}
}

// List handles GET /schedules
func (h *ScheduleHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schedules, err := h.policy.Schedules(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		if schedules == nil {
			schedules = []entity.Schedule{}
		}

		response.OK(w, map[string]interface{}{"schedules": schedules})
	}
}

// Get handles GET /schedules/{id}
func (h *ScheduleHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schedule, err := h.policy.Schedule(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, schedule)
	}
}

// Delete handles DELETE /schedules/{id}
func (h *ScheduleHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.policy.DeleteSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleDomainError(w, err)
			return
		}

		response.NoContent(w)
	}
}
