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

// AnalyticsPolicy defines the interface for analytics operations
// Interface is defined by consumer (handler), not provider (policy)
type AnalyticsPolicy interface {
	RunAnalytics(ctx context.Context, in policy.RunAnalyticsInput) (*policy.RunAnalyticsOutput, error)
	RunForMessages(ctx context.Context, in policy.RunForMessagesInput) (*policy.RunAnalyticsOutput, error)
	Compare(ctx context.Context, in policy.CompareInput) (*policy.RunAnalyticsOutput, error)
}

// AnalyticsHandler handles HTTP requests for analytics runs
type AnalyticsHandler struct {
	policy AnalyticsPolicy
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(p AnalyticsPolicy) *AnalyticsHandler {
	return &AnalyticsHandler{policy: p}
}

// RegisterRoutes registers analytics routes
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Post("/", h.Run())
		r.Post("/messages", h.RunForMessages())
	})
}

const dateLayout = "2006-01-02"

// RunRequest represents the request body for a chat analytics run
type RunRequest struct {
	ChatIDs []int64 `json:"chat_ids"`
	From    string  `json:"from"` // YYYY-MM-DD
	To      string  `json:"to"`   // YYYY-MM-DD

	// Optional second period to compare the primary one against.
	CompareFrom string `json:"compare_from,omitempty"`
	CompareTo   string `json:"compare_to,omitempty"`
}

// RunResponse represents the response of any analytics run
type RunResponse struct {
	ReportID string                  `json:"report_id,omitempty"`
	Cached   bool                    `json:"cached,omitempty"`
	Result   *entity.AnalyticsResult `json:"result"`
}

// Run handles POST /analytics
func (h *AnalyticsHandler) Run() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		rng, err := parseRange(req.From, req.To)
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		var out *policy.RunAnalyticsOutput
		if req.CompareFrom != "" || req.CompareTo != "" {
			compareRng, err := parseRange(req.CompareFrom, req.CompareTo)
			if err != nil {
				response.BadRequest(w, err.Error())
				return
			}
			out, err = h.policy.Compare(r.Context(), policy.CompareInput{
				ChatIDs:      req.ChatIDs,
				DateRange:    rng,
				CompareRange: compareRng,
			})
			if err != nil {
				handleDomainError(w, err)
				return
			}
		} else {
			out, err = h.policy.RunAnalytics(r.Context(), policy.RunAnalyticsInput{
				ChatIDs:   req.ChatIDs,
				DateRange: rng,
			})
			if err != nil {
				handleDomainError(w, err)
				return
			}
		}

		response.OK(w, RunResponse{
			ReportID: out.ReportID,
			Cached:   out.Cached,
			Result:   out.Result,
		})
	}
}

// RunForMessagesRequest represents the request body for a message-set run
type RunForMessagesRequest struct {
	MessageIDs []int64 `json:"message_ids"`
}

// RunForMessages handles POST /analytics/messages
func (h *AnalyticsHandler) RunForMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RunForMessagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		out, err := h.policy.RunForMessages(r.Context(), policy.RunForMessagesInput{
			MessageIDs: req.MessageIDs,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, RunResponse{
			ReportID: out.ReportID,
			Result:   out.Result,
		})
	}
}

func parseRange(from, to string) (entity.DateRange, error) {
	f, err := time.Parse(dateLayout, from)
	if err != nil {
		return entity.DateRange{}, entity.ErrInvalidDateRange
	}
	t, err := time.Parse(dateLayout, to)
	if err != nil {
		return entity.DateRange{}, entity.ErrInvalidDateRange
	}
	rng := entity.DateRange{From: f, To: t}
	rng.From, rng.To = rng.Bounds()
	return rng, nil
}
