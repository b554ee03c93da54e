package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
	"github.com/maksim/chatpulse/internal/domain/analytics/service"
	"github.com/maksim/chatpulse/internal/httpx/response"
)

// ChatDirectory defines the interface for chat lookups and token checks
type ChatDirectory interface {
	SearchChats(ctx context.Context, in service.SearchChatsInput) ([]entity.Chat, error)
	GetChat(ctx context.Context, chatID int64) (*entity.Chat, error)
	GetChatForMessage(ctx context.Context, messageID int64) (*entity.Chat, error)
	ValidateToken(ctx context.Context) error
}

// ChatHandler handles HTTP requests for chat discovery
type ChatHandler struct {
	directory ChatDirectory
}

// NewChatHandler creates a new chat handler
func NewChatHandler(d ChatDirectory) *ChatHandler {
	return &ChatHandler{directory: d}
}

// RegisterRoutes registers chat routes
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Get("/", h.List())
		r.Get("/{id}", h.Get())
	})
	r.Get("/messages/{id}/chat", h.ForMessage())
	r.Get("/me", h.Me())
}

// List handles GET /chats
func (h *ChatHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var in service.SearchChatsInput
		if v := q.Get("channel"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				response.BadRequest(w, "invalid channel flag")
				return
			}
			in.Channel = &b
		}
		if v := q.Get("public"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				response.BadRequest(w, "invalid public flag")
				return
			}
			in.Public = &b
		}

		chats, err := h.directory.SearchChats(r.Context(), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		if chats == nil {
			chats = []entity.Chat{}
		}

		response.OK(w, map[string]interface{}{"chats": chats})
	}
}

// Get handles GET /chats/{id}
func (h *ChatHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid chat id")
			return
		}

		chat, err := h.directory.GetChat(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, chat)
	}
}

// ForMessage handles GET /messages/{id}/chat. Resolves the chat a pasted
// message link belongs to.
func (h *ChatHandler) ForMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid message id")
			return
		}

		chat, err := h.directory.GetChatForMessage(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, chat)
	}
}

// Me handles GET /me. A 200 means the configured platform token works.
func (h *ChatHandler) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.directory.ValidateToken(r.Context()); err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, map[string]bool{"valid": true})
	}
}
