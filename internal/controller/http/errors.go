package http

import (
	"errors"
	"net/http"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
	"github.com/maksim/chatpulse/internal/httpx/response"
)

// handleDomainError maps domain errors onto HTTP statuses. Anything not
// recognized is a 500 with the detail kept out of the body.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNoChats),
		errors.Is(err, entity.ErrNoMessageIDs),
		errors.Is(err, entity.ErrInvalidDateRange),
		errors.Is(err, entity.ErrInvalidWindow),
		errors.Is(err, entity.ErrInvalidInterval):
		response.BadRequest(w, err.Error())
	case errors.Is(err, entity.ErrReportNotFound),
		errors.Is(err, entity.ErrScheduleNotFound),
		errors.Is(err, entity.ErrMessageNotFound),
		errors.Is(err, entity.ErrChatNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrUnauthorized):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, entity.ErrUpstreamUnavailable):
		response.BadGateway(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
