package entity

import "errors"

// Domain errors for analytics
var (
	// Validation errors
	ErrNoChats          = errors.New("at least one chat is required")
	ErrNoMessageIDs     = errors.New("at least one message ID is required")
	ErrInvalidDateRange = errors.New("date range start must not be after its end")
	ErrInvalidWindow    = errors.New("schedule window must be at least one day")
	ErrInvalidInterval  = errors.New("schedule interval must be positive")

	// Business logic errors
	ErrReportNotFound   = errors.New("report not found")
	ErrScheduleNotFound = errors.New("schedule not found")

	// Pachka API errors
	ErrUpstreamUnavailable = errors.New("chat platform is unreachable")
	ErrUnauthorized        = errors.New("chat platform rejected the access token")
	ErrMessageNotFound     = errors.New("message not found")
	ErrChatNotFound        = errors.New("chat not found")
)
