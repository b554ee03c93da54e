package entity

import "time"

// ReportKind tells which entry point produced a report.
type ReportKind string

const (
	ReportKindChats    ReportKind = "chats"
	ReportKindMessages ReportKind = "messages"
)

// Report is a persisted analytics run.
type Report struct {
	ID         string          `json:"id"`
	Kind       ReportKind      `json:"kind"`
	ChatIDs    []int64         `json:"chat_ids,omitempty"`
	MessageIDs []int64         `json:"message_ids,omitempty"`
	DateRange  DateRange       `json:"date_range"`
	Result     AnalyticsResult `json:"result"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Schedule is a recurring analytics run over a sliding window of the most
// recent WindowDays days.
type Schedule struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	ChatIDs    []int64       `json:"chat_ids"`
	WindowDays int           `json:"window_days"`
	Interval   time.Duration `json:"interval"`
	NextRunAt  time.Time     `json:"next_run_at"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Validate checks a schedule definition before it is stored.
func (s Schedule) Validate() error {
	if len(s.ChatIDs) == 0 {
		return ErrNoChats
	}
	if s.WindowDays < 1 {
		return ErrInvalidWindow
	}
	if s.Interval <= 0 {
		return ErrInvalidInterval
	}
	return nil
}
