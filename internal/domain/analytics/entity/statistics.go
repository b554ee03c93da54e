package entity

import "time"

// MessageStat is the per-message engagement record. Computed once per message
// per run and never mutated afterwards.
type MessageStat struct {
	ID             int64     `json:"id"`
	ChatID         int64     `json:"chat_id"`
	Text           string    `json:"text"`
	Date           time.Time `json:"date"`
	Readers        int       `json:"readers"`
	Reactions      int       `json:"reactions"`       // distinct reacting users
	ThreadComments int       `json:"thread_comments"` // distinct thread commenters
	ER             float64   `json:"er"`
}

// DayStat is one point of the engagement time series.
type DayStat struct {
	Date string  `json:"date"` // calendar day, YYYY-MM-DD
	ER   float64 `json:"er"`
}

// UserStat is one leaderboard row.
type UserStat struct {
	UserID         int64   `json:"user_id"`
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar,omitempty"`
	Messages       int     `json:"messages"`
	ThreadMessages int     `json:"thread_messages"`
	Reactions      int     `json:"reactions"`
	Score          float64 `json:"score"`
}

// Metric names used as keys in comparison difference maps.
const (
	MetricTotalMessages         = "total_messages"
	MetricTotalReads            = "total_reads"
	MetricTotalReactions        = "total_reactions"
	MetricTotalThreadMessages   = "total_thread_messages"
	MetricMessagesWithReactions = "messages_with_reactions"
	MetricEngagementRate        = "engagement_rate"
)

// Metrics are the aggregate totals of one period, the field set the period
// comparator operates on.
type Metrics struct {
	TotalMessages         int     `json:"total_messages"`
	TotalReads            int     `json:"total_reads"`
	TotalReactions        int     `json:"total_reactions"`
	TotalThreadMessages   int     `json:"total_thread_messages"`
	MessagesWithReactions int     `json:"messages_with_reactions"`
	EngagementRate        float64 `json:"engagement_rate"`
}

// Fields returns the metrics as a map keyed by metric name.
func (m Metrics) Fields() map[string]float64 {
	return map[string]float64{
		MetricTotalMessages:         float64(m.TotalMessages),
		MetricTotalReads:            float64(m.TotalReads),
		MetricTotalReactions:        float64(m.TotalReactions),
		MetricTotalThreadMessages:   float64(m.TotalThreadMessages),
		MetricMessagesWithReactions: float64(m.MessagesWithReactions),
		MetricEngagementRate:        m.EngagementRate,
	}
}

// Comparison holds the aggregates of a second period and its deltas against
// the primary result it is attached to.
type Comparison struct {
	DateRange             DateRange          `json:"date_range"`
	Metrics               Metrics            `json:"metrics"`
	EngagementRate        float64            `json:"engagement_rate"`
	PercentageDifferences map[string]float64 `json:"percentage_differences"`
	AbsoluteDifferences   map[string]float64 `json:"absolute_differences"`
}

// AnalyticsResult is the aggregate root of one analytics run. It is owned by
// the caller once returned and is never mutated concurrently.
type AnalyticsResult struct {
	EngagementRate float64       `json:"engagement_rate"`
	MessageStats   []MessageStat `json:"message_stats"`
	DaysStats      []DayStat     `json:"days_stats"`
	TopUsers       []UserStat    `json:"top_users"`
	Metrics        Metrics       `json:"metrics"`
	Comparison     *Comparison   `json:"comparison,omitempty"`
}
