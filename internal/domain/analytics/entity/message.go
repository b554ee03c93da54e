package entity

import (
	"strings"
	"time"
)

// Message is a single chat message, normalized from the Pachka wire format.
// The ID is stable and is the join key for readers, reactions and thread
// replies, which are fetched separately.
type Message struct {
	ID            int64      `json:"id"`
	ChatID        int64      `json:"chat_id"`
	AuthorID      int64      `json:"author_id,omitempty"` // 0 when the author is unknown
	Text          string     `json:"text"`
	CreatedAt     time.Time  `json:"created_at"`
	Thread        *ThreadRef `json:"thread,omitempty"`
	IsThreadReply bool       `json:"is_thread_reply,omitempty"`
}

// ThreadRef points at the secondary chat that holds replies to a message.
type ThreadRef struct {
	ID     int64 `json:"id"`
	ChatID int64 `json:"chat_id"`
}

// ReactionEvent is one emoji reaction attached to a message. The same user
// may appear in several events for one message.
type ReactionEvent struct {
	MessageID int64     `json:"message_id"`
	UserID    int64     `json:"user_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a workspace directory entry.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Bot       bool   `json:"bot"`
	Suspended bool   `json:"suspended,omitempty"`
}

// DisplayName returns the user's full name; empty for deleted or external
// users the directory knows nothing about.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Chat is a channel or group conversation.
type Chat struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Channel       bool      `json:"channel"`
	Public        bool      `json:"public"`
	OwnerID       int64     `json:"owner_id,omitempty"`
	MemberIDs     []int64   `json:"member_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
}

// DateRange selects messages by creation date, inclusive on both ends.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Bounds expands the range to whole calendar days: From at 00:00:00 through
// To at the last nanosecond of the day, in each endpoint's own location.
func (r DateRange) Bounds() (time.Time, time.Time) {
	from := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, r.From.Location())
	to := time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), r.To.Location())
	return from, to
}

// IsZero reports whether the range is unset.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}
