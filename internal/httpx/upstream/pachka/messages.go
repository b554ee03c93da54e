package pachka

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

// apiMessage is the wire shape of a message
type apiMessage struct {
	ID              int64      `json:"id"`
	EntityType      string     `json:"entity_type"`
	ChatID          int64      `json:"chat_id"`
	Content         string     `json:"content"`
	UserID          int64      `json:"user_id"`
	CreatedAt       time.Time  `json:"created_at"`
	ParentMessageID int64      `json:"parent_message_id"`
	Thread          *apiThread `json:"thread"`
}

type apiThread struct {
	ID     int64 `json:"id"`
	ChatID int64 `json:"chat_id"`
}

func (m apiMessage) toEntity() entity.Message {
	msg := entity.Message{
		ID:            m.ID,
		ChatID:        m.ChatID,
		AuthorID:      m.UserID,
		Text:          m.Content,
		CreatedAt:     m.CreatedAt,
		IsThreadReply: m.EntityType == "thread" || m.ParentMessageID != 0,
	}
	if m.Thread != nil {
		msg.Thread = &entity.ThreadRef{ID: m.Thread.ID, ChatID: m.Thread.ChatID}
	}
	return msg
}

type listMessagesResponse struct {
	Data []apiMessage `json:"data"`
	Meta *struct {
		Total int `json:"total"`
	} `json:"meta"`
}

type messageResponse struct {
	Data *apiMessage `json:"data"`
}

// ListMessages fetches all messages of a chat within the date range. Pages
// arrive newest-first, so pagination stops as soon as a page crosses the
// lower bound of the range. The result is a flat, unordered collection.
func (c *Client) ListMessages(ctx context.Context, chatID int64, rng entity.DateRange) ([]entity.Message, error) {
	from, to := rng.Bounds()
	filtered := !rng.IsZero()

	var messages []entity.Message
	total := 0
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("chat_id", strconv.FormatInt(chatID, 10))
		params.Set("per", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))
		params.Set("sort[id]", "desc")

		var resp listMessagesResponse
		if err := c.get(ctx, "/messages", params, &resp); err != nil {
			return nil, fmt.Errorf("listing messages for chat %d: %w", chatID, err)
		}
		if resp.Meta != nil {
			total = resp.Meta.Total
		}
		if len(resp.Data) == 0 {
			break
		}

		crossedLowerBound := false
		for _, m := range resp.Data {
			if filtered {
				if m.CreatedAt.Before(from) {
					// Older messages only from here on.
					crossedLowerBound = true
					break
				}
				if m.CreatedAt.After(to) {
					continue
				}
			}
			messages = append(messages, m.toEntity())
		}

		if crossedLowerBound || len(resp.Data) < pageSize {
			break
		}
		if total > 0 && len(messages) >= total {
			break
		}
	}

	return messages, nil
}

// GetMessage fetches a single message by ID.
func (c *Client) GetMessage(ctx context.Context, messageID int64) (*entity.Message, error) {
	var resp messageResponse
	err := c.get(ctx, "/messages/"+strconv.FormatInt(messageID, 10), nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("message %d: %w", messageID, entity.ErrMessageNotFound)
		}
		return nil, fmt.Errorf("getting message %d: %w", messageID, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("message %d: %w", messageID, entity.ErrMessageNotFound)
	}
	msg := resp.Data.toEntity()
	return &msg, nil
}

// GetReaders returns the IDs of users who have read the message.
func (c *Client) GetReaders(ctx context.Context, messageID int64) ([]int64, error) {
	params := url.Values{}
	params.Set("per", strconv.Itoa(readersPageSize))

	var resp struct {
		Data []int64 `json:"data"`
	}
	path := "/messages/" + strconv.FormatInt(messageID, 10) + "/read_member_ids"
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, fmt.Errorf("getting readers of message %d: %w", messageID, err)
	}
	return resp.Data, nil
}

type apiReaction struct {
	UserID    int64     `json:"user_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// GetReactions returns every reaction event attached to the message.
func (c *Client) GetReactions(ctx context.Context, messageID int64) ([]entity.ReactionEvent, error) {
	path := "/messages/" + strconv.FormatInt(messageID, 10) + "/reactions"

	var reactions []entity.ReactionEvent
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("per", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))

		var resp struct {
			Data []apiReaction `json:"data"`
		}
		if err := c.get(ctx, path, params, &resp); err != nil {
			return nil, fmt.Errorf("getting reactions of message %d: %w", messageID, err)
		}
		for _, r := range resp.Data {
			reactions = append(reactions, entity.ReactionEvent{
				MessageID: messageID,
				UserID:    r.UserID,
				Code:      r.Code,
				CreatedAt: r.CreatedAt,
			})
		}
		if len(resp.Data) < pageSize {
			break
		}
	}
	return reactions, nil
}

// GetThreadMessages fetches all replies living in a thread's chat. Replies
// are not date-filtered: the thread belongs to a message already selected by
// the caller's range.
func (c *Client) GetThreadMessages(ctx context.Context, threadChatID int64) ([]entity.Message, error) {
	replies, err := c.ListMessages(ctx, threadChatID, entity.DateRange{})
	if err != nil {
		return nil, err
	}
	for i := range replies {
		replies[i].IsThreadReply = true
	}
	return replies, nil
}
