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

// apiChat is the wire shape of a chat
type apiChat struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Channel       bool      `json:"channel"`
	Public        bool      `json:"public"`
	OwnerID       int64     `json:"owner_id"`
	MemberIDs     []int64   `json:"member_ids"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

func (c apiChat) toEntity() entity.Chat {
	return entity.Chat{
		ID:            c.ID,
		Name:          c.Name,
		Channel:       c.Channel,
		Public:        c.Public,
		OwnerID:       c.OwnerID,
		MemberIDs:     c.MemberIDs,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

// ListChats fetches all chats visible to the token, page by page.
func (c *Client) ListChats(ctx context.Context) ([]entity.Chat, error) {
	var chats []entity.Chat
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("per", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))

		var resp struct {
			Data []apiChat `json:"data"`
		}
		if err := c.get(ctx, "/chats", params, &resp); err != nil {
			return nil, fmt.Errorf("listing chats: %w", err)
		}
		for _, chat := range resp.Data {
			chats = append(chats, chat.toEntity())
		}
		if len(resp.Data) < pageSize {
			break
		}
	}
	return chats, nil
}

// GetChat fetches a single chat by ID.
func (c *Client) GetChat(ctx context.Context, chatID int64) (*entity.Chat, error) {
	var resp struct {
		Data *apiChat `json:"data"`
	}
	err := c.get(ctx, "/chats/"+strconv.FormatInt(chatID, 10), nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("chat %d: %w", chatID, entity.ErrChatNotFound)
		}
		return nil, fmt.Errorf("getting chat %d: %w", chatID, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("chat %d: %w", chatID, entity.ErrChatNotFound)
	}
	chat := resp.Data.toEntity()
	return &chat, nil
}
