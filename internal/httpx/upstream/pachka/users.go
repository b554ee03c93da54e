package pachka

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

// apiUser is the wire shape of a directory entry
type apiUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
	ImageURL  string `json:"image_url"`
	Bot       bool   `json:"bot"`
	Suspended bool   `json:"suspended"`
}

func (u apiUser) toEntity() entity.User {
	return entity.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Nickname:  u.Nickname,
		ImageURL:  u.ImageURL,
		Bot:       u.Bot,
		Suspended: u.Suspended,
	}
}

// ListUsers fetches the whole workspace directory, page by page.
func (c *Client) ListUsers(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("per", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))

		var resp struct {
			Data []apiUser `json:"data"`
		}
		if err := c.get(ctx, "/users", params, &resp); err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}
		for _, u := range resp.Data {
			users = append(users, u.toEntity())
		}
		if len(resp.Data) < pageSize {
			break
		}
	}
	return users, nil
}

// ValidateToken checks the configured access token with a minimal directory
// request. A nil return means the token is accepted by the platform.
func (c *Client) ValidateToken(ctx context.Context) error {
	params := url.Values{}
	params.Set("per", "1")
	params.Set("page", "1")

	if err := c.get(ctx, "/users", params, nil); err != nil {
		return fmt.Errorf("validating token: %w", err)
	}
	return nil
}
