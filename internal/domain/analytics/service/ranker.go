package service

import (
	"sort"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

// Activity score weights.
const (
	messageWeight       = 1.0
	threadMessageWeight = 0.8
	reactionWeight      = 0.25
)

// topUsersLimit caps the published leaderboard.
const topUsersLimit = 10

// RankUsers folds per-user activity counts over the run's messages, thread
// replies and reaction events, scores them and returns the top 10 by score
// descending. Every reaction event counts, without per-message deduplication.
// Bots and users the directory cannot name are dropped from the output; ties
// keep fold order.
func RankUsers(messages, threadReplies []entity.Message, reactions []entity.ReactionEvent, directory []entity.User) []entity.UserStat {
	type counts struct {
		messages       int
		threadMessages int
		reactions      int
	}
	byUser := make(map[int64]*counts)
	var order []int64
	touch := func(userID int64) *counts {
		c := byUser[userID]
		if c == nil {
			c = &counts{}
			byUser[userID] = c
			order = append(order, userID)
		}
		return c
	}

	for _, msg := range messages {
		if msg.AuthorID != 0 && !msg.IsThreadReply {
			touch(msg.AuthorID).messages++
		}
	}
	for _, reply := range threadReplies {
		if reply.AuthorID != 0 {
			touch(reply.AuthorID).threadMessages++
		}
	}
	for _, reaction := range reactions {
		if reaction.UserID != 0 {
			touch(reaction.UserID).reactions++
		}
	}

	users := make(map[int64]entity.User, len(directory))
	for _, u := range directory {
		users[u.ID] = u
	}

	stats := make([]entity.UserStat, 0, len(order))
	for _, userID := range order {
		u, known := users[userID]
		if !known || u.Bot {
			continue
		}
		name := u.DisplayName()
		if name == "" {
			continue
		}
		c := byUser[userID]
		stats = append(stats, entity.UserStat{
			UserID:         userID,
			Name:           name,
			Avatar:         u.ImageURL,
			Messages:       c.messages,
			ThreadMessages: c.threadMessages,
			Reactions:      c.reactions,
			Score: float64(c.messages)*messageWeight +
				float64(c.threadMessages)*threadMessageWeight +
				float64(c.reactions)*reactionWeight,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Score > stats[j].Score
	})
	if len(stats) > topUsersLimit {
		stats = stats[:topUsersLimit]
	}
	return stats
}
