package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

const defaultTTL = 15 * time.Minute

// AnalyticsCache caches finished analytics results in Redis so repeated runs
// over the same chats and range skip the upstream fan-out entirely.
type AnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalyticsCache creates a new analytics result cache
func NewAnalyticsCache(client *redis.Client, ttl time.Duration) *AnalyticsCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &AnalyticsCache{client: client, ttl: ttl}
}

// GetResult returns the cached result for the chats and range, or (nil, nil)
// on a miss.
func (c *AnalyticsCache) GetResult(ctx context.Context, chatIDs []int64, rng entity.DateRange) (*entity.AnalyticsResult, error) {
	data, err := c.client.Get(ctx, resultKey(chatIDs, rng)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached result: %w", err)
	}

	var result entity.AnalyticsResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding cached result: %w", err)
	}
	return &result, nil
}

// SetResult stores a finished result under the chats-and-range key.
func (c *AnalyticsCache) SetResult(ctx context.Context, chatIDs []int64, rng entity.DateRange, result *entity.AnalyticsResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := c.client.Set(ctx, resultKey(chatIDs, rng), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached result: %w", err)
	}
	return nil
}

// resultKey is stable under chat ID reordering.
func resultKey(chatIDs []int64, rng entity.DateRange) string {
	ids := make([]string, len(chatIDs))
	sorted := append([]int64(nil), chatIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, id := range sorted {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("analytics:result:%s:%s:%s",
		strings.Join(ids, ","),
		rng.From.Format("2006-01-02"),
		rng.To.Format("2006-01-02"),
	)
}
