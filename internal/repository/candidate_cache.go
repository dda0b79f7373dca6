package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

const candidateCacheTTL = 30 * time.Second

// CandidateCache is a best-effort Redis cache in front of candidate
// retrieval. Duplicate detection tolerates staleness, so a short TTL and
// silent misses are acceptable; every error degrades to a store read.
type CandidateCache struct {
	client *redis.Client
}

// NewCandidateCache wraps the Redis client. A nil client disables
// caching entirely.
func NewCandidateCache(client *redis.Client) *CandidateCache {
	return &CandidateCache{client: client}
}

// Get returns the cached candidate list for the filter, or false on
// miss or any Redis failure.
func (c *CandidateCache) Get(ctx context.Context, filter CandidateFilter) ([]domain.Report, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, cacheKey(filter)).Bytes()
	if err != nil {
		return nil, false
	}
	var reports []domain.Report
	if err := json.Unmarshal(payload, &reports); err != nil {
		return nil, false
	}
	return reports, true
}

// Set stores the candidate list; failures are ignored.
func (c *CandidateCache) Set(ctx context.Context, filter CandidateFilter, reports []domain.Report) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(reports)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(filter), payload, candidateCacheTTL).Err()
}

// Invalidate drops cached entries for a block/category pair after a new
// report lands there.
func (c *CandidateCache) Invalidate(ctx context.Context, blockID string, category domain.Category) {
	if c == nil || c.client == nil {
		return
	}
	pattern := fmt.Sprintf("dup:candidates:%s:%s:*", blockID, category)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	_ = c.client.Del(ctx, keys...).Err()
}

func cacheKey(filter CandidateFilter) string {
	room := "-"
	if filter.RoomNumber != nil && *filter.RoomNumber != "" {
		room = *filter.RoomNumber
	}
	return fmt.Sprintf("dup:candidates:%s:%s:%s", filter.BlockID, filter.Category, room)
}
