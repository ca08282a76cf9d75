package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"safetyhub-assessment-service/internal/domain"
)

// LeaderboardCache keeps computed leaderboards in Redis between submissions
// (key assessment:{id}:leaderboard). Everything is best-effort: a cache failure
// degrades to recomputation, never to a request error.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) Get(ctx context.Context, assessmentID string) (domain.Leaderboard, bool) {
	raw, err := c.client.Get(ctx, c.key(assessmentID)).Bytes()
	if err != nil {
		return domain.Leaderboard{}, false
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		_ = c.client.Del(ctx, c.key(assessmentID)).Err()
		return domain.Leaderboard{}, false
	}
	return lb, true
}

func (c *LeaderboardCache) Set(ctx context.Context, assessmentID string, lb domain.Leaderboard) {
	raw, err := json.Marshal(lb)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(assessmentID), raw, c.ttl).Err()
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, assessmentID string) {
	_ = c.client.Del(ctx, c.key(assessmentID)).Err()
}

func (c *LeaderboardCache) key(assessmentID string) string {
	return "assessment:" + assessmentID + ":leaderboard"
}
