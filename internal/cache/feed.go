package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FeedCachePrefix is the key prefix for user feed caches
	FeedCachePrefix = "feed:user:"

	// FeedCacheCap is the maximum number of recipes to cache per user
	FeedCacheCap = 500

	// FeedCacheTTL is the TTL for feed cache entries
	FeedCacheTTL = 7 * 24 * time.Hour
)

// RecipeScore represents a recipe with its publish timestamp used as the
// sorted-set score.
type RecipeScore struct {
	RecipeID  int64
	Timestamp int64 // Unix timestamp
}

// FeedCache holds the precomputed home feed (recipes of followed authors)
// for each user. Backed by one Redis sorted set per user.
type FeedCache interface {
	// AddRecipe adds a recipe to a user's feed cache.
	// Pipeline: ZADD + ZREMRANGEBYRANK (maintain cap) + EXPIRE (refresh TTL)
	AddRecipe(ctx context.Context, userID, recipeID int64, timestamp int64) error

	// RemoveRecipe removes a recipe from a user's feed cache.
	RemoveRecipe(ctx context.Context, userID, recipeID int64) error

	// GetFeed retrieves recipe IDs from a user's feed cache, newest first.
	// A nil cursor returns the newest entries; otherwise entries older than
	// the cursor score. Returns ids, their scores, and any error.
	GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) (recipeIDs []int64, scores []float64, err error)

	// GetScore returns the timestamp score for a recipe in a user's feed cache.
	// found=false if the recipe is not cached.
	GetScore(ctx context.Context, userID, recipeID int64) (score int64, found bool, err error)

	// WarmCache bulk-inserts recipes into a user's feed cache (pipelined ZADD).
	WarmCache(ctx context.Context, userID int64, recipes []RecipeScore) error

	// Size returns the number of recipes in a user's feed cache.
	Size(ctx context.Context, userID int64) (int64, error)

	// Exists checks if a user has a feed cache entry. Returns false for new
	// users or after TTL expiry; callers should warm the cache then.
	Exists(ctx context.Context, userID int64) (bool, error)
}

// RedisFeedCache implements FeedCache using Redis Sorted Sets.
type RedisFeedCache struct {
	client *redis.Client
}

// NewFeedCache creates a new FeedCache backed by Redis.
func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", FeedCachePrefix, userID)
}

// AddRecipe adds a recipe to a user's feed cache using a pipeline.
func (c *RedisFeedCache) AddRecipe(ctx context.Context, userID, recipeID int64, timestamp int64) error {
	key := feedKey(userID)

	pipe := c.client.Pipeline()

	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(timestamp),
		Member: strconv.FormatInt(recipeID, 10),
	})

	// Keep the newest FeedCacheCap entries, drop the rest.
	// ZREMRANGEBYRANK is inclusive and rank 0 is the oldest score.
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))

	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] AddRecipe FAILED: user=%d recipe=%d err=%v", userID, recipeID, err)
		return fmt.Errorf("add recipe to feed: %w", err)
	}

	return nil
}

// RemoveRecipe removes a recipe from a user's feed cache.
func (c *RedisFeedCache) RemoveRecipe(ctx context.Context, userID, recipeID int64) error {
	key := feedKey(userID)
	member := strconv.FormatInt(recipeID, 10)

	if _, err := c.client.ZRem(ctx, key, member).Result(); err != nil {
		log.Printf("[FeedCache] RemoveRecipe FAILED: user=%d recipe=%d err=%v", userID, recipeID, err)
		return fmt.Errorf("remove recipe from feed: %w", err)
	}

	return nil
}

// GetFeed retrieves recipe IDs from a user's feed cache, newest first.
func (c *RedisFeedCache) GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	key := feedKey(userID)

	var results []redis.Z
	var err error

	if cursorScore == nil {
		results, err = c.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	} else {
		// "(" prefix makes the cursor bound exclusive
		results, err = c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min:    "-inf",
			Max:    fmt.Sprintf("(%f", *cursorScore),
			Offset: 0,
			Count:  int64(limit),
		}).Result()
	}

	if err != nil {
		log.Printf("[FeedCache] GetFeed FAILED: user=%d err=%v", userID, err)
		return nil, nil, fmt.Errorf("get feed: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, key, FeedCacheTTL)

	recipeIDs := make([]int64, len(results))
	scores := make([]float64, len(results))

	for i, z := range results {
		id, err := strconv.ParseInt(z.Member.(string), 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("parse recipe id: %w", err)
		}
		recipeIDs[i] = id
		scores[i] = z.Score
	}

	return recipeIDs, scores, nil
}

// GetScore returns the timestamp score for a recipe in a user's feed cache.
func (c *RedisFeedCache) GetScore(ctx context.Context, userID, recipeID int64) (int64, bool, error) {
	key := feedKey(userID)
	member := strconv.FormatInt(recipeID, 10)

	score, err := c.client.ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get score: %w", err)
	}

	return int64(score), true, nil
}

// WarmCache bulk-inserts recipes into a user's feed cache using a pipeline.
func (c *RedisFeedCache) WarmCache(ctx context.Context, userID int64, recipes []RecipeScore) error {
	if len(recipes) == 0 {
		return nil
	}

	key := feedKey(userID)

	pipe := c.client.Pipeline()

	members := make([]redis.Z, len(recipes))
	for i, r := range recipes {
		members[i] = redis.Z{
			Score:  float64(r.Timestamp),
			Member: strconv.FormatInt(r.RecipeID, 10),
		}
	}
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] WarmCache FAILED: user=%d recipes=%d err=%v", userID, len(recipes), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedCache] WarmCache OK: user=%d recipes=%d", userID, len(recipes))
	return nil
}

// Size returns the number of recipes in a user's feed cache.
func (c *RedisFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	size, err := c.client.ZCard(ctx, feedKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("feed size: %w", err)
	}
	return size, nil
}

// Exists checks if a user has a feed cache entry.
func (c *RedisFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	n, err := c.client.Exists(ctx, feedKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("feed exists: %w", err)
	}
	return n > 0, nil
}
