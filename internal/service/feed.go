package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"recipegram_22520060/internal/cache"
	"recipegram_22520060/internal/model"
	"recipegram_22520060/internal/repository"
)

const (
	// FeedDefaultLimit is the default number of recipes per page
	FeedDefaultLimit = 10

	// FeedMaxLimit is the maximum number of recipes per page
	FeedMaxLimit = 50

	// CacheWarmLimit is max recipes to fetch when warming cache
	CacheWarmLimit = 500
)

type FeedService struct {
	feedCache  cache.FeedCache
	recipeRepo repository.RecipeRepository
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFeedService(
	feedCache cache.FeedCache,
	recipeRepo repository.RecipeRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
) *FeedService {
	return &FeedService{
		feedCache:  feedCache,
		recipeRepo: recipeRepo,
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// GetFeed retrieves the user's home feed with cursor-based pagination.
//
// Flow:
// 1. Check if cache exists for user
// 2. If no cache -> warm it (fetch recipes from followees, up to 500)
// 3. Get recipe IDs from cache (using cursor if provided)
// 4. Hydrate: fetch full recipe details from DB
// 5. Build next cursor from last recipe
func (s *FeedService) GetFeed(ctx context.Context, userID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	startTime := time.Now()

	if limit <= 0 {
		limit = FeedDefaultLimit
	}
	if limit > FeedMaxLimit {
		limit = FeedMaxLimit
	}

	exists, err := s.feedCache.Exists(ctx, userID)
	if err != nil {
		log.Printf("[FeedService] Cache check failed for user=%d: %v", userID, err)
	}

	if !exists {
		log.Printf("[FeedService] Cache miss for user=%d, warming...", userID)
		if err := s.warmCache(ctx, userID); err != nil {
			log.Printf("[FeedService] Cache warm failed for user=%d: %v", userID, err)
		}
	}

	var cursorScore *float64
	if cursor != nil {
		score, _, err := parseFeedCursor(*cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		cursorScore = &score
	}

	recipeIDs, scores, err := s.feedCache.GetFeed(ctx, userID, cursorScore, limit)
	if err != nil {
		log.Printf("[FeedService] GetFeed cache error: %v", err)
		return nil, fmt.Errorf("get feed from cache: %w", err)
	}

	if len(recipeIDs) == 0 {
		log.Printf("[FeedService] Empty feed for user=%d", userID)
		return &model.FeedResponse{Recipes: []model.FeedRecipe{}}, nil
	}

	recipes, err := s.hydrateRecipes(ctx, userID, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("hydrate recipes: %w", err)
	}

	var nextCursor *string
	hasMore := len(recipes) == limit
	if hasMore && len(scores) > 0 {
		lastRecipe := recipes[len(recipes)-1]
		lastScore := scores[len(scores)-1]
		c := formatFeedCursor(lastScore, lastRecipe.ID)
		nextCursor = &c
	}

	log.Printf("[FeedService] GetFeed OK: user=%d recipes=%d hasMore=%v duration=%v",
		userID, len(recipes), hasMore, time.Since(startTime))

	return &model.FeedResponse{
		Recipes:    recipes,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// warmCache populates the user's feed cache from DB.
func (s *FeedService) warmCache(ctx context.Context, userID int64) error {
	startTime := time.Now()

	followeeIDs, err := s.followRepo.GetFolloweeIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("get followee ids: %w", err)
	}

	// Include user's own recipes in their feed
	followeeIDs = append(followeeIDs, userID)

	recipes, err := s.recipeRepo.GetFeedRecipeIDs(ctx, followeeIDs, CacheWarmLimit)
	if err != nil {
		return fmt.Errorf("get feed recipe ids: %w", err)
	}

	if len(recipes) == 0 {
		log.Printf("[FeedService] No recipes to warm for user=%d", userID)
		return nil
	}

	if err := s.feedCache.WarmCache(ctx, userID, recipes); err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedService] Cache warmed: user=%d recipes=%d duration=%v",
		userID, len(recipes), time.Since(startTime))

	return nil
}

// hydrateRecipes fetches full recipe details and enriches with author info.
func (s *FeedService) hydrateRecipes(ctx context.Context, viewerID int64, recipeIDs []int64) ([]model.FeedRecipe, error) {
	recipes, err := s.recipeRepo.GetByIDs(ctx, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("get recipes by ids: %w", err)
	}

	authorIDSet := make(map[int64]struct{})
	for _, r := range recipes {
		authorIDSet[r.UserID] = struct{}{}
	}
	authorIDs := make([]int64, 0, len(authorIDSet))
	for id := range authorIDSet {
		authorIDs = append(authorIDs, id)
	}

	authors := make(map[int64]model.UserSummary)
	for _, authorID := range authorIDs {
		user, err := s.userRepo.GetByID(ctx, authorID)
		if err != nil {
			log.Printf("[FeedService] Failed to get author %d: %v", authorID, err)
			continue
		}
		authors[authorID] = model.UserSummary{
			ID:          user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			AvatarURL:   user.AvatarURL,
		}
	}

	followStatus, err := s.followRepo.CheckFollows(ctx, viewerID, authorIDs)
	if err != nil {
		log.Printf("[FeedService] Failed to check follows: %v", err)
	}

	favStatus, err := s.recipeRepo.CheckFavorites(ctx, viewerID, recipeIDs)
	if err != nil {
		log.Printf("[FeedService] Failed to check favorites: %v", err)
	}

	feedRecipes := make([]model.FeedRecipe, len(recipes))
	for i, r := range recipes {
		author := authors[r.UserID]
		if followStatus != nil {
			author.IsFollowing = followStatus[r.UserID]
		}
		if favStatus != nil {
			r.IsFavorited = favStatus[r.ID]
		}
		feedRecipes[i] = model.FeedRecipe{
			Recipe: r,
			Author: author,
		}
	}

	return feedRecipes, nil
}

// parseFeedCursor parses "id:timestamp" format cursor.
// Returns the timestamp (as score) and recipe ID.
func parseFeedCursor(cursor string) (float64, int64, error) {
	parts := strings.Split(cursor, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cursor format, expected id:timestamp")
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid recipe id in cursor: %w", err)
	}

	score, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	return score, id, nil
}

// formatFeedCursor creates "id:timestamp" format cursor.
func formatFeedCursor(score float64, id int64) string {
	return fmt.Sprintf("%d:%.0f", id, score)
}
