package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"recipegram_22520060/internal/cache"
	"recipegram_22520060/internal/queue"
	"recipegram_22520060/internal/service"
)

// FollowerProvider defines the interface for fetching followers.
// This abstracts the repository layer so workers don't depend on DB directly.
type FollowerProvider interface {
	// GetFollowerIDs returns all follower IDs for a given user.
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

// RecentRecipesProvider defines the interface for fetching recent recipes.
// Used for backfilling feed when a user follows someone.
type RecentRecipesProvider interface {
	// GetRecentRecipesByUser returns recent recipes by a user for backfilling.
	// Returns recipes as (recipeID, timestamp) pairs.
	GetRecentRecipesByUser(ctx context.Context, userID int64, limit int) ([]cache.RecipeScore, error)
}

// PushNotifier sends a best-effort push to the author's followers.
type PushNotifier interface {
	NotifyFollowersNewRecipe(ctx context.Context, n service.NewRecipeNotification)
}

// Handler processes recipe events from the queue.
type Handler struct {
	feedCache        cache.FeedCache
	followerProvider FollowerProvider
	recipesProvider  RecentRecipesProvider
	notifier         PushNotifier // Can be nil if push not wired
}

// NewHandler creates a new event handler.
func NewHandler(
	feedCache cache.FeedCache,
	followerProvider FollowerProvider,
	recipesProvider RecentRecipesProvider,
) *Handler {
	return &Handler{
		feedCache:        feedCache,
		followerProvider: followerProvider,
		recipesProvider:  recipesProvider,
	}
}

// SetPushNotifier sets the push notifier (optional, for new-recipe pushes).
func (h *Handler) SetPushNotifier(n PushNotifier) {
	h.notifier = n
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.RecipeEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventRecipeCreated:
		err = h.handleRecipeCreated(ctx, event)
	case queue.EventRecipeDeleted:
		err = h.handleRecipeDeleted(ctx, event)
	case queue.EventUserFollowed:
		err = h.handleUserFollowed(ctx, event)
	case queue.EventUserUnfollowed:
		err = h.handleUserUnfollowed(ctx, event)
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handleRecipeCreated fans out a new recipe to all followers' feed caches and
// push-notifies the followers' devices.
func (h *Handler) handleRecipeCreated(ctx context.Context, event queue.RecipeEvent) error {
	log.Printf("[Worker] RecipeCreated: recipe=%d author=%d", event.RecipeID, event.AuthorID)

	// Get all followers of the author
	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	log.Printf("[Worker] RecipeCreated: fanning out to %d followers", len(followers))

	// Fan-out: add recipe to each follower's feed cache
	var failCount int
	for _, followerID := range followers {
		err := h.feedCache.AddRecipe(ctx, followerID, event.RecipeID, event.Timestamp)
		if err != nil {
			log.Printf("[Worker] RecipeCreated: failed to add to user=%d err=%v", followerID, err)
			failCount++
			// Continue with other followers - don't fail entire fan-out
		}
	}

	// Also add to author's own feed (they see their own recipes)
	if err := h.feedCache.AddRecipe(ctx, event.AuthorID, event.RecipeID, event.Timestamp); err != nil {
		log.Printf("[Worker] RecipeCreated: failed to add to author's own feed err=%v", err)
	}

	log.Printf("[Worker] RecipeCreated DONE: recipe=%d fanout=%d failed=%d",
		event.RecipeID, len(followers)+1, failCount)

	// Push notification to followers' devices (best-effort; never fails the event)
	if h.notifier != nil {
		h.notifier.NotifyFollowersNewRecipe(ctx, service.NewRecipeNotification{
			AuthorID:    event.AuthorID,
			AuthorName:  event.AuthorName,
			RecipeID:    event.RecipeID,
			RecipeTitle: event.RecipeTitle,
		})
	}

	return nil
}

// handleRecipeDeleted removes a recipe from all followers' feed caches.
func (h *Handler) handleRecipeDeleted(ctx context.Context, event queue.RecipeEvent) error {
	log.Printf("[Worker] RecipeDeleted: recipe=%d author=%d", event.RecipeID, event.AuthorID)

	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	log.Printf("[Worker] RecipeDeleted: removing from %d followers' feeds", len(followers))

	var failCount int
	for _, followerID := range followers {
		err := h.feedCache.RemoveRecipe(ctx, followerID, event.RecipeID)
		if err != nil {
			log.Printf("[Worker] RecipeDeleted: failed to remove from user=%d err=%v", followerID, err)
			failCount++
		}
	}

	// Also remove from author's own feed
	if err := h.feedCache.RemoveRecipe(ctx, event.AuthorID, event.RecipeID); err != nil {
		log.Printf("[Worker] RecipeDeleted: failed to remove from author's own feed err=%v", err)
	}

	log.Printf("[Worker] RecipeDeleted DONE: recipe=%d fanout=%d failed=%d",
		event.RecipeID, len(followers)+1, failCount)

	return nil
}

// handleUserFollowed backfills the follower's feed with the followee's recent recipes.
func (h *Handler) handleUserFollowed(ctx context.Context, event queue.RecipeEvent) error {
	log.Printf("[Worker] UserFollowed: follower=%d followee=%d", event.FollowerID, event.FolloweeID)

	const backfillLimit = 20
	recipes, err := h.recipesProvider.GetRecentRecipesByUser(ctx, event.FolloweeID, backfillLimit)
	if err != nil {
		return fmt.Errorf("get recent recipes: %w", err)
	}

	if len(recipes) == 0 {
		log.Printf("[Worker] UserFollowed: followee=%d has no recipes to backfill", event.FolloweeID)
		return nil
	}

	log.Printf("[Worker] UserFollowed: backfilling %d recipes to follower=%d", len(recipes), event.FollowerID)

	var failCount int
	for _, r := range recipes {
		err := h.feedCache.AddRecipe(ctx, event.FollowerID, r.RecipeID, r.Timestamp)
		if err != nil {
			log.Printf("[Worker] UserFollowed: failed to add recipe=%d err=%v", r.RecipeID, err)
			failCount++
		}
	}

	log.Printf("[Worker] UserFollowed DONE: follower=%d backfilled=%d failed=%d",
		event.FollowerID, len(recipes), failCount)

	return nil
}

// handleUserUnfollowed removes the followee's recipes from the follower's feed.
func (h *Handler) handleUserUnfollowed(ctx context.Context, event queue.RecipeEvent) error {
	log.Printf("[Worker] UserUnfollowed: follower=%d followee=%d", event.FollowerID, event.FolloweeID)

	// Higher limit than backfill since we want to remove everything of theirs
	const removeLimit = 100
	recipes, err := h.recipesProvider.GetRecentRecipesByUser(ctx, event.FolloweeID, removeLimit)
	if err != nil {
		return fmt.Errorf("get recipes to remove: %w", err)
	}

	if len(recipes) == 0 {
		log.Printf("[Worker] UserUnfollowed: followee=%d has no recipes to remove", event.FolloweeID)
		return nil
	}

	log.Printf("[Worker] UserUnfollowed: removing %d recipes from follower=%d", len(recipes), event.FollowerID)

	var failCount int
	for _, r := range recipes {
		err := h.feedCache.RemoveRecipe(ctx, event.FollowerID, r.RecipeID)
		if err != nil {
			log.Printf("[Worker] UserUnfollowed: failed to remove recipe=%d err=%v", r.RecipeID, err)
			failCount++
		}
	}

	log.Printf("[Worker] UserUnfollowed DONE: follower=%d removed=%d failed=%d",
		event.FollowerID, len(recipes), failCount)

	return nil
}
