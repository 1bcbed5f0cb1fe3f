package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the recipe stream
const (
	EventRecipeCreated  = "recipe_created"
	EventRecipeDeleted  = "recipe_deleted"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
)

// Stream names
const (
	StreamRecipes = "stream:recipes"
)

// Consumer group name for recipe workers
const (
	ConsumerGroupRecipes = "recipe_workers"
)

// RecipeEvent represents an event published to the recipe stream.
// All recipe-related events share this structure.
type RecipeEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// Recipe events (RecipeCreated, RecipeDeleted)
	RecipeID int64 `json:"recipe_id,omitempty"`
	AuthorID int64 `json:"author_id,omitempty"`

	// Carried on RecipeCreated so the push worker does not refetch
	RecipeTitle string `json:"recipe_title,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`

	// Follow events (UserFollowed, UserUnfollowed)
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`
}

// NewRecipeCreatedEvent creates an event for a freshly published recipe.
// The worker fans the recipe out to follower feed caches and push-notifies
// the author's followers.
func NewRecipeCreatedEvent(recipeID, authorID int64, recipeTitle, authorName string) RecipeEvent {
	return RecipeEvent{
		Type:        EventRecipeCreated,
		Timestamp:   time.Now().Unix(),
		RecipeID:    recipeID,
		AuthorID:    authorID,
		RecipeTitle: recipeTitle,
		AuthorName:  authorName,
	}
}

// NewRecipeDeletedEvent creates an event for a deleted recipe.
// The worker removes the recipe from all follower feed caches.
func NewRecipeDeletedEvent(recipeID, authorID int64) RecipeEvent {
	return RecipeEvent{
		Type:      EventRecipeDeleted,
		Timestamp: time.Now().Unix(),
		RecipeID:  recipeID,
		AuthorID:  authorID,
	}
}

// NewUserFollowedEvent creates an event for a new follow.
// The worker backfills recent recipes from the followee into the follower's feed cache.
func NewUserFollowedEvent(followerID, followeeID int64) RecipeEvent {
	return RecipeEvent{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewUserUnfollowedEvent creates an event for an unfollow.
// The worker removes the followee's recipes from the follower's feed cache.
func NewUserUnfollowedEvent(followerID, followeeID int64) RecipeEvent {
	return RecipeEvent{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so the full event is serialized to
// JSON in a "data" field.
func (e RecipeEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseRecipeEvent parses a RecipeEvent from Redis stream message values.
func ParseRecipeEvent(values map[string]interface{}) (RecipeEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return RecipeEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event RecipeEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return RecipeEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
