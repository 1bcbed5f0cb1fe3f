package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"recipegram_22520060/internal/cache"
	"recipegram_22520060/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type FollowRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
	// GetFollowerIDs returns every follower of a user; used by the feed
	// fan-out worker and by push audience resolution.
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
}

type RecipeRepository interface {
	Create(ctx context.Context, recipe *model.Recipe) error
	GetByID(ctx context.Context, recipeID int64) (*model.Recipe, error)
	GetByIDs(ctx context.Context, recipeIDs []int64) ([]model.Recipe, error)
	Delete(ctx context.Context, recipeID, userID int64) error
	GetUserRecipes(ctx context.Context, userID int64, cursor *int64, limit int) ([]model.RecipeSummary, *int64, error)
	GetByCategory(ctx context.Context, categoryID int64, cursor *int64, limit int) ([]model.RecipeSummary, *int64, error)
	GetRecentRecipesByUser(ctx context.Context, userID int64, limit int) ([]cache.RecipeScore, error)
	GetFeedRecipeIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.RecipeScore, error)
	// CheckFavorites checks which recipes the user has favorited
	CheckFavorites(ctx context.Context, userID int64, recipeIDs []int64) (map[int64]bool, error)
	// Favorite methods (counter lives on the recipes row)
	Favorite(ctx context.Context, tx *sqlx.Tx, recipeID, userID int64) error
	Unfavorite(ctx context.Context, tx *sqlx.Tx, recipeID, userID int64) error
	IncrementFavoriteCount(ctx context.Context, tx *sqlx.Tx, recipeID int64, delta int) error
	Exists(ctx context.Context, recipeID int64) (bool, error)
}

type CategoryRepository interface {
	GetAll(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id int64) (*model.Category, error)
}

type DeviceTokenRepository interface {
	// Upsert creates or reactivates a device token for a user
	Upsert(ctx context.Context, userID int64, token, platform string) error
	// Deactivate marks a device token inactive (logout)
	Deactivate(ctx context.Context, token string) error
	// Delete removes a device token entirely (gateway reported it dead)
	Delete(ctx context.Context, token string) error
	// GetActiveTokensForUsers returns the active token strings registered to
	// any of the given users. Callers must not assume uniqueness; the same
	// physical device can appear under more than one row.
	GetActiveTokensForUsers(ctx context.Context, userIDs []int64) ([]string, error)
}
