package model

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// Recipe represents a published recipe with its metadata.
type Recipe struct {
	ID            int64          `db:"id" json:"id"`
	UserID        int64          `db:"user_id" json:"user_id"`
	Title         string         `db:"title" json:"title"`
	Description   *string        `db:"description" json:"description"`
	Ingredients   pq.StringArray `db:"ingredients" json:"ingredients"`
	Steps         pq.StringArray `db:"steps" json:"steps"`
	CategoryID    *int64         `db:"category_id" json:"category_id"`
	PhotoURL      *string        `db:"photo_url" json:"photo_url"`
	FavoriteCount int            `db:"favorite_count" json:"favorite_count"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time     `db:"deleted_at" json:"-"`

	// Joined fields (not in recipes table)
	Author      *UserSummary `json:"author,omitempty"`
	Category    *string      `json:"category,omitempty"`
	IsFavorited bool         `json:"is_favorited"`
}

// RecipeSummary is a lightweight representation for profile and category grids.
type RecipeSummary struct {
	ID            int64   `db:"id" json:"id"`
	Title         string  `db:"title" json:"title"`
	PhotoURL      *string `db:"photo_url" json:"photo_url"`
	FavoriteCount int     `db:"favorite_count" json:"favorite_count"`
}

// FeedRecipe is an enriched recipe for feed display.
type FeedRecipe struct {
	Recipe
	Author UserSummary `json:"author"`
}

// FeedResponse is the paginated feed response.
type FeedResponse struct {
	Recipes    []FeedRecipe `json:"recipes"`
	NextCursor *string      `json:"next_cursor,omitempty"`
	HasMore    bool         `json:"has_more"`
}

// RecipeListResponse is the paginated recipe list response (for profile/category).
type RecipeListResponse struct {
	Recipes    []RecipeSummary `json:"recipes"`
	NextCursor *string         `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

// CreateRecipeRequest is the request body for publishing a recipe.
type CreateRecipeRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	CategoryID  *int64   `json:"category_id"`
	PhotoURL    *string  `json:"photo_url"` // Pre-uploaded photo URL
}

// Recipe limits
const (
	MaxRecipeTitleLength       = 200
	MaxRecipeDescriptionLength = 5000
	MaxRecipeIngredients       = 100
	MaxRecipeSteps             = 50
)

// Recipe errors
var (
	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrNotRecipeOwner     = errors.New("not the owner of this recipe")
	ErrTitleRequired      = errors.New("recipe title is required")
	ErrTitleTooLong       = errors.New("recipe title too long")
	ErrDescriptionTooLong = errors.New("recipe description too long")
	ErrTooManyIngredients = errors.New("too many ingredients")
	ErrTooManySteps       = errors.New("too many steps")
)
