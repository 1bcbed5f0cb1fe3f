package model

import (
	"errors"
	"time"
)

// Favorite marks a recipe saved by a user.
type Favorite struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	RecipeID  int64     `db:"recipe_id" json:"recipe_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var (
	ErrAlreadyFavorited = errors.New("recipe already favorited")
	ErrNotFavorited     = errors.New("recipe not favorited")
)
