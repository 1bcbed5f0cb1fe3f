package model

import "errors"

// Category is a curated recipe category (e.g. "Desserts", "Vegan").
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

var ErrCategoryNotFound = errors.New("category not found")
