package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"recipegram_22520060/internal/model"
	"recipegram_22520060/internal/repository"
)

type FavoriteService struct {
	recipeRepo repository.RecipeRepository
	db         *sqlx.DB
}

func NewFavoriteService(recipeRepo repository.RecipeRepository, db *sqlx.DB) *FavoriteService {
	return &FavoriteService{
		recipeRepo: recipeRepo,
		db:         db,
	}
}

// Favorite saves a recipe for a user. Uses transaction: insert favorite + increment counter.
func (s *FavoriteService) Favorite(ctx context.Context, recipeID, userID int64) error {
	exists, err := s.recipeRepo.Exists(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("check recipe exists: %w", err)
	}
	if !exists {
		return model.ErrRecipeNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert favorite (fails if already favorited)
	if err := s.recipeRepo.Favorite(ctx, tx, recipeID, userID); err != nil {
		return err
	}

	if err := s.recipeRepo.IncrementFavoriteCount(ctx, tx, recipeID, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[FavoriteService] User %d favorited recipe %d", userID, recipeID)
	return nil
}

// Unfavorite removes a saved recipe. Uses transaction: delete favorite + decrement counter.
func (s *FavoriteService) Unfavorite(ctx context.Context, recipeID, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete favorite (fails if not favorited)
	if err := s.recipeRepo.Unfavorite(ctx, tx, recipeID, userID); err != nil {
		return err
	}

	if err := s.recipeRepo.IncrementFavoriteCount(ctx, tx, recipeID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[FavoriteService] User %d unfavorited recipe %d", userID, recipeID)
	return nil
}
