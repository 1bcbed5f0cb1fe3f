package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"recipegram_22520060/internal/cache"
	"recipegram_22520060/internal/model"
)

type recipeRepository struct {
	db *sqlx.DB
}

func NewRecipeRepository(db *sqlx.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

// Create inserts a recipe and bumps the author's recipe counter in one tx.
func (r *recipeRepository) Create(ctx context.Context, recipe *model.Recipe) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO recipes (user_id, title, description, ingredients, steps, category_id, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, favorite_count, created_at, updated_at
	`
	err = tx.QueryRowxContext(ctx, query,
		recipe.UserID,
		recipe.Title,
		recipe.Description,
		recipe.Ingredients,
		recipe.Steps,
		recipe.CategoryID,
		recipe.PhotoURL,
	).Scan(&recipe.ID, &recipe.FavoriteCount, &recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert recipe: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET recipe_count = recipe_count + 1 WHERE id = $1`, recipe.UserID); err != nil {
		return fmt.Errorf("increment recipe count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *recipeRepository) GetByID(ctx context.Context, recipeID int64) (*model.Recipe, error) {
	query := `
		SELECT id, user_id, title, description, ingredients, steps, category_id, photo_url,
		       favorite_count, created_at, updated_at, deleted_at
		FROM recipes
		WHERE id = $1 AND deleted_at IS NULL
	`
	var recipe model.Recipe
	err := r.db.GetContext(ctx, &recipe, query, recipeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrRecipeNotFound
		}
		return nil, fmt.Errorf("get recipe by id: %w", err)
	}
	return &recipe, nil
}

func (r *recipeRepository) GetByIDs(ctx context.Context, recipeIDs []int64) ([]model.Recipe, error) {
	if len(recipeIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, title, description, ingredients, steps, category_id, photo_url,
		       favorite_count, created_at, updated_at, deleted_at
		FROM recipes
		WHERE id = ANY($1) AND deleted_at IS NULL
	`
	var recipes []model.Recipe
	err := r.db.SelectContext(ctx, &recipes, query, pq.Array(recipeIDs))
	if err != nil {
		return nil, fmt.Errorf("get recipes by ids: %w", err)
	}
	return recipes, nil
}

// Delete soft-deletes a recipe after validating ownership, and decrements the
// author's recipe counter.
func (r *recipeRepository) Delete(ctx context.Context, recipeID, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ownerID int64
	err = tx.GetContext(ctx, &ownerID,
		`SELECT user_id FROM recipes WHERE id = $1 AND deleted_at IS NULL`, recipeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ErrRecipeNotFound
		}
		return fmt.Errorf("get recipe owner: %w", err)
	}
	if ownerID != userID {
		return model.ErrNotRecipeOwner
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE recipes SET deleted_at = NOW() WHERE id = $1`, recipeID); err != nil {
		return fmt.Errorf("soft delete recipe: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET recipe_count = recipe_count - 1 WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("decrement recipe count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetUserRecipes retrieves a profile page of recipes using an id cursor
// (ids are monotonic, so id order matches publish order).
func (r *recipeRepository) GetUserRecipes(ctx context.Context, userID int64, cursor *int64, limit int) ([]model.RecipeSummary, *int64, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT id, title, photo_url, favorite_count
			FROM recipes
			WHERE user_id = $1 AND deleted_at IS NULL
			ORDER BY id DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT id, title, photo_url, favorite_count
			FROM recipes
			WHERE user_id = $1 AND id < $2 AND deleted_at IS NULL
			ORDER BY id DESC
			LIMIT $3
		`
		args = []interface{}{userID, *cursor, limit + 1}
	}

	return r.selectSummaryPage(ctx, query, args, limit)
}

func (r *recipeRepository) GetByCategory(ctx context.Context, categoryID int64, cursor *int64, limit int) ([]model.RecipeSummary, *int64, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT id, title, photo_url, favorite_count
			FROM recipes
			WHERE category_id = $1 AND deleted_at IS NULL
			ORDER BY id DESC
			LIMIT $2
		`
		args = []interface{}{categoryID, limit + 1}
	} else {
		query = `
			SELECT id, title, photo_url, favorite_count
			FROM recipes
			WHERE category_id = $1 AND id < $2 AND deleted_at IS NULL
			ORDER BY id DESC
			LIMIT $3
		`
		args = []interface{}{categoryID, *cursor, limit + 1}
	}

	return r.selectSummaryPage(ctx, query, args, limit)
}

func (r *recipeRepository) selectSummaryPage(ctx context.Context, query string, args []interface{}, limit int) ([]model.RecipeSummary, *int64, error) {
	var results []model.RecipeSummary
	err := r.db.SelectContext(ctx, &results, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("get recipe page: %w", err)
	}

	var nextCursor *int64
	if len(results) > limit {
		results = results[:limit]
		nextCursor = &results[len(results)-1].ID
	}

	return results, nextCursor, nil
}

// GetRecentRecipesByUser returns recent recipes for feed backfill as
// (recipeID, timestamp) pairs.
func (r *recipeRepository) GetRecentRecipesByUser(ctx context.Context, userID int64, limit int) ([]cache.RecipeScore, error) {
	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS ts
		FROM recipes
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryxContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent recipes: %w", err)
	}
	defer rows.Close()

	var scores []cache.RecipeScore
	for rows.Next() {
		var s cache.RecipeScore
		if err := rows.Scan(&s.RecipeID, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan recipe score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// GetFeedRecipeIDs is the DB fallback when a user's feed cache is cold:
// recent recipes from all followed authors.
func (r *recipeRepository) GetFeedRecipeIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.RecipeScore, error) {
	if len(followeeIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS ts
		FROM recipes
		WHERE user_id = ANY($1) AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryxContext(ctx, query, pq.Array(followeeIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("get feed recipe ids: %w", err)
	}
	defer rows.Close()

	var scores []cache.RecipeScore
	for rows.Next() {
		var s cache.RecipeScore
		if err := rows.Scan(&s.RecipeID, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan recipe score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *recipeRepository) CheckFavorites(ctx context.Context, userID int64, recipeIDs []int64) (map[int64]bool, error) {
	if len(recipeIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT recipe_id FROM favorites WHERE user_id = $1 AND recipe_id = ANY($2)`
	var favoritedIDs []int64
	err := r.db.SelectContext(ctx, &favoritedIDs, query, userID, pq.Array(recipeIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check favorites: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range recipeIDs {
		result[id] = false
	}
	for _, id := range favoritedIDs {
		result[id] = true
	}
	return result, nil
}

func (r *recipeRepository) Favorite(ctx context.Context, tx *sqlx.Tx, recipeID, userID int64) error {
	query := `
		INSERT INTO favorites (user_id, recipe_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, recipe_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, userID, recipeID)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrAlreadyFavorited
	}
	return nil
}

func (r *recipeRepository) Unfavorite(ctx context.Context, tx *sqlx.Tx, recipeID, userID int64) error {
	query := `DELETE FROM favorites WHERE user_id = $1 AND recipe_id = $2`
	result, err := tx.ExecContext(ctx, query, userID, recipeID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFavorited
	}
	return nil
}

func (r *recipeRepository) IncrementFavoriteCount(ctx context.Context, tx *sqlx.Tx, recipeID int64, delta int) error {
	query := `UPDATE recipes SET favorite_count = favorite_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, recipeID)
	if err != nil {
		return fmt.Errorf("increment favorite count: %w", err)
	}
	return nil
}

func (r *recipeRepository) Exists(ctx context.Context, recipeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM recipes WHERE id = $1 AND deleted_at IS NULL)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, recipeID)
	if err != nil {
		return false, fmt.Errorf("check recipe existence: %w", err)
	}
	return exists, nil
}
