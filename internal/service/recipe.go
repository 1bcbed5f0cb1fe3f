package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"recipegram_22520060/internal/model"
	"recipegram_22520060/internal/queue"
	"recipegram_22520060/internal/repository"
)

type RecipeService struct {
	recipeRepo   repository.RecipeRepository
	userRepo     repository.UserRepository
	categoryRepo repository.CategoryRepository
	publisher    queue.Publisher
}

func NewRecipeService(
	recipeRepo repository.RecipeRepository,
	userRepo repository.UserRepository,
	categoryRepo repository.CategoryRepository,
	publisher queue.Publisher,
) *RecipeService {
	return &RecipeService{
		recipeRepo:   recipeRepo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
	}
}

// Create publishes a new recipe and emits an event for feed fan-out and
// follower push notifications. The event carries the recipe title and the
// author's display name so the worker never has to refetch them.
func (s *RecipeService) Create(ctx context.Context, userID int64, req model.CreateRecipeRequest) (*model.Recipe, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, model.ErrTitleRequired
	}
	if len(req.Title) > model.MaxRecipeTitleLength {
		return nil, model.ErrTitleTooLong
	}
	if req.Description != nil && len(*req.Description) > model.MaxRecipeDescriptionLength {
		return nil, model.ErrDescriptionTooLong
	}
	if len(req.Ingredients) > model.MaxRecipeIngredients {
		return nil, model.ErrTooManyIngredients
	}
	if len(req.Steps) > model.MaxRecipeSteps {
		return nil, model.ErrTooManySteps
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	recipe := &model.Recipe{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		CategoryID:  req.CategoryID,
		PhotoURL:    req.PhotoURL,
	}

	if err := s.recipeRepo.Create(ctx, recipe); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}

	// Fetch author info for the response and the event payload
	authorName := ""
	author, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		authorName = author.DisplayNameOrUsername()
		recipe.Author = &model.UserSummary{
			ID:          author.ID,
			Username:    author.Username,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
		}
	} else {
		log.Printf("[RecipeService] Failed to fetch author: user=%d err=%v", userID, err)
	}

	// Publish event for async fan-out (after commit, best-effort)
	event := queue.NewRecipeCreatedEvent(recipe.ID, userID, recipe.Title, authorName)
	msgID, err := s.publisher.Publish(ctx, queue.StreamRecipes, event)
	if err != nil {
		// Log but don't fail - recipe is created, fan-out can be retried
		log.Printf("[RecipeService] Failed to publish RecipeCreated event: recipe=%d err=%v", recipe.ID, err)
	} else {
		log.Printf("[RecipeService] Published RecipeCreated: recipe=%d msgID=%s", recipe.ID, msgID)
	}

	return recipe, nil
}

// GetByID retrieves a single recipe with full details.
func (s *RecipeService) GetByID(ctx context.Context, recipeID int64, viewerID *int64) (*model.Recipe, error) {
	recipe, err := s.recipeRepo.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, recipe.UserID)
	if err == nil {
		recipe.Author = &model.UserSummary{
			ID:          author.ID,
			Username:    author.Username,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
		}
	}

	if recipe.CategoryID != nil {
		if category, err := s.categoryRepo.GetByID(ctx, *recipe.CategoryID); err == nil {
			recipe.Category = &category.Name
		}
	}

	if viewerID != nil {
		favStatus, err := s.recipeRepo.CheckFavorites(ctx, *viewerID, []int64{recipeID})
		if err != nil {
			log.Printf("[RecipeService] Failed to check favorite status: %v", err)
		} else {
			recipe.IsFavorited = favStatus[recipeID]
		}
	}

	return recipe, nil
}

// Delete soft-deletes a recipe and publishes an event to remove it from feeds.
func (s *RecipeService) Delete(ctx context.Context, recipeID, userID int64) error {
	err := s.recipeRepo.Delete(ctx, recipeID, userID)
	if err != nil {
		return err
	}

	event := queue.NewRecipeDeletedEvent(recipeID, userID)
	msgID, err := s.publisher.Publish(ctx, queue.StreamRecipes, event)
	if err != nil {
		log.Printf("[RecipeService] Failed to publish RecipeDeleted event: recipe=%d err=%v", recipeID, err)
	} else {
		log.Printf("[RecipeService] Published RecipeDeleted: recipe=%d msgID=%s", recipeID, msgID)
	}

	return nil
}

// GetUserRecipes retrieves recipe cards for a user's profile.
func (s *RecipeService) GetUserRecipes(ctx context.Context, userID int64, cursor *int64, limit int) (*model.RecipeListResponse, error) {
	if limit <= 0 {
		limit = 12
	}
	if limit > 36 {
		limit = 36
	}

	recipes, nextCursor, err := s.recipeRepo.GetUserRecipes(ctx, userID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get user recipes: %w", err)
	}

	return summaryPage(recipes, nextCursor), nil
}

// GetByCategory retrieves recipe cards for a category browse page.
func (s *RecipeService) GetByCategory(ctx context.Context, categoryID int64, cursor *int64, limit int) (*model.RecipeListResponse, error) {
	if limit <= 0 {
		limit = 12
	}
	if limit > 36 {
		limit = 36
	}

	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}

	recipes, nextCursor, err := s.recipeRepo.GetByCategory(ctx, categoryID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get category recipes: %w", err)
	}

	return summaryPage(recipes, nextCursor), nil
}

func summaryPage(recipes []model.RecipeSummary, nextCursor *int64) *model.RecipeListResponse {
	hasMore := nextCursor != nil

	var finalCursor *string
	if hasMore {
		c := fmt.Sprintf("%d", *nextCursor)
		finalCursor = &c
	}

	return &model.RecipeListResponse{
		Recipes:    recipes,
		NextCursor: finalCursor,
		HasMore:    hasMore,
	}
}
