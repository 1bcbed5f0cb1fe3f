package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"recipegram_22520060/internal/httputil"
	"recipegram_22520060/internal/model"
	"recipegram_22520060/internal/service"
	"recipegram_22520060/internal/transport/http/middleware"
)

type RecipeHandler struct {
	recipeService   *service.RecipeService
	favoriteService *service.FavoriteService
}

func NewRecipeHandler(recipeService *service.RecipeService, favoriteService *service.FavoriteService) *RecipeHandler {
	return &RecipeHandler{
		recipeService:   recipeService,
		favoriteService: favoriteService,
	}
}

// Create publishes a new recipe
// POST /recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	recipe, err := h.recipeService.Create(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTitleRequired),
			errors.Is(err, model.ErrTitleTooLong),
			errors.Is(err, model.ErrDescriptionTooLong),
			errors.Is(err, model.ErrTooManyIngredients),
			errors.Is(err, model.ErrTooManySteps):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrCategoryNotFound):
			httputil.WriteBadRequest(w, err.Error())
		default:
			log.Printf("[ERROR] Create recipe handler: %v", err)
			httputil.WriteInternalError(w, "Failed to create recipe")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, recipe)
}

// GetByID returns a single recipe
// GET /recipes/{id}
func (h *RecipeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	recipeID, err := parseRecipeID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid recipe ID")
		return
	}

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	recipe, err := h.recipeService.GetByID(r.Context(), recipeID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrRecipeNotFound) {
			httputil.WriteNotFound(w, "Recipe not found")
			return
		}
		log.Printf("[ERROR] GetByID recipe handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get recipe")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, recipe)
}

// Delete soft-deletes a recipe owned by the caller
// DELETE /recipes/{id}
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	recipeID, err := parseRecipeID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid recipe ID")
		return
	}

	if err := h.recipeService.Delete(r.Context(), recipeID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrRecipeNotFound):
			httputil.WriteNotFound(w, "Recipe not found")
		case errors.Is(err, model.ErrNotRecipeOwner):
			httputil.WriteForbidden(w, "You can only delete your own recipes")
		default:
			log.Printf("[ERROR] Delete recipe handler: %v", err)
			httputil.WriteInternalError(w, "Failed to delete recipe")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Recipe deleted",
	})
}

// GetUserRecipes returns the recipe grid of a user's profile
// GET /users/{id}/recipes
func (h *RecipeHandler) GetUserRecipes(w http.ResponseWriter, r *http.Request) {
	userIDStr := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, limit, ok := parseIDCursorParams(w, r)
	if !ok {
		return
	}

	result, err := h.recipeService.GetUserRecipes(r.Context(), userID, cursor, limit)
	if err != nil {
		log.Printf("[ERROR] GetUserRecipes handler: %v", err)
		httputil.WriteInternalError(w, "Failed to fetch recipes")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetByCategory returns recipes of a category
// GET /categories/{id}/recipes
func (h *RecipeHandler) GetByCategory(w http.ResponseWriter, r *http.Request) {
	categoryIDStr := chi.URLParam(r, "id")
	categoryID, err := strconv.ParseInt(categoryIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid category ID")
		return
	}

	cursor, limit, ok := parseIDCursorParams(w, r)
	if !ok {
		return
	}

	result, err := h.recipeService.GetByCategory(r.Context(), categoryID, cursor, limit)
	if err != nil {
		if errors.Is(err, model.ErrCategoryNotFound) {
			httputil.WriteNotFound(w, "Category not found")
			return
		}
		log.Printf("[ERROR] GetByCategory handler: %v", err)
		httputil.WriteInternalError(w, "Failed to fetch recipes")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Favorite saves a recipe
// POST /recipes/{id}/favorite
func (h *RecipeHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	recipeID, err := parseRecipeID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid recipe ID")
		return
	}

	if err := h.favoriteService.Favorite(r.Context(), recipeID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrRecipeNotFound):
			httputil.WriteNotFound(w, "Recipe not found")
		case errors.Is(err, model.ErrAlreadyFavorited):
			httputil.WriteConflict(w, err.Error())
		default:
			log.Printf("[ERROR] Favorite handler: %v", err)
			httputil.WriteInternalError(w, "Failed to favorite recipe")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Recipe favorited",
	})
}

// Unfavorite removes a saved recipe
// DELETE /recipes/{id}/favorite
func (h *RecipeHandler) Unfavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	recipeID, err := parseRecipeID(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid recipe ID")
		return
	}

	if err := h.favoriteService.Unfavorite(r.Context(), recipeID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFavorited):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Unfavorite handler: %v", err)
			httputil.WriteInternalError(w, "Failed to unfavorite recipe")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Recipe unfavorited",
	})
}

func parseRecipeID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parseIDCursorParams parses the id-based cursor and limit query params used
// by the recipe grid endpoints.
func parseIDCursorParams(w http.ResponseWriter, r *http.Request) (*int64, int, bool) {
	var cursor *int64
	if cursorStr := r.URL.Query().Get("cursor"); cursorStr != "" {
		parsed, err := strconv.ParseInt(cursorStr, 10, 64)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid cursor format")
			return nil, 0, false
		}
		cursor = &parsed
	}

	limit := 12
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit < 1 || parsedLimit > 36 {
			httputil.WriteBadRequest(w, "Limit must be between 1 and 36")
			return nil, 0, false
		}
		limit = parsedLimit
	}

	return cursor, limit, true
}
