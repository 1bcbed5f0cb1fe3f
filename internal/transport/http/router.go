package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"recipegram_22520060/internal/handler"
	"recipegram_22520060/internal/httputil"
	authmw "recipegram_22520060/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	FollowHandler   *handler.FollowHandler
	FeedHandler     *handler.FeedHandler
	RecipeHandler   *handler.RecipeHandler
	CategoryHandler *handler.CategoryHandler
	DeviceHandler   *handler.DeviceHandler
	MediaHandler    *handler.MediaHandler
	JWTSecret       string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Public user endpoints with optional authentication
	r.Route("/users", func(r chi.Router) {
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/search", cfg.UserHandler.Search)
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/{id}", cfg.UserHandler.GetProfile)
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/{id}/following", cfg.FollowHandler.GetFollowing)
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/{id}/recipes", cfg.RecipeHandler.GetUserRecipes)
	})

	// Public recipe and category endpoints with optional authentication
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/recipes/{id}", cfg.RecipeHandler.GetByID)
	r.Get("/categories", cfg.CategoryHandler.List)
	r.Get("/categories/{id}/recipes", cfg.RecipeHandler.GetByCategory)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)

		// Auth actions that require authentication
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		// Follow/unfollow actions require authentication
		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)

		// Feed endpoint
		r.Get("/feed", cfg.FeedHandler.GetFeed)

		// Recipe endpoints
		r.Post("/recipes", cfg.RecipeHandler.Create)
		r.Delete("/recipes/{id}", cfg.RecipeHandler.Delete)
		r.Post("/recipes/{id}/favorite", cfg.RecipeHandler.Favorite)
		r.Delete("/recipes/{id}/favorite", cfg.RecipeHandler.Unfavorite)

		// Push notification device registration
		r.Post("/devices", cfg.DeviceHandler.Register)
		r.Delete("/devices", cfg.DeviceHandler.Unregister)

		// Media endpoints
		r.Post("/media/recipes", cfg.MediaHandler.UploadRecipePhoto)
		r.Post("/media/avatars", cfg.MediaHandler.UploadAvatar)
	})

	return r
}
