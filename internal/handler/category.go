package handler

import (
	"log"
	"net/http"

	"recipegram_22520060/internal/httputil"
	"recipegram_22520060/internal/service"
)

type CategoryHandler struct {
	categoryService *service.CategoryService
}

func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// List handles GET /categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.GetAll(r.Context())
	if err != nil {
		log.Printf("[ERROR] List categories handler: %v", err)
		httputil.WriteInternalError(w, "Failed to fetch categories")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}
