package handler

import (
	"net/http"

	"issue-service/internal/model"
	"issue-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CategoryHandler struct {
	categoryService *service.CategoryService
	log             zerolog.Logger
}

func NewCategoryHandler(log zerolog.Logger, categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		log:             log.With().Str("component", "category_handler").Logger(),
	}
}

// Handles GET /categories - active categories; admins may add includeInactive=true.
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	q := &queryParams{c: c}
	includeInactive := q.boolParam("includeInactive")
	if err := q.err(); err != nil {
		writeError(c, h.log, err)
		return
	}

	categories, err := h.categoryService.List(c.Request.Context(), includeInactive, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req model.CategoryRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.CategoryRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DeactivateCategory(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Deactivate(c.Request.Context(), id, identity(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CategoryHandler) CreateSubcategory(c *gin.Context) {
	categoryID, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.SubcategoryRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	sub, err := h.categoryService.CreateSubcategory(c.Request.Context(), categoryID, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *CategoryHandler) UpdateSubcategory(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req model.SubcategoryRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	sub, err := h.categoryService.UpdateSubcategory(c.Request.Context(), id, &req, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *CategoryHandler) DeactivateSubcategory(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	if err := h.categoryService.DeactivateSubcategory(c.Request.Context(), id, identity(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Handles GET /subcategories/:id/authority-types - the role names the
// reporting form asks contact names for.
func (h *CategoryHandler) AuthorityTypes(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	types, err := h.categoryService.AuthorityTypes(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subcategoryId": id, "authorityTypes": types})
}
