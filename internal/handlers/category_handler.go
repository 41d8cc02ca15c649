package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/models"
	"ibooks/internal/services"
)

// CategoryHandler handles category tree and tag requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
	tagService      services.TagServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer, tagService services.TagServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, tagService: tagService}
}

// CreateCategoryRequest represents the request payload for creating a category
type CreateCategoryRequest struct {
	Type      string `json:"type" binding:"required,category_type"`
	Name      string `json:"name" binding:"required,min=1,max=100"`
	ParentID  *uint  `json:"parentId"`
	SortOrder *int   `json:"sortOrder"`
	IsActive  *bool  `json:"isActive"`
}

// UpdateCategoryRequest represents a partial category update. Type and
// parent are changed through MoveCategory.
type UpdateCategoryRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	SortOrder *int    `json:"sortOrder"`
	IsActive  *bool   `json:"isActive"`
}

// MoveCategoryRequest places a category under parentId at position index.
type MoveCategoryRequest struct {
	ParentID *uint `json:"parentId"`
	Index    int   `json:"index" binding:"min=0"`
}

// CreateTagRequest represents the request payload for creating a tag.
type CreateTagRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	IsActive *bool  `json:"isActive"`
}

// TagResponse represents a tag in the response.
type TagResponse struct {
	ID         uint   `json:"id"`
	CategoryID uint   `json:"categoryId"`
	Name       string `json:"name"`
	IsActive   bool   `json:"isActive"`
}

func newTagResponse(t *models.CategoryTag) TagResponse {
	return TagResponse{ID: t.ID, CategoryID: t.CategoryID, Name: t.Name, IsActive: t.IsActive}
}

// GetTree returns the caller's category forest
// @Summary     Category tree
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Param       type query string false "income or expense"
// @Success     200 {array}  services.CategoryNode
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /config/categories/tree [get]
func (h *CategoryHandler) GetTree(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var categoryType *models.CategoryType
	if raw := c.Query("type"); raw != "" {
		t := models.CategoryType(raw)
		if t != models.CategoryTypeIncome && t != models.CategoryTypeExpense {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid type"))
			return
		}
		categoryType = &t
	}

	tree, err := h.categoryService.GetTree(c.Request.Context(), userID, categoryType)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if tree == nil {
		tree = []*services.CategoryNode{}
	}
	c.JSON(http.StatusOK, tree)
}

// CreateCategory handles the creation of a new category
// @Summary     Create a category
// @Description Without sortOrder the category is appended after its siblings.
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} services.CategoryNode "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /config/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	in := services.CreateCategoryInput{
		Type:      models.CategoryType(req.Type),
		Name:      req.Name,
		ParentID:  req.ParentID,
		SortOrder: req.SortOrder,
		IsActive:  true,
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}

	node, err := h.categoryService.CreateCategory(c.Request.Context(), userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

// UpdateCategory handles partial category updates
// @Summary     Update a category
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                   true "Category ID"
// @Param       request body UpdateCategoryRequest true "Fields to change"
// @Success     200 {object} services.CategoryNode
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /config/categories/{id} [patch]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	node, err := h.categoryService.UpdateCategory(c.Request.Context(), userID, categoryID, services.UpdateCategoryInput{
		Name:      req.Name,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// MoveCategory re-parents and reorders a category
// @Summary     Move a category
// @Description Sibling sort orders are rewritten as position*10.
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                 true "Category ID"
// @Param       request body MoveCategoryRequest true "Destination"
// @Success     200 {object} DeleteResponse
// @Failure     400 {object} ErrorResponse "Invalid input or cycle"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /config/categories/{id}/move [patch]
func (h *CategoryHandler) MoveCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MoveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	if err := h.categoryService.MoveCategory(c.Request.Context(), userID, categoryID, req.ParentID, req.Index); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{OK: true})
}

// DeleteCategory deletes or disables a category
// @Summary     Delete a category
// @Description Categories referenced by transactions are disabled instead of deleted.
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {object} DeleteResponse
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category has active children"
// @Router      /config/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	mode, err := h.categoryService.DeleteCategory(c.Request.Context(), userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{OK: true, Mode: string(mode)})
}

// ListTags lists the tags of a first-level expense category
// @Summary     List category tags
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Param       id         path  int  true  "Category ID"
// @Param       activeOnly query bool false "Only active tags"
// @Success     200 {array}  TagResponse
// @Failure     400 {object} ErrorResponse "Not a first-level expense category"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /config/categories/{id}/tags [get]
func (h *CategoryHandler) ListTags(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tags, err := h.tagService.ListTags(c.Request.Context(), userID, categoryID, c.Query("activeOnly") == "true")
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]TagResponse, 0, len(tags))
	for i := range tags {
		out = append(out, newTagResponse(&tags[i]))
	}
	c.JSON(http.StatusOK, out)
}

// CreateTag binds a tag to a first-level expense category
// @Summary     Create a category tag
// @Description An inactive tag with the same name is reactivated.
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int              true "Category ID"
// @Param       request body CreateTagRequest true "Tag"
// @Success     201 {object} TagResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Duplicate tag"
// @Router      /config/categories/{id}/tags [post]
func (h *CategoryHandler) CreateTag(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	tag, err := h.tagService.CreateTag(c.Request.Context(), userID, categoryID, req.Name, isActive)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTagResponse(tag))
}

// DeleteTag deletes or disables a tag
// @Summary     Delete a category tag
// @Description Tags linked to transactions are disabled instead of deleted.
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Param       id    path int true "Category ID"
// @Param       tagId path int true "Tag ID"
// @Success     200 {object} DeleteResponse
// @Failure     404 {object} ErrorResponse "Tag not found"
// @Router      /config/categories/{id}/tags/{tagId} [delete]
func (h *CategoryHandler) DeleteTag(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	tagID, err := parsePathID(c, "tagId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	mode, err := h.tagService.DeleteTag(c.Request.Context(), userID, categoryID, tagID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{OK: true, Mode: string(mode)})
}
