package handlers

import (
	"net/http"
	"strings"

	"github.com/feedora/backend/internal/recipes"
	"github.com/feedora/backend/internal/storage"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ListRecipes lists recipes newest first, filtered by ?category= and
// ?authorId=. With ?q= it searches titles instead.
// GET /api/v1/recipes
func (h *Handlers) ListRecipes(c *gin.Context) {
	offset, limit, ok := offsetLimit(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p := util.Principal(c)

	var (
		page *recipes.Page
		err  error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		page, err = h.recipes.Search(ctx, p, q, offset, limit)
	} else {
		page, err = h.recipes.List(ctx, p, recipes.Filter{
			Category: c.Query("category"),
			AuthorID: c.Query("authorId"),
		}, offset, limit)
	}
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetRecipe returns a recipe with its ingredients and save state
// GET /api/v1/recipes/:id
func (h *Handlers) GetRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.recipes.Get(c.Request.Context(), util.Principal(c), id)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"recipe": item})
}

// CreateRecipe stores a recipe, normalizing its ingredients
// POST /api/v1/recipes
func (h *Handlers) CreateRecipe(c *gin.Context) {
	var in recipes.Input
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.recipes.Create(c.Request.Context(), util.Principal(c), in)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondSuccess(c, http.StatusCreated, gin.H{"recipe": item})
}

// UpdateRecipe replaces the caller's recipe, ingredients included
// PUT /api/v1/recipes/:id
func (h *Handlers) UpdateRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in recipes.Input
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.recipes.Update(c.Request.Context(), util.Principal(c), id, in)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"recipe": item})
}

// DeleteRecipe removes the caller's recipe and its photo
// DELETE /api/v1/recipes/:id
func (h *Handlers) DeleteRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), util.Principal(c), id); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, nil)
}

// UploadRecipePhoto sets a recipe's photo from the multipart "photo" field
// POST /api/v1/recipes/:id/photo
func (h *Handlers) UploadRecipePhoto(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p := util.Principal(c)
	up, closer, err := util.FormUpload(c, "photo", storage.FolderRecipes, p.UserID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	defer closer.Close()
	if up == nil {
		util.RespondBadRequest(c, "photo file is required")
		return
	}

	item, err := h.recipes.SetPhoto(c.Request.Context(), p, id, *up)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"recipe": item})
}

// ToggleSaveRecipe adds the recipe to the caller's collection or removes it
// POST /api/v1/recipes/:id/toggle-save
func (h *Handlers) ToggleSaveRecipe(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, saves, err := h.recipes.ToggleSave(c.Request.Context(), util.Principal(c), id)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{
		"action":    res.Action,
		"saved":     res.Active(),
		"saveCount": saves,
	})
}

// SavedRecipes lists the caller's collection, most recently saved first
// GET /api/v1/recipes/saved
func (h *Handlers) SavedRecipes(c *gin.Context) {
	offset, limit, ok := offsetLimit(c)
	if !ok {
		return
	}
	page, err := h.recipes.Saved(c.Request.Context(), util.Principal(c), offset, limit)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListUnits
// GET /api/v1/units
func (h *Handlers) ListUnits(c *gin.Context) {
	units, err := h.recipes.Units(c.Request.Context())
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"units": units})
}

// ListCategories
// GET /api/v1/categories
func (h *Handlers) ListCategories(c *gin.Context) {
	cats, err := h.recipes.Categories(c.Request.Context())
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"categories": cats})
}
