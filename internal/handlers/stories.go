package handlers

import (
	"net/http"

	"github.com/feedora/backend/internal/storage"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ListStories returns live stories from the caller and the people they follow
// GET /api/v1/stories
func (h *Handlers) ListStories(c *gin.Context) {
	items, err := h.stories.List(c.Request.Context(), util.Principal(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"items": items})
}

// CreateStory posts a 24h story from the multipart "media" file and "caption"
// POST /api/v1/stories
func (h *Handlers) CreateStory(c *gin.Context) {
	p := util.Principal(c)
	up, closer, err := util.FormUpload(c, "media", storage.FolderStories, p.UserID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	defer closer.Close()
	if up == nil {
		util.RespondBadRequest(c, "media file is required")
		return
	}

	item, err := h.stories.Create(c.Request.Context(), p, c.PostForm("caption"), *up)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondSuccess(c, http.StatusCreated, gin.H{"story": item})
}

// ViewStory records that the caller saw a story
// POST /api/v1/stories/:id/view
func (h *Handlers) ViewStory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	recorded, err := h.stories.View(c.Request.Context(), util.Principal(c), id)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"recorded": recorded})
}

// StoryViews lists who saw the caller's story
// GET /api/v1/stories/:id/views
func (h *Handlers) StoryViews(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	viewers, err := h.stories.Views(c.Request.Context(), util.Principal(c), id)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"viewers": viewers})
}
