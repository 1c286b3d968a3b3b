package handlers

import (
	"net/http"

	"github.com/feedora/backend/internal/posts"
	"github.com/feedora/backend/internal/storage"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ListPosts returns the global feed, newest first. ?authorId= narrows it to
// one user's posts.
// GET /api/v1/posts
func (h *Handlers) ListPosts(c *gin.Context) {
	offset, limit, ok := offsetLimit(c)
	if !ok {
		return
	}
	feed, err := h.posts.List(c.Request.Context(), util.Principal(c), c.Query("authorId"), offset, limit)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// GetPost returns a single post with its counts
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	item, err := h.posts.Get(c.Request.Context(), util.Principal(c), id)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"post": item})
}

// CreatePost publishes a post from a multipart form: "description" and an
// optional "media" image or video.
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	p := util.Principal(c)
	up, closer, err := util.FormUpload(c, "media", storage.FolderPosts, p.UserID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	defer closer.Close()

	item, err := h.posts.Create(c.Request.Context(), p, posts.CreateInput{
		Description: c.PostForm("description"),
		Media:       up,
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondSuccess(c, http.StatusCreated, gin.H{"post": item})
}

// DeletePost removes the caller's post with its reactions, comments and media
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), util.Principal(c), id); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, nil)
}
