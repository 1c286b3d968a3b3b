package handlers

import (
	"net/http"

	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// AddComment comments on a post
// POST /api/v1/add-comment
func (h *Handlers) AddComment(c *gin.Context) {
	var req struct {
		PostID string `json:"postId" binding:"required,uuid"`
		Text   string `json:"text"`
	}
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.comments.Add(c.Request.Context(), util.Principal(c), req.PostID, req.Text)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondSuccess(c, http.StatusCreated, gin.H{"commentId": comment.ID})
}

// CommentsPage returns one offset window of a post's comments, newest first.
// The first window also carries the post's reactions.
// POST /api/v1/comments-page
func (h *Handlers) CommentsPage(c *gin.Context) {
	var req struct {
		PostID string `json:"postId" binding:"required,uuid"`
		Offset int    `json:"offset"`
		Limit  int    `json:"limit"`
	}
	if !bindJSON(c, &req) {
		return
	}

	page, err := h.comments.List(c.Request.Context(), util.Principal(c), req.PostID, req.Offset, req.Limit)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// DeleteComment removes a comment; the comment's author or the post's author may do so
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), util.Principal(c), id); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, nil)
}

// ToggleCommentLike likes or unlikes a comment
// POST /api/v1/toggle-comment-like
func (h *Handlers) ToggleCommentLike(c *gin.Context) {
	var req struct {
		CommentID string `json:"commentId" binding:"required,uuid"`
	}
	if !bindJSON(c, &req) {
		return
	}

	res, likes, err := h.commentLikes.Toggle(c.Request.Context(), util.Principal(c), req.CommentID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{
		"action":    res.Action,
		"liked":     res.Active(),
		"likeCount": likes,
	})
}
