package handlers

import (
	"github.com/feedora/backend/internal/comments"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ToggleReaction reacts to a post. Sending the current kind again removes the
// reaction; a different kind replaces it.
// POST /api/v1/toggle-reaction
func (h *Handlers) ToggleReaction(c *gin.Context) {
	var req struct {
		TargetID string `json:"targetId" binding:"required,uuid"`
		Kind     string `json:"kind" binding:"required,reactionkind"`
	}
	if !bindJSON(c, &req) {
		return
	}

	res, counts, err := h.reactions.Toggle(c.Request.Context(), util.Principal(c), req.TargetID, req.Kind)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{
		"action":    res.Action,
		"kind":      res.Kind,
		"newCounts": counts,
	})
}

// GetPostReactions returns a post's counts and its newest reactors
// GET /api/v1/posts/:id/reactions
func (h *Handlers) GetPostReactions(c *gin.Context) {
	ctx := c.Request.Context()
	postID, ok := pathID(c)
	if !ok {
		return
	}

	counts, err := h.reactions.Counts(ctx, util.Principal(c), postID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	reactors, err := h.reactions.Reactors(ctx, postID, comments.FirstPageReactions)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"counts": counts, "reactions": reactors})
}
