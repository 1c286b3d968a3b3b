package handlers

import (
	"context"

	"github.com/feedora/backend/internal/dto"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/models"
	"github.com/feedora/backend/internal/pagination"
	"github.com/feedora/backend/internal/repository"
	"github.com/feedora/backend/internal/social"
	"github.com/feedora/backend/internal/storage"
	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// ToggleFollow follows or unfollows a user
// POST /api/v1/toggle-follow
func (h *Handlers) ToggleFollow(c *gin.Context) {
	var req struct {
		TargetUserID string `json:"targetUserId" binding:"required,uuid"`
	}
	if !bindJSON(c, &req) {
		return
	}

	res, followers, err := h.follows.Toggle(c.Request.Context(), util.Principal(c), req.TargetUserID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{
		"action":           res.Action,
		"following":        res.Active(),
		"newFollowerCount": followers,
	})
}

// GetProfile returns a user's public profile with counts
// GET /api/v1/users/:id
func (h *Handlers) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	userID, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	stats, err := h.users.Stats(ctx, userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	var isFollowing *bool
	if p := util.Principal(c); !p.Anonymous() && p.UserID != userID {
		following, err := h.follows.IsFollowing(ctx, p.UserID, userID)
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		isFollowing = &following
	}
	util.RespondOK(c, gin.H{"user": dto.ToProfileResponse(user, stats, isFollowing)})
}

// UpdateProfile edits the caller's name and bio
// PUT /api/v1/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req repository.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), util.Principal(c).UserID, req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"user": dto.ToUserDetailResponse(user)})
}

// UploadProfileImage replaces the caller's avatar
// POST /api/v1/users/me/profile-image
func (h *Handlers) UploadProfileImage(c *gin.Context) {
	h.uploadUserImage(c, repository.ProfileImage, storage.FolderProfiles)
}

// UploadBannerImage replaces the caller's banner
// POST /api/v1/users/me/banner-image
func (h *Handlers) UploadBannerImage(c *gin.Context) {
	h.uploadUserImage(c, repository.BannerImage, storage.FolderBanners)
}

func (h *Handlers) uploadUserImage(c *gin.Context, slot repository.ImageSlot, folder storage.Folder) {
	ctx := c.Request.Context()
	userID := util.Principal(c).UserID

	up, closer, err := util.FormUpload(c, "image", folder, userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	defer closer.Close()
	if up == nil {
		util.RespondBadRequest(c, "image file is required")
		return
	}
	if err := storage.RequireImage(up.Filename); err != nil {
		util.RespondWithError(c, err)
		return
	}

	stored, err := h.media.Put(ctx, *up)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	oldKey, err := h.users.ReplaceImage(ctx, userID, slot, stored.URL, stored.Key)
	if err != nil {
		if delErr := h.media.Delete(ctx, stored.Key); delErr != nil {
			logger.WarnWithFields("Failed to remove orphaned upload", delErr, logger.WithUserID(userID))
		}
		util.RespondWithError(c, err)
		return
	}
	if oldKey != "" {
		if err := h.media.Delete(ctx, oldKey); err != nil {
			logger.WarnWithFields("Failed to remove replaced image", err, logger.WithUserID(userID))
		}
	}
	util.RespondOK(c, gin.H{"url": stored.URL})
}

// GetFollowers lists who follows a user
// GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	h.followList(c, h.follows.Followers)
}

// GetFollowing lists whom a user follows
// GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	h.followList(c, h.follows.Following)
}

type followLister func(ctx context.Context, userID string, cur pagination.Cursor) ([]models.UserSummary, int64, error)

func (h *Handlers) followList(c *gin.Context, list followLister) {
	ctx := c.Request.Context()
	userID, ok := pathID(c)
	if !ok {
		return
	}
	offset, limit, ok := offsetLimit(c)
	if !ok {
		return
	}
	if offset < 0 {
		util.RespondBadRequest(c, "offset must not be negative")
		return
	}
	if _, err := h.users.GetUser(ctx, userID); err != nil {
		util.RespondWithError(c, err)
		return
	}

	cur := pagination.NewCursor(offset, limit, social.FollowListBounds)
	users, total, err := list(ctx, userID, cur)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	hasMore, next := cur.Next(len(users), total)
	util.RespondOK(c, gin.H{
		"items":      users,
		"totalCount": total,
		"hasMore":    hasMore,
		"nextOffset": next,
	})
}
