package handlers

import (
	"net/http"

	"github.com/feedora/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// NotificationsPage returns one page of the caller's notifications, newest first
// POST /api/v1/notifications-page
func (h *Handlers) NotificationsPage(c *gin.Context) {
	var req struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	}
	if !bindJSON(c, &req) {
		return
	}

	page, err := h.notifications.ListPage(c.Request.Context(), util.Principal(c), req.Page, req.Limit)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": page.Items,
		"pagination": gin.H{
			"total": page.Total,
			"page":  page.Page,
			"limit": page.PageSize,
			"pages": page.PageCount,
		},
	})
}

// MarkNotificationsRead flags the given notifications as read. Ids that are not
// the caller's are ignored.
// POST /api/v1/mark-notifications-read
func (h *Handlers) MarkNotificationsRead(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !bindJSON(c, &req) {
		return
	}

	_, unread, err := h.notifications.MarkRead(c.Request.Context(), util.Principal(c), req.IDs)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"unreadCount": unread})
}

// MarkAllNotificationsRead clears the caller's unread count
// POST /api/v1/mark-all-notifications-read
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	ctx := c.Request.Context()
	p := util.Principal(c)
	updated, err := h.notifications.MarkAllRead(ctx, p)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, p)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"updated": updated, "unreadCount": unread})
}

// UnreadNotificationCount feeds the badge
// GET /api/v1/notifications/unread-count
func (h *Handlers) UnreadNotificationCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), util.Principal(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"unreadCount": n})
}

// DeleteNotification removes one of the caller's notifications
// DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), util.Principal(c), id); err != nil {
		util.RespondWithError(c, err)
		return
	}
	util.RespondOK(c, nil)
}
